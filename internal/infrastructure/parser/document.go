package parser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ParseDocument turns a serialized page snapshot into a queryable document.
func ParseDocument(snapshot string) (*goquery.Document, error) {
	root, err := html.Parse(strings.NewReader(snapshot))
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return goquery.NewDocumentFromNode(root), nil
}

// Attributes returns every attribute of the first element in sel.
// Non-element or empty selections yield an empty map.
func Attributes(sel *goquery.Selection) map[string]string {
	attrs := map[string]string{}
	if sel == nil || sel.Length() == 0 {
		return attrs
	}

	node := sel.Nodes[0]
	if node == nil || node.Type != html.ElementNode {
		return attrs
	}

	for _, attr := range node.Attr {
		name := attr.Key
		if attr.Namespace != "" {
			name = attr.Namespace + ":" + attr.Key
		}
		attrs[name] = attr.Val
	}
	return attrs
}

func resolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}

	parsedRef, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if parsedRef.IsAbs() || base == "" {
		return parsedRef.String()
	}

	parsedBase, err := url.Parse(base)
	if err != nil {
		return parsedRef.String()
	}
	return parsedBase.ResolveReference(parsedRef).String()
}

func text(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}

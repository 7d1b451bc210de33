package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultBlockedResources are the resource categories that never load.
var DefaultBlockedResources = []string{"image", "font", "stylesheet", "script", "media"}

// ResourceFilter aborts requests for rendering and script resources so only
// the document and XHR traffic reach the page.
type ResourceFilter struct {
	blocked map[string]struct{}
}

// NewResourceFilter builds a filter for the given categories (case-insensitive).
// A nil slice selects DefaultBlockedResources.
func NewResourceFilter(categories []string) ResourceFilter {
	if categories == nil {
		categories = DefaultBlockedResources
	}
	blocked := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			blocked[c] = struct{}{}
		}
	}
	return ResourceFilter{blocked: blocked}
}

// Blocks reports whether a request of the given resource type is aborted.
func (f ResourceFilter) Blocks(resourceType string) bool {
	_, ok := f.blocked[strings.ToLower(resourceType)]
	return ok
}

// requestAction is what the filter can do with an intercepted request.
type requestAction interface {
	Fail(reason proto.NetworkErrorReason)
	Continue()
}

type hijackAction struct {
	h *rod.Hijack
}

func (a hijackAction) Fail(reason proto.NetworkErrorReason) {
	a.h.Response.Fail(reason)
}

func (a hijackAction) Continue() {
	a.h.ContinueRequest(&proto.FetchContinueRequest{})
}

func (f ResourceFilter) handle(h *rod.Hijack) {
	f.route(string(h.Request.Type()), hijackAction{h: h})
}

// route aborts blocked resource types and lets everything else through unmodified.
func (f ResourceFilter) route(resourceType string, action requestAction) {
	if f.Blocks(resourceType) {
		action.Fail(proto.NetworkErrorReasonBlockedByClient)
		return
	}
	action.Continue()
}

// install attaches the filter to a page for the page's lifetime.
func (f ResourceFilter) install(page *rod.Page) (*rod.HijackRouter, error) {
	router := page.HijackRequests()
	if err := router.Add("*", "", f.handle); err != nil {
		return nil, err
	}
	go router.Run()
	return router, nil
}

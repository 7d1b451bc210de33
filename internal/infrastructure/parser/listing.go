package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ThreadHarvester/internal/domain"
	"ThreadHarvester/internal/scanner"
)

// Epoch values below this are taken as seconds rather than milliseconds.
const epochSecondsCeiling = 100_000_000_000

// ListingPage is the result of scanning one listing page.
type ListingPage struct {
	Entries   []domain.ListingEntry
	Malformed []MalformedEntry
	NextURL   string
}

// MalformedEntry records a listing item that was excluded from the result.
type MalformedEntry struct {
	Index int
	ID    string
	Raw   string
	Err   error
}

// ScanListing extracts entries in document order from a listing page snapshot.
// Relative links are resolved against pageURL.
func ScanListing(doc *goquery.Document, d scanner.Dialect, pageURL string) ListingPage {
	var page ListingPage

	doc.Find(d.ListingThing).Each(func(i int, thing *goquery.Selection) {
		entry, err := parseListingEntry(thing, d, pageURL)
		if err != nil {
			page.Malformed = append(page.Malformed, MalformedEntry{
				Index: i,
				ID:    entry.ID,
				Raw:   entry.AuthorityTimestamp,
				Err:   err,
			})
			return
		}
		page.Entries = append(page.Entries, entry)
	})

	if href, ok := doc.Find(d.NextPage).First().Attr("href"); ok {
		page.NextURL = resolveURL(pageURL, href)
	}

	return page
}

func parseListingEntry(thing *goquery.Selection, d scanner.Dialect, pageURL string) (domain.ListingEntry, error) {
	attrs := Attributes(thing)

	raw := strings.TrimSpace(attrs[d.TimestampAttr])
	if raw == "" && d.ListingTime != "" {
		raw, _ = thing.Find(d.ListingTime).First().Attr("datetime")
		raw = strings.TrimSpace(raw)
	}

	entry := domain.ListingEntry{
		ID:                 attrs[d.IDAttr],
		CommunityID:        attrs[d.CommunityAttr],
		AuthorityTimestamp: raw,
		Author:             text(thing.Find(d.ListingAuthor).First()),
	}

	if strings.TrimSpace(entry.ID) == "" {
		return entry, fmt.Errorf("%w: %s attribute is missing", domain.ErrMalformedEntry, d.IDAttr)
	}

	ts, err := ParseTimestamp(raw)
	if err != nil {
		return entry, err
	}
	entry.Timestamp = ts

	if href, ok := thing.Find(d.ListingPermalink).First().Attr("href"); ok {
		entry.PermalinkURL = resolveURL(pageURL, href)
	}

	return entry, nil
}

// ParseTimestamp converts a raw timestamp attribute into epoch milliseconds.
// Integer values are epoch milliseconds (or seconds when small enough);
// anything else must be RFC 3339.
func ParseTimestamp(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: timestamp attribute is missing", domain.ErrMalformedEntry)
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("%w: timestamp %q is not positive", domain.ErrMalformedEntry, raw)
		}
		if n < epochSecondsCeiling {
			return n * 1000, nil
		}
		return n, nil
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return 0, fmt.Errorf("%w: timestamp %q: %w", domain.ErrMalformedEntry, raw, err)
	}
	return parsed.UnixMilli(), nil
}

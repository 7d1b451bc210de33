package domain

import "errors"

var (
	// ErrNavigation marks a page or context that failed to load a URL.
	ErrNavigation = errors.New("navigation failed")
	// ErrSelectorMiss marks a required element that is absent from the document.
	ErrSelectorMiss = errors.New("required element not found")
	// ErrMalformedEntry marks a listing item without a usable timestamp.
	ErrMalformedEntry = errors.New("malformed listing entry")
	// ErrNoConnectionURL is returned when the browser endpoint is not configured.
	ErrNoConnectionURL = errors.New("browser connection url is not configured")
)

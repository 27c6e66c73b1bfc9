// Package browser abstracts the scripted browser session behind a capability
// interface so the sign-in orchestrator stays independent of the automation
// engine. The concrete implementation drives Chrome over the DevTools
// protocol.
package browser

import (
	"context"
	"net/url"
	"time"
)

// InterceptedRequest is a network request paused by a route interception
// rule, ready to be answered out-of-band.
type InterceptedRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// RouteResponse fulfills an intercepted request.
type RouteResponse struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

// RouteHandler answers an intercepted request. A nil response or an error
// aborts the browser-side request; it is never fulfilled with partial data.
type RouteHandler func(ctx context.Context, req InterceptedRequest) (*RouteResponse, error)

// Driver is the browser capability the orchestrator consumes. Every
// potentially blocking operation carries its own timeout; there is no global
// deadline.
type Driver interface {
	// Navigate loads a URL and waits for the navigation to commit.
	Navigate(ctx context.Context, url string) error

	// CurrentURL returns the page's current location.
	CurrentURL(ctx context.Context) (string, error)

	// WaitForURL polls the location until match accepts it or the timeout
	// elapses. The last observed URL is returned either way; a timeout is
	// reported as an error.
	WaitForURL(ctx context.Context, match func(*url.URL) bool, timeout time.Duration) (string, error)

	// Fill waits for the element, clears it and types the value.
	Fill(ctx context.Context, selector, value string, timeout time.Duration) error

	// Click waits for the element and clicks it.
	Click(ctx context.Context, selector string, timeout time.Duration) error

	// Probe reports whether the element becomes visible within the
	// timeout. Absence and any probe failure both read as false; probing
	// never signals errors.
	Probe(ctx context.Context, selector string, timeout time.Duration) bool

	// Text waits for the element and returns its visible text.
	Text(ctx context.Context, selector string, timeout time.Duration) (string, error)

	// PollCondition evaluates a page-context JavaScript predicate until it
	// is truthy or the timeout elapses. A timeout is (false, nil), not an
	// error.
	PollCondition(ctx context.Context, expr string, timeout time.Duration) (bool, error)

	// ReadClipboard returns the page clipboard text.
	ReadClipboard(ctx context.Context) (string, error)

	// InterceptRoute arms an interception rule for a URL pattern. The
	// returned channel receives one signal per fulfilled request; aborted
	// requests do not signal.
	InterceptRoute(ctx context.Context, pattern string, handler RouteHandler) (<-chan struct{}, error)

	// ExportSession writes the session snapshot (cookies plus client-side
	// storage) as JSON to path.
	ExportSession(ctx context.Context, path string) error

	// Screenshot captures the viewport to path.
	Screenshot(ctx context.Context, path string) error

	// Close tears down the browser session.
	Close() error
}

package fakes

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/systmms/authops/internal/browser"
)

// FakeDriver is a scriptable browser driver. Each WaitForURL call consumes
// the next entry of Locations and evaluates the caller's predicate against
// it, so a test scripts the page's journey as a list of URLs. Probes answer
// from Visible; everything else records its calls.
type FakeDriver struct {
	// Locations is the URL the page "is at" for each successive
	// WaitForURL call. A predicate rejecting its entry makes that call
	// time out.
	Locations     []string
	locationIndex int

	// Visible answers Probe (and gates Fill/Click/Text failures are not
	// modeled; interaction calls always succeed).
	Visible map[string]bool

	// Texts answers Text per selector.
	Texts map[string]string

	// PollResult and PollErr script PollCondition.
	PollResult bool
	PollErr    error

	// ClipboardText answers ReadClipboard.
	ClipboardText string

	// FulfillIntercepted pre-loads the interception channel so waits on
	// it return immediately.
	FulfillIntercepted bool

	// ExportErr makes ExportSession fail.
	ExportErr error

	// WriteSessionFile makes ExportSession create a real file at the
	// requested path, so cache-validity checks in follow-up runs pass.
	WriteSessionFile bool

	NavigateCalls    int
	NavigatedURLs    []string
	WaitForURLCalls  int
	FillCalls        int
	Filled           map[string]string
	ClickCalls       int
	Clicked          []string
	ProbeCalls       int
	PollCalls        int
	InterceptCalls   int
	InterceptPattern string
	Handler          browser.RouteHandler
	ExportCalls      int
	ExportedPaths    []string
	ScreenshotCalls  int
	ScreenshotPaths  []string
	CloseCalls       int
}

// NewFakeDriver creates a fake driver with empty scripting.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		Visible: make(map[string]bool),
		Texts:   make(map[string]string),
		Filled:  make(map[string]string),
	}
}

// Navigate implements browser.Driver.
func (d *FakeDriver) Navigate(ctx context.Context, target string) error {
	d.NavigateCalls++
	d.NavigatedURLs = append(d.NavigatedURLs, target)
	return nil
}

// CurrentURL implements browser.Driver.
func (d *FakeDriver) CurrentURL(ctx context.Context) (string, error) {
	if d.locationIndex > 0 {
		return d.Locations[d.locationIndex-1], nil
	}
	if len(d.Locations) > 0 {
		return d.Locations[0], nil
	}
	return "", nil
}

// WaitForURL implements browser.Driver by consuming the next scripted
// location.
func (d *FakeDriver) WaitForURL(ctx context.Context, match func(*url.URL) bool, timeout time.Duration) (string, error) {
	d.WaitForURLCalls++

	if d.locationIndex >= len(d.Locations) {
		return "", fmt.Errorf("no scripted location for WaitForURL call %d", d.WaitForURLCalls)
	}
	loc := d.Locations[d.locationIndex]
	d.locationIndex++

	u, err := url.Parse(loc)
	if err != nil {
		return loc, err
	}
	if match(u) {
		return loc, nil
	}
	return loc, fmt.Errorf("timed out waiting for URL (last: %s)", loc)
}

// Fill implements browser.Driver. The value is cloned before it is recorded:
// callers may pass a string aliasing a locked credential buffer that is
// destroyed as soon as Fill returns, so retaining the original would leave
// Filled holding a dangling view of unmapped memory.
func (d *FakeDriver) Fill(ctx context.Context, selector, value string, timeout time.Duration) error {
	d.FillCalls++
	d.Filled[selector] = strings.Clone(value)
	return nil
}

// Click implements browser.Driver.
func (d *FakeDriver) Click(ctx context.Context, selector string, timeout time.Duration) error {
	d.ClickCalls++
	d.Clicked = append(d.Clicked, selector)
	return nil
}

// Probe implements browser.Driver.
func (d *FakeDriver) Probe(ctx context.Context, selector string, timeout time.Duration) bool {
	d.ProbeCalls++
	return d.Visible[selector]
}

// Text implements browser.Driver.
func (d *FakeDriver) Text(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	text, exists := d.Texts[selector]
	if !exists {
		return "", fmt.Errorf("no text scripted for selector %q", selector)
	}
	return text, nil
}

// PollCondition implements browser.Driver.
func (d *FakeDriver) PollCondition(ctx context.Context, expr string, timeout time.Duration) (bool, error) {
	d.PollCalls++
	return d.PollResult, d.PollErr
}

// ReadClipboard implements browser.Driver.
func (d *FakeDriver) ReadClipboard(ctx context.Context) (string, error) {
	if d.ClipboardText == "" {
		return "", fmt.Errorf("clipboard empty")
	}
	return d.ClipboardText, nil
}

// InterceptRoute implements browser.Driver.
func (d *FakeDriver) InterceptRoute(ctx context.Context, pattern string, handler browser.RouteHandler) (<-chan struct{}, error) {
	d.InterceptCalls++
	d.InterceptPattern = pattern
	d.Handler = handler

	fulfilled := make(chan struct{}, 1)
	if d.FulfillIntercepted {
		fulfilled <- struct{}{}
	}
	return fulfilled, nil
}

// ExportSession implements browser.Driver.
func (d *FakeDriver) ExportSession(ctx context.Context, path string) error {
	d.ExportCalls++
	d.ExportedPaths = append(d.ExportedPaths, path)
	if d.ExportErr != nil {
		return d.ExportErr
	}
	if d.WriteSessionFile {
		return os.WriteFile(path, []byte("{}"), 0o600)
	}
	return nil
}

// Screenshot implements browser.Driver.
func (d *FakeDriver) Screenshot(ctx context.Context, path string) error {
	d.ScreenshotCalls++
	d.ScreenshotPaths = append(d.ScreenshotPaths, path)
	return nil
}

// Close implements browser.Driver.
func (d *FakeDriver) Close() error {
	d.CloseCalls++
	return nil
}

package browser

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	autherrors "github.com/systmms/authops/internal/errors"
	"github.com/systmms/authops/internal/logging"
)

const urlPollInterval = 250 * time.Millisecond

// awaitPromise makes Evaluate resolve promise-returning expressions before
// unmarshalling the result.
func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// ChromeDriver implements Driver on top of a dedicated Chrome instance. One
// driver owns one browser tab for the lifetime of a sign-in pass.
type ChromeDriver struct {
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	logger      *logging.Logger
}

// ChromeOptions configures the launched browser.
type ChromeOptions struct {
	Headless  bool
	UserAgent string
}

// NewChromeDriver launches Chrome and opens the working tab.
func NewChromeDriver(opts ChromeOptions, logger *logging.Logger) (*ChromeDriver, error) {
	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-first-run", true),
	)
	if opts.UserAgent != "" {
		allocatorOpts = append(allocatorOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// Starting with a no-op action forces the browser to launch now so a
	// missing Chrome binary fails here, not mid-flow.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	logger.Debug("Browser launched (headless=%v)", opts.Headless)

	return &ChromeDriver{
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		logger:      logger,
	}, nil
}

// run executes actions against the tab, bounded by timeout when positive.
func (d *ChromeDriver) run(timeout time.Duration, actions ...chromedp.Action) error {
	ctx := d.tabCtx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return chromedp.Run(ctx, actions...)
}

// Navigate loads a URL and waits for the navigation to commit.
func (d *ChromeDriver) Navigate(ctx context.Context, target string) error {
	d.logger.Debug("Navigating to %s", target)
	return d.run(0, chromedp.Navigate(target))
}

// CurrentURL returns the page's current location.
func (d *ChromeDriver) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	if err := d.run(5*time.Second, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// WaitForURL polls the location until match accepts it or timeout elapses.
func (d *ChromeDriver) WaitForURL(ctx context.Context, match func(*url.URL) bool, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	var last string

	for {
		loc, err := d.CurrentURL(ctx)
		if err == nil && loc != "" {
			last = loc
			if u, perr := url.Parse(loc); perr == nil && match(u) {
				return loc, nil
			}
		}

		if time.Now().After(deadline) {
			return last, fmt.Errorf("timed out after %s waiting for URL (last: %s)", timeout, last)
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(urlPollInterval):
		}
	}
}

// Fill waits for the element, clears it and types the value.
func (d *ChromeDriver) Fill(ctx context.Context, selector, value string, timeout time.Duration) error {
	return d.run(timeout,
		chromedp.WaitVisible(selector),
		chromedp.Clear(selector),
		chromedp.SendKeys(selector, value),
	)
}

// Click waits for the element and clicks it.
func (d *ChromeDriver) Click(ctx context.Context, selector string, timeout time.Duration) error {
	return d.run(timeout,
		chromedp.WaitVisible(selector),
		chromedp.Click(selector),
	)
}

// Probe reports whether the element becomes visible within the timeout.
// Probing is pure presence detection: every failure reads as absent.
func (d *ChromeDriver) Probe(ctx context.Context, selector string, timeout time.Duration) bool {
	err := d.run(timeout, chromedp.WaitVisible(selector))
	return err == nil
}

// Text waits for the element and returns its visible text.
func (d *ChromeDriver) Text(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	var text string
	if err := d.run(timeout,
		chromedp.WaitVisible(selector),
		chromedp.Text(selector, &text),
	); err != nil {
		return "", err
	}
	return text, nil
}

// PollCondition evaluates a page-context predicate until truthy or timeout.
func (d *ChromeDriver) PollCondition(ctx context.Context, expr string, timeout time.Duration) (bool, error) {
	var res bool
	err := d.run(0, chromedp.Poll(expr, &res, chromedp.WithPollingTimeout(timeout)))
	if err != nil {
		if err == chromedp.ErrPollingTimeout || ctx.Err() != nil {
			return false, nil
		}
		return false, err
	}
	return res, nil
}

// ReadClipboard returns the page clipboard text.
func (d *ChromeDriver) ReadClipboard(ctx context.Context) (string, error) {
	var text string
	err := d.run(5*time.Second, chromedp.Evaluate(
		`navigator.clipboard.readText()`, &text, awaitPromise,
	))
	return text, err
}

// InterceptRoute arms a DevTools fetch-domain interception rule. Handlers
// run off the event loop goroutine; each fulfilled request signals the
// returned channel once.
func (d *ChromeDriver) InterceptRoute(ctx context.Context, pattern string, handler RouteHandler) (<-chan struct{}, error) {
	if err := d.run(0, fetch.Enable().WithPatterns([]*fetch.RequestPattern{
		{URLPattern: pattern, RequestStage: fetch.RequestStageRequest},
	})); err != nil {
		return nil, fmt.Errorf("failed to arm route interception for %q: %w", pattern, err)
	}

	fulfilled := make(chan struct{}, 1)
	chromedp.ListenTarget(d.tabCtx, func(ev interface{}) {
		paused, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		// The event loop must not block on the out-of-band round trip.
		go d.answerPaused(paused, handler, fulfilled)
	})

	d.logger.Debug("Route interception armed for %s", pattern)
	return fulfilled, nil
}

func (d *ChromeDriver) answerPaused(paused *fetch.EventRequestPaused, handler RouteHandler, fulfilled chan struct{}) {
	execCtx := cdp.WithExecutor(d.tabCtx, chromedp.FromContext(d.tabCtx).Target)

	req := InterceptedRequest{
		Method:  paused.Request.Method,
		URL:     paused.Request.URL,
		Headers: make(map[string]string, len(paused.Request.Headers)),
	}
	for name, value := range paused.Request.Headers {
		if s, ok := value.(string); ok {
			req.Headers[name] = s
		}
	}
	if paused.Request.HasPostData {
		for _, entry := range paused.Request.PostDataEntries {
			if decoded, err := base64.StdEncoding.DecodeString(entry.Bytes); err == nil {
				req.Body = append(req.Body, decoded...)
			}
		}
	}

	resp, err := handler(d.tabCtx, req)
	if err != nil || resp == nil {
		if err != nil {
			d.logger.Warn("Intercepted request to %s failed out-of-band: %v", paused.Request.URL, err)
		}
		if failErr := fetch.FailRequest(paused.RequestID, network.ErrorReasonFailed).Do(execCtx); failErr != nil {
			d.logger.Debug("Failed to abort intercepted request: %v", failErr)
		}
		return
	}

	headers := make([]*fetch.HeaderEntry, 0, len(resp.Headers))
	for name, value := range resp.Headers {
		headers = append(headers, &fetch.HeaderEntry{Name: name, Value: value})
	}

	if err := fetch.FulfillRequest(paused.RequestID, int64(resp.Status)).
		WithResponseHeaders(headers).
		WithBody(base64.StdEncoding.EncodeToString(resp.Body)).
		Do(execCtx); err != nil {
		d.logger.Warn("Failed to fulfill intercepted request: %v", err)
		return
	}

	select {
	case fulfilled <- struct{}{}:
	default:
	}
}

// sessionSnapshot is the persisted session format: cookies plus client-side
// storage, written and read back opaquely by the driver.
type sessionSnapshot struct {
	URL            string            `json:"url"`
	SavedAt        time.Time         `json:"savedAt"`
	Cookies        []*network.Cookie `json:"cookies"`
	LocalStorage   map[string]string `json:"localStorage"`
	SessionStorage map[string]string `json:"sessionStorage"`
}

// ExportSession writes the session snapshot as JSON to path.
func (d *ChromeDriver) ExportSession(ctx context.Context, path string) error {
	snapshot := sessionSnapshot{SavedAt: time.Now()}

	err := d.run(15*time.Second,
		chromedp.Location(&snapshot.URL),
		chromedp.ActionFunc(func(actionCtx context.Context) error {
			cookies, err := storage.GetCookies().Do(actionCtx)
			if err != nil {
				return err
			}
			snapshot.Cookies = cookies
			return nil
		}),
		chromedp.Evaluate(`Object.assign({}, window.localStorage)`, &snapshot.LocalStorage),
		chromedp.Evaluate(`Object.assign({}, window.sessionStorage)`, &snapshot.SessionStorage),
	)
	if err != nil {
		return autherrors.StorageAccessError{Path: path, Op: "export", Err: err}
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return autherrors.StorageAccessError{Path: path, Op: "encode", Err: err}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return autherrors.StorageAccessError{Path: path, Op: "write", Err: err}
	}

	d.logger.Debug("Session snapshot written to %s (%d cookies)", path, len(snapshot.Cookies))
	return nil
}

// Screenshot captures the viewport to path.
func (d *ChromeDriver) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := d.run(10*time.Second, chromedp.CaptureScreenshot(&buf)); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0o644)
}

// Close tears down the tab and the browser.
func (d *ChromeDriver) Close() error {
	d.tabCancel()
	d.allocCancel()
	return nil
}

// Package orchestrator runs the interactive sign-in pipeline as an explicit
// state machine: check the session cache, fetch the credential, drive the
// identity provider's pages, persist the resulting session.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/systmms/authops/internal/browser"
	"github.com/systmms/authops/internal/certbridge"
	"github.com/systmms/authops/internal/config"
	autherrors "github.com/systmms/authops/internal/errors"
	"github.com/systmms/authops/internal/logging"
	"github.com/systmms/authops/internal/providers"
	"github.com/systmms/authops/internal/secure"
	"github.com/systmms/authops/internal/session"
	"github.com/systmms/authops/pkg/credential"
)

// State names one step of the sign-in pipeline. States advance linearly with
// a single branch on the observed credential type; the only loops are the
// bounded polls inside individual steps.
type State string

const (
	StateCheckCache        State = "CHECK_CACHE"
	StateFetchCredential   State = "FETCH_CREDENTIAL"
	StateNavigate          State = "NAVIGATE"
	StateVerifyLoginPage   State = "VERIFY_LOGIN_PAGE"
	StateEnterEmail        State = "ENTER_EMAIL"
	StateCertificateFlow   State = "CERTIFICATE_FLOW"
	StatePasswordFlow      State = "PASSWORD_FLOW"
	StateStaySignedIn      State = "STAY_SIGNED_IN_PROMPT"
	StateRedirectWait      State = "REDIRECT_WAIT"
	StateTokenWait         State = "TOKEN_WAIT"
	StatePersistSession    State = "PERSIST_SESSION"
	StateDone              State = "DONE"
	StateFailed            State = "FAILED"
)

// Sign-in page selectors for the Entra-style login surface.
const (
	emailField          = `input[name="loginfmt"]`
	passwordField       = `input[name="passwd"]`
	submitButton        = `#idSIButton9`
	passwordErrorRegion = `#passwordError`
	workAccountTile     = `#aadTile`
	certPromptConfirm   = `//input[@type="submit" and contains(@value, "OK")]`
	certFailureHeading  = `//*[contains(text(), "Certificate validation failed")]`
	errorMoreDetails    = `//a[contains(text(), "More details")]`
	errorCopyDetails    = `//button[contains(text(), "Copy")]`
	errorDescription    = `#errorDescription`
	staySignedInMarker  = `#KmsiCheckboxField`
)

// Step timeouts. Presence probes are short and best-effort; page transitions
// get the longer bounds.
const (
	loginPageTimeout        = 30 * time.Second
	fieldTimeout            = 10 * time.Second
	probeTimeout            = 3 * time.Second
	staySignedInTimeout     = 5 * time.Second
	bridgeResponseTimeout   = 20 * time.Second
	exactRedirectTimeout    = 10 * time.Second
	fallbackRedirectTimeout = 30 * time.Second
)

// Result reports how a pass ended.
type Result struct {
	// SessionPath is the session snapshot location, whether freshly
	// written or reused from the cache.
	SessionPath string

	// CacheHit is true when a valid cached session made the browser phase
	// unnecessary.
	CacheHit bool
}

// Orchestrator owns one sign-in pass. The browser and the credential backend
// are created lazily so a cache hit costs neither.
type Orchestrator struct {
	cfg    *config.AuthConfig
	logger *logging.Logger
	cache  *session.Cache

	newDriver   func() (browser.Driver, error)
	newProvider func() (credential.Provider, error)
	newBridge   func(blob []byte, password string) (browser.RouteHandler, error)
}

// Option customizes an Orchestrator, chiefly to inject fakes in tests.
type Option func(*Orchestrator)

// WithDriverFactory replaces the browser driver constructor.
func WithDriverFactory(factory func() (browser.Driver, error)) Option {
	return func(o *Orchestrator) {
		o.newDriver = factory
	}
}

// WithProviderFactory replaces the credential backend constructor.
func WithProviderFactory(factory func() (credential.Provider, error)) Option {
	return func(o *Orchestrator) {
		o.newProvider = factory
	}
}

// WithBridgeFactory replaces the certificate route bridge constructor.
func WithBridgeFactory(factory func(blob []byte, password string) (browser.RouteHandler, error)) Option {
	return func(o *Orchestrator) {
		o.newBridge = factory
	}
}

// New builds an orchestrator for one validated configuration.
func New(cfg *config.AuthConfig, logger *logging.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:    cfg,
		logger: logger,
		cache:  session.New(cfg.OutputDir),
	}

	o.newDriver = func() (browser.Driver, error) {
		return browser.NewChromeDriver(browser.ChromeOptions{Headless: cfg.Headless}, logger)
	}
	o.newProvider = func() (credential.Provider, error) {
		return providers.Build(cfg.ProviderKind, cfg.Provider, logger)
	}
	o.newBridge = func(blob []byte, password string) (browser.RouteHandler, error) {
		bridge, err := certbridge.New(blob, password, logger)
		if err != nil {
			return nil, err
		}
		return bridge.Handler(), nil
	}

	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the pipeline. On a cache hit it returns immediately; otherwise
// it drives the full sign-in and persists the session snapshot. Any fatal
// step error is returned unchanged after a best-effort diagnostic screenshot.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	sessionPath := o.cache.PathFor(o.cfg.Identity)

	o.logger.Step(string(StateCheckCache), "Checking session cache for %s", o.cfg.Identity)
	valid, err := o.cache.IsValid(sessionPath, o.cfg.SessionTTL())
	if err != nil {
		return nil, err
	}
	if valid {
		o.logger.Info("Valid session found at %s, skipping sign-in", sessionPath)
		return &Result{SessionPath: sessionPath, CacheHit: true}, nil
	}
	if err := o.cache.EnsureDir(); err != nil {
		return nil, err
	}

	o.logger.Step(string(StateFetchCredential), "Fetching credential via %s backend", o.cfg.ProviderKind)
	provider, err := o.newProvider()
	if err != nil {
		return nil, err
	}
	fetched, err := provider.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("Credential fetched from %s (type %s)", fetched.Source, fetched.Type)

	if fetched.Type != o.cfg.CredentialType {
		o.logger.Warn("Configured credential type %q but backend returned %q; using the observed type",
			o.cfg.CredentialType, fetched.Type)
	}

	buf := secure.Seal(fetched.Value)
	defer buf.Destroy()
	for i := range fetched.Value {
		fetched.Value[i] = 0
	}

	driver, err := o.newDriver()
	if err != nil {
		return nil, err
	}
	defer driver.Close()

	if err := o.signIn(ctx, driver, buf, fetched.Type, fetched.Password, sessionPath); err != nil {
		o.logger.Step(string(StateFailed), "Sign-in failed: %v", err)
		o.screenshot(ctx, driver, "failed")
		return nil, err
	}

	o.screenshot(ctx, driver, "success")
	o.logger.Step(string(StateDone), "Sign-in complete, session persisted to %s", sessionPath)
	return &Result{SessionPath: sessionPath}, nil
}

// signIn drives the browser phase of the pipeline.
func (o *Orchestrator) signIn(ctx context.Context, driver browser.Driver, buf *secure.CredentialBuffer, credType credential.Type, bundlePassword, sessionPath string) error {
	o.logger.Step(string(StateNavigate), "Opening %s", o.cfg.TargetURL)
	if err := driver.Navigate(ctx, o.cfg.TargetURL); err != nil {
		return err
	}

	o.logger.Step(string(StateVerifyLoginPage), "Waiting for redirect to %s", o.cfg.LoginEndpoint)
	last, err := driver.WaitForURL(ctx, func(u *url.URL) bool {
		return strings.EqualFold(u.Hostname(), o.cfg.LoginEndpoint)
	}, loginPageTimeout)
	if err != nil {
		return autherrors.LoginPageMismatchError{Expected: o.cfg.LoginEndpoint, Actual: last}
	}

	o.logger.Step(string(StateEnterEmail), "Entering account %s", o.cfg.Identity)
	if err := driver.Fill(ctx, emailField, o.cfg.Identity, fieldTimeout); err != nil {
		return err
	}
	if err := driver.Click(ctx, submitButton, fieldTimeout); err != nil {
		return err
	}

	switch credType {
	case credential.TypeCertificate:
		if err := o.certificateFlow(ctx, driver, buf, bundlePassword); err != nil {
			return err
		}
	default:
		if err := o.passwordFlow(ctx, driver, buf); err != nil {
			return err
		}
	}

	o.logger.Step(string(StateStaySignedIn), "Checking for the stay-signed-in prompt")
	if driver.Probe(ctx, staySignedInMarker, staySignedInTimeout) {
		if err := driver.Click(ctx, submitButton, fieldTimeout); err != nil {
			return err
		}
		o.logger.Debug("Stay-signed-in prompt affirmed")
	} else {
		o.logger.Debug("No stay-signed-in prompt, continuing")
	}

	if err := o.redirectWait(ctx, driver); err != nil {
		return err
	}

	if !o.cfg.SkipTokenWait {
		o.tokenWait(ctx, driver)
	}

	o.logger.Step(string(StatePersistSession), "Exporting session to %s", sessionPath)
	return driver.ExportSession(ctx, sessionPath)
}

// certificateFlow arms the route bridge before any UI interaction so the
// interception is live by the time the page calls the certauth endpoint.
func (o *Orchestrator) certificateFlow(ctx context.Context, driver browser.Driver, buf *secure.CredentialBuffer, bundlePassword string) error {
	o.logger.Step(string(StateCertificateFlow), "Arming certificate exchange for *certauth.%s", o.cfg.LoginEndpoint)

	locked, err := buf.Open()
	if err != nil {
		return fmt.Errorf("failed to open credential buffer: %w", err)
	}
	handler, err := o.newBridge(locked.Bytes(), bundlePassword)
	locked.Destroy()
	if err != nil {
		return err
	}

	pattern := fmt.Sprintf("https://*certauth.%s/*", o.cfg.LoginEndpoint)
	fulfilled, err := driver.InterceptRoute(ctx, pattern, handler)
	if err != nil {
		return err
	}

	// Some tenants interpose an account-type chooser or a certificate
	// picker. Both are optional UI; absence is normal.
	if driver.Probe(ctx, workAccountTile, probeTimeout) {
		if err := driver.Click(ctx, workAccountTile, fieldTimeout); err != nil {
			return err
		}
		o.logger.Debug("Account-type chooser dismissed")
	}
	if driver.Probe(ctx, certPromptConfirm, probeTimeout) {
		if err := driver.Click(ctx, certPromptConfirm, fieldTimeout); err != nil {
			return err
		}
		o.logger.Debug("Certificate prompt confirmed")
	}

	select {
	case <-fulfilled:
		o.logger.Debug("Certificate exchange fulfilled")
	case <-time.After(bridgeResponseTimeout):
		o.logger.Warn("No certificate exchange observed within %s; some sign-in variants proceed without it", bridgeResponseTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	if driver.Probe(ctx, certFailureHeading, probeTimeout) {
		return autherrors.CertificateAuthenticationError{
			Message: "identity provider reported certificate validation failure",
			Detail:  o.certFailureDetail(ctx, driver),
		}
	}
	return nil
}

// certFailureDetail expands and copies the provider's displayed error text.
// Purely best-effort: every failure along the way yields an empty detail.
func (o *Orchestrator) certFailureDetail(ctx context.Context, driver browser.Driver) string {
	if driver.Probe(ctx, errorMoreDetails, probeTimeout) {
		if err := driver.Click(ctx, errorMoreDetails, probeTimeout); err == nil &&
			driver.Probe(ctx, errorCopyDetails, probeTimeout) {
			if err := driver.Click(ctx, errorCopyDetails, probeTimeout); err == nil {
				if text, err := driver.ReadClipboard(ctx); err == nil && strings.TrimSpace(text) != "" {
					return strings.TrimSpace(text)
				}
			}
		}
	}

	if text, err := driver.Text(ctx, errorDescription, probeTimeout); err == nil {
		return strings.TrimSpace(text)
	}
	return ""
}

func (o *Orchestrator) passwordFlow(ctx context.Context, driver browser.Driver, buf *secure.CredentialBuffer) error {
	o.logger.Step(string(StatePasswordFlow), "Waiting for the password form")

	if !driver.Probe(ctx, passwordField, fieldTimeout) {
		return autherrors.PasswordAuthenticationError{
			Message: "password field never appeared on the sign-in page",
		}
	}

	locked, err := buf.Open()
	if err != nil {
		return fmt.Errorf("failed to open credential buffer: %w", err)
	}
	fillErr := driver.Fill(ctx, passwordField, locked.String(), fieldTimeout)
	locked.Destroy()
	if fillErr != nil {
		return fillErr
	}

	if err := driver.Click(ctx, submitButton, fieldTimeout); err != nil {
		return err
	}

	if driver.Probe(ctx, passwordErrorRegion, probeTimeout) {
		message := "identity provider rejected the password"
		if text, err := driver.Text(ctx, passwordErrorRegion, probeTimeout); err == nil && strings.TrimSpace(text) != "" {
			message = strings.TrimSpace(text)
		}
		return autherrors.PasswordAuthenticationError{Message: message}
	}
	return nil
}

// redirectWait accepts the exact target URL first, then falls back to the
// permissive policy: same registrable domain as the target, or simply having
// left the identity provider.
func (o *Orchestrator) redirectWait(ctx context.Context, driver browser.Driver) error {
	o.logger.Step(string(StateRedirectWait), "Waiting for redirect to %s", o.cfg.TargetURL)

	_, err := driver.WaitForURL(ctx, func(u *url.URL) bool {
		return u.String() == o.cfg.TargetURL
	}, exactRedirectTimeout)
	if err == nil {
		return nil
	}

	target, parseErr := url.Parse(o.cfg.TargetURL)
	if parseErr != nil {
		return parseErr
	}
	targetDomain := registrableDomain(target.Hostname())

	last, err := driver.WaitForURL(ctx, func(u *url.URL) bool {
		host := u.Hostname()
		if host == "" {
			return false
		}
		if targetDomain != "" && registrableDomain(host) == targetDomain {
			return true
		}
		return !strings.EqualFold(host, o.cfg.LoginEndpoint)
	}, fallbackRedirectTimeout)
	if err != nil {
		return autherrors.RedirectTimeoutError{Target: o.cfg.TargetURL, Current: last}
	}
	return nil
}

// tokenWait polls client-side storage for token markers. Never fatal: the
// session may be perfectly usable before the application writes its tokens.
func (o *Orchestrator) tokenWait(ctx context.Context, driver browser.Driver) {
	o.logger.Step(string(StateTokenWait), "Waiting up to %s for client-side tokens", o.cfg.ClientTokenTimeout)

	found, err := driver.PollCondition(ctx, tokenMarkerExpr(o.cfg.LoginEndpoint), o.cfg.ClientTokenTimeout)
	switch {
	case err != nil:
		o.logger.Warn("Client token check failed (%v); continuing", err)
	case found:
		o.logger.Debug("Client-side token markers present")
	default:
		o.logger.Warn("No client-side tokens appeared within %s; the session may still be usable", o.cfg.ClientTokenTimeout)
	}
}

// tokenMarkerExpr builds the page-context predicate that scans local and
// session storage for token-bearing keys.
func tokenMarkerExpr(loginEndpoint string) string {
	markers := []string{"accessToken", "idToken", "account"}
	if domain := registrableDomain(loginEndpoint); domain != "" {
		markers = append(markers, domain)
	}
	encoded, _ := json.Marshal(markers)

	return fmt.Sprintf(`(() => {
		const markers = %s;
		const scan = (store) => {
			for (let i = 0; i < store.length; i++) {
				const key = store.key(i);
				if (key.startsWith("msal.")) return true;
				if (markers.some((m) => key.includes(m))) return true;
			}
			return false;
		};
		return scan(window.localStorage) || scan(window.sessionStorage);
	})()`, string(encoded))
}

func registrableDomain(host string) string {
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return ""
	}
	return domain
}

// screenshot writes a status-tagged diagnostic capture. Failures only log.
func (o *Orchestrator) screenshot(ctx context.Context, driver browser.Driver, status string) {
	name := fmt.Sprintf("login-%s-%s.png", status, time.Now().Format("20060102-150405"))
	path := filepath.Join(o.cfg.OutputDir, name)
	if err := driver.Screenshot(ctx, path); err != nil {
		o.logger.Debug("Diagnostic screenshot failed: %v", err)
		return
	}
	o.logger.Info("Diagnostic screenshot saved to %s", path)
}

// Package certbridge replays intercepted certificate-authentication requests
// over a mutually-authenticated TLS connection. Headless Chrome cannot answer
// a client-certificate challenge itself, so the bridge performs the exchange
// out-of-band and feeds the provider's response back into the page.
package certbridge

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/pkcs12"

	"github.com/systmms/authops/internal/browser"
	autherrors "github.com/systmms/authops/internal/errors"
	"github.com/systmms/authops/internal/logging"
)

const defaultReplayTimeout = 30 * time.Second

// hopByHopHeaders never survive a proxied exchange (RFC 9110 §7.6.1).
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Bridge holds the client certificate and the HTTP client used to replay
// intercepted requests against the identity provider.
type Bridge struct {
	client *http.Client
	logger *logging.Logger
}

// Option customizes a Bridge.
type Option func(*Bridge)

// WithHTTPClient injects a pre-built HTTP client, primarily for tests. The
// injected client is used as-is; no TLS configuration is applied to it.
func WithHTTPClient(client *http.Client) Option {
	return func(b *Bridge) {
		b.client = client
	}
}

// New builds a Bridge from a PKCS#12 credential blob and its import
// password. The blob must contain exactly one private key and at least one
// certificate.
func New(blob []byte, password string, logger *logging.Logger, opts ...Option) (*Bridge, error) {
	bridge := &Bridge{logger: logger}
	for _, opt := range opts {
		opt(bridge)
	}

	if bridge.client != nil {
		return bridge, nil
	}

	cert, err := decodeCertificate(blob, password)
	if err != nil {
		return nil, err
	}

	bridge.client = &http.Client{
		Timeout: defaultReplayTimeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			},
		},
		// The provider's certauth endpoint answers with a redirect that
		// the page itself must follow.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return bridge, nil
}

// decodeCertificate converts a PKCS#12 blob into a TLS client certificate.
// PEM input is accepted as well, so a pre-converted credential works too.
func decodeCertificate(blob []byte, password string) (tls.Certificate, error) {
	if bytes.HasPrefix(bytes.TrimSpace(blob), []byte("-----BEGIN")) {
		return certificateFromPEM(blob)
	}

	pemBlocks, err := pkcs12.ToPEM(blob, password)
	if err != nil {
		return tls.Certificate{}, autherrors.CertificateAuthenticationError{
			Message: "failed to decode PKCS#12 credential",
			Detail:  err.Error(),
		}
	}

	var pemData []byte
	for _, block := range pemBlocks {
		pemData = append(pemData, pem.EncodeToMemory(block)...)
	}
	return certificateFromPEM(pemData)
}

func certificateFromPEM(pemData []byte) (tls.Certificate, error) {
	cert, err := tls.X509KeyPair(pemData, pemData)
	if err != nil {
		return tls.Certificate{}, autherrors.CertificateAuthenticationError{
			Message: "credential does not contain a usable certificate and key pair",
			Detail:  err.Error(),
		}
	}
	return cert, nil
}

// Handler returns the route handler that replays intercepted requests over
// the client-certificate connection. A transport failure or an error status
// from the provider aborts the browser-side request; the page never sees a
// partial or failed exchange as success.
func (b *Bridge) Handler() browser.RouteHandler {
	return func(ctx context.Context, req browser.InterceptedRequest) (*browser.RouteResponse, error) {
		return b.replay(ctx, req)
	}
}

func (b *Bridge) replay(ctx context.Context, req browser.InterceptedRequest) (*browser.RouteResponse, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	outbound, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build replay request: %w", err)
	}
	for name, value := range req.Headers {
		if isHopByHop(name) {
			continue
		}
		outbound.Header.Set(name, value)
	}

	b.logger.Debug("Replaying %s %s over client-certificate TLS", req.Method, req.URL)

	resp, err := b.client.Do(outbound)
	if err != nil {
		return nil, autherrors.CertificateAuthenticationError{
			Message: "client-certificate exchange failed",
			Detail:  err.Error(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, autherrors.CertificateAuthenticationError{
			Message: fmt.Sprintf("identity provider rejected the certificate (HTTP %d)", resp.StatusCode),
		}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, autherrors.CertificateAuthenticationError{
			Message: "failed to read certificate exchange response",
			Detail:  err.Error(),
		}
	}

	headers := make(map[string]string, len(resp.Header))
	for name, values := range resp.Header {
		if isHopByHop(name) || len(values) == 0 {
			continue
		}
		headers[name] = strings.Join(values, ", ")
	}

	b.logger.Debug("Certificate exchange answered with HTTP %d (%d bytes)", resp.StatusCode, len(respBody))

	return &browser.RouteResponse{
		Status:  resp.StatusCode,
		Headers: headers,
		Body:    respBody,
	}, nil
}

func isHopByHop(name string) bool {
	for _, h := range hopByHopHeaders {
		if strings.EqualFold(name, h) {
			return true
		}
	}
	return false
}

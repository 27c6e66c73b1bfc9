package errors

import (
	"fmt"
	"strings"
)

// ConfigurationError reports invalid or missing provider/auth configuration.
// It is always raised before a browser is launched.
type ConfigurationError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigurationError) Error() string {
	msg := "configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// CredentialRetrievalError reports a failure to fetch a credential from its
// backend: unreachable store, absent secret, disabled secret, secret outside
// its validity window, unreadable file, unset environment variable.
type CredentialRetrievalError struct {
	Provider   string
	Message    string
	Suggestion string
	Err        error
}

func (e CredentialRetrievalError) Error() string {
	var parts []string

	msg := "credential retrieval failed"
	if e.Provider != "" {
		msg += " (" + e.Provider + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	parts = append(parts, msg)

	if e.Err != nil {
		parts = append(parts, "\n  Details: "+e.Err.Error())
	}
	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e CredentialRetrievalError) Unwrap() error {
	return e.Err
}

// UnsupportedProviderError reports a provider kind the factory does not know.
type UnsupportedProviderError struct {
	Kind      string
	Supported []string
}

func (e UnsupportedProviderError) Error() string {
	msg := fmt.Sprintf("unsupported provider kind: %q", e.Kind)
	if len(e.Supported) > 0 {
		msg += fmt.Sprintf("\n  💡 Supported kinds: %s", strings.Join(e.Supported, ", "))
	}
	return msg
}

// LoginPageMismatchError reports that the browser never reached the expected
// identity-provider hostname within the verification window.
type LoginPageMismatchError struct {
	Expected string
	Actual   string
}

func (e LoginPageMismatchError) Error() string {
	return fmt.Sprintf("login page verification failed: expected hostname %q, browser is at %q", e.Expected, e.Actual)
}

// PasswordAuthenticationError reports a rejected password or a sign-in form
// that never presented a password field.
type PasswordAuthenticationError struct {
	Message string
}

func (e PasswordAuthenticationError) Error() string {
	return "password authentication failed: " + e.Message
}

// CertificateAuthenticationError reports that the identity provider rejected
// the client certificate. Detail carries the provider's displayed error text
// when best-effort extraction succeeded.
type CertificateAuthenticationError struct {
	Message string
	Detail  string
}

func (e CertificateAuthenticationError) Error() string {
	msg := "certificate authentication failed: " + e.Message
	if e.Detail != "" {
		msg += "\n  Details: " + e.Detail
	}
	return msg
}

// RedirectTimeoutError reports that after sign-in the browser neither reached
// the target URL nor left the identity provider within the allowed window.
type RedirectTimeoutError struct {
	Target  string
	Current string
}

func (e RedirectTimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for redirect to %q (browser is at %q)", e.Target, e.Current)
}

// StorageAccessError reports a session cache read or persist failure other
// than plain absence of the session file.
type StorageAccessError struct {
	Path string
	Op   string
	Err  error
}

func (e StorageAccessError) Error() string {
	msg := "session storage " + e.Op + " failed"
	if e.Path != "" {
		msg += " for " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e StorageAccessError) Unwrap() error {
	return e.Err
}

package providers

import (
	"context"
	"fmt"
	"os"

	"github.com/systmms/authops/internal/config"
	autherrors "github.com/systmms/authops/internal/errors"
	"github.com/systmms/authops/internal/logging"
	"github.com/systmms/authops/pkg/credential"
)

// EnvironmentProvider reads a credential from one explicitly configured
// process environment variable. This is the only place the core touches
// ambient process state, and only for the named variable.
type EnvironmentProvider struct {
	logger   *logging.Logger
	settings config.EnvironmentSettings
}

// NewEnvironmentProvider validates the settings eagerly.
func NewEnvironmentProvider(settings config.EnvironmentSettings, logger *logging.Logger) (*EnvironmentProvider, error) {
	if settings.Variable == "" {
		return nil, autherrors.ConfigurationError{
			Field:      "variable",
			Message:    "variable is required for the environment provider",
			Suggestion: "Name the environment variable that holds the credential",
		}
	}

	return &EnvironmentProvider{logger: logger, settings: settings}, nil
}

// Name returns the provider name
func (p *EnvironmentProvider) Name() string {
	return "environment"
}

// Fetch reads and classifies the variable. Unset and empty are both
// retrieval failures; an empty credential is never silently accepted.
func (p *EnvironmentProvider) Fetch(ctx context.Context) (credential.Result, error) {
	if err := ctx.Err(); err != nil {
		return credential.Result{}, err
	}

	value, ok := os.LookupEnv(p.settings.Variable)
	if !ok {
		return credential.Result{}, autherrors.CredentialRetrievalError{
			Provider:   p.Name(),
			Message:    fmt.Sprintf("environment variable %q is not set", p.settings.Variable),
			Suggestion: fmt.Sprintf("Export %s before running, or pick a different provider", p.settings.Variable),
		}
	}
	if value == "" {
		return credential.Result{}, autherrors.CredentialRetrievalError{
			Provider: p.Name(),
			Message:  fmt.Sprintf("environment variable %q is set but empty", p.settings.Variable),
		}
	}

	p.logger.Debug("Read credential from environment variable %s", p.settings.Variable)

	result := Classify([]byte(value), "")
	result.Source = "environment:" + p.settings.Variable
	return result, nil
}

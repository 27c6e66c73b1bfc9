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

// LocalFileProvider reads a credential from a file on disk: either a plain
// password file or a PKCS#12 bundle, distinguished by the shared sniffing
// heuristic.
type LocalFileProvider struct {
	logger   *logging.Logger
	settings config.LocalFileSettings
}

// NewLocalFileProvider validates the settings eagerly.
func NewLocalFileProvider(settings config.LocalFileSettings, logger *logging.Logger) (*LocalFileProvider, error) {
	if settings.Path == "" {
		return nil, autherrors.ConfigurationError{
			Field:      "path",
			Message:    "path is required for the local-file provider",
			Suggestion: "Point at a password file or a .pfx/.p12 bundle",
		}
	}

	return &LocalFileProvider{logger: logger, settings: settings}, nil
}

// Name returns the provider name
func (p *LocalFileProvider) Name() string {
	return "local-file"
}

// Fetch reads and classifies the file content. An unreadable file is a
// retrieval failure with distinct messages for absence and permission.
func (p *LocalFileProvider) Fetch(ctx context.Context) (credential.Result, error) {
	if err := ctx.Err(); err != nil {
		return credential.Result{}, err
	}

	p.logger.Debug("Reading credential file %s", p.settings.Path)

	raw, err := os.ReadFile(p.settings.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return credential.Result{}, autherrors.CredentialRetrievalError{
				Provider:   p.Name(),
				Message:    fmt.Sprintf("credential file %q does not exist", p.settings.Path),
				Suggestion: "Check the path or export the credential file first",
				Err:        err,
			}
		}
		return credential.Result{}, autherrors.CredentialRetrievalError{
			Provider:   p.Name(),
			Message:    fmt.Sprintf("credential file %q is unreadable", p.settings.Path),
			Suggestion: "Check file permissions",
			Err:        err,
		}
	}

	if len(raw) == 0 {
		return credential.Result{}, autherrors.CredentialRetrievalError{
			Provider: p.Name(),
			Message:  fmt.Sprintf("credential file %q is empty", p.settings.Path),
		}
	}

	result := Classify(raw, "")
	result.Password = p.settings.Password
	result.Source = "local-file:" + p.settings.Path
	return result, nil
}

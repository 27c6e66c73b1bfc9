package providers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/systmms/authops/internal/config"
	autherrors "github.com/systmms/authops/internal/errors"
	"github.com/systmms/authops/internal/logging"
	"github.com/systmms/authops/pkg/credential"
)

// ActionsClientAPI is the slice of the GitHub Actions API this provider
// uses. Secret values are write-only through the API; only existence and
// metadata are readable.
type ActionsClientAPI interface {
	GetRepoSecret(ctx context.Context, owner, repo, name string) (*github.Secret, *github.Response, error)
}

// CISecretProvider reads a credential the CI runner has exposed as an
// environment variable named after the repository secret. With an API token
// configured it first verifies the secret actually exists on the repository,
// so a missing workflow mapping fails with a pointed message instead of a
// generic unset-variable one.
type CISecretProvider struct {
	actions  ActionsClientAPI
	logger   *logging.Logger
	settings config.CISecretSettings
	owner    string
	repo     string
}

// CISecretOption configures a CISecretProvider.
type CISecretOption func(*CISecretProvider)

// WithActionsClient sets a custom GitHub Actions client (for testing).
func WithActionsClient(client ActionsClientAPI) CISecretOption {
	return func(p *CISecretProvider) {
		p.actions = client
	}
}

// NewCISecretProvider validates the settings eagerly.
func NewCISecretProvider(settings config.CISecretSettings, logger *logging.Logger, opts ...CISecretOption) (*CISecretProvider, error) {
	if settings.Repository == "" {
		return nil, autherrors.ConfigurationError{
			Field:      "repository",
			Message:    "repository is required for the ci-secret provider",
			Suggestion: "Use the owner/name form, e.g. contoso/webapp-e2e",
		}
	}
	parts := strings.Split(settings.Repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, autherrors.ConfigurationError{
			Field:      "repository",
			Value:      settings.Repository,
			Message:    "repository must be in owner/name form",
			Suggestion: "Example: contoso/webapp-e2e",
		}
	}
	if settings.SecretName == "" {
		return nil, autherrors.ConfigurationError{
			Field:      "secret_name",
			Message:    "secret_name is required for the ci-secret provider",
			Suggestion: "Name the repository Actions secret that carries the credential",
		}
	}

	p := &CISecretProvider{
		logger:   logger,
		settings: settings,
		owner:    parts[0],
		repo:     parts[1],
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.actions == nil && settings.Token != "" {
		tc := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: settings.Token},
		))
		p.actions = github.NewClient(tc).Actions
	}

	return p, nil
}

// Name returns the provider name
func (p *CISecretProvider) Name() string {
	return "ci-secret"
}

// Fetch verifies the secret against the repository when an API client is
// available, then reads the runner environment variable named after it.
func (p *CISecretProvider) Fetch(ctx context.Context) (credential.Result, error) {
	if p.actions != nil {
		secret, resp, err := p.actions.GetRepoSecret(ctx, p.owner, p.repo, p.settings.SecretName)
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusNotFound {
				return credential.Result{}, autherrors.CredentialRetrievalError{
					Provider:   p.Name(),
					Message:    fmt.Sprintf("secret %q does not exist on %s", p.settings.SecretName, p.settings.Repository),
					Suggestion: "Create the secret in the repository settings, or fix secret_name",
					Err:        err,
				}
			}
			return credential.Result{}, autherrors.CredentialRetrievalError{
				Provider:   p.Name(),
				Message:    fmt.Sprintf("failed to verify secret %q on %s", p.settings.SecretName, p.settings.Repository),
				Suggestion: "Check the token's repository access and the network",
				Err:        err,
			}
		}
		p.logger.Debug("Verified CI secret %s (last updated %s)", p.settings.SecretName, secret.UpdatedAt)
	}

	value, ok := os.LookupEnv(p.settings.SecretName)
	if !ok || value == "" {
		return credential.Result{}, autherrors.CredentialRetrievalError{
			Provider:   p.Name(),
			Message:    fmt.Sprintf("secret %q is not exposed in the runner environment", p.settings.SecretName),
			Suggestion: fmt.Sprintf("Map the secret in the workflow: env: { %s: ${{ secrets.%s }} }", p.settings.SecretName, p.settings.SecretName),
		}
	}

	result := Classify([]byte(value), "")
	result.Source = "ci-secret:" + p.settings.Repository + "/" + p.settings.SecretName
	return result, nil
}

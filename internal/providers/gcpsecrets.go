package providers

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	gax "github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	"github.com/systmms/authops/internal/config"
	autherrors "github.com/systmms/authops/internal/errors"
	"github.com/systmms/authops/internal/logging"
	"github.com/systmms/authops/pkg/credential"
)

// GCPSecretsClientAPI is the slice of the GCP Secret Manager client this
// provider uses. Narrow on purpose so tests can inject a fake.
type GCPSecretsClientAPI interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

// GCPSecretsProvider fetches a login credential from GCP Secret Manager.
type GCPSecretsProvider struct {
	client   GCPSecretsClientAPI
	logger   *logging.Logger
	settings config.GCPSecretsSettings
}

// GCPSecretsOption configures a GCPSecretsProvider.
type GCPSecretsOption func(*GCPSecretsProvider)

// WithGCPSecretsClient sets a custom Secret Manager client (for testing).
func WithGCPSecretsClient(client GCPSecretsClientAPI) GCPSecretsOption {
	return func(p *GCPSecretsProvider) {
		p.client = client
	}
}

// NewGCPSecretsProvider validates the settings eagerly and builds the GCP
// client at construction time.
func NewGCPSecretsProvider(settings config.GCPSecretsSettings, logger *logging.Logger, opts ...GCPSecretsOption) (*GCPSecretsProvider, error) {
	if settings.ProjectID == "" {
		return nil, autherrors.ConfigurationError{
			Field:      "project_id",
			Message:    "project_id is required for the gcp-secrets provider",
			Suggestion: "Set the GCP project that owns the secret",
		}
	}
	if settings.SecretName == "" {
		return nil, autherrors.ConfigurationError{
			Field:      "secret_name",
			Message:    "secret_name is required for the gcp-secrets provider",
			Suggestion: "Name the Secret Manager secret that holds the password or PFX bundle",
		}
	}

	p := &GCPSecretsProvider{
		logger:   logger,
		settings: settings,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		var clientOpts []option.ClientOption
		if settings.ServiceAccountKeyPath != "" {
			clientOpts = append(clientOpts, option.WithCredentialsFile(settings.ServiceAccountKeyPath))
		}
		client, err := secretmanager.NewClient(context.Background(), clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCP Secret Manager client: %w", err)
		}
		p.client = client
	}

	return p, nil
}

// Name returns the provider name
func (p *GCPSecretsProvider) Name() string {
	return "gcp-secrets"
}

// Fetch accesses the latest secret version and classifies its payload.
func (p *GCPSecretsProvider) Fetch(ctx context.Context) (credential.Result, error) {
	version := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", p.settings.ProjectID, p.settings.SecretName)
	p.logger.Debug("Accessing Secret Manager version %s", version)

	resp, err := p.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: version,
	})
	if err != nil {
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404") {
			return credential.Result{}, autherrors.CredentialRetrievalError{
				Provider:   p.Name(),
				Message:    fmt.Sprintf("secret %q does not exist in project %s", p.settings.SecretName, p.settings.ProjectID),
				Suggestion: "Verify the secret name and project, and that a version has been added",
				Err:        err,
			}
		}
		return credential.Result{}, autherrors.CredentialRetrievalError{
			Provider:   p.Name(),
			Message:    fmt.Sprintf("failed to access secret %q", p.settings.SecretName),
			Suggestion: "Check IAM permissions for secretmanager.versions.access and the service account key",
			Err:        err,
		}
	}

	if resp.Payload == nil || len(resp.Payload.Data) == 0 {
		return credential.Result{}, autherrors.CredentialRetrievalError{
			Provider: p.Name(),
			Message:  fmt.Sprintf("secret %q has no payload", p.settings.SecretName),
		}
	}

	result := Classify(resp.Payload.Data, "")
	result.Source = "gcp-secrets:" + p.settings.SecretName
	return result, nil
}

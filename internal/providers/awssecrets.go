package providers

import (
	"context"
	"errors"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/systmms/authops/internal/config"
	autherrors "github.com/systmms/authops/internal/errors"
	"github.com/systmms/authops/internal/logging"
	"github.com/systmms/authops/pkg/credential"
)

const defaultAWSRegion = "us-east-1"

// SecretsManagerClientAPI is the slice of the AWS Secrets Manager client
// this provider uses. Narrow on purpose so tests can inject a fake.
type SecretsManagerClientAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecretsProvider fetches a login credential from AWS Secrets Manager.
// SecretBinary payloads are classified with a binary marker; SecretString
// payloads go through the shared sniffing heuristic.
type AWSSecretsProvider struct {
	client   SecretsManagerClientAPI
	logger   *logging.Logger
	settings config.AWSSecretsSettings
}

// AWSSecretsOption configures an AWSSecretsProvider.
type AWSSecretsOption func(*AWSSecretsProvider)

// WithSecretsManagerClient sets a custom Secrets Manager client (for testing).
func WithSecretsManagerClient(client SecretsManagerClientAPI) AWSSecretsOption {
	return func(p *AWSSecretsProvider) {
		p.client = client
	}
}

// NewAWSSecretsProvider validates the settings eagerly and builds the AWS
// client. Endpoint and static credentials support LocalStack-style testing.
func NewAWSSecretsProvider(settings config.AWSSecretsSettings, logger *logging.Logger, opts ...AWSSecretsOption) (*AWSSecretsProvider, error) {
	if settings.SecretName == "" {
		return nil, autherrors.ConfigurationError{
			Field:      "secret_name",
			Message:    "secret_name is required for the aws-secrets provider",
			Suggestion: "Name the Secrets Manager secret that holds the password or PFX bundle",
		}
	}
	if settings.Region == "" {
		settings.Region = defaultAWSRegion
	}

	p := &AWSSecretsProvider{
		logger:   logger,
		settings: settings,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		configOpts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(settings.Region),
		}
		if settings.AccessKeyID != "" && settings.SecretAccessKey != "" {
			configOpts = append(configOpts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(settings.AccessKeyID, settings.SecretAccessKey, ""),
			))
		}

		cfg, err := awsconfig.LoadDefaultConfig(context.Background(), configOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}

		var clientOpts []func(*secretsmanager.Options)
		if settings.Endpoint != "" {
			endpoint := settings.Endpoint
			clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
				o.BaseEndpoint = &endpoint
			})
		}
		p.client = secretsmanager.NewFromConfig(cfg, clientOpts...)
	}

	return p, nil
}

// Name returns the provider name
func (p *AWSSecretsProvider) Name() string {
	return "aws-secrets"
}

// Fetch retrieves the secret value and classifies it.
func (p *AWSSecretsProvider) Fetch(ctx context.Context) (credential.Result, error) {
	p.logger.Debug("Fetching Secrets Manager secret %s in %s", logging.Secret(p.settings.SecretName), p.settings.Region)

	out, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: awssdk.String(p.settings.SecretName),
	})
	if err != nil {
		var notFound *smtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return credential.Result{}, autherrors.CredentialRetrievalError{
				Provider:   p.Name(),
				Message:    fmt.Sprintf("secret %q does not exist in region %s", p.settings.SecretName, p.settings.Region),
				Suggestion: "Verify the secret name and region. List secrets with: 'aws secretsmanager list-secrets'",
				Err:        err,
			}
		}
		return credential.Result{}, autherrors.CredentialRetrievalError{
			Provider:   p.Name(),
			Message:    fmt.Sprintf("failed to access secret %q", p.settings.SecretName),
			Suggestion: "Check IAM permissions for secretsmanager:GetSecretValue and AWS credentials",
			Err:        err,
		}
	}

	var result credential.Result
	switch {
	case out.SecretBinary != nil:
		result = Classify(out.SecretBinary, "application/octet-stream")
	case out.SecretString != nil:
		result = Classify([]byte(*out.SecretString), "")
	default:
		return credential.Result{}, autherrors.CredentialRetrievalError{
			Provider: p.Name(),
			Message:  fmt.Sprintf("secret %q has no value", p.settings.SecretName),
		}
	}

	result.Source = "aws-secrets:" + p.settings.SecretName
	return result, nil
}

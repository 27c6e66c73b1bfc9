package commands

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/authops/internal/config"
	autherrors "github.com/systmms/authops/internal/errors"
	"github.com/systmms/authops/internal/orchestrator"
	"github.com/systmms/authops/pkg/credential"
)

func NewLoginCommand(globals *Globals) *cobra.Command {
	var (
		targetURL      string
		email          string
		credType       string
		providerKind   string
		outputDir      string
		ttlHours       int
		loginEndpoint  string
		headful        bool
		noTokenWait    bool
		tokenTimeout   time.Duration

		vaultURL           string
		secretName         string
		tenantID           string
		clientID           string
		clientSecret       string
		credentialFile     string
		credentialPassword string
		envVar             string
		repository         string
		githubToken        string
		awsRegion          string
		gcpProject         string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist a reusable browser session",
		Long: `Sign in to the identity provider with a credential fetched from the
configured backend, then persist the browser session snapshot.

A valid cached session within the TTL window short-circuits the whole flow.

Examples:
  # Password from Azure Key Vault
  authops login --url https://app.contoso.com --email user@contoso.com \
    --provider key-vault --vault-url https://kv.vault.azure.net --secret-name app-login

  # Client certificate from a local PFX file
  authops login --url https://app.contoso.com --email user@contoso.com \
    --type certificate --provider local-file --credential-file ./client.pfx

  # Password from an environment variable (CI)
  authops login --url https://app.contoso.com --email user@contoso.com \
    --provider environment --env-var APP_PASSWORD`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if targetURL == "" {
				return autherrors.ConfigurationError{
					Field:      "url",
					Message:    "target URL is required",
					Suggestion: "Use --url https://app.example.com",
				}
			}
			if email == "" {
				return autherrors.ConfigurationError{
					Field:      "email",
					Message:    "account email is required",
					Suggestion: "Use --email user@example.com",
				}
			}
			if providerKind == "" {
				return autherrors.ConfigurationError{
					Field:      "provider",
					Message:    "credential provider kind is required",
					Suggestion: "Use --provider " + string(credential.KindKeyVault) + " (see 'authops providers' for the full list)",
				}
			}

			cfg := &config.AuthConfig{
				Identity:           email,
				CredentialType:     credential.Type(credType),
				ProviderKind:       credential.Kind(providerKind),
				TargetURL:          targetURL,
				OutputDir:          outputDir,
				SessionTTLHours:    ttlHours,
				LoginEndpoint:      loginEndpoint,
				Headless:           !headful,
				SkipTokenWait:      noTokenWait,
				ClientTokenTimeout: tokenTimeout,
				Debug:              globals.Debug,
			}

			cfg.Provider = providerSettingsFromFlags(credential.Kind(providerKind), flagSettings{
				vaultURL:           vaultURL,
				secretName:         secretName,
				tenantID:           tenantID,
				clientID:           clientID,
				clientSecret:       clientSecret,
				credentialFile:     credentialFile,
				credentialPassword: credentialPassword,
				envVar:             envVar,
				repository:         repository,
				githubToken:        githubToken,
				awsRegion:          awsRegion,
				gcpProject:         gcpProject,
			})

			file, err := config.LoadFile(globals.ConfigFile, globals.ConfigExplicit)
			if err != nil {
				return err
			}
			cfg.Provider.Merge(file.Providers)

			cfg.ApplyDefaults()
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			result, err := orchestrator.New(cfg, globals.Logger).Run(ctx)
			if err != nil {
				return err
			}

			if result.CacheHit {
				globals.Logger.Info("Reusing cached session")
			}
			fmt.Println(result.SessionPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&targetURL, "url", "", "Application URL to sign in to")
	cmd.Flags().StringVar(&email, "email", "", "Account email address")
	cmd.Flags().StringVar(&credType, "type", "password", "Expected credential type (password|certificate)")
	cmd.Flags().StringVar(&providerKind, "provider", "", "Credential provider kind")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for session snapshots and screenshots")
	cmd.Flags().IntVar(&ttlHours, "ttl-hours", 0, "Session cache TTL in hours")
	cmd.Flags().StringVar(&loginEndpoint, "login-endpoint", "", "Identity provider sign-in hostname")
	cmd.Flags().BoolVar(&headful, "headful", false, "Run the browser with a visible window")
	cmd.Flags().BoolVar(&noTokenWait, "no-wait-for-tokens", false, "Skip the client-side token wait after redirect")
	cmd.Flags().DurationVar(&tokenTimeout, "token-timeout", 0, "Client token wait timeout")

	cmd.Flags().StringVar(&vaultURL, "vault-url", "", "Azure Key Vault URL (key-vault)")
	cmd.Flags().StringVar(&secretName, "secret-name", "", "Secret name (key-vault, ci-secret, aws-secrets, gcp-secrets)")
	cmd.Flags().StringVar(&tenantID, "tenant-id", "", "Azure tenant for service principal auth (key-vault)")
	cmd.Flags().StringVar(&clientID, "client-id", "", "Azure client ID for service principal auth (key-vault)")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "Azure client secret for service principal auth (key-vault)")
	cmd.Flags().StringVar(&credentialFile, "credential-file", "", "Credential file path (local-file)")
	cmd.Flags().StringVar(&credentialPassword, "credential-password", "", "PKCS#12 import password (local-file)")
	cmd.Flags().StringVar(&envVar, "env-var", "", "Environment variable holding the credential (environment)")
	cmd.Flags().StringVar(&repository, "repository", "", "owner/name repository (ci-secret)")
	cmd.Flags().StringVar(&githubToken, "github-token", "", "Token for the secret existence check (ci-secret)")
	cmd.Flags().StringVar(&awsRegion, "aws-region", "", "AWS region (aws-secrets)")
	cmd.Flags().StringVar(&gcpProject, "gcp-project", "", "GCP project ID (gcp-secrets)")

	return cmd
}

type flagSettings struct {
	vaultURL           string
	secretName         string
	tenantID           string
	clientID           string
	clientSecret       string
	credentialFile     string
	credentialPassword string
	envVar             string
	repository         string
	githubToken        string
	awsRegion          string
	gcpProject         string
}

// providerSettingsFromFlags builds the settings variant for the selected
// kind only; unrelated flag values never leak into other variants. A variant
// is only built when at least one of its flags was set, so file-provided
// settings survive the merge.
func providerSettingsFromFlags(kind credential.Kind, f flagSettings) config.ProviderSettings {
	var settings config.ProviderSettings

	switch kind {
	case credential.KindKeyVault:
		if f.vaultURL != "" || f.secretName != "" {
			settings.KeyVault = &config.KeyVaultSettings{
				VaultURL:     f.vaultURL,
				SecretName:   f.secretName,
				TenantID:     f.tenantID,
				ClientID:     f.clientID,
				ClientSecret: f.clientSecret,
			}
		}
	case credential.KindLocalFile:
		if f.credentialFile != "" {
			settings.LocalFile = &config.LocalFileSettings{
				Path:     f.credentialFile,
				Password: f.credentialPassword,
			}
		}
	case credential.KindEnvironment:
		if f.envVar != "" {
			settings.Environment = &config.EnvironmentSettings{
				Variable: f.envVar,
			}
		}
	case credential.KindCISecret:
		if f.repository != "" || f.secretName != "" {
			settings.CISecret = &config.CISecretSettings{
				Repository: f.repository,
				SecretName: f.secretName,
				Token:      f.githubToken,
			}
		}
	case credential.KindAWSSecrets:
		if f.secretName != "" {
			settings.AWSSecrets = &config.AWSSecretsSettings{
				SecretName: f.secretName,
				Region:     f.awsRegion,
			}
		}
	case credential.KindGCPSecrets:
		if f.gcpProject != "" || f.secretName != "" {
			settings.GCPSecrets = &config.GCPSecretsSettings{
				ProjectID:  f.gcpProject,
				SecretName: f.secretName,
			}
		}
	}

	return settings
}

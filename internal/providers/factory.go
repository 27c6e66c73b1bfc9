// Package providers implements the credential backends and the factory that
// maps a provider kind to a fresh backend instance.
package providers

import (
	autherrors "github.com/systmms/authops/internal/errors"

	"github.com/systmms/authops/internal/config"
	"github.com/systmms/authops/internal/logging"
	"github.com/systmms/authops/pkg/credential"
)

// Build constructs the provider for a kind from its settings variant. Every
// call builds a fresh instance; providers may hold short-lived backend
// client handles, so nothing is cached. An unknown kind fails with
// UnsupportedProviderError; a known kind whose settings variant is absent
// fails with ConfigurationError before any backend is touched.
func Build(kind credential.Kind, settings config.ProviderSettings, logger *logging.Logger) (credential.Provider, error) {
	switch kind {
	case credential.KindKeyVault:
		if settings.KeyVault == nil {
			return nil, missingVariant(kind)
		}
		return NewKeyVaultProvider(*settings.KeyVault, logger)
	case credential.KindLocalFile:
		if settings.LocalFile == nil {
			return nil, missingVariant(kind)
		}
		return NewLocalFileProvider(*settings.LocalFile, logger)
	case credential.KindEnvironment:
		if settings.Environment == nil {
			return nil, missingVariant(kind)
		}
		return NewEnvironmentProvider(*settings.Environment, logger)
	case credential.KindCISecret:
		if settings.CISecret == nil {
			return nil, missingVariant(kind)
		}
		return NewCISecretProvider(*settings.CISecret, logger)
	case credential.KindAWSSecrets:
		if settings.AWSSecrets == nil {
			return nil, missingVariant(kind)
		}
		return NewAWSSecretsProvider(*settings.AWSSecrets, logger)
	case credential.KindGCPSecrets:
		if settings.GCPSecrets == nil {
			return nil, missingVariant(kind)
		}
		return NewGCPSecretsProvider(*settings.GCPSecrets, logger)
	default:
		supported := make([]string, 0, len(credential.Kinds()))
		for _, k := range credential.Kinds() {
			supported = append(supported, string(k))
		}
		return nil, autherrors.UnsupportedProviderError{
			Kind:      string(kind),
			Supported: supported,
		}
	}
}

func missingVariant(kind credential.Kind) error {
	return autherrors.ConfigurationError{
		Field:      string(kind),
		Message:    "provider settings for this kind are missing",
		Suggestion: "Add the matching block to authops.yaml or pass the provider flags",
	}
}

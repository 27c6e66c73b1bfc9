package fakes

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

// FakeKeyVaultClient is an in-memory stand-in for the Key Vault secrets
// client slice the key-vault provider consumes.
type FakeKeyVaultClient struct {
	// Secrets maps secret names to their response data.
	Secrets map[string]azsecrets.Secret
	// Errors maps secret names to errors to return instead.
	Errors map[string]error
	// GetSecretCalls counts GetSecret invocations.
	GetSecretCalls int
}

// NewFakeKeyVaultClient creates an empty fake Key Vault client.
func NewFakeKeyVaultClient() *FakeKeyVaultClient {
	return &FakeKeyVaultClient{
		Secrets: make(map[string]azsecrets.Secret),
		Errors:  make(map[string]error),
	}
}

// AddSecret registers a secret value with optional content type and
// attributes.
func (f *FakeKeyVaultClient) AddSecret(name, value string, contentType *string, attrs *azsecrets.SecretAttributes) {
	f.Secrets[name] = azsecrets.Secret{
		Value:       &value,
		ContentType: contentType,
		Attributes:  attrs,
	}
}

// GetSecret implements the KeyVaultClientAPI interface.
func (f *FakeKeyVaultClient) GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	f.GetSecretCalls++

	if err, exists := f.Errors[name]; exists {
		return azsecrets.GetSecretResponse{}, err
	}
	secret, exists := f.Secrets[name]
	if !exists {
		return azsecrets.GetSecretResponse{}, fmt.Errorf("SecretNotFound: secret %q not found (404)", name)
	}
	return azsecrets.GetSecretResponse{Secret: secret}, nil
}

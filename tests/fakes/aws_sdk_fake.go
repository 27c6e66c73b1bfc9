package fakes

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

// FakeSecretsManagerClient is an in-memory stand-in for the AWS Secrets
// Manager client slice the aws-secrets provider consumes.
type FakeSecretsManagerClient struct {
	// StringSecrets maps secret names to string payloads.
	StringSecrets map[string]string
	// BinarySecrets maps secret names to binary payloads.
	BinarySecrets map[string][]byte
	// Errors maps secret names to errors to return instead.
	Errors map[string]error
	// GetSecretValueCalls counts invocations.
	GetSecretValueCalls int
}

// NewFakeSecretsManagerClient creates an empty fake Secrets Manager client.
func NewFakeSecretsManagerClient() *FakeSecretsManagerClient {
	return &FakeSecretsManagerClient{
		StringSecrets: make(map[string]string),
		BinarySecrets: make(map[string][]byte),
		Errors:        make(map[string]error),
	}
}

// GetSecretValue implements the SecretsManagerClientAPI interface. Unknown
// names fail with the SDK's ResourceNotFoundException type so errors.As
// matching in the provider is exercised.
func (f *FakeSecretsManagerClient) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.GetSecretValueCalls++

	name := ""
	if params.SecretId != nil {
		name = *params.SecretId
	}

	if err, exists := f.Errors[name]; exists {
		return nil, err
	}
	if value, exists := f.StringSecrets[name]; exists {
		return &secretsmanager.GetSecretValueOutput{SecretString: &value}, nil
	}
	if value, exists := f.BinarySecrets[name]; exists {
		return &secretsmanager.GetSecretValueOutput{SecretBinary: value}, nil
	}
	return nil, &smtypes.ResourceNotFoundException{}
}

package fakes

import (
	"context"
	"fmt"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	gax "github.com/googleapis/gax-go/v2"
)

// FakeGCPSecretsClient is an in-memory stand-in for the GCP Secret Manager
// client slice the gcp-secrets provider consumes. Keys are full version
// resource names (projects/p/secrets/s/versions/latest).
type FakeGCPSecretsClient struct {
	// Payloads maps version resource names to payload bytes.
	Payloads map[string][]byte
	// Errors maps version resource names to errors to return instead.
	Errors map[string]error
	// AccessCalls counts invocations.
	AccessCalls int
}

// NewFakeGCPSecretsClient creates an empty fake Secret Manager client.
func NewFakeGCPSecretsClient() *FakeGCPSecretsClient {
	return &FakeGCPSecretsClient{
		Payloads: make(map[string][]byte),
		Errors:   make(map[string]error),
	}
}

// AccessSecretVersion implements the GCPSecretsClientAPI interface.
func (f *FakeGCPSecretsClient) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.AccessCalls++

	if err, exists := f.Errors[req.Name]; exists {
		return nil, err
	}
	payload, exists := f.Payloads[req.Name]
	if !exists {
		return nil, fmt.Errorf("rpc error: code = NotFound desc = secret version %q not found", req.Name)
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Name:    req.Name,
		Payload: &secretmanagerpb.SecretPayload{Data: payload},
	}, nil
}

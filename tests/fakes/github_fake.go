package fakes

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v57/github"
)

// FakeActionsClient is an in-memory stand-in for the GitHub Actions client
// slice the ci-secret provider consumes. Keys are "owner/repo/name".
type FakeActionsClient struct {
	// Secrets maps owner/repo/name keys to secret metadata.
	Secrets map[string]*github.Secret
	// Errors maps owner/repo/name keys to errors to return instead.
	Errors map[string]error
	// GetRepoSecretCalls counts invocations.
	GetRepoSecretCalls int
}

// NewFakeActionsClient creates an empty fake Actions client.
func NewFakeActionsClient() *FakeActionsClient {
	return &FakeActionsClient{
		Secrets: make(map[string]*github.Secret),
		Errors:  make(map[string]error),
	}
}

// AddSecret registers a repository secret's existence.
func (f *FakeActionsClient) AddSecret(owner, repo, name string) {
	f.Secrets[owner+"/"+repo+"/"+name] = &github.Secret{Name: name}
}

// GetRepoSecret implements the ActionsClientAPI interface. Unknown secrets
// answer with a 404 response the way the real API does.
func (f *FakeActionsClient) GetRepoSecret(ctx context.Context, owner, repo, name string) (*github.Secret, *github.Response, error) {
	f.GetRepoSecretCalls++

	key := owner + "/" + repo + "/" + name
	if err, exists := f.Errors[key]; exists {
		return nil, nil, err
	}
	secret, exists := f.Secrets[key]
	if !exists {
		resp := &github.Response{Response: &http.Response{StatusCode: http.StatusNotFound}}
		return nil, resp, fmt.Errorf("GET actions/secrets/%s: 404 Not Found", name)
	}
	return secret, &github.Response{Response: &http.Response{StatusCode: http.StatusOK}}, nil
}

package fakes

import (
	"context"

	"github.com/systmms/authops/pkg/credential"
)

// FakeProvider is a scriptable credential backend.
type FakeProvider struct {
	// ProviderName is returned by Name.
	ProviderName string
	// Result is returned by Fetch when Err is nil.
	Result credential.Result
	// Err makes Fetch fail.
	Err error
	// FetchCalls counts Fetch invocations.
	FetchCalls int
}

// Name implements credential.Provider.
func (f *FakeProvider) Name() string {
	if f.ProviderName == "" {
		return "fake"
	}
	return f.ProviderName
}

// Fetch implements credential.Provider.
func (f *FakeProvider) Fetch(ctx context.Context) (credential.Result, error) {
	f.FetchCalls++
	if f.Err != nil {
		return credential.Result{}, f.Err
	}
	return f.Result, nil
}

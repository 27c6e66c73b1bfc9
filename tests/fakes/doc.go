// Package fakes provides test doubles for authops interfaces.
//
// This package contains fake implementations of the browser driver, the
// credential provider contract, and the external SDK client slices, so unit
// tests run without a browser or real cloud services. Fakes are manually
// implemented (not generated) to provide precise control over test behavior.
//
// Usage:
//
//	fake := fakes.NewFakeKeyVaultClient()
//	fake.AddSecret("app-login", "hunter2", nil, nil)
//	p, err := providers.NewKeyVaultProvider(settings, logger,
//	    providers.WithKeyVaultClient(fake))
//	// Test provider methods...
package fakes

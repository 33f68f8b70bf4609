package githubapi

import (
	"context"
	"testing"
	"time"
)

func TestNewStaticTokenProvider(t *testing.T) {
	t.Parallel()

	if _, err := NewStaticTokenProvider("   "); err == nil {
		t.Fatalf("NewStaticTokenProvider(blank) expected error")
	}

	provider, err := NewStaticTokenProvider("  ghp_secret  ")
	if err != nil {
		t.Fatalf("NewStaticTokenProvider() unexpected error: %v", err)
	}
	token, err := provider.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() unexpected error: %v", err)
	}
	if token != "ghp_secret" {
		t.Fatalf("Token() = %q, want trimmed token", token)
	}
}

func TestNewInstallationHTTPClientValidation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		cfg  InstallationAuthConfig
	}{
		{name: "missing_app_id", cfg: InstallationAuthConfig{InstallationID: 2, PrivateKeyPath: "key.pem"}},
		{name: "missing_installation_id", cfg: InstallationAuthConfig{AppID: 1, PrivateKeyPath: "key.pem"}},
		{name: "missing_key_path", cfg: InstallationAuthConfig{AppID: 1, InstallationID: 2, Timeout: time.Second}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if _, err := NewInstallationHTTPClient(tc.cfg); err == nil {
				t.Fatalf("NewInstallationHTTPClient() expected error for %s", tc.name)
			}
		})
	}
}

func TestInstallationTokenProviderYieldsEmptyToken(t *testing.T) {
	t.Parallel()

	token, err := InstallationTokenProvider{}.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() unexpected error: %v", err)
	}
	if token != "" {
		t.Fatalf("Token() = %q, want empty (transport owns auth)", token)
	}
}

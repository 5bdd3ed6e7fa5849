// Copyright 2025 Warden
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gateway

import (
	"context"
	"errors"
	"testing"

	"warden/gateway/vault"
)

func TestCredentialResolver_TenantPrecedence(t *testing.T) {
	secrets := vault.NewStaticSecretsClient()
	secrets.SetTenantCredential("tenant-a", "github", "tenant-token")

	resolver := NewCredentialResolver(secrets, map[string]string{"github": "global-token"})

	// Tenant credential wins when one exists.
	cred := resolver.Resolve(context.Background(), "github", "tenant-a")
	if cred == nil {
		t.Fatal("expected a credential")
	}
	if cred.Value != "tenant-token" || cred.Source != SourceTenant {
		t.Errorf("cred = %+v, want tenant-token from tenant", cred)
	}

	// A different tenant without a vault entry falls back to global.
	cred = resolver.Resolve(context.Background(), "github", "tenant-b")
	if cred == nil || cred.Value != "global-token" || cred.Source != SourceGlobal {
		t.Errorf("cred = %+v, want global-token from global", cred)
	}

	// No tenant id at all goes straight to global.
	cred = resolver.Resolve(context.Background(), "github", "")
	if cred == nil || cred.Source != SourceGlobal {
		t.Errorf("cred = %+v, want global fallback", cred)
	}
}

func TestCredentialResolver_NoCredential(t *testing.T) {
	resolver := NewCredentialResolver(vault.NewStaticSecretsClient(), nil)

	if cred := resolver.Resolve(context.Background(), "github", "tenant-a"); cred != nil {
		t.Errorf("expected nil, got %+v", cred)
	}
}

func TestCredentialResolver_VaultOutageFallsBackToGlobal(t *testing.T) {
	secrets := vault.NewStaticSecretsClient()
	secrets.SetTenantCredential("tenant-a", "github", "tenant-token")
	secrets.FailWith = errors.New("vault unreachable")

	resolver := NewCredentialResolver(secrets, map[string]string{"github": "global-token"})

	cred := resolver.Resolve(context.Background(), "github", "tenant-a")
	if cred == nil || cred.Value != "global-token" || cred.Source != SourceGlobal {
		t.Errorf("cred = %+v, want global fallback during vault outage", cred)
	}
}

func TestCredentialResolver_VaultOutageWithoutGlobal(t *testing.T) {
	secrets := vault.NewStaticSecretsClient()
	secrets.FailWith = errors.New("vault unreachable")

	resolver := NewCredentialResolver(secrets, nil)

	if cred := resolver.Resolve(context.Background(), "github", "tenant-a"); cred != nil {
		t.Errorf("expected nil during outage with no global, got %+v", cred)
	}
}

func TestCredentialResolver_NilVault(t *testing.T) {
	resolver := NewCredentialResolver(nil, map[string]string{"search": "brave-key"})

	cred := resolver.Resolve(context.Background(), "search", "tenant-a")
	if cred == nil || cred.Value != "brave-key" {
		t.Errorf("cred = %+v, want global with nil vault", cred)
	}
}

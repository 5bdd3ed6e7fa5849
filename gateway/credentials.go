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

	"warden/gateway/vault"
)

// Credential sources recorded on resolution results and audit entries.
const (
	SourceTenant = "tenant"
	SourceGlobal = "global"
)

// CredentialResolver picks the upstream secret for a (service, tenant) pair:
// tenant-specific vault credentials first, global process configuration as
// the fallback. Vault errors never escape this boundary; they degrade to
// the global credential so a vault outage does not fail tenants that have a
// global fallback.
type CredentialResolver struct {
	secrets vault.SecretsClient
	global  map[string]string // service -> credential, from config
}

// NewCredentialResolver creates a resolver. secrets may be nil when no
// tenant vault is configured; resolution then always uses globals.
func NewCredentialResolver(secrets vault.SecretsClient, global map[string]string) *CredentialResolver {
	if global == nil {
		global = make(map[string]string)
	}
	return &CredentialResolver{secrets: secrets, global: global}
}

// Resolve returns the credential for a service, or nil when neither a
// tenant nor a global credential exists (the orchestrator maps nil to 503
// NO_CREDENTIAL).
func (r *CredentialResolver) Resolve(ctx context.Context, service, tenantID string) *ResolvedCredential {
	if tenantID != "" && r.secrets != nil {
		secret, err := r.secrets.GetSecret(ctx, vault.TenantSecretName(tenantID, service))
		if err == nil {
			if value, ok := vault.CredentialValue(secret); ok {
				promCredentialResolutions.WithLabelValues(SourceTenant).Inc()
				gatewayLog.Debug("", "", "Credential resolved",
					map[string]interface{}{"service": service, "source": SourceTenant})
				return &ResolvedCredential{Value: value, Source: SourceTenant}
			}
		} else {
			// Treated as "not found": fall through to the global credential.
			gatewayLog.Warn("", "", "Tenant credential lookup failed",
				map[string]interface{}{"service": service, "tenant_id": tenantID, "error": err.Error()})
		}
	}

	if value, ok := r.global[service]; ok && value != "" {
		promCredentialResolutions.WithLabelValues(SourceGlobal).Inc()
		gatewayLog.Debug("", "", "Credential resolved",
			map[string]interface{}{"service": service, "source": SourceGlobal})
		return &ResolvedCredential{Value: value, Source: SourceGlobal}
	}

	return nil
}

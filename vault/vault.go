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

// Package vault provides access to the per-tenant secret store. Tenant
// credentials for upstream services live under names of the form
// "warden/tenant/<tenantID>/<service>"; the backing store decrypts them on
// read. Decrypted values are only ever held in memory for the lifetime of a
// single request.
package vault

import (
	"context"
	"errors"
	"fmt"
)

// ErrSecretNotFound is returned when no secret exists under the given name.
// Callers treat any other error the same way at the resolution boundary, but
// the distinction matters for logging.
var ErrSecretNotFound = errors.New("secret not found")

// SecretsClient reads decrypted secrets from a backing store. The secret
// value is a map of credential fields; single-value secrets use the "value"
// key.
type SecretsClient interface {
	GetSecret(ctx context.Context, name string) (map[string]string, error)
}

// TenantSecretName builds the canonical vault name for a tenant's credential
// on a given service.
func TenantSecretName(tenantID, service string) string {
	return fmt.Sprintf("warden/tenant/%s/%s", tenantID, service)
}

// CredentialValue extracts the single credential value from a secret map.
// Multi-field secrets store the API credential under "value", "token" or
// "api_key"; the first present field wins.
func CredentialValue(secret map[string]string) (string, bool) {
	for _, field := range []string{"value", "token", "api_key"} {
		if v, ok := secret[field]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// maskName masks a secret name for logging (shows only the last 8
// characters). Secret names can embed tenant identifiers; values are never
// logged at all.
func maskName(name string) string {
	if len(name) <= 12 {
		return "***"
	}
	return "..." + name[len(name)-8:]
}

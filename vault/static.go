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

package vault

import (
	"context"
	"fmt"
	"sync"
)

// StaticSecretsClient is an in-memory SecretsClient for development and
// tests. It is safe for concurrent use.
type StaticSecretsClient struct {
	secrets map[string]map[string]string
	mu      sync.RWMutex

	// FailWith, when set, makes every GetSecret call return this error.
	// Tests use it to verify that vault outages degrade to global
	// credentials instead of failing requests.
	FailWith error
}

// NewStaticSecretsClient creates an empty static vault.
func NewStaticSecretsClient() *StaticSecretsClient {
	return &StaticSecretsClient{secrets: make(map[string]map[string]string)}
}

// GetSecret returns a stored secret or ErrSecretNotFound.
func (c *StaticSecretsClient) GetSecret(ctx context.Context, name string) (map[string]string, error) {
	if c.FailWith != nil {
		return nil, c.FailWith
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if secret, exists := c.secrets[name]; exists {
		return secret, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, maskName(name))
}

// SetSecret stores a secret under the given name.
func (c *StaticSecretsClient) SetSecret(name string, value map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.secrets[name] = value
}

// SetTenantCredential stores a single-value tenant credential for a service.
func (c *StaticSecretsClient) SetTenantCredential(tenantID, service, value string) {
	c.SetSecret(TenantSecretName(tenantID, service), map[string]string{"value": value})
}

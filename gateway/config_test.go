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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("WARDEN_CONFIG", "")
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("ADMIN_JWT_SECRET", "")
	t.Setenv("VAULT_BACKEND", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "static", cfg.Vault.Backend)
}

func TestLoadConfig_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "warden.yaml")
	content := `
port: "9000"
redis_url: redis://localhost:6379/0
global_credentials:
  github: ghp_global
service_base_urls:
  github: http://localhost:8081
service_rate_limits:
  inference: 50
vault:
  backend: aws
  region: eu-west-1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("WARDEN_CONFIG", path)
	t.Setenv("PORT", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("VAULT_BACKEND", "")
	t.Setenv("AWS_REGION", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "ghp_global", cfg.GlobalCredentials["github"])
	assert.Equal(t, "http://localhost:8081", cfg.ServiceBaseURLs["github"])
	assert.Equal(t, 50, cfg.ServiceRateLimits["inference"])
	assert.Equal(t, "aws", cfg.Vault.Backend)
	assert.Equal(t, "eu-west-1", cfg.Vault.Region)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "warden.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9000\"\n"), 0o600))

	t.Setenv("WARDEN_CONFIG", path)
	t.Setenv("PORT", "7070")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port, "env must win over file")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Setenv("WARDEN_CONFIG", "/does/not/exist.yaml")

	_, err := LoadConfig()
	assert.Error(t, err)
}

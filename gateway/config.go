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
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the gateway configuration. Values come from an optional YAML
// file (WARDEN_CONFIG) with environment variables taking precedence, so a
// containerized deployment can run on env vars alone.
type Config struct {
	Port string `yaml:"port"`

	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`

	AdminJWTSecret string `yaml:"admin_jwt_secret"`

	// Vault selects the tenant credential backend: "aws" or "static".
	Vault struct {
		Backend string `yaml:"backend"`
		Region  string `yaml:"region"`
	} `yaml:"vault"`

	// GlobalCredentials maps service name to a fallback credential used
	// when no tenant-scoped secret exists.
	GlobalCredentials map[string]string `yaml:"global_credentials"`

	// ServiceBaseURLs overrides registry base URLs, mainly for staging
	// environments and tests.
	ServiceBaseURLs map[string]string `yaml:"service_base_urls"`

	// ServiceRateLimits overrides the per-service requests-per-minute cap.
	ServiceRateLimits map[string]int `yaml:"service_rate_limits"`
}

// LoadConfig reads the YAML file named by WARDEN_CONFIG (if set), then
// applies env overrides and defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		GlobalCredentials: map[string]string{},
		ServiceBaseURLs:   map[string]string{},
		ServiceRateLimits: map[string]int{},
	}

	if path := os.Getenv("WARDEN_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.Port = firstNonEmpty(os.Getenv("PORT"), cfg.Port, "8090")
	cfg.DatabaseURL = firstNonEmpty(os.Getenv("DATABASE_URL"), cfg.DatabaseURL)
	cfg.RedisURL = firstNonEmpty(os.Getenv("REDIS_URL"), cfg.RedisURL)
	cfg.AdminJWTSecret = firstNonEmpty(os.Getenv("ADMIN_JWT_SECRET"), cfg.AdminJWTSecret)
	cfg.Vault.Backend = firstNonEmpty(os.Getenv("VAULT_BACKEND"), cfg.Vault.Backend, "static")
	cfg.Vault.Region = firstNonEmpty(os.Getenv("AWS_REGION"), cfg.Vault.Region)

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

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
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// AWSSecretsClient implements SecretsClient on AWS Secrets Manager with a
// short in-process cache. The cache bounds vault round-trips per tenant, not
// secret freshness; rotated secrets are picked up within the TTL.
type AWSSecretsClient struct {
	client *secretsmanager.Client
	cache  map[string]*cacheEntry
	mu     sync.RWMutex
	ttl    time.Duration
	logger *log.Logger
}

type cacheEntry struct {
	value     map[string]string
	expiresAt time.Time
}

// AWSSecretsClientOptions holds options for creating an AWSSecretsClient.
type AWSSecretsClientOptions struct {
	Region   string
	CacheTTL time.Duration
	Logger   *log.Logger
}

// NewAWSSecretsClient creates a Secrets Manager backed vault client.
func NewAWSSecretsClient(ctx context.Context, opts AWSSecretsClientOptions) (*AWSSecretsClient, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[VAULT] ", log.LstdFlags)
	}

	cfgOpts := []func(*config.LoadOptions) error{}
	if opts.Region != "" {
		cfgOpts = append(cfgOpts, config.WithRegion(opts.Region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}

	return &AWSSecretsClient{
		client: secretsmanager.NewFromConfig(cfg),
		cache:  make(map[string]*cacheEntry),
		ttl:    ttl,
		logger: logger,
	}, nil
}

// GetSecret retrieves and decrypts a secret. The secret string is expected to
// be a JSON object of string fields; a bare string is wrapped as {"value": s}.
func (c *AWSSecretsClient) GetSecret(ctx context.Context, name string) (map[string]string, error) {
	c.mu.RLock()
	entry, exists := c.cache[name]
	c.mu.RUnlock()

	if exists && time.Now().Before(entry.expiresAt) {
		return entry.value, nil
	}

	result, err := c.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		if strings.Contains(err.Error(), "ResourceNotFoundException") {
			return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, maskName(name))
		}
		return nil, fmt.Errorf("failed to get secret %s: %w", maskName(name), err)
	}

	if result.SecretString == nil {
		return nil, fmt.Errorf("secret %s has no string value", maskName(name))
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(*result.SecretString), &fields); err != nil {
		// Single-value secrets are stored as a bare string.
		fields = map[string]string{"value": *result.SecretString}
	}

	c.mu.Lock()
	c.cache[name] = &cacheEntry{value: fields, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()

	c.logger.Printf("Fetched secret %s from Secrets Manager", maskName(name))
	return fields, nil
}

// Invalidate removes a secret from the cache (used after rotation).
func (c *AWSSecretsClient) Invalidate(name string) {
	c.mu.Lock()
	delete(c.cache, name)
	c.mu.Unlock()
}

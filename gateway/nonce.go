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
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// nonceTTL bounds the window between issuing a nonce and consuming it.
const nonceTTL = 30 * time.Second

// NonceService issues single-use challenge values backed by Redis. A nonce
// is bound to one agent and is valid for nonceTTL; consuming it deletes it
// atomically so that at most one verification attempt ever succeeds.
type NonceService struct {
	client *redis.Client
}

// NewNonceService creates a NonceService on the given Redis client.
func NewNonceService(client *redis.Client) *NonceService {
	return &NonceService{client: client}
}

func nonceKey(agentID, value string) string {
	return fmt.Sprintf("nonce:%s:%s", agentID, value)
}

// Issue generates a fresh nonce for the agent and stores it with nonceTTL.
func (n *NonceService) Issue(ctx context.Context, agentID string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	value := hex.EncodeToString(buf)

	if err := n.client.Set(ctx, nonceKey(agentID, value), "1", nonceTTL).Err(); err != nil {
		return "", fmt.Errorf("failed to store nonce: %w", err)
	}

	return value, nil
}

// ValidateAndConsume atomically checks and deletes a nonce. GETDEL is a
// single Redis primitive, so two concurrent attempts on the same nonce can
// never both observe it: the second GETDEL finds the key gone and returns
// false. A missing key covers all of expired, never-issued, and already
// consumed; the distinction does not matter for the security decision.
func (n *NonceService) ValidateAndConsume(ctx context.Context, agentID, value string) (bool, error) {
	result, err := n.client.GetDel(ctx, nonceKey(agentID, value)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to consume nonce: %w", err)
	}
	return result != "", nil
}

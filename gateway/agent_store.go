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
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrAgentNotFound is returned when no enabled agent matches the lookup.
// Auth paths surface it as an opaque AUTH_FAILED so callers cannot probe for
// agent existence.
var ErrAgentNotFound = errors.New("agent not found")

// AgentStore persists agent identities in PostgreSQL. Agents are never hard
// deleted; disabling preserves audit referential integrity.
type AgentStore struct {
	db *sql.DB
}

// NewAgentStore creates the store and ensures the agents table exists.
func NewAgentStore(db *sql.DB) (*AgentStore, error) {
	store := &AgentStore{db: db}
	if err := store.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create agents table: %w", err)
	}
	return store, nil
}

func (s *AgentStore) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS agents (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		owner VARCHAR(255) NOT NULL,
		secret_hash VARCHAR(64) NOT NULL,
		scopes TEXT[] NOT NULL DEFAULT '{}',
		rate_limit_rpm INTEGER NOT NULL DEFAULT 60,
		rate_limit_daily INTEGER NOT NULL DEFAULT 10000,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		request_count BIGINT NOT NULL DEFAULT 0,
		last_used_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_agents_secret_hash ON agents(secret_hash);
	CREATE INDEX IF NOT EXISTS idx_agents_enabled ON agents(enabled);
	`

	_, err := s.db.Exec(query)
	return err
}

// HashSecret returns the hex SHA-256 of an agent shared secret. Only the
// hash is ever stored or compared.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// newAgentID generates a caller-facing agent id ("wdn_" prefix).
func newAgentID() string {
	return "wdn_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// newAgentSecret generates a 256-bit shared secret, hex encoded.
func newAgentSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Create registers a new agent. The returned plaintext secret is shown to
// the operator exactly once; only its hash is persisted.
func (s *AgentStore) Create(ctx context.Context, name, owner string, scopes []string, rpm, daily int) (*Agent, string, error) {
	if rpm <= 0 {
		rpm = 60
	}
	if daily <= 0 {
		daily = 10000
	}

	secret, err := newAgentSecret()
	if err != nil {
		return nil, "", err
	}

	agent := &Agent{
		ID:             newAgentID(),
		Name:           name,
		Owner:          owner,
		SecretHash:     HashSecret(secret),
		Scopes:         scopes,
		RateLimitRPM:   rpm,
		RateLimitDaily: daily,
		Enabled:        true,
		CreatedAt:      time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO agents (id, name, owner, secret_hash, scopes, rate_limit_rpm, rate_limit_daily, enabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		agent.ID, agent.Name, agent.Owner, agent.SecretHash, pq.Array(agent.Scopes),
		agent.RateLimitRPM, agent.RateLimitDaily, agent.Enabled, agent.CreatedAt,
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to insert agent: %w", err)
	}

	return agent, secret, nil
}

const agentColumns = `id, name, owner, secret_hash, scopes, rate_limit_rpm, rate_limit_daily, enabled, request_count, last_used_at, created_at`

func scanAgent(row *sql.Row) (*Agent, error) {
	agent := &Agent{}
	var lastUsed sql.NullTime
	err := row.Scan(
		&agent.ID, &agent.Name, &agent.Owner, &agent.SecretHash,
		pq.Array(&agent.Scopes), &agent.RateLimitRPM, &agent.RateLimitDaily,
		&agent.Enabled, &agent.RequestCount, &lastUsed, &agent.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}
	if lastUsed.Valid {
		agent.LastUsedAt = &lastUsed.Time
	}
	return agent, nil
}

// GetByID returns an agent by id, enabled or not. Callers on auth paths must
// check Enabled themselves and report the same opaque failure either way.
func (s *AgentStore) GetByID(ctx context.Context, id string) (*Agent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)
	return scanAgent(row)
}

// GetBySecretHash returns the enabled agent holding the given secret hash.
func (s *AgentStore) GetBySecretHash(ctx context.Context, secretHash string) (*Agent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE secret_hash = $1 AND enabled = TRUE`, secretHash)
	return scanAgent(row)
}

// List returns all agents ordered by creation time, newest first. Secret
// hashes are populated on the struct but excluded from JSON serialization.
func (s *AgentStore) List(ctx context.Context) ([]*Agent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+agentColumns+` FROM agents ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var agents []*Agent
	for rows.Next() {
		agent := &Agent{}
		var lastUsed sql.NullTime
		err := rows.Scan(
			&agent.ID, &agent.Name, &agent.Owner, &agent.SecretHash,
			pq.Array(&agent.Scopes), &agent.RateLimitRPM, &agent.RateLimitDaily,
			&agent.Enabled, &agent.RequestCount, &lastUsed, &agent.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if lastUsed.Valid {
			agent.LastUsedAt = &lastUsed.Time
		}
		agents = append(agents, agent)
	}
	return agents, rows.Err()
}

// Disable soft-deletes an agent. Disabled agents fail every auth path.
func (s *AgentStore) Disable(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE agents SET enabled = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to disable agent: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAgentNotFound
	}
	return nil
}

// RecordUsage increments the usage counters for an agent. Called
// fire-and-forget after a successful request; failures are logged and
// swallowed by the caller.
func (s *AgentStore) RecordUsage(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE agents SET request_count = request_count + 1, last_used_at = $2 WHERE id = $1`,
		id, time.Now().UTC())
	return err
}

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

// Package gateway implements the Warden credential-injection gateway: it
// authenticates calling agents, authorizes the requested upstream action,
// resolves the right credential (tenant-specific or global), executes the
// upstream call, scrubs the response, and records an immutable audit trail.
// Agents never hold upstream credentials themselves.
package gateway

import "time"

// Auth methods recorded on every authenticated request.
const (
	AuthMethodServiceBinding    = "service_binding"
	AuthMethodChallengeResponse = "challenge_response"
)

// Audit event types. Every terminal orchestrator decision produces exactly
// one audit entry with one of these types.
const (
	EventRequest      = "request"
	EventResolve      = "resolve"
	EventNonceReuse   = "nonce_reuse"
	EventRateLimitHit = "rate_limit_hit"
	EventScopeDenial  = "scope_denial"
)

// Agent is a registered caller of the gateway. The shared secret is hashed
// at registration; the plaintext is returned exactly once and never
// persisted.
type Agent struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Owner          string     `json:"owner"`
	SecretHash     string     `json:"-"`
	Scopes         []string   `json:"scopes"`
	RateLimitRPM   int        `json:"rate_limit_rpm"`
	RateLimitDaily int        `json:"rate_limit_daily"`
	Enabled        bool       `json:"enabled"`
	RequestCount   int64      `json:"request_count"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// HasScopeOnService reports whether the agent holds any scope that grants
// access to the given service (used by the /resolve endpoint, which requires
// any scope on the target service).
func (a *Agent) HasScopeOnService(service string) bool {
	for _, scope := range a.Scopes {
		if scope == "*:*" {
			return true
		}
		if len(scope) > len(service) && scope[:len(service)] == service && scope[len(service)] == ':' {
			return true
		}
	}
	return false
}

// ResolvedCredential is the outcome of credential resolution. It is never
// persisted and never serialized into logs; the value lives only for the
// duration of the upstream call.
type ResolvedCredential struct {
	Value  string
	Source string // "tenant" or "global"
}

// AgentProof is the challenge-response auth block carried in a request body.
type AgentProof struct {
	ID        string `json:"id"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

// GatewayRequest is the body of POST /request.
type GatewayRequest struct {
	Service  string                 `json:"service"`
	Action   string                 `json:"action"`
	Params   map[string]interface{} `json:"params"`
	TenantID string                 `json:"tenant_id,omitempty"`
	Agent    *AgentProof            `json:"agent,omitempty"`
}

// ResponseMeta accompanies every envelope.
type ResponseMeta struct {
	Service   string `json:"service"`
	Action    string `json:"action"`
	LatencyMs int64  `json:"latencyMs"`
}

// ErrorBody is the error half of a response envelope.
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Envelope is the uniform response shape of POST /request.
type Envelope struct {
	Success bool          `json:"success"`
	Data    interface{}   `json:"data,omitempty"`
	Error   *ErrorBody    `json:"error,omitempty"`
	Meta    *ResponseMeta `json:"meta,omitempty"`
}

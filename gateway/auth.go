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
)

// Authenticator resolves caller identity through one of two mutually
// exclusive paths: a shared key header (service binding, trusted internal
// callers) or a challenge-response proof carried in the request body. Any
// single failure is terminal; there is no partial credit and callers cannot
// distinguish unknown agents from disabled ones.
type Authenticator struct {
	store  *AgentStore
	nonces *NonceService
}

// AuthResult is a successfully resolved caller identity.
type AuthResult struct {
	Agent  *Agent
	Method string
}

// authFailure carries everything the caller needs to terminate the request:
// the caller-visible error plus the audit attribution for the failure.
type authFailure struct {
	apiErr    *apiError
	eventType string // EventNonceReuse for nonce failures, EventRequest otherwise
	agentID   string // best-effort attribution; empty when the claim was unverifiable
	method    string
}

// NewAuthenticator creates the dual-auth middleware.
func NewAuthenticator(store *AgentStore, nonces *NonceService) *Authenticator {
	return &Authenticator{store: store, nonces: nonces}
}

// Authenticate resolves the caller from an X-API-Key header or an AgentProof
// body block. Exactly one path runs: a present API key always takes the
// service-binding path, even if a proof is also supplied.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string, proof *AgentProof) (*AuthResult, *authFailure) {
	if apiKey != "" {
		return a.authenticateServiceBinding(ctx, apiKey)
	}
	if proof != nil {
		return a.authenticateChallengeResponse(ctx, proof)
	}
	return nil, &authFailure{apiErr: errAuthRequired, eventType: EventRequest}
}

// authenticateServiceBinding hashes the presented key and looks up an
// enabled agent holding that hash. No nonce is involved on this path.
func (a *Authenticator) authenticateServiceBinding(ctx context.Context, apiKey string) (*AuthResult, *authFailure) {
	agent, err := a.store.GetBySecretHash(ctx, HashSecret(apiKey))
	if err != nil {
		if !errors.Is(err, ErrAgentNotFound) {
			gatewayLog.Error("", "", "Agent lookup failed during service-binding auth",
				map[string]interface{}{"error": err.Error()})
		}
		promAuthFailures.WithLabelValues(AuthMethodServiceBinding).Inc()
		return nil, &authFailure{
			apiErr:    errAuthFailed,
			eventType: EventRequest,
			method:    AuthMethodServiceBinding,
		}
	}

	return &AuthResult{Agent: agent, Method: AuthMethodServiceBinding}, nil
}

// authenticateChallengeResponse validates the {agentId, nonce, signature}
// proof: the agent must exist and be enabled, the nonce must consume
// atomically, and the signature must verify against the agent's secret
// hash.
func (a *Authenticator) authenticateChallengeResponse(ctx context.Context, proof *AgentProof) (*AuthResult, *authFailure) {
	fail := func(apiErr *apiError, eventType string) *authFailure {
		promAuthFailures.WithLabelValues(AuthMethodChallengeResponse).Inc()
		return &authFailure{
			apiErr:    apiErr,
			eventType: eventType,
			agentID:   proof.ID,
			method:    AuthMethodChallengeResponse,
		}
	}

	if proof.ID == "" || proof.Nonce == "" || proof.Signature == "" {
		return nil, fail(errAuthRequired, EventRequest)
	}

	agent, err := a.store.GetByID(ctx, proof.ID)
	if err != nil {
		if !errors.Is(err, ErrAgentNotFound) {
			gatewayLog.Error(proof.ID, "", "Agent lookup failed during challenge-response auth",
				map[string]interface{}{"error": err.Error()})
		}
		return nil, fail(errAuthFailed, EventRequest)
	}
	if !agent.Enabled {
		// Same opaque response as an unknown agent; the audit trail keeps
		// the distinction via the agent id.
		return nil, fail(errAuthFailed, EventRequest)
	}

	consumed, err := a.nonces.ValidateAndConsume(ctx, proof.ID, proof.Nonce)
	if err != nil {
		gatewayLog.Error(proof.ID, "", "Nonce consumption failed",
			map[string]interface{}{"error": err.Error()})
		return nil, fail(errNonceInvalid, EventNonceReuse)
	}
	if !consumed {
		// Missing, expired, or already consumed: the caller claimed to hold
		// a still-valid nonce and that claim was false, so this is recorded
		// as nonce reuse even on a first-ever miss.
		return nil, fail(errNonceInvalid, EventNonceReuse)
	}

	if !VerifySignature(agent.SecretHash, proof.Nonce, proof.Signature) {
		return nil, fail(errBadSignature, EventRequest)
	}

	return &AuthResult{Agent: agent, Method: AuthMethodChallengeResponse}, nil
}

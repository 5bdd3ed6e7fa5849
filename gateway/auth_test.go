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
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func agentRow(id, secretHash string, enabled bool, scopes string) *sqlmock.Rows {
	return sqlmock.NewRows(testAgentColumns).
		AddRow(id, "test-agent", "owner", secretHash, scopes, 60, 10000,
			enabled, int64(0), nil, time.Now().UTC())
}

func TestAuthenticate_ServiceBinding(t *testing.T) {
	store, mock, _ := newTestStore(t)
	_, client := newTestRedis(t)
	auth := NewAuthenticator(store, NewNonceService(client))

	apiKey := "shared-key-123"
	mock.ExpectQuery("SELECT (.+) FROM agents WHERE secret_hash").
		WithArgs(HashSecret(apiKey)).
		WillReturnRows(agentRow("wdn_1", HashSecret(apiKey), true, "{github:read}"))

	result, failure := auth.Authenticate(context.Background(), apiKey, nil)
	if failure != nil {
		t.Fatalf("unexpected failure: %+v", failure.apiErr)
	}
	if result.Agent.ID != "wdn_1" {
		t.Errorf("agent id = %s", result.Agent.ID)
	}
	if result.Method != AuthMethodServiceBinding {
		t.Errorf("method = %s", result.Method)
	}
}

func TestAuthenticate_ServiceBinding_UnknownKey(t *testing.T) {
	store, mock, _ := newTestStore(t)
	_, client := newTestRedis(t)
	auth := NewAuthenticator(store, NewNonceService(client))

	mock.ExpectQuery("SELECT (.+) FROM agents WHERE secret_hash").
		WillReturnRows(sqlmock.NewRows(testAgentColumns))

	_, failure := auth.Authenticate(context.Background(), "wrong-key", nil)
	if failure == nil {
		t.Fatal("expected failure")
	}
	if failure.apiErr.Code != CodeAuthFailed {
		t.Errorf("code = %s, want %s", failure.apiErr.Code, CodeAuthFailed)
	}
}

func TestAuthenticate_NoCredentials(t *testing.T) {
	store, _, _ := newTestStore(t)
	_, client := newTestRedis(t)
	auth := NewAuthenticator(store, NewNonceService(client))

	_, failure := auth.Authenticate(context.Background(), "", nil)
	if failure == nil || failure.apiErr.Code != CodeAuthRequired {
		t.Fatalf("failure = %+v, want AUTH_REQUIRED", failure)
	}
}

func TestAuthenticate_APIKeyTakesPrecedence(t *testing.T) {
	store, mock, _ := newTestStore(t)
	_, client := newTestRedis(t)
	auth := NewAuthenticator(store, NewNonceService(client))

	apiKey := "shared-key"
	mock.ExpectQuery("SELECT (.+) FROM agents WHERE secret_hash").
		WillReturnRows(agentRow("wdn_1", HashSecret(apiKey), true, "{}"))

	// A proof is also present, but the API key path runs; no nonce lookup
	// happens, so the bogus proof is never inspected.
	result, failure := auth.Authenticate(context.Background(), apiKey,
		&AgentProof{ID: "wdn_other", Nonce: "x", Signature: "y"})
	if failure != nil {
		t.Fatalf("unexpected failure: %+v", failure.apiErr)
	}
	if result.Method != AuthMethodServiceBinding {
		t.Errorf("method = %s, want service binding", result.Method)
	}
}

func TestAuthenticate_ChallengeResponse(t *testing.T) {
	store, mock, _ := newTestStore(t)
	_, client := newTestRedis(t)
	nonces := NewNonceService(client)
	auth := NewAuthenticator(store, nonces)
	ctx := context.Background()

	secret := "agent-plaintext-secret"
	nonce, err := nonces.Issue(ctx, "wdn_1")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	mock.ExpectQuery("SELECT (.+) FROM agents WHERE id").
		WithArgs("wdn_1").
		WillReturnRows(agentRow("wdn_1", HashSecret(secret), true, "{github:read}"))

	result, failure := auth.Authenticate(ctx, "", &AgentProof{
		ID:        "wdn_1",
		Nonce:     nonce,
		Signature: SignNonce(secret, nonce),
	})
	if failure != nil {
		t.Fatalf("unexpected failure: %+v", failure.apiErr)
	}
	if result.Method != AuthMethodChallengeResponse {
		t.Errorf("method = %s", result.Method)
	}
}

func TestAuthenticate_ChallengeResponse_NonceReplay(t *testing.T) {
	store, mock, _ := newTestStore(t)
	_, client := newTestRedis(t)
	nonces := NewNonceService(client)
	auth := NewAuthenticator(store, nonces)
	ctx := context.Background()

	secret := "agent-secret"
	nonce, _ := nonces.Issue(ctx, "wdn_1")
	proof := &AgentProof{ID: "wdn_1", Nonce: nonce, Signature: SignNonce(secret, nonce)}

	mock.ExpectQuery("SELECT (.+) FROM agents WHERE id").
		WillReturnRows(agentRow("wdn_1", HashSecret(secret), true, "{}"))
	mock.ExpectQuery("SELECT (.+) FROM agents WHERE id").
		WillReturnRows(agentRow("wdn_1", HashSecret(secret), true, "{}"))

	if _, failure := auth.Authenticate(ctx, "", proof); failure != nil {
		t.Fatalf("first use should succeed: %+v", failure.apiErr)
	}

	_, failure := auth.Authenticate(ctx, "", proof)
	if failure == nil {
		t.Fatal("replayed nonce must fail")
	}
	if failure.apiErr.Code != CodeNonceInvalid {
		t.Errorf("code = %s, want %s", failure.apiErr.Code, CodeNonceInvalid)
	}
	if failure.eventType != EventNonceReuse {
		t.Errorf("event = %s, want %s", failure.eventType, EventNonceReuse)
	}
}

func TestAuthenticate_ChallengeResponse_BadSignature(t *testing.T) {
	store, mock, _ := newTestStore(t)
	_, client := newTestRedis(t)
	nonces := NewNonceService(client)
	auth := NewAuthenticator(store, nonces)
	ctx := context.Background()

	nonce, _ := nonces.Issue(ctx, "wdn_1")

	mock.ExpectQuery("SELECT (.+) FROM agents WHERE id").
		WillReturnRows(agentRow("wdn_1", HashSecret("real-secret"), true, "{}"))

	_, failure := auth.Authenticate(ctx, "", &AgentProof{
		ID:        "wdn_1",
		Nonce:     nonce,
		Signature: SignNonce("attacker-guess", nonce),
	})
	if failure == nil || failure.apiErr.Code != CodeSignatureInvalid {
		t.Fatalf("failure = %+v, want SIGNATURE_INVALID", failure)
	}

	// The bad signature still consumed the nonce: a retry with the right
	// secret now fails on the nonce, not the signature.
	mock.ExpectQuery("SELECT (.+) FROM agents WHERE id").
		WillReturnRows(agentRow("wdn_1", HashSecret("real-secret"), true, "{}"))

	_, failure = auth.Authenticate(ctx, "", &AgentProof{
		ID:        "wdn_1",
		Nonce:     nonce,
		Signature: SignNonce("real-secret", nonce),
	})
	if failure == nil || failure.apiErr.Code != CodeNonceInvalid {
		t.Fatalf("failure = %+v, want NONCE_INVALID after consumption", failure)
	}
}

func TestAuthenticate_ChallengeResponse_DisabledAgentOpaque(t *testing.T) {
	store, mock, _ := newTestStore(t)
	_, client := newTestRedis(t)
	nonces := NewNonceService(client)
	auth := NewAuthenticator(store, nonces)
	ctx := context.Background()

	nonce, _ := nonces.Issue(ctx, "wdn_disabled")

	mock.ExpectQuery("SELECT (.+) FROM agents WHERE id").
		WillReturnRows(agentRow("wdn_disabled", HashSecret("s"), false, "{}"))

	_, disabledFailure := auth.Authenticate(ctx, "", &AgentProof{
		ID: "wdn_disabled", Nonce: nonce, Signature: SignNonce("s", nonce),
	})

	mock.ExpectQuery("SELECT (.+) FROM agents WHERE id").
		WillReturnRows(sqlmock.NewRows(testAgentColumns))

	_, unknownFailure := auth.Authenticate(ctx, "", &AgentProof{
		ID: "wdn_ghost", Nonce: "n", Signature: "s",
	})

	// Disabled and unknown agents must be indistinguishable to the caller.
	if disabledFailure == nil || unknownFailure == nil {
		t.Fatal("both must fail")
	}
	if disabledFailure.apiErr.Code != unknownFailure.apiErr.Code {
		t.Errorf("codes differ: %s vs %s", disabledFailure.apiErr.Code, unknownFailure.apiErr.Code)
	}
	if disabledFailure.apiErr.Message != unknownFailure.apiErr.Message {
		t.Errorf("messages differ: %q vs %q", disabledFailure.apiErr.Message, unknownFailure.apiErr.Message)
	}
}

func TestAuthenticate_ChallengeResponse_IncompleteProof(t *testing.T) {
	store, _, _ := newTestStore(t)
	_, client := newTestRedis(t)
	auth := NewAuthenticator(store, NewNonceService(client))

	proofs := []*AgentProof{
		{Nonce: "n", Signature: "s"},
		{ID: "wdn_1", Signature: "s"},
		{ID: "wdn_1", Nonce: "n"},
	}
	for _, proof := range proofs {
		if _, failure := auth.Authenticate(context.Background(), "", proof); failure == nil {
			t.Errorf("incomplete proof %+v must fail", proof)
		}
	}
}

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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"warden/gateway/services"
	"warden/gateway/vault"
)

// newTestServer builds a Server over mock dependencies. The sqlmock handle
// is returned so tests can arrange agent rows.
func newTestServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	t.Helper()

	store, mock, db := newTestStore(t)
	_, redisClient := newTestRedis(t)

	registry := services.NewRegistry(nil)
	nonces := NewNonceService(redisClient)
	audit := NewAuditLogger(nil)
	t.Cleanup(audit.Shutdown)

	secrets := vault.NewStaticSecretsClient()
	secrets.SetTenantCredential("tenant-a", "github", "tenant-github-token")
	credentials := NewCredentialResolver(secrets, map[string]string{"search": "global-search-key"})

	return &Server{
		store:        store,
		nonces:       nonces,
		auth:         NewAuthenticator(store, nonces),
		orchestrator: NewOrchestrator(registry, NewScopeAuthorizer(registry), NewRateLimiter(redisClient, nil), credentials, audit, store, nil),
		credentials:  credentials,
		audit:        audit,
		registry:     registry,
		adminSecret:  []byte("test-admin-secret"),
		db:           db,
		redis:        redisClient,
	}, mock
}

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestHandleNonce(t *testing.T) {
	server, mock := newTestServer(t)

	mock.ExpectQuery("SELECT (.+) FROM agents WHERE id").
		WithArgs("wdn_1").
		WillReturnRows(agentRow("wdn_1", "hash", true, "{}"))

	w := postJSON(t, server.handleNonce, "/nonce", `{"agentId": "wdn_1"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if len(resp["nonce"]) != 64 {
		t.Errorf("nonce = %q", resp["nonce"])
	}
}

func TestHandleNonce_UnknownAndDisabledLookTheSame(t *testing.T) {
	server, mock := newTestServer(t)

	mock.ExpectQuery("SELECT (.+) FROM agents WHERE id").
		WillReturnRows(sqlmock.NewRows(testAgentColumns))
	unknown := postJSON(t, server.handleNonce, "/nonce", `{"agentId": "wdn_ghost"}`, nil)

	mock.ExpectQuery("SELECT (.+) FROM agents WHERE id").
		WillReturnRows(agentRow("wdn_off", "hash", false, "{}"))
	disabled := postJSON(t, server.handleNonce, "/nonce", `{"agentId": "wdn_off"}`, nil)

	if unknown.Code != http.StatusNotFound || disabled.Code != http.StatusNotFound {
		t.Fatalf("codes = %d / %d, want 404 for both", unknown.Code, disabled.Code)
	}
	if unknown.Body.String() != disabled.Body.String() {
		t.Errorf("bodies differ:\n%s\n%s", unknown.Body.String(), disabled.Body.String())
	}
}

func TestHandleNonce_BadBody(t *testing.T) {
	server, _ := newTestServer(t)

	for _, body := range []string{``, `{}`, `not json`, `{"agentId": ""}`} {
		w := postJSON(t, server.handleNonce, "/nonce", body, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
	}
}

func TestHandleRequest_AuthFailureEnvelope(t *testing.T) {
	server, mock := newTestServer(t)

	mock.ExpectQuery("SELECT (.+) FROM agents WHERE secret_hash").
		WillReturnRows(sqlmock.NewRows(testAgentColumns))

	w := postJSON(t, server.handleRequest, "/request",
		`{"service": "github", "action": "list_issues", "params": {}}`,
		map[string]string{"X-API-Key": "bad-key"})

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var envelope Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if envelope.Success || envelope.Error == nil || envelope.Error.Code != CodeAuthFailed {
		t.Errorf("envelope = %+v", envelope)
	}
	if envelope.Meta == nil || envelope.Meta.Service != "github" {
		t.Errorf("meta = %+v", envelope.Meta)
	}
}

func TestHandleRequest_EndToEnd(t *testing.T) {
	server, mock := newTestServer(t)

	// Point the github catalog at a fake upstream.
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"full_name": "acme/widgets"}`))
	}))
	defer upstream.Close()
	svc, _ := server.registry.Get("github")
	svc.BaseURL = upstream.URL

	apiKey := "good-key"
	mock.ExpectQuery("SELECT (.+) FROM agents WHERE secret_hash").
		WithArgs(HashSecret(apiKey)).
		WillReturnRows(agentRow("wdn_1", HashSecret(apiKey), true, "{github:read}"))

	w := postJSON(t, server.handleRequest, "/request",
		`{"service": "github", "action": "get_repo", "params": {"owner": "acme", "repo": "widgets"}, "tenant_id": "tenant-a"}`,
		map[string]string{"X-API-Key": apiKey})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var envelope Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if !envelope.Success {
		t.Errorf("envelope = %+v", envelope)
	}
}

func TestHandleResolve_ServiceBindingOnly(t *testing.T) {
	server, _ := newTestServer(t)

	// Challenge-response callers are rejected before any auth work.
	w := postJSON(t, server.handleResolve, "/resolve",
		`{"service": "search", "agent": {"id": "wdn_1", "nonce": "n", "signature": "s"}}`, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if !strings.Contains(w.Body.String(), CodeAuthMethodDenied) {
		t.Errorf("body = %s", w.Body.String())
	}

	// No credentials at all is a plain 401.
	w = postJSON(t, server.handleResolve, "/resolve", `{"service": "search"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestHandleResolve_Success(t *testing.T) {
	server, mock := newTestServer(t)

	apiKey := "internal-service-key"
	mock.ExpectQuery("SELECT (.+) FROM agents WHERE secret_hash").
		WillReturnRows(agentRow("wdn_internal", HashSecret(apiKey), true, "{search:read}"))

	w := postJSON(t, server.handleResolve, "/resolve",
		`{"service": "search"}`, map[string]string{"X-API-Key": apiKey})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if resp["credential"] != "global-search-key" || resp["source"] != SourceGlobal {
		t.Errorf("resp = %v", resp)
	}
}

func TestHandleResolve_ScopeRequired(t *testing.T) {
	server, mock := newTestServer(t)

	apiKey := "internal-service-key"
	mock.ExpectQuery("SELECT (.+) FROM agents WHERE secret_hash").
		WillReturnRows(agentRow("wdn_internal", HashSecret(apiKey), true, "{github:read}"))

	// The caller holds github scope but asks for the search credential.
	w := postJSON(t, server.handleResolve, "/resolve",
		`{"service": "search"}`, map[string]string{"X-API-Key": apiKey})

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), CodeScopeDenied) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestHandleResolve_NoCredential(t *testing.T) {
	server, mock := newTestServer(t)

	apiKey := "internal-service-key"
	mock.ExpectQuery("SELECT (.+) FROM agents WHERE secret_hash").
		WillReturnRows(agentRow("wdn_internal", HashSecret(apiKey), true, "{dns:read}"))

	w := postJSON(t, server.handleResolve, "/resolve",
		`{"service": "dns"}`, map[string]string{"X-API-Key": apiKey})

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), CodeNoCredential) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestHandleHealth(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	server.handleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("status = %v", resp["status"])
	}
}

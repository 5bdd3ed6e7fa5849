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
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"warden/gateway/services"
)

// maxBodySize bounds inbound request bodies.
const maxBodySize = 1 << 20

// Server holds the wired gateway components and exposes the HTTP surface.
type Server struct {
	store        *AgentStore
	nonces       *NonceService
	auth         *Authenticator
	orchestrator *Orchestrator
	credentials  *CredentialResolver
	audit        *AuditLogger
	registry     *services.Registry
	adminSecret  []byte

	// health check dependencies
	db    *sql.DB
	redis *redis.Client
}

// nonceRequest is the body of POST /nonce.
type nonceRequest struct {
	AgentID string `json:"agentId"`
}

// handleNonce issues a single-use challenge nonce for a registered agent.
// Unknown and disabled agents both get 404; issuing requires knowing the
// agent id, which is not a secret.
func (s *Server) handleNonce(w http.ResponseWriter, r *http.Request) {
	var req nonceRequest
	if err := decodeBody(r, &req); err != nil || req.AgentID == "" {
		writeAPIError(w, newAPIError(http.StatusBadRequest, CodeInvalidBody, "body must be JSON with agentId"))
		return
	}

	agent, err := s.store.GetByID(r.Context(), req.AgentID)
	if err != nil || !agent.Enabled {
		if err != nil && !errors.Is(err, ErrAgentNotFound) {
			gatewayLog.Error(req.AgentID, "", "Agent lookup failed during nonce issue",
				map[string]interface{}{"error": err.Error()})
		}
		writeAPIError(w, newAPIError(http.StatusNotFound, CodeAgentNotFound, "agent not found"))
		return
	}

	nonce, err := s.nonces.Issue(r.Context(), agent.ID)
	if err != nil {
		gatewayLog.Error(agent.ID, "", "Nonce issue failed",
			map[string]interface{}{"error": err.Error()})
		writeAPIError(w, errInternal)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"nonce": nonce})
}

// handleRequest is the main pipeline entry point: authenticate, then hand
// the request to the orchestrator.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	var req GatewayRequest
	if err := decodeBody(r, &req); err != nil {
		writeAPIError(w, newAPIError(http.StatusBadRequest, CodeInvalidBody, "invalid request body"))
		return
	}

	auth, failure := s.auth.Authenticate(r.Context(), r.Header.Get("X-API-Key"), req.Agent)
	if failure != nil {
		s.audit.Record(&AuditEntry{
			AgentID:       failure.agentID,
			TargetService: req.Service,
			Action:        req.Action,
			AuthMethod:    failure.method,
			AuthResult:    "failure",
			EventType:     failure.eventType,
			TenantID:      req.TenantID,
			ErrorCode:     failure.apiErr.Code,
		})
		writeErrorEnvelope(w, failure.apiErr, &ResponseMeta{Service: req.Service, Action: req.Action})
		return
	}

	status, envelope := s.orchestrator.Execute(r.Context(), &req, auth)
	writeJSON(w, status, envelope)
}

// resolveRequest is the body of POST /resolve.
type resolveRequest struct {
	Service  string      `json:"service"`
	TenantID string      `json:"tenant_id,omitempty"`
	Agent    *AgentProof `json:"agent,omitempty"`
}

// handleResolve returns a resolved credential to a trusted internal caller.
// Only the service-binding auth path is accepted: challenge-response
// callers are rejected outright, and the caller must hold some scope on the
// target service.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeBody(r, &req); err != nil || req.Service == "" {
		writeAPIError(w, newAPIError(http.StatusBadRequest, CodeInvalidBody, "body must be JSON with service"))
		return
	}

	apiKey := r.Header.Get("X-API-Key")
	if apiKey == "" {
		if req.Agent != nil {
			writeAPIError(w, newAPIError(http.StatusForbidden, CodeAuthMethodDenied,
				"credential resolution requires service-binding authentication"))
			return
		}
		writeAPIError(w, errAuthRequired)
		return
	}

	auth, failure := s.auth.Authenticate(r.Context(), apiKey, nil)
	if failure != nil {
		writeAPIError(w, failure.apiErr)
		return
	}
	agent := auth.Agent

	entry := &AuditEntry{
		AgentID:       agent.ID,
		AgentName:     agent.Name,
		TargetService: req.Service,
		AuthMethod:    auth.Method,
		AuthResult:    "success",
		EventType:     EventResolve,
		TenantID:      req.TenantID,
	}

	if _, ok := s.registry.Get(req.Service); !ok {
		entry.ErrorCode = CodeUnknownService
		s.audit.Record(entry)
		writeAPIError(w, newAPIError(http.StatusBadRequest, CodeUnknownService, "unknown service: "+req.Service))
		return
	}

	if !agent.HasScopeOnService(req.Service) {
		promScopeDenials.Inc()
		entry.EventType = EventScopeDenial
		entry.ErrorCode = CodeScopeDenied
		s.audit.Record(entry)
		writeAPIError(w, newAPIError(http.StatusForbidden, CodeScopeDenied,
			"agent holds no scope on this service"))
		return
	}

	credential := s.credentials.Resolve(r.Context(), req.Service, req.TenantID)
	if credential == nil {
		entry.ErrorCode = CodeNoCredential
		s.audit.Record(entry)
		writeAPIError(w, errNoCredential)
		return
	}

	s.audit.Record(entry)
	writeJSON(w, http.StatusOK, map[string]string{
		"credential": credential.Value,
		"source":     credential.Source,
	})
}

// handleHealth reports component health: audit store reachability and the
// nonce/rate-limit cache.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := map[string]string{
		"database": "ok",
		"redis":    "ok",
	}
	healthy := true

	if s.db == nil {
		components["database"] = "not configured"
	} else if err := s.db.PingContext(ctx); err != nil {
		components["database"] = "unreachable"
		healthy = false
	}

	if s.redis == nil {
		components["redis"] = "not configured"
	} else if err := s.redis.Ping(ctx).Err(); err != nil {
		components["redis"] = "unreachable"
		healthy = false
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}

	writeJSON(w, status, map[string]interface{}{
		"status":     state,
		"components": components,
		"services":   s.registry.ListServices(),
	})
}

// decodeBody decodes a JSON body with a size cap. Unknown body fields are
// ignored; upstream catalogs evolve faster than clients.
func decodeBody(r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize)).Decode(v)
}

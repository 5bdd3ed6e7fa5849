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
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
)

// requireAdmin wraps admin handlers with bearer-token authentication. Admin
// tokens are HS256 JWTs signed with the gateway's admin secret and carrying
// a role=admin claim; they are issued out of band and are entirely separate
// from agent credentials.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(s.adminSecret) == 0 {
			writeAPIError(w, newAPIError(http.StatusForbidden, CodeAuthMethodDenied,
				"admin surface is not configured"))
			return
		}

		header := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			writeAPIError(w, errAuthRequired)
			return
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			return s.adminSecret, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			writeAPIError(w, errAuthFailed)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || claims["role"] != "admin" {
			writeAPIError(w, errAuthFailed)
			return
		}

		next(w, r)
	}
}

// NewAdminToken mints an admin JWT for the given subject. Used by
// deployment tooling and tests; the gateway itself only verifies tokens.
func NewAdminToken(adminSecret []byte, subject string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"role": "admin",
	})
	return token.SignedString(adminSecret)
}

// createAgentRequest is the body of POST /admin/agents.
type createAgentRequest struct {
	Name           string   `json:"name"`
	Owner          string   `json:"owner"`
	Scopes         []string `json:"scopes"`
	RateLimitRPM   int      `json:"rate_limit_rpm,omitempty"`
	RateLimitDaily int      `json:"rate_limit_daily,omitempty"`
}

// handleCreateAgent registers a new agent. The response carries the
// plaintext secret exactly once; only the hash is persisted.
func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var req createAgentRequest
	if err := decodeBody(r, &req); err != nil || req.Name == "" || req.Owner == "" {
		writeAPIError(w, newAPIError(http.StatusBadRequest, CodeInvalidBody,
			"body must be JSON with name and owner"))
		return
	}

	for _, scope := range req.Scopes {
		if !validScope(scope) {
			writeAPIError(w, newAPIError(http.StatusBadRequest, CodeInvalidBody,
				fmt.Sprintf("invalid scope: %q", scope)))
			return
		}
	}

	agent, secret, err := s.store.Create(r.Context(), req.Name, req.Owner,
		req.Scopes, req.RateLimitRPM, req.RateLimitDaily)
	if err != nil {
		gatewayLog.Error("", "", "Agent creation failed",
			map[string]interface{}{"error": err.Error()})
		writeAPIError(w, errInternal)
		return
	}

	gatewayLog.Info(agent.ID, "", "Agent registered",
		map[string]interface{}{"name": agent.Name, "owner": agent.Owner, "scopes": agent.Scopes})

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"agent":  agent,
		"secret": secret, // shown exactly once, never retrievable again
	})
}

// validScope accepts "service:permission", "service:*" and "*:*".
func validScope(scope string) bool {
	parts := strings.Split(scope, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return false
	}
	if parts[0] == "*" && parts[1] != "*" {
		return false
	}
	return true
}

// handleListAgents lists all agents. Secret hashes never serialize.
func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.store.List(r.Context())
	if err != nil {
		gatewayLog.Error("", "", "Agent list failed",
			map[string]interface{}{"error": err.Error()})
		writeAPIError(w, errInternal)
		return
	}
	if agents == nil {
		agents = []*Agent{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"agents": agents})
}

// handleDisableAgent soft-deletes an agent. Audit rows referencing it stay
// intact; the agent simply fails every future auth attempt.
func (s *Server) handleDisableAgent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.store.Disable(r.Context(), id); err != nil {
		if err == ErrAgentNotFound {
			writeAPIError(w, newAPIError(http.StatusNotFound, CodeAgentNotFound, "agent not found"))
			return
		}
		gatewayLog.Error(id, "", "Agent disable failed",
			map[string]interface{}{"error": err.Error()})
		writeAPIError(w, errInternal)
		return
	}

	gatewayLog.Info(id, "", "Agent disabled", nil)
	writeJSON(w, http.StatusOK, map[string]string{"status": "disabled", "id": id})
}

// handleQueryLogs returns a paginated audit log slice.
func (s *Server) handleQueryLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))

	entries, err := s.audit.Search(r.Context(), AuditSearch{
		AgentID: query.Get("agent_id"),
		Service: query.Get("service"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		gatewayLog.Error("", "", "Audit log query failed",
			map[string]interface{}{"error": err.Error()})
		writeAPIError(w, errInternal)
		return
	}
	if entries == nil {
		entries = []*AuditEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"logs":   entries,
		"count":  len(entries),
		"offset": offset,
	})
}

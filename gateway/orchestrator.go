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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"warden/gateway/services"
)

// Orchestrator runs the request-execution pipeline: registry lookup, scope
// check, rate check, parameter validation, credential resolution, upstream
// execution, scrubbing, and auditing. Each step is a hard gate; failure
// short-circuits with the corresponding error and exactly one audit entry.
type Orchestrator struct {
	registry    *services.Registry
	scopes      *ScopeAuthorizer
	limiter     *RateLimiter
	credentials *CredentialResolver
	audit       *AuditLogger
	store       *AgentStore
	httpClient  *http.Client
}

// upstreamTimeout bounds a single upstream call. A timeout is an upstream
// failure (502), not a fast-fail that skips auditing.
const upstreamTimeout = 30 * time.Second

// NewOrchestrator wires the pipeline. httpClient may be nil; a default
// client with upstreamTimeout is used.
func NewOrchestrator(
	registry *services.Registry,
	scopes *ScopeAuthorizer,
	limiter *RateLimiter,
	credentials *CredentialResolver,
	audit *AuditLogger,
	store *AgentStore,
	httpClient *http.Client,
) *Orchestrator {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: upstreamTimeout}
	}
	return &Orchestrator{
		registry:    registry,
		scopes:      scopes,
		limiter:     limiter,
		credentials: credentials,
		audit:       audit,
		store:       store,
		httpClient:  httpClient,
	}
}

// Execute runs the pipeline for an authenticated request and returns the
// HTTP status plus response envelope. The audit entry and the usage-counter
// update are dispatched after the envelope is built and never block it.
func (o *Orchestrator) Execute(ctx context.Context, req *GatewayRequest, auth *AuthResult) (int, *Envelope) {
	start := time.Now()
	agent := auth.Agent

	entry := &AuditEntry{
		AgentID:       agent.ID,
		AgentName:     agent.Name,
		TargetService: req.Service,
		Action:        req.Action,
		AuthMethod:    auth.Method,
		AuthResult:    "success",
		EventType:     EventRequest,
		TenantID:      req.TenantID,
	}

	fail := func(apiErr *apiError, eventType string) (int, *Envelope) {
		entry.EventType = eventType
		entry.ErrorCode = apiErr.Code
		entry.LatencyMs = time.Since(start).Milliseconds()
		o.finish(req.Service, "error", entry, nil)
		return apiErr.Status, &Envelope{
			Success: false,
			Error:   &ErrorBody{Code: apiErr.Code, Message: apiErr.Message, Details: apiErr.Details},
			Meta:    &ResponseMeta{Service: req.Service, Action: req.Action, LatencyMs: entry.LatencyMs},
		}
	}

	// Step 2: the (service, action) pair must exist in the registry.
	svc, action, ok := o.registry.Action(req.Service, req.Action)
	if svc == nil {
		return fail(newAPIError(http.StatusBadRequest, CodeUnknownService,
			fmt.Sprintf("unknown service: %s", req.Service)), EventRequest)
	}
	if !ok {
		return fail(newAPIError(http.StatusBadRequest, CodeUnknownAction,
			fmt.Sprintf("unknown action %s on service %s", req.Action, req.Service)), EventRequest)
	}

	// Step 3: scope authorization, fail closed.
	if !o.scopes.Authorize(agent.Scopes, req.Service, req.Action) {
		promScopeDenials.Inc()
		required, _ := o.scopes.RequiredScope(req.Service, req.Action)
		gatewayLog.Warn(agent.ID, "", "Scope denied",
			map[string]interface{}{"service": req.Service, "action": req.Action, "required_scope": required})
		return fail(newAPIError(http.StatusForbidden, CodeScopeDenied,
			"agent scopes do not permit this action"), EventScopeDenial)
	}

	// Step 4: rate limits, strictly before credential resolution.
	limit := o.limiter.Check(ctx, agent, req.Service)
	if !limit.Allowed {
		promRateLimitHits.WithLabelValues(limit.Exceeded).Inc()
		apiErr := newAPIError(http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded")
		apiErr.Details = map[string]string{
			"limit":     strconv.Itoa(limit.Limit),
			"exceeded":  limit.Exceeded,
			"remaining": "0",
			"reset_at":  limit.ResetAt.UTC().Format(time.RFC3339),
		}
		return fail(apiErr, EventRateLimitHit)
	}

	// Step 5: parameter validation against the action schema.
	if fieldErrors := services.ValidateParams(action, req.Params); len(fieldErrors) > 0 {
		apiErr := newAPIError(http.StatusBadRequest, CodeInvalidParams, "invalid parameters")
		apiErr.Details = fieldErrors
		return fail(apiErr, EventRequest)
	}

	// Step 6: credential resolution, tenant first then global.
	credential := o.credentials.Resolve(ctx, req.Service, req.TenantID)
	if credential == nil {
		return fail(errNoCredential, EventRequest)
	}

	// Step 7: build and execute the upstream request.
	upstream, err := action.Build(svc.BaseURL, req.Params)
	if err != nil {
		gatewayLog.Error(agent.ID, "", "Request builder failed",
			map[string]interface{}{"service": req.Service, "action": req.Action, "error": err.Error()})
		return fail(errInternal, EventRequest)
	}

	status, body, err := o.callUpstream(ctx, svc, upstream, credential.Value)
	if err != nil {
		// Timeouts and transport failures are upstream failures; they are
		// still audited like any other terminal outcome.
		promUpstreamCalls.WithLabelValues(req.Service, "error").Inc()
		gatewayLog.Error(agent.ID, "", "Upstream call failed",
			map[string]interface{}{"service": req.Service, "action": req.Action, "error": err.Error()})
		return fail(newAPIError(http.StatusBadGateway, CodeUpstreamError, "upstream request failed"), EventRequest)
	}

	// Step 8: scrub before anything reaches the caller.
	data := scrubBody(body)

	entry.LatencyMs = time.Since(start).Milliseconds()
	meta := &ResponseMeta{Service: req.Service, Action: req.Action, LatencyMs: entry.LatencyMs}

	if status < 200 || status > 299 {
		promUpstreamCalls.WithLabelValues(req.Service, strconv.Itoa(status)).Inc()
		gatewayLog.ErrorWithCode(agent.ID, "", "Upstream returned error status", status, nil,
			map[string]interface{}{"service": req.Service, "action": req.Action})
		entry.ErrorCode = CodeUpstreamError
		o.finish(req.Service, "error", entry, nil)

		// 4xx from the upstream passes through as-is; everything else is 502.
		responseStatus := http.StatusBadGateway
		if status >= 400 && status < 500 {
			responseStatus = status
		}
		return responseStatus, &Envelope{
			Success: false,
			Data:    data,
			Error: &ErrorBody{
				Code:    CodeUpstreamError,
				Message: fmt.Sprintf("upstream returned status %d", status),
			},
			Meta: meta,
		}
	}

	promUpstreamCalls.WithLabelValues(req.Service, strconv.Itoa(status)).Inc()

	// Steps 9-10: audit + usage update fire-and-forget, then respond.
	o.finish(req.Service, "success", entry, agent)

	return http.StatusOK, &Envelope{Success: true, Data: data, Meta: meta}
}

// callUpstream converts an UpstreamRequest into an HTTP call with the
// credential attached per the service's auth style.
func (o *Orchestrator) callUpstream(ctx context.Context, svc *services.ServiceDefinition, upstream *services.UpstreamRequest, credential string) (int, []byte, error) {
	var reqBody io.Reader
	if upstream.Body != nil {
		encoded, err := json.Marshal(upstream.Body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode upstream body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, upstream.Method, upstream.URL, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build upstream request: %w", err)
	}

	for name, value := range upstream.Headers {
		httpReq.Header.Set(name, value)
	}
	for name, value := range svc.ApplyAuth(credential) {
		httpReq.Header.Set(name, value)
	}
	if upstream.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read upstream response: %w", err)
	}

	return resp.StatusCode, body, nil
}

// scrubBody decodes an upstream body and redacts secret-shaped fields.
// Non-JSON bodies are returned as a raw string; there is no key structure
// to scrub in that case.
func scrubBody(body []byte) interface{} {
	if len(body) == 0 {
		return nil
	}
	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return string(body)
	}
	return ScrubResponse(decoded)
}

// finish records metrics, the audit entry and (on success) the usage
// counters. Everything here is off the response path: the audit queue never
// blocks, and the usage update runs in its own goroutine with a fresh
// context so a cancelled request context cannot abort it.
func (o *Orchestrator) finish(service, outcome string, entry *AuditEntry, agent *Agent) {
	promRequestsTotal.WithLabelValues(service, outcome).Inc()
	promRequestDuration.WithLabelValues(service).Observe(float64(entry.LatencyMs))

	o.audit.Record(entry)

	if outcome == "success" {
		gatewayLog.InfoWithDuration(entry.AgentID, entry.ID, "Request completed", float64(entry.LatencyMs),
			map[string]interface{}{"service": service, "action": entry.Action})
	}

	if agent != nil {
		agentID := agent.ID
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := o.store.RecordUsage(ctx, agentID); err != nil {
				gatewayLog.Warn(agentID, "", "Usage counter update failed",
					map[string]interface{}{"error": err.Error()})
			}
		}()
	}
}

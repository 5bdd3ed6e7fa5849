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
	"fmt"
	"net/http"
)

// Error codes surfaced to callers. Each maps 1:1 to an HTTP status.
const (
	CodeInvalidBody      = "INVALID_BODY"       // 400
	CodeInvalidParams    = "INVALID_PARAMS"     // 400
	CodeUnknownService   = "UNKNOWN_SERVICE"    // 400
	CodeUnknownAction    = "UNKNOWN_ACTION"     // 400
	CodeAuthFailed       = "AUTH_FAILED"        // 401
	CodeAuthRequired     = "AUTH_REQUIRED"      // 401
	CodeNonceInvalid     = "NONCE_INVALID"      // 401
	CodeSignatureInvalid = "SIGNATURE_INVALID"  // 401
	CodeScopeDenied      = "SCOPE_DENIED"       // 403
	CodeAuthMethodDenied = "AUTH_METHOD_DENIED" // 403
	CodeAgentNotFound    = "AGENT_NOT_FOUND"    // 404
	CodeNotFound         = "NOT_FOUND"          // 404
	CodeRateLimited      = "RATE_LIMITED"       // 429
	CodeNoCredential     = "NO_CREDENTIAL"      // 503
	CodeUpstreamError    = "UPSTREAM_ERROR"     // 502 (or upstream 4xx passed through)
	CodeInternalError    = "INTERNAL_ERROR"     // 500
)

// apiError is a terminal request outcome carrying the caller-visible code
// and message. Internal detail stays server-side; callers only ever see the
// code, message and (for validation failures) per-field details.
type apiError struct {
	Status  int
	Code    string
	Message string
	Details map[string]string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newAPIError(status int, code, message string) *apiError {
	return &apiError{Status: status, Code: code, Message: message}
}

// Common terminal errors. Auth failures deliberately use one opaque message
// so callers cannot distinguish unknown agents from disabled ones.
var (
	errAuthRequired = newAPIError(http.StatusUnauthorized, CodeAuthRequired, "authentication required")
	errAuthFailed   = newAPIError(http.StatusUnauthorized, CodeAuthFailed, "authentication failed")
	errNonceInvalid = newAPIError(http.StatusUnauthorized, CodeNonceInvalid, "nonce is invalid, expired, or already used")
	errBadSignature = newAPIError(http.StatusUnauthorized, CodeSignatureInvalid, "signature verification failed")
	errNoCredential = newAPIError(http.StatusServiceUnavailable, CodeNoCredential, "no credential available for service")
	errInternal     = newAPIError(http.StatusInternalServerError, CodeInternalError, "internal error")
)

// writeJSON serializes v to the response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent; nothing to do but note it server-side.
		gatewayLog.Error("", "", "Failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}

// writeAPIError writes a bare error body (non-envelope endpoints: /nonce,
// /resolve, admin surface).
func writeAPIError(w http.ResponseWriter, apiErr *apiError) {
	writeJSON(w, apiErr.Status, map[string]interface{}{
		"error": ErrorBody{Code: apiErr.Code, Message: apiErr.Message, Details: apiErr.Details},
	})
}

// writeErrorEnvelope writes a failed request envelope with meta attached.
func writeErrorEnvelope(w http.ResponseWriter, apiErr *apiError, meta *ResponseMeta) {
	writeJSON(w, apiErr.Status, Envelope{
		Success: false,
		Error:   &ErrorBody{Code: apiErr.Code, Message: apiErr.Message, Details: apiErr.Details},
		Meta:    meta,
	})
}

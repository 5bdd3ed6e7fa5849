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
	"warden/gateway/services"
)

// ScopeAuthorizer decides whether an agent's granted scopes permit a
// requested (service, action) pair. The decision is fail-closed: an action
// the registry does not know never resolves to a permission, so no scope,
// not even "*:*", can match it.
type ScopeAuthorizer struct {
	registry *services.Registry
}

// NewScopeAuthorizer creates an authorizer over the given service catalog.
func NewScopeAuthorizer(registry *services.Registry) *ScopeAuthorizer {
	return &ScopeAuthorizer{registry: registry}
}

// Authorize returns true when any held scope grants the permission the
// action requires. Match order: exact "service:permission", service
// wildcard "service:*", global wildcard "*:*".
func (a *ScopeAuthorizer) Authorize(scopes []string, service, action string) bool {
	required, ok := a.registry.RequiredPermission(service, action)
	if !ok {
		return false
	}

	exact := service + ":" + required
	serviceWildcard := service + ":*"

	for _, scope := range scopes {
		switch scope {
		case exact, serviceWildcard, "*:*":
			return true
		}
	}
	return false
}

// RequiredScope returns the scope string an action demands, for audit
// detail on denials. ok is false for unknown (service, action) pairs.
func (a *ScopeAuthorizer) RequiredScope(service, action string) (string, bool) {
	required, ok := a.registry.RequiredPermission(service, action)
	if !ok {
		return "", false
	}
	return service + ":" + required, true
}

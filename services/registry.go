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

// Package services defines the declarative catalog of upstream services the
// gateway can call on behalf of agents. Each service declares its actions,
// the permission each action requires, the parameters it accepts, and how to
// turn validated parameters into an upstream HTTP request.
//
// The catalog is built once at process start and is immutable afterwards.
// Callers receive it by injection; there is no package-level singleton.
package services

import (
	"fmt"
	"sort"
)

// AuthStyle describes how a resolved credential is attached to an upstream
// request.
type AuthStyle string

const (
	// AuthBearer sends the credential as "Authorization: Bearer <value>".
	AuthBearer AuthStyle = "bearer"
	// AuthHeader sends the credential in a service-specific header.
	AuthHeader AuthStyle = "header"
)

// UpstreamRequest is the provider-agnostic description of an upstream HTTP
// call produced by an action's request builder. The orchestrator converts it
// into an *http.Request and attaches the credential per the service's
// AuthStyle.
type UpstreamRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    interface{} // JSON-encoded when non-nil
}

// RequestBuilder builds an UpstreamRequest from validated parameters.
// Parameters have already passed ValidateParams; builders may assume
// required fields are present and correctly typed.
type RequestBuilder func(baseURL string, params map[string]interface{}) (*UpstreamRequest, error)

// ActionDefinition is a single callable action on an upstream service.
type ActionDefinition struct {
	Name               string
	RequiredPermission string // "read" or "write"
	Parameters         []ParamSpec
	Build              RequestBuilder
}

// ServiceDefinition is a catalog entry for one upstream provider.
type ServiceDefinition struct {
	Name       string
	BaseURL    string
	AuthStyle  AuthStyle
	AuthHeader string // header name when AuthStyle == AuthHeader
	Actions    map[string]*ActionDefinition
}

// ApplyAuth returns the headers that attach the given credential to a
// request against this service. The credential value itself is never logged
// by callers of this method.
func (s *ServiceDefinition) ApplyAuth(credential string) map[string]string {
	switch s.AuthStyle {
	case AuthHeader:
		return map[string]string{s.AuthHeader: credential}
	default:
		return map[string]string{"Authorization": "Bearer " + credential}
	}
}

// Registry is the immutable lookup table of upstream services.
type Registry struct {
	services map[string]*ServiceDefinition
}

// Overrides allows deployment configuration to replace the default base URL
// of a service (used in tests and for regional/self-hosted endpoints).
type Overrides struct {
	BaseURLs map[string]string
}

// NewRegistry builds the full service catalog. Base URLs may be overridden
// per service; unknown override keys are ignored.
func NewRegistry(overrides *Overrides) *Registry {
	defs := []*ServiceDefinition{
		githubService(),
		searchService(),
		dnsService(),
		billingService(),
		inferenceService(),
	}

	services := make(map[string]*ServiceDefinition, len(defs))
	for _, def := range defs {
		if overrides != nil {
			if u, ok := overrides.BaseURLs[def.Name]; ok && u != "" {
				def.BaseURL = u
			}
		}
		services[def.Name] = def
	}

	return &Registry{services: services}
}

// Get returns a service definition by name.
func (r *Registry) Get(service string) (*ServiceDefinition, bool) {
	def, ok := r.services[service]
	return def, ok
}

// Action returns the service and action definitions for a (service, action)
// pair. Unknown pairs return ok=false; authorization treats that as a
// denial regardless of the scopes an agent holds.
func (r *Registry) Action(service, action string) (*ServiceDefinition, *ActionDefinition, bool) {
	def, ok := r.services[service]
	if !ok {
		return nil, nil, false
	}
	act, ok := def.Actions[action]
	if !ok {
		return def, nil, false
	}
	return def, act, true
}

// RequiredPermission returns the permission string an action demands.
func (r *Registry) RequiredPermission(service, action string) (string, bool) {
	_, act, ok := r.Action(service, action)
	if !ok {
		return "", false
	}
	return act.RequiredPermission, true
}

// ListServices returns all registered service names, sorted.
func (r *Registry) ListServices() []string {
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListActions returns the action names of a service, sorted.
func (r *Registry) ListActions(service string) ([]string, error) {
	def, ok := r.services[service]
	if !ok {
		return nil, fmt.Errorf("unknown service: %s", service)
	}
	actions := make([]string, 0, len(def.Actions))
	for name := range def.Actions {
		actions = append(actions, name)
	}
	sort.Strings(actions)
	return actions, nil
}

// actionMap indexes action definitions by name for a service catalog file.
func actionMap(actions ...*ActionDefinition) map[string]*ActionDefinition {
	m := make(map[string]*ActionDefinition, len(actions))
	for _, a := range actions {
		m[a.Name] = a
	}
	return m
}

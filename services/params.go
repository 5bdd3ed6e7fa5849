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

package services

import (
	"fmt"
	"math"
)

// ParamType enumerates the parameter types an action schema can declare.
type ParamType string

const (
	ParamString ParamType = "string"
	ParamInt    ParamType = "int"
	ParamBool   ParamType = "bool"
	ParamObject ParamType = "object"
)

// ParamSpec declares one parameter of an action.
type ParamSpec struct {
	Name        string
	Type        ParamType
	Required    bool
	Description string
}

// ValidateParams checks params against an action's declared schema and
// returns per-field error messages. An empty map means the parameters are
// valid. Parameters not declared in the schema are rejected so that typos
// never silently pass through to the upstream provider.
func ValidateParams(action *ActionDefinition, params map[string]interface{}) map[string]string {
	fieldErrors := make(map[string]string)

	declared := make(map[string]ParamSpec, len(action.Parameters))
	for _, spec := range action.Parameters {
		declared[spec.Name] = spec
	}

	for _, spec := range action.Parameters {
		value, present := params[spec.Name]
		if !present {
			if spec.Required {
				fieldErrors[spec.Name] = "required parameter is missing"
			}
			continue
		}
		if msg := checkType(spec, value); msg != "" {
			fieldErrors[spec.Name] = msg
		}
	}

	for name := range params {
		if _, ok := declared[name]; !ok {
			fieldErrors[name] = "unknown parameter"
		}
	}

	return fieldErrors
}

// checkType validates a single value against its declared type. JSON decoding
// yields float64 for all numbers, so integer parameters accept float64 values
// without a fractional part.
func checkType(spec ParamSpec, value interface{}) string {
	switch spec.Type {
	case ParamString:
		s, ok := value.(string)
		if !ok {
			return fmt.Sprintf("expected string, got %T", value)
		}
		if spec.Required && s == "" {
			return "required parameter is empty"
		}
	case ParamInt:
		switch v := value.(type) {
		case int:
		case int64:
		case float64:
			if v != math.Trunc(v) {
				return "expected integer, got fractional number"
			}
		default:
			return fmt.Sprintf("expected integer, got %T", value)
		}
	case ParamBool:
		if _, ok := value.(bool); !ok {
			return fmt.Sprintf("expected boolean, got %T", value)
		}
	case ParamObject:
		if _, ok := value.(map[string]interface{}); !ok {
			return fmt.Sprintf("expected object, got %T", value)
		}
	default:
		return fmt.Sprintf("unsupported parameter type: %s", spec.Type)
	}
	return ""
}

// intParam extracts an integer parameter that has already been validated.
func intParam(params map[string]interface{}, name string, fallback int) int {
	value, ok := params[name]
	if !ok {
		return fallback
	}
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

// stringParam extracts a string parameter that has already been validated.
func stringParam(params map[string]interface{}, name, fallback string) string {
	if value, ok := params[name].(string); ok {
		return value
	}
	return fallback
}

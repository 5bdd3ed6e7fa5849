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

import "testing"

func testAction() *ActionDefinition {
	return &ActionDefinition{
		Name:               "test_action",
		RequiredPermission: "read",
		Parameters: []ParamSpec{
			{Name: "owner", Type: ParamString, Required: true},
			{Name: "count", Type: ParamInt},
			{Name: "verbose", Type: ParamBool},
			{Name: "filters", Type: ParamObject},
		},
	}
}

func TestValidateParams(t *testing.T) {
	tests := []struct {
		name       string
		params     map[string]interface{}
		wantFields []string
	}{
		{
			name:   "all valid",
			params: map[string]interface{}{"owner": "acme", "count": float64(5), "verbose": true},
		},
		{
			name:       "missing required",
			params:     map[string]interface{}{"count": float64(5)},
			wantFields: []string{"owner"},
		},
		{
			name:       "empty required string",
			params:     map[string]interface{}{"owner": ""},
			wantFields: []string{"owner"},
		},
		{
			name:       "wrong string type",
			params:     map[string]interface{}{"owner": 42},
			wantFields: []string{"owner"},
		},
		{
			// JSON numbers decode as float64; integers must not have a
			// fractional part.
			name:       "fractional int",
			params:     map[string]interface{}{"owner": "acme", "count": 1.5},
			wantFields: []string{"count"},
		},
		{
			name:   "integral float accepted",
			params: map[string]interface{}{"owner": "acme", "count": float64(100)},
		},
		{
			name:       "wrong bool type",
			params:     map[string]interface{}{"owner": "acme", "verbose": "yes"},
			wantFields: []string{"verbose"},
		},
		{
			name:       "wrong object type",
			params:     map[string]interface{}{"owner": "acme", "filters": []interface{}{"a"}},
			wantFields: []string{"filters"},
		},
		{
			name:       "undeclared parameter rejected",
			params:     map[string]interface{}{"owner": "acme", "repo_name": "typo"},
			wantFields: []string{"repo_name"},
		},
		{
			name:       "multiple failures reported per field",
			params:     map[string]interface{}{"count": "five", "bogus": 1},
			wantFields: []string{"owner", "count", "bogus"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fieldErrors := ValidateParams(testAction(), tt.params)
			if len(fieldErrors) != len(tt.wantFields) {
				t.Fatalf("got %d field errors (%v), want %d", len(fieldErrors), fieldErrors, len(tt.wantFields))
			}
			for _, field := range tt.wantFields {
				if _, ok := fieldErrors[field]; !ok {
					t.Errorf("expected error for field %q, got %v", field, fieldErrors)
				}
			}
		})
	}
}

func TestParamHelpers(t *testing.T) {
	params := map[string]interface{}{
		"count": float64(7),
		"name":  "acme",
	}

	if got := intParam(params, "count", 0); got != 7 {
		t.Errorf("intParam = %d, want 7", got)
	}
	if got := intParam(params, "missing", 42); got != 42 {
		t.Errorf("intParam fallback = %d, want 42", got)
	}
	if got := stringParam(params, "name", ""); got != "acme" {
		t.Errorf("stringParam = %q, want acme", got)
	}
	if got := stringParam(params, "missing", "dflt"); got != "dflt" {
		t.Errorf("stringParam fallback = %q, want dflt", got)
	}
}

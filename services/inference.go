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

// inferenceService defines the LLM inference provider catalog (OpenAI API
// shape). Both actions consume tokens on the upstream account, so they
// require the "write" permission even though they do not mutate state.
func inferenceService() *ServiceDefinition {
	return &ServiceDefinition{
		Name:      "inference",
		BaseURL:   "https://api.openai.com/v1",
		AuthStyle: AuthBearer,
		Actions: actionMap(
			&ActionDefinition{
				Name:               "complete",
				RequiredPermission: "write",
				Parameters: []ParamSpec{
					{Name: "model", Type: ParamString, Required: true, Description: "Model identifier"},
					{Name: "prompt", Type: ParamString, Required: true, Description: "Prompt text"},
					{Name: "max_tokens", Type: ParamInt, Description: "Completion token cap"},
				},
				Build: func(baseURL string, params map[string]interface{}) (*UpstreamRequest, error) {
					body := map[string]interface{}{
						"model": stringParam(params, "model", ""),
						"messages": []map[string]string{
							{"role": "user", "content": stringParam(params, "prompt", "")},
						},
					}
					if maxTokens := intParam(params, "max_tokens", 0); maxTokens > 0 {
						body["max_tokens"] = maxTokens
					}
					return &UpstreamRequest{
						Method: "POST",
						URL:    baseURL + "/chat/completions",
						Body:   body,
					}, nil
				},
			},
			&ActionDefinition{
				Name:               "embed",
				RequiredPermission: "write",
				Parameters: []ParamSpec{
					{Name: "model", Type: ParamString, Required: true, Description: "Embedding model identifier"},
					{Name: "input", Type: ParamString, Required: true, Description: "Text to embed"},
				},
				Build: func(baseURL string, params map[string]interface{}) (*UpstreamRequest, error) {
					return &UpstreamRequest{
						Method: "POST",
						URL:    baseURL + "/embeddings",
						Body: map[string]interface{}{
							"model": stringParam(params, "model", ""),
							"input": stringParam(params, "input", ""),
						},
					}, nil
				},
			},
		),
	}
}

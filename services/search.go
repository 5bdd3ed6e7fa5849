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
	"net/url"
)

// searchService defines the web search provider catalog (Brave Search API
// shape). The credential travels in X-Subscription-Token rather than a
// bearer header.
func searchService() *ServiceDefinition {
	return &ServiceDefinition{
		Name:       "search",
		BaseURL:    "https://api.search.brave.com/res/v1",
		AuthStyle:  AuthHeader,
		AuthHeader: "X-Subscription-Token",
		Actions: actionMap(
			&ActionDefinition{
				Name:               "web_search",
				RequiredPermission: "read",
				Parameters: []ParamSpec{
					{Name: "query", Type: ParamString, Required: true, Description: "Search query"},
					{Name: "count", Type: ParamInt, Description: "Number of results (max 20)"},
				},
				Build: func(baseURL string, params map[string]interface{}) (*UpstreamRequest, error) {
					query := url.Values{}
					query.Set("q", stringParam(params, "query", ""))
					if count := intParam(params, "count", 0); count > 0 {
						query.Set("count", fmt.Sprintf("%d", count))
					}
					return &UpstreamRequest{
						Method:  "GET",
						URL:     baseURL + "/web/search?" + query.Encode(),
						Headers: map[string]string{"Accept": "application/json"},
					}, nil
				},
			},
			&ActionDefinition{
				Name:               "news_search",
				RequiredPermission: "read",
				Parameters: []ParamSpec{
					{Name: "query", Type: ParamString, Required: true, Description: "Search query"},
					{Name: "freshness", Type: ParamString, Description: "Recency filter: pd, pw, pm, py"},
				},
				Build: func(baseURL string, params map[string]interface{}) (*UpstreamRequest, error) {
					query := url.Values{}
					query.Set("q", stringParam(params, "query", ""))
					if freshness := stringParam(params, "freshness", ""); freshness != "" {
						query.Set("freshness", freshness)
					}
					return &UpstreamRequest{
						Method:  "GET",
						URL:     baseURL + "/news/search?" + query.Encode(),
						Headers: map[string]string{"Accept": "application/json"},
					}, nil
				},
			},
		),
	}
}

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

// githubService defines the GitHub REST v3 catalog. Read actions require the
// "read" permission (scope "github:read"), write actions require "write".
func githubService() *ServiceDefinition {
	return &ServiceDefinition{
		Name:      "github",
		BaseURL:   "https://api.github.com",
		AuthStyle: AuthBearer,
		Actions: actionMap(
			&ActionDefinition{
				Name:               "list_issues",
				RequiredPermission: "read",
				Parameters: []ParamSpec{
					{Name: "owner", Type: ParamString, Required: true, Description: "Repository owner"},
					{Name: "repo", Type: ParamString, Required: true, Description: "Repository name"},
					{Name: "state", Type: ParamString, Description: "Issue state filter: open, closed, all"},
					{Name: "per_page", Type: ParamInt, Description: "Page size (max 100)"},
				},
				Build: func(baseURL string, params map[string]interface{}) (*UpstreamRequest, error) {
					u := fmt.Sprintf("%s/repos/%s/%s/issues",
						baseURL,
						url.PathEscape(stringParam(params, "owner", "")),
						url.PathEscape(stringParam(params, "repo", "")))
					query := url.Values{}
					if state := stringParam(params, "state", ""); state != "" {
						query.Set("state", state)
					}
					if perPage := intParam(params, "per_page", 0); perPage > 0 {
						query.Set("per_page", fmt.Sprintf("%d", perPage))
					}
					if encoded := query.Encode(); encoded != "" {
						u += "?" + encoded
					}
					return &UpstreamRequest{
						Method:  "GET",
						URL:     u,
						Headers: map[string]string{"Accept": "application/vnd.github+json"},
					}, nil
				},
			},
			&ActionDefinition{
				Name:               "create_issue",
				RequiredPermission: "write",
				Parameters: []ParamSpec{
					{Name: "owner", Type: ParamString, Required: true, Description: "Repository owner"},
					{Name: "repo", Type: ParamString, Required: true, Description: "Repository name"},
					{Name: "title", Type: ParamString, Required: true, Description: "Issue title"},
					{Name: "body", Type: ParamString, Description: "Issue body (markdown)"},
				},
				Build: func(baseURL string, params map[string]interface{}) (*UpstreamRequest, error) {
					body := map[string]interface{}{"title": stringParam(params, "title", "")}
					if text := stringParam(params, "body", ""); text != "" {
						body["body"] = text
					}
					return &UpstreamRequest{
						Method: "POST",
						URL: fmt.Sprintf("%s/repos/%s/%s/issues",
							baseURL,
							url.PathEscape(stringParam(params, "owner", "")),
							url.PathEscape(stringParam(params, "repo", ""))),
						Headers: map[string]string{"Accept": "application/vnd.github+json"},
						Body:    body,
					}, nil
				},
			},
			&ActionDefinition{
				Name:               "get_repo",
				RequiredPermission: "read",
				Parameters: []ParamSpec{
					{Name: "owner", Type: ParamString, Required: true, Description: "Repository owner"},
					{Name: "repo", Type: ParamString, Required: true, Description: "Repository name"},
				},
				Build: func(baseURL string, params map[string]interface{}) (*UpstreamRequest, error) {
					return &UpstreamRequest{
						Method: "GET",
						URL: fmt.Sprintf("%s/repos/%s/%s",
							baseURL,
							url.PathEscape(stringParam(params, "owner", "")),
							url.PathEscape(stringParam(params, "repo", ""))),
						Headers: map[string]string{"Accept": "application/vnd.github+json"},
					}, nil
				},
			},
			&ActionDefinition{
				Name:               "list_pulls",
				RequiredPermission: "read",
				Parameters: []ParamSpec{
					{Name: "owner", Type: ParamString, Required: true, Description: "Repository owner"},
					{Name: "repo", Type: ParamString, Required: true, Description: "Repository name"},
					{Name: "state", Type: ParamString, Description: "PR state filter: open, closed, all"},
				},
				Build: func(baseURL string, params map[string]interface{}) (*UpstreamRequest, error) {
					u := fmt.Sprintf("%s/repos/%s/%s/pulls",
						baseURL,
						url.PathEscape(stringParam(params, "owner", "")),
						url.PathEscape(stringParam(params, "repo", "")))
					if state := stringParam(params, "state", ""); state != "" {
						u += "?state=" + url.QueryEscape(state)
					}
					return &UpstreamRequest{
						Method:  "GET",
						URL:     u,
						Headers: map[string]string{"Accept": "application/vnd.github+json"},
					}, nil
				},
			},
		),
	}
}

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

// dnsService defines the DNS provider catalog (Cloudflare v4 API shape).
func dnsService() *ServiceDefinition {
	return &ServiceDefinition{
		Name:      "dns",
		BaseURL:   "https://api.cloudflare.com/client/v4",
		AuthStyle: AuthBearer,
		Actions: actionMap(
			&ActionDefinition{
				Name:               "list_zones",
				RequiredPermission: "read",
				Parameters: []ParamSpec{
					{Name: "name", Type: ParamString, Description: "Filter zones by domain name"},
				},
				Build: func(baseURL string, params map[string]interface{}) (*UpstreamRequest, error) {
					u := baseURL + "/zones"
					if name := stringParam(params, "name", ""); name != "" {
						u += "?name=" + url.QueryEscape(name)
					}
					return &UpstreamRequest{Method: "GET", URL: u}, nil
				},
			},
			&ActionDefinition{
				Name:               "list_records",
				RequiredPermission: "read",
				Parameters: []ParamSpec{
					{Name: "zone_id", Type: ParamString, Required: true, Description: "Zone identifier"},
					{Name: "type", Type: ParamString, Description: "Record type filter (A, CNAME, TXT...)"},
				},
				Build: func(baseURL string, params map[string]interface{}) (*UpstreamRequest, error) {
					u := fmt.Sprintf("%s/zones/%s/dns_records",
						baseURL, url.PathEscape(stringParam(params, "zone_id", "")))
					if recordType := stringParam(params, "type", ""); recordType != "" {
						u += "?type=" + url.QueryEscape(recordType)
					}
					return &UpstreamRequest{Method: "GET", URL: u}, nil
				},
			},
			&ActionDefinition{
				Name:               "create_record",
				RequiredPermission: "write",
				Parameters: []ParamSpec{
					{Name: "zone_id", Type: ParamString, Required: true, Description: "Zone identifier"},
					{Name: "type", Type: ParamString, Required: true, Description: "Record type"},
					{Name: "name", Type: ParamString, Required: true, Description: "Record name"},
					{Name: "content", Type: ParamString, Required: true, Description: "Record content"},
					{Name: "ttl", Type: ParamInt, Description: "TTL in seconds (1 = automatic)"},
				},
				Build: func(baseURL string, params map[string]interface{}) (*UpstreamRequest, error) {
					body := map[string]interface{}{
						"type":    stringParam(params, "type", ""),
						"name":    stringParam(params, "name", ""),
						"content": stringParam(params, "content", ""),
					}
					if ttl := intParam(params, "ttl", 0); ttl > 0 {
						body["ttl"] = ttl
					}
					return &UpstreamRequest{
						Method: "POST",
						URL: fmt.Sprintf("%s/zones/%s/dns_records",
							baseURL, url.PathEscape(stringParam(params, "zone_id", ""))),
						Body: body,
					}, nil
				},
			},
		),
	}
}

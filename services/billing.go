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

// billingService defines the billing provider catalog (Stripe v1 API shape).
// All actions are read-only; the gateway does not create charges.
func billingService() *ServiceDefinition {
	return &ServiceDefinition{
		Name:      "billing",
		BaseURL:   "https://api.stripe.com/v1",
		AuthStyle: AuthBearer,
		Actions: actionMap(
			&ActionDefinition{
				Name:               "get_invoice",
				RequiredPermission: "read",
				Parameters: []ParamSpec{
					{Name: "invoice_id", Type: ParamString, Required: true, Description: "Invoice identifier"},
				},
				Build: func(baseURL string, params map[string]interface{}) (*UpstreamRequest, error) {
					return &UpstreamRequest{
						Method: "GET",
						URL: fmt.Sprintf("%s/invoices/%s",
							baseURL, url.PathEscape(stringParam(params, "invoice_id", ""))),
					}, nil
				},
			},
			&ActionDefinition{
				Name:               "list_charges",
				RequiredPermission: "read",
				Parameters: []ParamSpec{
					{Name: "customer", Type: ParamString, Description: "Filter by customer id"},
					{Name: "limit", Type: ParamInt, Description: "Page size (max 100)"},
				},
				Build: func(baseURL string, params map[string]interface{}) (*UpstreamRequest, error) {
					query := url.Values{}
					if customer := stringParam(params, "customer", ""); customer != "" {
						query.Set("customer", customer)
					}
					if limit := intParam(params, "limit", 0); limit > 0 {
						query.Set("limit", fmt.Sprintf("%d", limit))
					}
					u := baseURL + "/charges"
					if encoded := query.Encode(); encoded != "" {
						u += "?" + encoded
					}
					return &UpstreamRequest{Method: "GET", URL: u}, nil
				},
			},
		),
	}
}

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
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics
var (
	promRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_gateway_requests_total",
			Help: "Total number of requests processed by the gateway",
		},
		[]string{"service", "status"},
	)
	promRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warden_gateway_request_duration_milliseconds",
			Help:    "End-to-end request duration in milliseconds",
			Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000, 10000},
		},
		[]string{"service"},
	)
	promAuthFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_gateway_auth_failures_total",
			Help: "Total number of failed authentication attempts",
		},
		[]string{"method"},
	)
	promScopeDenials = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_gateway_scope_denials_total",
			Help: "Total number of scope authorization denials",
		},
	)
	promRateLimitHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_gateway_rate_limit_hits_total",
			Help: "Total number of rate-limited requests",
		},
		[]string{"limit"},
	)
	promUpstreamCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_gateway_upstream_calls_total",
			Help: "Total number of upstream API calls",
		},
		[]string{"service", "status"},
	)
	promCredentialResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_gateway_credential_resolutions_total",
			Help: "Total number of credential resolutions by source",
		},
		[]string{"source"},
	)
)

func init() {
	prometheus.MustRegister(promRequestsTotal)
	prometheus.MustRegister(promRequestDuration)
	prometheus.MustRegister(promAuthFailures)
	prometheus.MustRegister(promScopeDenials)
	prometheus.MustRegister(promRateLimitHits)
	prometheus.MustRegister(promUpstreamCalls)
	prometheus.MustRegister(promCredentialResolutions)
}

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

// Package main is the entry point for the Warden gateway service.
//
// The gateway is a credential-injection proxy for autonomous agents:
// - Authenticates agents via shared keys or challenge-response proofs
// - Enforces scoped authorization and rate limits per agent
// - Resolves upstream credentials from the tenant vault at call time
// - Scrubs secret-shaped fields from upstream responses
// - Appends an immutable audit record for every decision
//
// Usage:
//
//	./gateway
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8090)
//	DATABASE_URL - PostgreSQL connection string (required)
//	REDIS_URL - Redis connection string (required)
//	ADMIN_JWT_SECRET - Secret for admin surface tokens
//	VAULT_BACKEND - Tenant credential backend: "aws" or "static"
//	WARDEN_CONFIG - Optional YAML config file path
package main

import (
	"warden/gateway/gateway"
)

func main() {
	gateway.Run()
}

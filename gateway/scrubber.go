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

import "strings"

// redactedPlaceholder replaces any value stored under a secret-shaped key.
const redactedPlaceholder = "[REDACTED]"

// secretKeyPatterns match field names whose values must never reach a
// caller, even when an upstream provider echoes them back. Matching is
// case-insensitive and substring-based: "api_key", "apiKey", "accessToken",
// "client_secret" all match.
var secretKeyPatterns = []string{
	"token",
	"secret",
	"password",
	"credential",
	"apikey",
	"api_key",
	"authorization",
	"private_key",
	"access_key",
}

// isSecretKey reports whether a field name looks like it holds a secret.
func isSecretKey(key string) bool {
	lower := strings.ToLower(key)
	for _, pattern := range secretKeyPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// ScrubResponse recursively redacts secret-shaped fields from a decoded JSON
// structure. This is a defense-in-depth backstop; the primary control is
// that callers never receive raw credentials in the first place. The input
// is modified in place where possible and returned for convenience.
func ScrubResponse(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		for key, value := range v {
			if isSecretKey(key) {
				v[key] = redactedPlaceholder
				continue
			}
			v[key] = ScrubResponse(value)
		}
		return v
	case []interface{}:
		for i, item := range v {
			v[i] = ScrubResponse(item)
		}
		return v
	default:
		return data
	}
}

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
	"encoding/json"
	"strings"
	"testing"
)

func TestIsSecretKey(t *testing.T) {
	secret := []string{
		"token", "access_token", "accessToken", "refresh_token",
		"secret", "client_secret", "clientSecret",
		"password", "user_password",
		"api_key", "apiKey", "APIKEY",
		"credential", "credentials",
		"authorization", "Authorization",
		"private_key", "access_key_id",
	}
	for _, key := range secret {
		if !isSecretKey(key) {
			t.Errorf("expected %q to match a secret pattern", key)
		}
	}

	plain := []string{"id", "name", "url", "created_at", "count", "title", "body", "state"}
	for _, key := range plain {
		if isSecretKey(key) {
			t.Errorf("expected %q to pass through unredacted", key)
		}
	}
}

func TestScrubResponse_NestedStructures(t *testing.T) {
	raw := `{
		"id": 1,
		"api_key": "sk-live-123",
		"owner": {
			"name": "acme",
			"accessToken": "ghp_deadbeef"
		},
		"items": [
			{"title": "ok", "client_secret": "s3cr3t"},
			{"title": "also ok"}
		],
		"tags": ["a", "b"]
	}`

	var data interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}

	scrubbed := ScrubResponse(data)

	encoded, err := json.Marshal(scrubbed)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := string(encoded)

	for _, leaked := range []string{"sk-live-123", "ghp_deadbeef", "s3cr3t"} {
		if strings.Contains(out, leaked) {
			t.Errorf("secret value %q leaked through scrubbing: %s", leaked, out)
		}
	}
	if !strings.Contains(out, redactedPlaceholder) {
		t.Error("expected redaction placeholder in output")
	}
	for _, kept := range []string{`"name":"acme"`, `"title":"ok"`, `"id":1`} {
		if !strings.Contains(out, kept) {
			t.Errorf("non-secret field %s missing after scrubbing: %s", kept, out)
		}
	}
}

func TestScrubResponse_ScalarPassthrough(t *testing.T) {
	if got := ScrubResponse("plain string"); got != "plain string" {
		t.Errorf("scalar changed: %v", got)
	}
	if got := ScrubResponse(float64(42)); got != float64(42) {
		t.Errorf("number changed: %v", got)
	}
	if got := ScrubResponse(nil); got != nil {
		t.Errorf("nil changed: %v", got)
	}
}

func TestScrubBody_NonJSON(t *testing.T) {
	if got := scrubBody([]byte("plain text response")); got != "plain text response" {
		t.Errorf("non-JSON body = %v, want raw string", got)
	}
	if got := scrubBody(nil); got != nil {
		t.Errorf("empty body = %v, want nil", got)
	}
}

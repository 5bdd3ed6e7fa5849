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
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Challenge-response signatures are HMAC-SHA256 over the nonce, keyed by the
// SHA-256 of the agent's shared secret. Keying by the hash rather than the
// plaintext lets the gateway verify signatures without ever persisting the
// plaintext: the client derives the key from the secret it was handed at
// registration, the gateway already holds the same hash.

// SignNonce computes the signature a client holding the given plaintext
// secret would produce for a nonce.
func SignNonce(secret, nonce string) string {
	return SignNonceWithHash(HashSecret(secret), nonce)
}

// SignNonceWithHash computes the expected signature from the stored secret
// hash.
func SignNonceWithHash(secretHash, nonce string) string {
	mac := hmac.New(sha256.New, []byte(secretHash))
	mac.Write([]byte(nonce))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a presented signature against the agent's stored
// secret hash in constant time.
func VerifySignature(secretHash, nonce, presented string) bool {
	expected := SignNonceWithHash(secretHash, nonce)
	return hmac.Equal([]byte(expected), []byte(presented))
}

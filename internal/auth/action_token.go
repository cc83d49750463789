package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ActionTokenBytes is the entropy of a one-time action token (64 hex chars).
const ActionTokenBytes = 32

// ActionTokens generates opaque one-time tokens and derives their stored digest.
// The digest is a keyed HMAC so a leaked column cannot be brute-forced offline
// without the server key.
type ActionTokens struct {
	key []byte
}

// NewActionTokens creates an action token generator keyed by secret.
func NewActionTokens(secret string) *ActionTokens {
	return &ActionTokens{key: []byte(secret)}
}

// Generate returns a fresh plaintext token and its digest. Only the digest is stored;
// the plaintext goes to the account owner exactly once.
func (a *ActionTokens) Generate() (token, digest string, err error) {
	buf := make([]byte, ActionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate action token: %w", err)
	}
	token = hex.EncodeToString(buf)
	return token, a.Hash(token), nil
}

// Hash computes the stored digest of a plaintext token.
func (a *ActionTokens) Hash(token string) string {
	mac := hmac.New(sha256.New, a.key)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// Package credentials issues and verifies the opaque bearer secrets external
// agents use against the tool gateway. Only a salted hash and a short lookup
// prefix of a secret are ever stored; the plaintext is returned exactly once
// at issuance.
package credentials

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"time"

	"compass-api/internal/shared"

	"github.com/aidarkhanov/nanoid"
)

const secretAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Credential is one issued access secret. Hash and Salt never leave this
// package in JSON form.
type Credential struct {
	ID        string     `json:"id"`
	AccountID string     `json:"account_id"`
	Hash      string     `json:"-"`
	Salt      string     `json:"-"`
	Prefix    string     `json:"prefix"`
	Label     string     `json:"label"`
	CreatedAt time.Time  `json:"created_at"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
	Active    bool       `json:"active"`
}

// GenerateSecret returns a new high-entropy secret carrying the recognizable
// tag, plus its lookup prefix.
func GenerateSecret() (secret, prefix string, err error) {
	random, err := nanoid.Generate(secretAlphabet, shared.SecretRandomLength)
	if err != nil {
		return "", "", err
	}
	secret = shared.SecretTag + random
	return secret, secret[:shared.LookupPrefixLength], nil
}

// HashSecret computes the salted one-way hash stored in place of the
// plaintext.
func HashSecret(secret, salt string) string {
	sum := sha256.Sum256([]byte(salt + secret))
	return hex.EncodeToString(sum[:])
}

// VerifySecret compares a candidate against a stored hash in constant time.
func VerifySecret(candidate, salt, hash string) bool {
	computed := HashSecret(candidate, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}

// HasSecretTag reports whether a candidate even looks like one of our secrets.
// Anything else is rejected before any hash work happens.
func HasSecretTag(candidate string) bool {
	return strings.HasPrefix(candidate, shared.SecretTag) &&
		len(candidate) >= shared.LookupPrefixLength
}

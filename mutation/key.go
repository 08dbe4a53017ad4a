package mutation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// MaxKeyLength is the maximum allowed length for an invocation key.
const MaxKeyLength = 512

// ValidateKey checks if key can identify an invocation.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}

// Keyer derives invocation keys from mutation variables.
//
// Contract:
// - Determinism: equal variables must produce equal keys, regardless of map iteration order.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(name string, vars any) (string, error)
}

// DefaultKeyer derives keys from a SHA-256 of the JSON-encoded variables.
type DefaultKeyer struct{}

// Key returns <name>:<first 16 hex chars of sha256(json(vars))>.
// encoding/json writes map keys in sorted order, which keeps the hash stable.
func (DefaultKeyer) Key(name string, vars any) (string, error) {
	raw, err := json.Marshal(vars)
	if err != nil {
		return "", fmt.Errorf("mutation: failed to encode variables for key: %w", err)
	}
	sum := sha256.Sum256(raw)
	return name + ":" + hex.EncodeToString(sum[:8]), nil
}

var _ Keyer = DefaultKeyer{}

package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

// APIKey describes one accepted key. The secret itself is never stored.
type APIKey struct {
	// ID names the key in logs; it is not secret.
	ID string

	// Hash is the SHA-256 hex digest of the key (see HashAPIKey).
	Hash string

	// ExpiresAt is when the key stops being accepted (zero = never).
	ExpiresAt time.Time
}

// KeyRing is an in-memory set of API keys.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Verify compares against every stored hash in constant time.
type KeyRing struct {
	mu   sync.RWMutex
	keys []APIKey
	now  func() time.Time
}

// NewKeyRing creates a key ring holding keys.
func NewKeyRing(keys ...APIKey) *KeyRing {
	r := &KeyRing{now: time.Now}
	for _, k := range keys {
		r.Add(k)
	}
	return r
}

// KeyRingFromSecrets builds a key ring from plain keys, naming them key-1,
// key-2 and so on in order. Blank entries are skipped.
func KeyRingFromSecrets(secrets []string) *KeyRing {
	r := NewKeyRing()
	for i, s := range secrets {
		if s = strings.TrimSpace(s); s != "" {
			r.Add(APIKey{ID: fmt.Sprintf("key-%d", i+1), Hash: HashAPIKey(s)})
		}
	}
	return r
}

// Add stores k, replacing any key with the same ID.
func (r *KeyRing) Add(k APIKey) {
	k.Hash = strings.ToLower(k.Hash)

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.keys {
		if r.keys[i].ID == k.ID {
			r.keys[i] = k
			return
		}
	}
	r.keys = append(r.keys, k)
}

// Remove deletes the key with the given ID.
func (r *KeyRing) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.keys {
		if r.keys[i].ID == id {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of stored keys.
func (r *KeyRing) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}

// Verify returns the key matching secret.
func (r *KeyRing) Verify(secret string) (APIKey, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return APIKey{}, ErrMissingCredentials
	}
	hash := HashAPIKey(secret)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		match APIKey
		found bool
	)
	for _, k := range r.keys {
		if ConstantTimeCompare(hash, k.Hash) && !found {
			match, found = k, true
		}
	}
	if !found {
		return APIKey{}, ErrInvalidCredentials
	}
	if !match.ExpiresAt.IsZero() && !r.now().Before(match.ExpiresAt) {
		return APIKey{}, fmt.Errorf("%w: %s", ErrKeyExpired, match.ID)
	}
	return match, nil
}

// HashAPIKey hashes an API key using SHA-256 for storage.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// ConstantTimeCompare performs constant-time comparison of two strings.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

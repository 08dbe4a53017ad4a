package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

type contextKey int

const keyIDKey contextKey = iota

// WithKeyID returns a context carrying the ID of the key that authenticated
// the request.
func WithKeyID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyIDKey, id)
}

// KeyIDFromContext returns the key ID stored by RequireAPIKey, or "".
func KeyIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(keyIDKey).(string)
	return id
}

// APIKeyHeader is the header checked before Authorization.
const APIKeyHeader = "X-API-Key"

// CredentialFromRequest extracts the presented API key.
func CredentialFromRequest(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

// RequireAPIKey rejects requests without a valid key from ring with 401.
// An empty ring lets every request through.
func RequireAPIKey(ring *KeyRing, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ring == nil || ring.Len() == 0 {
			next.ServeHTTP(w, r)
			return
		}

		key, err := ring.Verify(CredentialFromRequest(r))
		if err != nil {
			unauthorized(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithKeyID(r.Context(), key.ID)))
	})
}

func unauthorized(w http.ResponseWriter, err error) {
	msg := "invalid credentials"
	switch {
	case errors.Is(err, ErrMissingCredentials):
		msg = "missing credentials"
	case errors.Is(err, ErrKeyExpired):
		msg = "key expired"
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="contactsctl"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

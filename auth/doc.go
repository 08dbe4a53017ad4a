// Package auth guards HTTP endpoints with API keys.
//
// Keys are held hashed (SHA-256) in a KeyRing and compared in constant time.
// RequireAPIKey accepts a key from the X-API-Key header or from an
// "Authorization: Bearer" header, and records the matching key's ID in the
// request context (see KeyIDFromContext).
package auth

package httpapi

import (
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// TokenRegistry maps issued bearer tokens to usernames. Tokens live for
// the process lifetime; the devserver has no expiry story.
type TokenRegistry struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func NewTokenRegistry() *TokenRegistry {
	return &TokenRegistry{tokens: make(map[string]string)}
}

// Issue mints a fresh token for username.
func (t *TokenRegistry) Issue(username string) string {
	token := uuid.NewString()
	t.mu.Lock()
	t.tokens[token] = username
	t.mu.Unlock()
	return token
}

// Lookup resolves a token to its username.
func (t *TokenRegistry) Lookup(token string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	username, ok := t.tokens[token]
	return username, ok
}

// bearerToken pulls the token out of an Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, prefix))
	return token, token != ""
}

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/adityapw/wallet-tracker/pkg/types"
)

var ErrNoToken = errors.New("no persisted token")
var ErrLoginFailed = errors.New("login failed")

// Session is the client's belief about who is logged in. Authenticated is
// true only when the token passed a profile check; the login response
// alone never flips it.
type Session struct {
	Token         string
	Username      string
	Authenticated bool
}

// Eligible reports whether the realtime channel may exist for this
// session. requireAuth mirrors the config switch: some deployments allow
// chat on a bare username.
func (s Session) Eligible(requireAuth bool) bool {
	if s.Username == "" {
		return false
	}
	return s.Authenticated || !requireAuth
}

// Client is the slice of the resource client the store needs. Token
// installation keeps the bearer header in step with session state.
type Client interface {
	Login(ctx context.Context, username string) (string, error)
	Profile(ctx context.Context) (types.Profile, error)
	SetToken(token string)
	ClearToken()
}

// tokenFile is the persisted shape, the durable equivalent of the
// browser's origin-scoped "jwt" key.
type tokenFile struct {
	Token string `json:"token"`
}

// Store owns the session lifecycle: load persisted token, validate,
// login, logout. All transitions funnel through here so there is a
// single source of truth for "authenticated".
type Store struct {
	path   string
	client Client
	log    *zap.Logger

	mu  sync.Mutex
	cur Session
}

func NewStore(path string, client Client, log *zap.Logger) *Store {
	return &Store{path: path, client: client, log: log}
}

// Current returns a copy of the session.
func (s *Store) Current() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// LoadPersistedToken reads the token file into the session without any
// network traffic. Returns ErrNoToken when nothing is persisted; the
// session stays unauthenticated either way until Validate runs.
func (s *Store) LoadPersistedToken() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return ErrNoToken
	}
	if err != nil {
		return fmt.Errorf("read token file: %w", err)
	}

	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil || tf.Token == "" {
		// Unreadable file is as good as no file; clean it up.
		s.removeToken()
		return ErrNoToken
	}

	s.mu.Lock()
	s.cur = Session{Token: tf.Token}
	s.mu.Unlock()
	s.client.SetToken(tf.Token)
	return nil
}

// Validate checks the current token against the profile endpoint. Any
// failure — transport, non-2xx, malformed body — clears the session and
// deletes the persisted token.
func (s *Store) Validate(ctx context.Context) error {
	s.mu.Lock()
	token := s.cur.Token
	s.mu.Unlock()

	if token == "" {
		s.invalidate()
		return ErrNoToken
	}

	profile, err := s.client.Profile(ctx)
	if err != nil || profile.Username == "" {
		s.log.Info("token validation failed", zap.Error(err))
		s.invalidate()
		if err == nil {
			err = errors.New("profile response missing username")
		}
		return fmt.Errorf("validate token: %w", err)
	}

	s.mu.Lock()
	s.cur = Session{Token: token, Username: profile.Username, Authenticated: true}
	s.mu.Unlock()
	s.log.Info("session validated", zap.String("username", profile.Username))
	return nil
}

// Login exchanges the username for a token, persists it, then validates
// once so authentication state always comes from the profile check.
func (s *Store) Login(ctx context.Context, username string) error {
	token, err := s.client.Login(ctx, username)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}

	if err := s.persistToken(token); err != nil {
		s.log.Warn("could not persist token", zap.Error(err))
	}

	s.mu.Lock()
	s.cur = Session{Token: token}
	s.mu.Unlock()
	s.client.SetToken(token)

	return s.Validate(ctx)
}

// Logout clears everything unconditionally. Safe to call twice.
func (s *Store) Logout() {
	s.invalidate()
	s.log.Info("logged out")
}

func (s *Store) invalidate() {
	s.mu.Lock()
	s.cur = Session{}
	s.mu.Unlock()
	s.client.ClearToken()
	s.removeToken()
}

func (s *Store) persistToken(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(tokenFile{Token: token})
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *Store) removeToken() {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.log.Warn("could not remove token file", zap.Error(err))
	}
}

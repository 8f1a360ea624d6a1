package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/adityapw/wallet-tracker/pkg/types"
)

var ErrUnauthorized = errors.New("unauthorized")
var ErrServer = errors.New("server error")

// Client wraps the backend REST endpoints. List operations degrade to an
// empty collection on any failure; mutating operations return the error
// so the caller can surface it. Nothing here panics into the caller.
type Client struct {
	base string
	http *http.Client
	log  *zap.Logger

	mu    sync.RWMutex
	token string
}

func New(base string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		base: base,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// SetToken installs the bearer token attached to subsequent requests.
// An empty token means no Authorization header.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) ClearToken() { c.SetToken("") }

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login exchanges a username for a token. The caller is expected to
// validate the token via Profile before treating the session as
// authenticated.
func (c *Client) Login(ctx context.Context, username string) (string, error) {
	var resp types.LoginResponse
	err := c.do(ctx, http.MethodPost, "/login", types.LoginRequest{Username: username}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("%w: login response missing token", ErrServer)
	}
	return resp.Token, nil
}

// Profile fetches the identity behind the current token.
func (c *Client) Profile(ctx context.Context) (types.Profile, error) {
	var p types.Profile
	if err := c.do(ctx, http.MethodGet, "/protected/profile", nil, &p); err != nil {
		return types.Profile{}, err
	}
	return p, nil
}

// WalletsByUsername lists wallets for a user. Failures of any kind
// (transport, error-shaped payload, bad JSON) yield an empty list.
func (c *Client) WalletsByUsername(ctx context.Context, username string) []types.Wallet {
	raw, err := c.get(ctx, "/wallets/username/"+username)
	if err != nil {
		c.log.Warn("wallet fetch failed", zap.String("username", username), zap.Error(err))
		return []types.Wallet{}
	}

	// The backend answers {"error": ...} with a 2xx for unknown users.
	if isErrorEnvelope(raw) {
		c.log.Warn("wallet fetch returned error envelope", zap.String("username", username))
		return []types.Wallet{}
	}

	var wallets []types.Wallet
	if err := json.Unmarshal(raw, &wallets); err != nil {
		c.log.Warn("wallet fetch returned bad payload", zap.Error(err))
		return []types.Wallet{}
	}
	return wallets
}

func (c *Client) CreateWallet(ctx context.Context, w types.Wallet) (types.Wallet, error) {
	var created types.Wallet
	if err := c.do(ctx, http.MethodPost, "/wallets", w, &created); err != nil {
		return types.Wallet{}, err
	}
	return created, nil
}

func (c *Client) UpdateWallet(ctx context.Context, w types.Wallet) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/wallets/%d", w.ID), w, nil)
}

func (c *Client) DeleteWallet(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/wallets/%d", id), nil, nil)
}

// Announcements lists the current announcement feed; degrades to empty.
func (c *Client) Announcements(ctx context.Context) []types.Announcement {
	raw, err := c.get(ctx, "/announcements")
	if err != nil {
		c.log.Warn("announcement fetch failed", zap.Error(err))
		return []types.Announcement{}
	}
	var items []types.Announcement
	if err := json.Unmarshal(raw, &items); err != nil {
		c.log.Warn("announcement fetch returned bad payload", zap.Error(err))
		return []types.Announcement{}
	}
	return items
}

func (c *Client) CreateAnnouncement(ctx context.Context, content string) (types.Announcement, error) {
	var created types.Announcement
	err := c.do(ctx, http.MethodPost, "/announcements", types.Announcement{Content: content}, &created)
	if err != nil {
		return types.Announcement{}, err
	}
	return created, nil
}

// ChatHistory fetches the full chat log snapshot; degrades to empty.
func (c *Client) ChatHistory(ctx context.Context) []types.ChatMessage {
	raw, err := c.get(ctx, "/api/chat-history")
	if err != nil {
		c.log.Warn("chat history fetch failed", zap.Error(err))
		return []types.ChatMessage{}
	}
	var msgs []types.ChatMessage
	if err := json.Unmarshal(raw, &msgs); err != nil {
		c.log.Warn("chat history returned bad payload", zap.Error(err))
		return []types.ChatMessage{}
	}
	return msgs
}

// get fetches path and returns the raw body of a 2xx response.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if err := statusErr(resp.StatusCode); err != nil {
		return nil, err
	}
	return body, nil
}

// do runs a request with an optional JSON body and decodes a 2xx
// response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := statusErr(resp.StatusCode); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrServer, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if tok := c.bearer(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
}

func statusErr(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrUnauthorized
	default:
		return fmt.Errorf("%w: status %d", ErrServer, code)
	}
}

func isErrorEnvelope(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	var env struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return true // object-shaped but unreadable: not a wallet list
	}
	return true
}

package types

// Backend REST shapes (JSON over HTTP)
//
// Login:
//   POST /login {username} -> {token}
//
// Profile:
//   GET /protected/profile (Bearer) -> {username}
//
// Wallets:
//   GET    /wallets/username/{username} -> [Wallet] | {error}
//   POST   /wallets body=Wallet         -> Wallet
//   PUT    /wallets/{id} body=Wallet    -> 2xx
//   DELETE /wallets/{id}                -> 2xx
//
// Announcements:
//   GET  /announcements           -> [Announcement]
//   POST /announcements {content} -> Announcement
//
// Chat:
//   GET /api/chat-history -> [ChatMessage]

// Wallet is the backend-owned wallet record. Balance is numeric on the
// wire; never send it as a string.
type Wallet struct {
	ID       int64   `json:"id"`
	Username string  `json:"username,omitempty"`
	Address  string  `json:"address"`
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

// ChatMessage is one chat entry, both on the realtime channel and in the
// /api/chat-history snapshot.
type ChatMessage struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

// Announcement is a server-held broadcast note.
type Announcement struct {
	ID      int64  `json:"id,omitempty"`
	Content string `json:"content"`
}

// Profile is the /protected/profile response.
type Profile struct {
	Username string `json:"username"`
}

// LoginRequest / LoginResponse are the /login exchange.
type LoginRequest struct {
	Username string `json:"username"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// JoinMessage is the first client->server frame after the socket opens.
type JoinMessage struct {
	Type     string `json:"type"` // always "join"
	Username string `json:"username"`
}

// WalletNotice is the out-of-band server->client frame broadcast when a
// wallet is created. It shares the channel with chat; the "type" tag is
// what distinguishes it from a plain ChatMessage object.
type WalletNotice struct {
	Type   string `json:"type"` // always "new_wallet"
	Wallet Wallet `json:"wallet"`
}

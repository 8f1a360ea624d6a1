package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/adityapw/wallet-tracker/internal/hub"
	"github.com/adityapw/wallet-tracker/internal/storage"
	"github.com/adityapw/wallet-tracker/pkg/types"
)

func Login(tokens *TokenRegistry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Username) == "" {
			http.Error(w, "username required", http.StatusBadRequest)
			return
		}

		token := tokens.Issue(req.Username)
		log.Info("issued token", zap.String("username", req.Username))
		writeJSON(w, http.StatusOK, types.LoginResponse{Token: token})
	}
}

func Profile(tokens *TokenRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		username, ok := tokens.Lookup(token)
		if !ok {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, types.Profile{Username: username})
	}
}

func ListWallets(store storage.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")

		wallets, err := store.WalletsByUsername(username)
		if err != nil {
			log.Error("list wallets", zap.Error(err))
			http.Error(w, "storage failure", http.StatusInternalServerError)
			return
		}
		if len(wallets) == 0 {
			// Error envelope, not an empty array - matches the
			// backend the client grew up against.
			writeJSON(w, http.StatusOK, map[string]string{"error": "no wallets found for " + username})
			return
		}
		writeJSON(w, http.StatusOK, wallets)
	}
}

func CreateWallet(store storage.Store, h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var wallet types.Wallet
		if err := json.NewDecoder(r.Body).Decode(&wallet); err != nil {
			http.Error(w, "bad wallet body", http.StatusBadRequest)
			return
		}
		if wallet.Username == "" || wallet.Address == "" {
			http.Error(w, "username and address required", http.StatusBadRequest)
			return
		}

		created, err := store.CreateWallet(wallet)
		if err != nil {
			log.Error("create wallet", zap.Error(err))
			http.Error(w, "storage failure", http.StatusInternalServerError)
			return
		}

		h.Inbox() <- hub.NotifyWallet{Wallet: created}
		writeJSON(w, http.StatusCreated, created)
	}
}

func UpdateWallet(store storage.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := walletID(w, r)
		if !ok {
			return
		}

		var wallet types.Wallet
		if err := json.NewDecoder(r.Body).Decode(&wallet); err != nil {
			http.Error(w, "bad wallet body", http.StatusBadRequest)
			return
		}
		wallet.ID = id

		switch err := store.UpdateWallet(wallet); {
		case storage.IsNotFound(err):
			http.Error(w, "wallet not found", http.StatusNotFound)
		case err != nil:
			log.Error("update wallet", zap.Error(err))
			http.Error(w, "storage failure", http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}
}

func DeleteWallet(store storage.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := walletID(w, r)
		if !ok {
			return
		}

		switch err := store.DeleteWallet(id); {
		case storage.IsNotFound(err):
			http.Error(w, "wallet not found", http.StatusNotFound)
		case err != nil:
			log.Error("delete wallet", zap.Error(err))
			http.Error(w, "storage failure", http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}
}

func ListAnnouncements(store storage.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := store.Announcements()
		if err != nil {
			log.Error("list announcements", zap.Error(err))
			http.Error(w, "storage failure", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func CreateAnnouncement(store storage.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.Announcement
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Content) == "" {
			http.Error(w, "content required", http.StatusBadRequest)
			return
		}

		created, err := store.CreateAnnouncement(req.Content)
		if err != nil {
			log.Error("create announcement", zap.Error(err))
			http.Error(w, "storage failure", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func ChatHistory(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan []types.ChatMessage, 1)
		h.Inbox() <- hub.GetHistory{Reply: reply}

		select {
		case history := <-reply:
			writeJSON(w, http.StatusOK, history)
		case <-r.Context().Done():
		}
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func walletID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "bad wallet id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

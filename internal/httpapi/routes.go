package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/adityapw/wallet-tracker/internal/hub"
	"github.com/adityapw/wallet-tracker/internal/storage"
	"github.com/adityapw/wallet-tracker/internal/ws"
)

func SetupRoutes(store storage.Store, h *hub.Hub, tokens *TokenRegistry, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Post("/login", Login(tokens, log))
	r.Get("/protected/profile", Profile(tokens))

	r.Get("/wallets/username/{username}", ListWallets(store, log))
	r.Post("/wallets", CreateWallet(store, h, log))
	r.Put("/wallets/{id}", UpdateWallet(store, log))
	r.Delete("/wallets/{id}", DeleteWallet(store, log))

	r.Get("/announcements", ListAnnouncements(store, log))
	r.Post("/announcements", CreateAnnouncement(store, log))

	r.Get("/api/chat-history", ChatHistory(h))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, log))

	return r
}

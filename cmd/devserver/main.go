package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/adityapw/wallet-tracker/internal/httpapi"
	"github.com/adityapw/wallet-tracker/internal/hub"
	"github.com/adityapw/wallet-tracker/internal/storage"
)

// devserver is the stand-in backend the tracker client talks to: the
// REST surface plus the chat hub, backed by Postgres when DATABASE_URL
// is set and by memory otherwise.
func main() {
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var store storage.Store
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		g, err := storage.OpenGorm(dsn)
		if err != nil {
			log.Fatal("open database", zap.Error(err))
		}
		store = g
		log.Info("using postgres storage")
	} else {
		store = storage.NewMemory()
		log.Info("using in-memory storage")
	}

	h := hub.NewHub(ctx, log)
	handler := httpapi.SetupRoutes(store, h, httpapi.NewTokenRegistry(), log)

	addr := os.Getenv("DEVSERVER_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{Addr: addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("devserver listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("serve", zap.Error(err))
	}
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/dgallion1/brewsync/internal/api"
	"github.com/dgallion1/brewsync/internal/config"
	"github.com/dgallion1/brewsync/internal/pipeline"
	"github.com/dgallion1/brewsync/internal/sourcebook"
	"github.com/dgallion1/brewsync/internal/store"
)

func main() {
	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize document store.
	var st store.Store = store.NewMemory()
	if cfg.CouchDBURL != "" {
		connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
		couch, err := store.NewCouch(connectCtx, cfg.CouchDBURL, cfg.CouchDBName)
		connectCancel()
		if err != nil {
			log.Error("couchdb unavailable", "error", err)
			os.Exit(1)
		}
		st = couch
		log.Info("using couchdb store", "db", cfg.CouchDBName)
	} else {
		log.Warn("COUCHDB_URL not set, documents are kept in memory")
	}

	// Initialize session verification.
	var verifier *api.Verifier
	if cfg.JWTPublicKeyFile != "" {
		v, err := api.LoadVerifier(cfg.JWTPublicKeyFile)
		if err != nil {
			log.Error("invalid JWT public key", "error", err)
			os.Exit(1)
		}
		verifier = v
	}

	// Initialize sourcebook client.
	stats := sourcebook.NewStats(cfg.StatsWindow)
	sb := sourcebook.NewClient(cfg.SourcebookURL,
		sourcebook.WithInsecureTLS(cfg.SourcebookInsecureTLS),
		sourcebook.WithTimeout(cfg.PushTimeout),
		sourcebook.WithStats(stats),
	)

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, sb, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, st, stats, verifier, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		sb.Close()
		if err := st.Close(); err != nil {
			log.Warn("close store", "error", err)
		}
	}()

	log.Info("starting brewsync",
		"port", cfg.Port,
		"sourcebook_url", cfg.SourcebookURL,
		"debounce", cfg.SyncDebounce.String(),
		"workers", cfg.WorkerCount,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

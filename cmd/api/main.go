package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"marginalia/api/internal/app"
	"marginalia/api/internal/config"
	"marginalia/api/internal/export"
	"marginalia/api/internal/notify"
	"marginalia/api/internal/revision"
	"marginalia/api/internal/search"
	"marginalia/api/internal/store"
	"marginalia/api/internal/suggest"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	if err := os.MkdirAll(cfg.RevisionsDir, 0o755); err != nil {
		log.Fatalf("failed to create revisions dir: %v", err)
	}

	dataStore := store.NewPostgresStore(db)
	revisions := revision.New(cfg.RevisionsDir)

	pglike := search.NewPgLike(dataStore)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pglike)

	var bus *notify.Bus
	if strings.TrimSpace(cfg.RedisURL) != "" {
		bus, err = notify.NewBus(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer bus.Close()
	}

	var uploader *export.Uploader
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		uploader, err = export.NewUploader(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("minio connection failed: %v", err)
		}
	}

	anchorThreshold := cfg.RefreshThreshold
	if anchorThreshold <= 0 {
		anchorThreshold = 0.7
	}
	exportService := export.NewService(dataStore, uploader, anchorThreshold)
	suggestService := suggest.New(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	if suggestService.Enabled() {
		log.Printf("Suggestions enabled with model %s", cfg.OpenAIModel)
	}

	service := app.New(cfg, dataStore, revisions, searchService, suggestService, exportService, bus)

	// Changes published by other instances invalidate the local engine
	// so the next request reloads from storage.
	if err := bus.Subscribe(ctx, func(ev notify.DocumentChanged) {
		service.DropController(ev.DocumentID)
	}); err != nil {
		log.Fatalf("subscribe to change events failed: %v", err)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Marginalia API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

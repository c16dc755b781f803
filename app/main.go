package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orgpulse/newsharvest/app/api"
	"github.com/orgpulse/newsharvest/app/cfg"
	"github.com/orgpulse/newsharvest/app/classify"
	"github.com/orgpulse/newsharvest/app/config"
	"github.com/orgpulse/newsharvest/app/database"
	"github.com/orgpulse/newsharvest/app/discovery"
	"github.com/orgpulse/newsharvest/app/extraction"
	"github.com/orgpulse/newsharvest/app/fetcher"
	"github.com/orgpulse/newsharvest/app/images"
	"github.com/orgpulse/newsharvest/app/llm"
	"github.com/orgpulse/newsharvest/app/pipeline"
	"github.com/orgpulse/newsharvest/app/titles"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was requested.
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting News Harvest server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBHost, appCfg.DBPort,
		appCfg.DBUser, appCfg.DBPassword, appCfg.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "migration_version", version, "dirty", dirty)

	orgRepo := database.NewOrganizationRepository(db)
	sessionRepo := database.NewSessionRepository(db)
	articleRepo := database.NewArticleRepository(db)
	batchRepo := database.NewBatchRepository(db)

	// Seed organizations from the configuration directory.
	seeds, err := config.NewLoader(appCfg.SeedsDir).LoadAll()
	if err != nil {
		slog.Error("Failed to load organization seeds", "error", err)
		os.Exit(1)
	}
	if synced, err := config.Sync(seeds, orgRepo); err != nil {
		slog.Error("Failed to sync organization seeds", "error", err)
		os.Exit(1)
	} else {
		slog.Info("Organization seeds synced", "count", synced)
	}

	fetch := fetcher.New(fetcher.Options{
		Timeout:       time.Duration(appCfg.FetchTimeout) * time.Second,
		MaxConcurrent: appCfg.MaxConcurrent,
		MinInterval:   time.Duration(appCfg.MinFetchInterval) * time.Millisecond,
		UserAgent:     appCfg.UserAgent,
	})

	var completion *llm.Client
	if appCfg.CompletionURL != "" {
		completion = llm.NewClient(appCfg.CompletionURL, appCfg.CompletionAPIKey, appCfg.CompletionModel)
	} else {
		slog.Warn("Completion service not configured, deterministic fallbacks apply everywhere")
	}

	var service extraction.Service
	if appCfg.ExtractionURL != "" {
		service = extraction.NewServiceClient(appCfg.ExtractionURL, appCfg.ExtractionAPIKey,
			appCfg.ExtractionMode, time.Duration(appCfg.FetchTimeout)*time.Second)
	} else {
		slog.Warn("Extraction service not configured, running on the raw-fetch tier only")
	}
	chain := extraction.NewChain(service, extraction.NewFallback(fetch))

	var classifier *classify.Classifier
	var selector *images.Selector
	var formatter *titles.Formatter
	if completion != nil {
		classifier = classify.NewClassifier(completion)
		selector = images.NewSelector(completion, fetch)
		formatter = titles.NewFormatter(completion)
	} else {
		classifier = classify.NewClassifier(nil)
		selector = images.NewSelector(nil, fetch)
		formatter = titles.NewFormatter(nil)
	}

	scheduler := pipeline.ChunkScheduler{
		ChunkSize:   appCfg.ChunkSize,
		Concurrency: appCfg.ScrapeConcurrency,
		Delay:       time.Duration(appCfg.ChunkDelay) * time.Millisecond,
	}

	finalizer := pipeline.NewFinalizer(articleRepo, selector, formatter)
	discoverer := discovery.NewDiscoverer(fetch, appCfg.DiscoveryLimit)
	orchestrator := pipeline.NewOrchestrator(orgRepo, sessionRepo, articleRepo,
		discoverer, chain, classifier, finalizer, scheduler)
	bulkRunner := pipeline.NewBulkRunner(orgRepo, batchRepo, articleRepo,
		chain, classifier, finalizer, scheduler)
	automatedRunner := pipeline.NewAutomatedRunner(orgRepo, orchestrator)

	handler := api.NewHandler(orgRepo, sessionRepo, articleRepo, batchRepo,
		orchestrator, bulkRunner, automatedRunner)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // phase runs are synchronous
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}

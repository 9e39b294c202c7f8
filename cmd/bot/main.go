package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/awsl-bot/awsl-bot/internal/api"
	"github.com/awsl-bot/awsl-bot/internal/capture"
	"github.com/awsl-bot/awsl-bot/internal/classify"
	"github.com/awsl-bot/awsl-bot/internal/config"
	"github.com/awsl-bot/awsl-bot/internal/database"
	"github.com/awsl-bot/awsl-bot/internal/gate"
	"github.com/awsl-bot/awsl-bot/internal/monitor"
	"github.com/awsl-bot/awsl-bot/internal/ocr"
	"github.com/awsl-bot/awsl-bot/internal/responder"
	"github.com/awsl-bot/awsl-bot/internal/scheduler"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ./awslbot.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	if cfg.VisionAPIKey == "" {
		log.Fatal("vision.api_key is required")
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}
	defer db.Close()

	seenRepo := database.NewSeenMessageRepo(db)
	taskRepo := database.NewScheduledTaskRepo(db)

	frames, err := capture.NewScreenCapture(cfg.ChatName)
	if err != nil {
		log.Fatal("Failed to initialize screen capture: ", err)
	}
	defer frames.Cleanup()

	injector, err := responder.NewOsascriptInjector(cfg.ChatName)
	if err != nil {
		log.Fatal("Failed to initialize injector: ", err)
	}
	defer injector.Cleanup()

	recognizer := ocr.NewGoogleVisionClient(cfg.VisionAPIKey)
	classifier := classify.NewClassifier(cfg.ConfidenceFloor, cfg.OriginThreshold, cfg.LineTolerance)
	triggerGate := gate.New(cfg.Keyword, cfg.Cooldown)

	var provider responder.AssetProvider = responder.NewAwslClient(cfg.AssetBaseURL)
	if cfg.CSEAPIKey != "" && cfg.CSEID != "" {
		cseClient, err := responder.NewCSEClient(cfg.CSEAPIKey, cfg.CSEID)
		if err != nil {
			log.Printf("Warning: image search fallback disabled: %v", err)
		} else {
			provider = responder.NewChainProvider(provider, cseClient)
			log.Printf("Image search fallback enabled")
		}
	}

	resp := responder.NewResponder(provider, injector, cfg.Keyword)

	mon := monitor.New(frames, cfg.Region, recognizer, classifier,
		seenRepo, triggerGate, resp, cfg.PollInterval)

	sched := scheduler.New(taskRepo, injector, resp)

	app := &api.App{
		SeenRepo: seenRepo,
		TaskRepo: taskRepo,
		Sender:   injector,
		Windows:  frames,
		ChatName: cfg.ChatName,
		Token:    cfg.HTTPToken,
		Started:  time.Now(),
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: api.NewRouter(app),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("HTTP API listening on port %d", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed: ", err)
		}
	}()

	go func() {
		if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Scheduler exited: %v", err)
		}
	}()

	log.Printf("Monitoring chat %q for keyword %q every %s", cfg.ChatName, cfg.Keyword, cfg.PollInterval)
	if err := mon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Monitor exited: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown: %v", err)
	}

	log.Printf("Shutdown complete")
}

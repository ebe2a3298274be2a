// Command server runs the Voxify synthesis backend: it loads configuration,
// opens the job/cache database, wires the application services, schedules
// the cache expiry sweep, and serves the HTTP API until interrupted.
//
// @title        Voxify Synthesis API
// @version      1.0
// @description  Voice-cloning text-to-speech backend: synthesis jobs, result caching, and voice registry.
// @BasePath     /api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "github.com/voxify/voxify-backend/docs"
	"github.com/voxify/voxify-backend/internal/config"
	"github.com/voxify/voxify-backend/internal/engine"
	httpapi "github.com/voxify/voxify-backend/internal/http"
	"github.com/voxify/voxify-backend/internal/observability"
	"github.com/voxify/voxify-backend/internal/repo"
	"github.com/voxify/voxify-backend/internal/services"
	"github.com/voxify/voxify-backend/internal/storage"
	"github.com/voxify/voxify-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// .env is optional; real deployments use environment variables.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tracing (no-op unless enabled).
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	// Persistence.
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}

	// Audio blob storage.
	store, err := storage.NewFileStore(cfg.AudioDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.AudioDir).Msg("open audio store failed")
	}

	// Services.
	voices := services.NewVoiceService(db, 5*time.Minute)
	jobs := &services.JobService{
		DB:           db,
		Identity:     voices,
		MaxTextChars: cfg.Synthesis.MaxTextChars,
	}
	cache := &services.CacheService{DB: db, TTL: cfg.Cache.TTL}
	eng := engine.NewHTTPEngine(cfg.Synthesis.EngineURL, cfg.Synthesis.EngineTimeout, store)
	synth := services.NewSynthesisService(
		jobs, cache, voices, eng,
		cfg.Synthesis.NodeID, cfg.Synthesis.Workers, cfg.Cache.Permanent,
	)

	// Cache expiry sweep.
	sched := cron.New()
	if _, err := sched.AddFunc(cfg.Cache.SweepSpec, func() {
		if _, err := cache.EvictExpired(context.Background()); err != nil {
			log.Error().Err(err).Msg("cache sweep failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Str("spec", cfg.Cache.SweepSpec).Msg("invalid sweep spec")
	}
	sched.Start()

	// HTTP.
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.NewDeps(db, synth, jobs, voices, cache), cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("node", cfg.Synthesis.NodeID).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	// Stop the sweep and the HTTP listener, then let in-flight renders
	// finish so no job is left stuck in processing.
	cronCtx := sched.Stop()

	shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	synth.Wait()
	<-cronCtx.Done()

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("bye")
}

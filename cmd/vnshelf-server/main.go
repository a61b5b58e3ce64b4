package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Guilhem-Bonnet/vnshelf/internal/adapters/badgercache"
	"github.com/Guilhem-Bonnet/vnshelf/internal/adapters/httpapi"
	"github.com/Guilhem-Bonnet/vnshelf/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/vnshelf/internal/adapters/sqlite"
	"github.com/Guilhem-Bonnet/vnshelf/internal/app"
	"github.com/Guilhem-Bonnet/vnshelf/internal/buildinfo"
	"github.com/Guilhem-Bonnet/vnshelf/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	def := config.Default()
	addr := flag.String("addr", def.Addr, "Adresse d'écoute (ex: 127.0.0.1:8080)")
	dbPath := flag.String("db", def.DBPath, "Chemin SQLite (ex: vnshelf.db)")
	catalogURL := flag.String("catalog-url", def.CatalogURL, "URL de base de l'API catalogue")
	chunkDelay := flag.Duration("chunk-delay", def.ChunkDelay, "Délai entre deux chunks de requêtes catalogue")
	throttleKind := flag.String("throttle", def.Throttle, "Throttle catalogue (fixed, token)")
	throttleBurst := flag.Int("throttle-burst", def.ThrottleBurst, "Burst du throttle token")
	cacheTTL := flag.Duration("cache-ttl", def.CacheTTL, "Durée de vie du cache de réponses")
	logLevel := flag.String("log-level", def.LogLevel, "Niveau de log (debug, info, warn, error)")
	logFormat := flag.String("log-format", def.LogFormat, "Format de log (json, pretty)")
	flag.Parse()

	logger := newLogger(*logLevel, *logFormat)
	log.Logger = logger

	logger.Info().Interface("build", buildinfo.Current()).Str("db", *dbPath).Str("catalog", *catalogURL).Str("throttle", *throttleKind).Msg("starting")

	ctx := context.Background()
	db, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open db")
	}
	defer func() { _ = db.Close() }()

	cache, err := badgercache.Open(logger, badgercache.Options{TTL: *cacheTTL, MaxEntryBytes: def.CacheMaxEntryBytes})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open response cache")
	}
	defer func() { _ = cache.Close() }()

	bus := memorybus.New()
	defer bus.Close()

	// Un throttle par endpoint : primaire et releases ne partagent pas leurs jetons.
	primary, err := app.NewThrottle(*throttleKind, *chunkDelay, *throttleBurst)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid throttle")
	}
	release, err := app.NewThrottle(*throttleKind, *chunkDelay, *throttleBurst)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid throttle")
	}

	catalog := app.NewCatalogService(cache, logger).
		WithBaseURL(*catalogURL).
		WithTimeout(def.HTTPTimeout).
		WithThrottles(primary, release)

	libraryRepo := sqlite.NewLibraryRepository(db.SQL)
	library := app.NewLibraryService(libraryRepo, sqlite.NewPurchaseSourcesRepository(db.SQL), catalog, bus, logger)
	if err := library.Load(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to load library")
	}

	settingsSvc := app.NewSettingsService(sqlite.NewSettingsRepository(db.SQL), bus)
	backupSvc := app.NewBackupService(libraryRepo, library)

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	refresh := app.NewRefreshService(shutdownCtx, logger, library, bus)
	defer refresh.Close()

	srv := httpapi.NewServer(logger, httpapi.Deps{
		Catalog:        catalog,
		Library:        library,
		Refresh:        refresh,
		Backup:         backupSvc,
		Settings:       settingsSvc,
		Bus:            bus,
		AllowedOrigins: def.AllowedOrigins,
	})
	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", *addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server crashed")
			stop()
		}
	}()

	<-shutdownCtx.Done()
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Ferme d'abord les flux SSE, sinon Shutdown attend le timeout.
	bus.Close()
	_ = httpServer.Shutdown(ctx)
	logger.Info().Msg("bye")
}

func newLogger(level, format string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if format == "pretty" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	logger := zerolog.New(out).With().Timestamp().Str("app", "vnshelf-server").Logger()

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return logger.Level(lvl)
}

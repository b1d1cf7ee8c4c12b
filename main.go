package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"audiopress/config"
	"audiopress/job"
	"audiopress/notify"
	"audiopress/outcome"
	"audiopress/routes"
	"audiopress/storage"
	"audiopress/token"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			log.Fatal().Err(err).Msg("sentry.Init failed")
		}
		// Flush buffered events before the program terminates.
		defer sentry.Flush(2 * time.Second)
	}

	root, err := storage.Resolve(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to resolve storage root")
	}

	// In-memory job state does not survive restarts, so any file left in
	// the working directories belongs to a job nobody can ever claim.
	sweepOrphans(root, 0)

	outcomes, err := outcome.Open(cfg.OutcomeDBPath())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open outcome store")
	}
	defer outcomes.Close()

	engine := job.NewFFmpeg(cfg.FFmpegBin)
	if !engine.Available() {
		log.Fatal().Str("bin", cfg.FFmpegBin).Msg("transcoding engine is not available")
	}

	signer, err := token.NewSigner([]byte(cfg.TokenSecret), cfg.TokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build token signer")
	}

	notifier := notify.New(cfg.RedisDSN, cfg.RedisChannel)
	if notifier != nil {
		log.Info().Str("channel", cfg.RedisChannel).Msg("redis notifications enabled")
		defer notifier.Close()
	}

	registry := job.NewRegistry()
	handlers := &routes.Handlers{
		Cfg:       cfg,
		Root:      root,
		Registry:  registry,
		Converter: job.NewConverter(engine, root, registry, cfg.MaxConversions),
		Artifacts: job.NewArtifacts(registry),
		Engine:    engine,
		Outcomes:  outcomes,
		Notifier:  notifier,
		Tokens:    signer,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cleanupRoutine(ctx, cfg, root, registry, outcomes)

	mux := http.NewServeMux()
	handlers.Register(mux)

	log.Info().Str("addr", cfg.ListenAddr).Msg("audiopress server starting")
	if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

// cleanupRoutine periodically ages out outcome records, evicts terminal
// registry entries, and sweeps working-directory orphans.
func cleanupRoutine(ctx context.Context, cfg config.Config, root storage.Root, registry *job.Registry, outcomes *outcome.Store) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := outcomes.CleanupOldRecords(cfg.RecordMaxAge); err != nil {
				log.Error().Err(err).Msg("failed to clean up outcome records")
			}
			if n := registry.Evict(cfg.TokenTTL); n > 0 {
				log.Info().Int("count", n).Msg("evicted terminal jobs from registry")
			}
			// Every download token is dead after TokenTTL, so nothing
			// older than that can still be claimed.
			sweepOrphans(root, cfg.TokenTTL)
		}
	}
}

// sweepOrphans removes working-directory entries older than maxAge. Both
// directories are expected empty in steady state; anything lingering is a
// leak from a crash or an unclaimed download.
func sweepOrphans(root storage.Root, maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)

	for _, dir := range []string{root.IntakeDir, root.OutputDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			log.Error().Err(err).Str("dir", dir).Msg("failed to scan working directory")
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(cutoff) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				log.Error().Err(err).Str("path", path).Msg("failed to remove orphaned entry")
			} else {
				log.Info().Str("path", path).Msg("removed orphaned entry")
			}
		}
	}
}

package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults applied when the corresponding environment variable is unset.
const (
	defaultListenAddr     = ":8080"
	defaultMaxUploadBytes = 200 << 20 // 200 MB
	defaultFFmpegBin      = "ffmpeg"
	defaultMaxConversions = 4
	defaultTokenTTL       = time.Hour
	defaultRecordMaxAge   = 30 * 24 * time.Hour
)

// Config holds every runtime setting, resolved once at startup.
type Config struct {
	ListenAddr string `validate:"required"`

	// DataDir is the base directory for all transient and durable state:
	// intake/, output/ and the outcome database live under it.
	DataDir string `validate:"required"`

	FFmpegBin      string `validate:"required"`
	MaxUploadBytes int64  `validate:"gt=0"`
	MaxConversions int    `validate:"gt=0"`

	// TokenSecret signs download tokens. Needs at least 32 bytes for HS256.
	TokenSecret string        `validate:"required,min=32"`
	TokenTTL    time.Duration `validate:"gt=0"`

	// RecordMaxAge bounds how long terminal job records are kept.
	RecordMaxAge time.Duration `validate:"gt=0"`

	// Optional integrations. Empty means disabled.
	RedisDSN     string
	RedisChannel string
	SentryDSN    string
}

// Load resolves configuration from the environment and validates it.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:     envOr("AUDIOPRESS_ADDR", defaultListenAddr),
		DataDir:        envOr("AUDIOPRESS_DATA_DIR", "./data"),
		FFmpegBin:      envOr("AUDIOPRESS_FFMPEG", defaultFFmpegBin),
		MaxUploadBytes: envInt64("AUDIOPRESS_MAX_UPLOAD_BYTES", defaultMaxUploadBytes),
		MaxConversions: int(envInt64("AUDIOPRESS_MAX_CONVERSIONS", defaultMaxConversions)),
		TokenSecret:    envOr("AUDIOPRESS_TOKEN_SECRET", ""),
		TokenTTL:       envDuration("AUDIOPRESS_TOKEN_TTL", defaultTokenTTL),
		RecordMaxAge:   envDuration("AUDIOPRESS_RECORD_MAX_AGE", defaultRecordMaxAge),
		RedisDSN:       os.Getenv("REDIS_DSN"),
		RedisChannel:   envOr("REDIS_CHANNEL", "audiopress:jobs"),
		SentryDSN:      os.Getenv("SENTRY_DSN"),
	}

	if cfg.TokenSecret == "" {
		// An ephemeral secret is fine: tokens only need to outlive one
		// convert/download cycle, and artifacts do not survive restarts.
		secret, err := randomHex(32)
		if err != nil {
			return Config{}, fmt.Errorf("failed to generate token secret: %w", err)
		}
		cfg.TokenSecret = secret
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// OutcomeDBPath returns the path of the job outcome database.
// Path: {DataDir}/outcomes.db
func (c Config) OutcomeDBPath() string {
	return filepath.Join(c.DataDir, "outcomes.db")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

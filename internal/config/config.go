// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the process configuration, read once from the environment at startup.
// A .env file in the working directory is loaded first by godotenv/autoload in each cmd.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	PGUser     string
	PGPassword string
	PGHost     string
	PGPort     string
	PGDatabase string

	RedisAddr   string
	RedisDB     int
	QueueName   string
	SnapshotTTL time.Duration

	// TokenExpire is the JWT lifetime; 0 means tokens never expire.
	TokenExpire time.Duration
	// JWT key files. When either is empty a fresh key pair is generated at startup.
	JWTPrivateKeyPath string
	JWTPublicKeyPath  string

	// FinishedTTL keeps a finished sheet in memory for late renderers before it is evicted.
	FinishedTTL time.Duration

	SinkTimeout time.Duration

	HistorianBatchSize int
	HistorianFlush     time.Duration
	// GameInactivity is how long the historian waits before marking a silent game abandoned.
	GameInactivity time.Duration
}

// Load reads every setting, falling back to development defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:      getEnv("SCORESHEET_PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		PGUser:     getEnv("POSTGRES_USER", "postgres"),
		PGPassword: os.Getenv("POSTGRES_PASSWORD"),
		PGHost:     getEnv("PG_HOST", "localhost"),
		PGPort:     getEnv("PG_PORT", "5432"),
		PGDatabase: getEnv("PG_DATABASE", "scoresheet"),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:   getEnvInt("REDIS_DB", 0),
		QueueName: getEnv("ROUND_QUEUE_NAME", "scoresheet_rounds"),

		JWTPrivateKeyPath: os.Getenv("JWT_PRIVATE_KEY_PATH"),
		JWTPublicKeyPath:  os.Getenv("JWT_PUBLIC_KEY_PATH"),

		SinkTimeout:        time.Duration(getEnvInt("SINK_TIMEOUT_MS", 2000)) * time.Millisecond,
		HistorianBatchSize: getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		HistorianFlush:     time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		GameInactivity:     time.Duration(getEnvInt("GAME_INACTIVITY_TIMEOUT_SEC", 86400)) * time.Second,
	}

	var err error
	if cfg.SnapshotTTL, err = getEnvDuration("SNAPSHOT_TTL", 7*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.FinishedTTL, err = getEnvDuration("FINISHED_GAME_TTL", 10*time.Minute); err != nil {
		return Config{}, err
	}

	switch exp := os.Getenv("TOKEN_EXPIRE_TIME"); exp {
	case "", "0", "never":
		cfg.TokenExpire = 0
	default:
		d, err := time.ParseDuration(exp)
		if err != nil {
			return Config{}, fmt.Errorf("failed to parse TOKEN_EXPIRE_TIME: %w", err)
		}
		cfg.TokenExpire = d
	}
	return cfg, nil
}

// PostgresURL builds the pgx connection string.
func (c Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt parses an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return d, nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"

	SessionStorePostgres = "postgres"
	SessionStoreCookie   = "cookie"
)

var ErrMissingSecret = errors.New("SECRET must be set")

// Config holds everything the server needs at start-up. It is built once in
// main and handed to constructors, nothing reads the environment after Load.
type Config struct {
	ListenAddr string
	Port       string
	Secret     string
	Production bool

	StorageBackend string
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBSSLMode      string

	SessionStore           string
	CookieDuration         time.Duration
	SessionCleanupInterval time.Duration

	FileStoragePath string
	AllowedOrigins  []string
	MetricsPassword string
	RateLimit       string

	AdminEmail  string
	SenderEmail string
}

// Load reads an optional .env file followed by the process environment.
// The returned bool reports whether a .env file was found.
func Load() (*Config, bool, error) {
	loaded := godotenv.Load() == nil

	cfg, err := FromEnv()
	return cfg, loaded, err
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		ListenAddr:      os.Getenv("LISTEN_ADDR"),
		Port:            getenv("PORT", "3000"),
		Secret:          os.Getenv("SECRET"),
		Production:      strings.EqualFold(os.Getenv("ENVIROMENT"), "Production"),
		StorageBackend:  strings.ToLower(getenv("STORAGE_BACKEND", BackendPostgres)),
		DBHost:          getenv("DB_HOST", "localhost"),
		DBPort:          getenv("DB_PORT", "5432"),
		DBUser:          os.Getenv("DB_USER"),
		DBPassword:      os.Getenv("DB_PASSWORD"),
		DBName:          os.Getenv("DB_NAME"),
		DBSSLMode:       getenv("DB_SSLMODE", "disable"),
		FileStoragePath: getenv("FILE_STORAGE_PATH", "public/data/uploads"),
		MetricsPassword: os.Getenv("METRICS_PASSWORD"),
		RateLimit:       getenv("RATE_LIMIT", "20-M"),
		AdminEmail:      os.Getenv("ADMIN_EMAIL"),
		SenderEmail:     os.Getenv("EMAIL_ADDRESS"),
	}

	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}

	switch cfg.StorageBackend {
	case BackendPostgres, BackendMemory:
	default:
		return nil, fmt.Errorf("invalid STORAGE_BACKEND '%s'", cfg.StorageBackend)
	}

	defaultStore := SessionStoreCookie
	if cfg.StorageBackend == BackendPostgres {
		defaultStore = SessionStorePostgres
	}
	cfg.SessionStore = strings.ToLower(getenv("SESSION_STORE", defaultStore))
	switch cfg.SessionStore {
	case SessionStoreCookie:
	case SessionStorePostgres:
		if cfg.StorageBackend != BackendPostgres {
			return nil, errors.New("SESSION_STORE 'postgres' requires STORAGE_BACKEND 'postgres'")
		}
	default:
		return nil, fmt.Errorf("invalid SESSION_STORE '%s'", cfg.SessionStore)
	}

	var err error
	if cfg.CookieDuration, err = durationEnv("COOKIE_DURATION", "168h"); err != nil {
		return nil, err
	}
	// expired postgres sessions are pruned on this period
	if cfg.SessionCleanupInterval, err = durationEnv("SESSION_CLEANUP_INTERVAL", "2m"); err != nil {
		return nil, err
	}

	if origins := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}

	return cfg, nil
}

// Addr is the address handed to the HTTP listener.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.ListenAddr, c.Port)
}

// PostgresDSN builds a lib/pq key/value connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost,
		c.DBPort,
		c.DBUser,
		c.DBPassword,
		c.DBName,
		c.DBSSLMode,
	)
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func durationEnv(key, fallback string) (time.Duration, error) {
	raw := getenv(key, fallback)
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s '%s': %w", key, raw, err)
	}
	if dur <= 0 {
		return 0, fmt.Errorf("invalid %s '%s': must be positive", key, raw)
	}
	return dur, nil
}

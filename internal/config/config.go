package config // package config loads application configuration from environment variables

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/iliyamo/event-showcase/internal/database"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable; per-concern settings (redis, rate limit, cache)
// have their own loaders.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	Store   StoreConfig
	Session SessionConfig
	Admin   AdminConfig
	Assets  AssetsConfig

	DefaultsFile string // optional YAML overriding the seeded company profile
	RabbitURL    string // empty disables change fan-out
	LogLevel     string
	LogFormat    string // "text" or "json"
}

// StoreConfig selects the keyed-record backend and how records are encoded.
type StoreConfig struct {
	Backend     string // memory | file | redis | mysql | postgres | sqlite
	Dir         string
	Namespace   string
	Codec       string // json | cbor | json+zstd | cbor+zstd
	MaxRetries  int
	SQLitePath  string
	PostgresDSN string
	MySQL       database.MySQLConfig
}

type SessionConfig struct {
	Secret  string        // empty: random per process
	TTL     time.Duration // session lifetime
	Backend string        // memory | redis
}

// AdminConfig controls the bootstrap credential and how it is hashed.
type AdminConfig struct {
	BootstrapUser     string
	BootstrapPassword string
	Scheme            string // sha256 | bcrypt
	BcryptCost        int
}

type AssetsConfig struct {
	Backend         string // dataurl | s3
	MaxBytes        int64
	S3Bucket        string
	S3Region        string
	S3Prefix        string
	S3Endpoint      string
	S3PublicBaseURL string
	AccessKeyID     string
	SecretAccessKey string
}

// Load reads configuration values from environment variables. Every
// variable has a default suitable for a local run; invalid combinations
// are reported as an error.
func Load() (Config, error) {
	cfg := Config{
		Env:  getenv("APP_ENV", "dev"),
		Port: getenv("APP_PORT", "8080"),
		Store: StoreConfig{
			Backend:     strings.ToLower(getenv("STORE_BACKEND", "file")),
			Dir:         getenv("STORE_DIR", "data"),
			Namespace:   getenv("STORE_NAMESPACE", "showcase"),
			Codec:       getenv("STORE_CODEC", "json"),
			MaxRetries:  envInt("STORE_MAX_RETRIES", 5),
			SQLitePath:  os.Getenv("SQLITE_PATH"),
			PostgresDSN: os.Getenv("POSTGRES_DSN"),
			MySQL: database.MySQLConfig{
				User: getenv("DB_USER", "root"),
				Pass: os.Getenv("DB_PASS"), // empty allowed
				Host: getenv("DB_HOST", "127.0.0.1"),
				Port: getenv("DB_PORT", "3306"),
				Name: getenv("DB_NAME", "showcase"),
			},
		},
		Session: SessionConfig{
			Secret:  os.Getenv("SESSION_SECRET"),
			TTL:     time.Duration(envInt("SESSION_TTL_MIN", 720)) * time.Minute,
			Backend: strings.ToLower(getenv("SESSION_STORE", "memory")),
		},
		Admin: AdminConfig{
			BootstrapUser:     getenv("BOOTSTRAP_ADMIN_USER", "admin"),
			BootstrapPassword: getenv("BOOTSTRAP_ADMIN_PASSWORD", "changeme"),
			Scheme:            strings.ToLower(getenv("CREDENTIAL_SCHEME", "sha256")),
			BcryptCost:        envInt("BCRYPT_COST", 10),
		},
		Assets: AssetsConfig{
			Backend:         strings.ToLower(getenv("ASSET_BACKEND", "dataurl")),
			MaxBytes:        int64(envInt("ASSET_MAX_BYTES", 5<<20)),
			S3Bucket:        os.Getenv("S3_BUCKET"),
			S3Region:        getenv("S3_REGION", "us-east-1"),
			S3Prefix:        getenv("S3_PREFIX", "assets/"),
			S3Endpoint:      os.Getenv("S3_ENDPOINT"),
			S3PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		},
		DefaultsFile: os.Getenv("DEFAULTS_FILE"),
		RabbitURL:    os.Getenv("RABBITMQ_URL"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		LogFormat:    getenv("LOG_FORMAT", "text"),
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Store.Backend {
	case "memory", "file", "redis", "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.Store.Backend)
	}
	if c.Store.Backend == "postgres" && c.Store.PostgresDSN == "" {
		return fmt.Errorf("config: POSTGRES_DSN is required for the postgres backend")
	}
	switch c.Session.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown SESSION_STORE %q", c.Session.Backend)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("config: SESSION_TTL_MIN must be positive")
	}
	switch c.Admin.Scheme {
	case "sha256", "bcrypt":
	default:
		return fmt.Errorf("config: unknown CREDENTIAL_SCHEME %q", c.Admin.Scheme)
	}
	switch c.Assets.Backend {
	case "dataurl":
	case "s3":
		if c.Assets.S3Bucket == "" {
			return fmt.Errorf("config: S3_BUCKET is required for the s3 asset backend")
		}
	default:
		return fmt.Errorf("config: unknown ASSET_BACKEND %q", c.Assets.Backend)
	}
	if c.Env == "prod" && c.Session.Secret == "" {
		return fmt.Errorf("config: SESSION_SECRET is required when APP_ENV=prod")
	}
	return nil
}

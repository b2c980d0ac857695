package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	MediaCloudinary = "cloudinary"
	MediaMinio      = "minio"
	MediaNone       = "none"

	ProjectionMemory   = "memory"
	ProjectionPostgres = "postgres"
	ProjectionRedis    = "redis"

	DefaultAdminPassword = "changeme"
)

type Config struct {
	Port          string
	StageDir      string
	PublicBaseURL string
	CORSOrigins   []string

	// TrustProxyHeaders takes client IPs from X-Forwarded-For / X-Real-IP.
	// Only safe behind a proxy that overwrites them.
	TrustProxyHeaders bool

	AdminPassword       string
	AdminPasswordBcrypt string

	MediaBackend        string
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	MinioEndpoint       string
	MinioAccessKey      string
	MinioSecretKey      string
	MinioBucket         string
	MinioPublicURL      string
	MinioSecure         bool

	LogStoreURL     string
	LogStoreTimeout time.Duration
	LogQueueSize    int

	RemoteUploadTimeout time.Duration
	MaxUploadBytes      int64

	StageRetention       time.Duration
	StageJanitorInterval time.Duration

	ProjectionBackend         string
	DatabaseURL               string
	RedisURL                  string
	ProjectionHydrateInterval time.Duration
}

// Load reads .env (if present) and the process environment once.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from an arbitrary lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	l := loader{getenv: getenv}

	cfg := Config{
		Port:          l.String("PORT", "8080"),
		StageDir:      l.String("STAGE_DIR", "./static/uploads"),
		PublicBaseURL: strings.TrimRight(l.String("PUBLIC_BASE_URL", ""), "/"),
		CORSOrigins:   strings.Split(l.String("CORS_ORIGINS", "*"), ","),

		TrustProxyHeaders: l.Bool("TRUST_PROXY_HEADERS", false),

		AdminPassword:       l.String("ADMIN_PASSWORD", DefaultAdminPassword),
		AdminPasswordBcrypt: l.String("ADMIN_PASSWORD_BCRYPT", ""),

		MediaBackend:        strings.ToLower(l.String("MEDIA_BACKEND", MediaCloudinary)),
		CloudinaryCloudName: l.String("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    l.String("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: l.String("CLOUDINARY_API_SECRET", ""),
		MinioEndpoint:       l.String("MINIO_ENDPOINT", ""),
		MinioAccessKey:      l.String("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:      l.String("MINIO_SECRET_KEY", ""),
		MinioBucket:         l.String("MINIO_BUCKET", "storyreels"),
		MinioPublicURL:      strings.TrimRight(l.String("MINIO_PUBLIC_URL", ""), "/"),
		MinioSecure:         l.Bool("MINIO_SECURE", false),

		LogStoreURL:     l.String("LOG_STORE_URL", l.String("GOOGLE_SCRIPT_URL", "")),
		LogStoreTimeout: l.Duration("LOG_STORE_TIMEOUT", 5*time.Second),
		LogQueueSize:    l.Int("LOG_QUEUE_SIZE", 256),

		RemoteUploadTimeout: l.Duration("REMOTE_UPLOAD_TIMEOUT", 2*time.Minute),
		MaxUploadBytes:      int64(l.Int("MAX_UPLOAD_MB", 200)) << 20,

		StageRetention:       l.Duration("STAGE_RETENTION", 720*time.Hour),
		StageJanitorInterval: l.Duration("STAGE_JANITOR_INTERVAL", time.Hour),

		ProjectionBackend:         strings.ToLower(l.String("PROJECTION_BACKEND", ProjectionMemory)),
		DatabaseURL:               l.String("DATABASE_URL", ""),
		RedisURL:                  l.String("REDIS_URL", ""),
		ProjectionHydrateInterval: l.Duration("PROJECTION_HYDRATE_INTERVAL", 30*time.Second),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.MediaBackend {
	case MediaCloudinary, MediaNone:
	case MediaMinio:
		if c.MinioEndpoint == "" {
			return fmt.Errorf("config: MINIO_ENDPOINT is required for media backend %q", c.MediaBackend)
		}
	default:
		return fmt.Errorf("config: unknown MEDIA_BACKEND %q", c.MediaBackend)
	}

	switch c.ProjectionBackend {
	case ProjectionMemory:
	case ProjectionPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required for projection backend %q", c.ProjectionBackend)
		}
	case ProjectionRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("config: REDIS_URL is required for projection backend %q", c.ProjectionBackend)
		}
	default:
		return fmt.Errorf("config: unknown PROJECTION_BACKEND %q", c.ProjectionBackend)
	}

	if c.AdminPassword == "" && c.AdminPasswordBcrypt == "" {
		return fmt.Errorf("config: ADMIN_PASSWORD must not be empty")
	}
	return nil
}

type loader struct {
	getenv func(string) string
}

func (l loader) String(key, def string) string {
	if val := strings.TrimSpace(l.getenv(key)); val != "" {
		return val
	}
	return def
}

func (l loader) Int(key string, def int) int {
	if val := l.getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

// Duration accepts Go duration strings ("90s", "2h") or plain seconds.
func (l loader) Duration(key string, def time.Duration) time.Duration {
	val := l.getenv(key)
	if val == "" {
		return def
	}
	if parsed, err := time.ParseDuration(val); err == nil {
		return parsed
	}
	if secs, err := strconv.ParseFloat(val, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return def
}

func (l loader) Bool(key string, def bool) bool {
	if val := l.getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return def
}

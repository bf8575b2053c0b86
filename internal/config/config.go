package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName          string
	AppVersion       string
	Environment      string
	HTTPAddr         string
	PublicBaseURL    string
	AuthCookieSecure bool
	ConfigDir        string

	// AdminEmail is promoted to ACTIVE/ADMIN on first sign-in and is never
	// blocked by account status.
	AdminEmail string

	Telemetry TelemetryConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	GoogleClientID     string
	GoogleClientSecret string

	RateLimit   RateLimitConfig
	Archive     ArchiveConfig
	Scheduler   SchedulerConfig
	MetricsPush MetricsPushConfig
}

// TelemetryConfig drives logging, tracing and OTLP metrics.
type TelemetryConfig struct {
	LogLevel      string
	LogFormat     string
	OtelEnabled   bool
	OTLPEndpoint  string
	OTLPProtocol  string
	SamplingRatio float64
}

type RateLimitConfig struct {
	Enabled        bool
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	LoginPerMinute int
	APIPerMinute   int
	Burst          int
}

// ArchiveConfig points at an S3 compatible bucket where generated invoice
// PDFs are copied. Disabled when Endpoint is empty.
type ArchiveConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	UseSSL     bool
	PresignTTL time.Duration
}

func (a ArchiveConfig) Enabled() bool {
	return strings.TrimSpace(a.Endpoint) != "" && strings.TrimSpace(a.Bucket) != ""
}

type SchedulerConfig struct {
	Enabled          bool
	Interval         time.Duration
	JobTimeout       time.Duration
	SessionRetention time.Duration
}

// MetricsPushConfig sends scheduler job metrics to a Pushgateway or a
// remote_write endpoint after each run. Disabled when Exporter is empty.
type MetricsPushConfig struct {
	Exporter  string
	Endpoint  string
	AuthToken string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	authCookieSecure := environment == "production"
	if !authCookieSecure {
		authCookieSecure = getenvBool("AUTH_COOKIE_SECURE", false)
	}

	cfg := Config{
		AppName:            getenv("APP_SERVICE", "timesheet"),
		AppVersion:         getenv("APP_VERSION", "0.1.0"),
		Environment:        environment,
		HTTPAddr:           getenv("HTTP_ADDR", ":8080"),
		PublicBaseURL:      strings.TrimRight(strings.TrimSpace(getenv("PUBLIC_BASE_URL", "")), "/"),
		AuthCookieSecure:   authCookieSecure,
		ConfigDir:          strings.TrimSpace(getenv("CONFIG_DIR", "")),
		AdminEmail:         strings.ToLower(strings.TrimSpace(getenv("ADMIN_EMAIL", ""))),
		DBType:             getenv("DATABASE_TYPE", "postgres"),
		DBHost:             getenv("DATABASE_HOST", "localhost"),
		DBPort:             getenv("DATABASE_PORT", "5432"),
		DBName:             getenv("DATABASE_NAME", "timesheet"),
		DBUser:             getenv("DATABASE_USER", "postgres"),
		DBPassword:         getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:          getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:      getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:      getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime:  getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime:  getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),
		GoogleClientID:     strings.TrimSpace(getenv("GOOGLE_CLIENT_ID", "")),
		GoogleClientSecret: strings.TrimSpace(getenv("GOOGLE_CLIENT_SECRET", "")),
		Telemetry: TelemetryConfig{
			LogLevel:      strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
			LogFormat:     strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
			OtelEnabled:   getenvBool("OTEL_ENABLED", true),
			OTLPEndpoint:  strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317"))),
			OTLPProtocol:  strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
			SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
			RedisPassword:  getenv("REDIS_PASSWORD", ""),
			RedisDB:        getenvInt("REDIS_DB", 0),
			LoginPerMinute: getenvInt("RATE_LIMIT_LOGIN_PER_MINUTE", 10),
			APIPerMinute:   getenvInt("RATE_LIMIT_API_PER_MINUTE", 120),
			Burst:          getenvInt("RATE_LIMIT_BURST", 20),
		},
		Archive: ArchiveConfig{
			Endpoint:   strings.TrimSpace(getenv("ARCHIVE_ENDPOINT", "")),
			AccessKey:  getenv("ARCHIVE_ACCESS_KEY", ""),
			SecretKey:  getenv("ARCHIVE_SECRET_KEY", ""),
			Bucket:     strings.TrimSpace(getenv("ARCHIVE_BUCKET", "")),
			UseSSL:     getenvBool("ARCHIVE_USE_SSL", true),
			PresignTTL: getenvDuration("ARCHIVE_PRESIGN_TTL", 15*time.Minute),
		},
		Scheduler: SchedulerConfig{
			Enabled:          getenvBool("SCHEDULER_ENABLED", true),
			Interval:         getenvDuration("SCHEDULER_INTERVAL", time.Hour),
			JobTimeout:       getenvDuration("SCHEDULER_JOB_TIMEOUT", 30*time.Second),
			SessionRetention: getenvDuration("SESSION_RETENTION", 7*24*time.Hour),
		},
		MetricsPush: MetricsPushConfig{
			Exporter:  strings.ToLower(strings.TrimSpace(getenv("METRICS_PUSH_EXPORTER", ""))),
			Endpoint:  strings.TrimSpace(getenv("METRICS_PUSH_ENDPOINT", "")),
			AuthToken: strings.TrimSpace(getenv("METRICS_PUSH_AUTH_TOKEN", "")),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

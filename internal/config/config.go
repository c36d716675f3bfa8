package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	// Timezone is the business timezone used for calendar arithmetic.
	Timezone string
	// AAATimezone is the zone the RADIUS server writes radacct wall-clock times in.
	AAATimezone string

	OTLPEndpoint string
	Telemetry    TelemetryConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBDSN             string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	AutoMigrate       bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	HTTPAddr   string
	AdminToken string

	CoA       CoAConfig
	Isolir    IsolirConfig
	Messaging MessagingConfig
	Reminder  ReminderConfig
	Scheduler SchedulerConfig
}

// TelemetryConfig carries the OTEL_* and LOG_* settings.
type TelemetryConfig struct {
	LogLevel        string
	LogFormat       string
	Enabled         bool
	TracesProtocol  string
	MetricsProtocol string
	SamplingRatio   float64
}

type CoAConfig struct {
	Port          int
	DefaultSecret string
	Timeout       time.Duration
}

type IsolirConfig struct {
	Group    string
	Priority int
}

type MessagingConfig struct {
	GatewayURL   string
	GatewayToken string
	Timeout      time.Duration
}

type ReminderConfig struct {
	DefaultEnabled bool
	Rate           int
	RateWindow     time.Duration
	DefaultHour    int
	DefaultOffsets []int
}

type SchedulerConfig struct {
	VoucherSpec   string
	IsolateSpec   string
	ReminderSpec  string
	RetentionSpec string
	JobTimeout    time.Duration
	Workers       int
	RunRetention  time.Duration
	EnabledJobs   []string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	timezone := getenv("APP_TIMEZONE", "Asia/Jakarta")

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "netbill"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		Timezone:     timezone,
		AAATimezone:  getenv("AAA_TIMEZONE", timezone),
		OTLPEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317")),
		Telemetry: TelemetryConfig{
			LogLevel:        strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
			LogFormat:       strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
			Enabled:         getenvBool("OTEL_ENABLED", false),
			TracesProtocol:  otlpProtocol("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL"),
			MetricsProtocol: otlpProtocol("OTEL_EXPORTER_OTLP_METRICS_PROTOCOL"),
			SamplingRatio:   getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},

		DBType:            getenv("DB_TYPE", "postgres"),
		DBHost:            getenv("DB_HOST", "localhost"),
		DBPort:            getenv("DB_PORT", "5432"),
		DBName:            getenv("DB_NAME", "netbill"),
		DBUser:            getenv("DB_USER", "postgres"),
		DBPassword:        getenv("DB_PASSWORD", ""),
		DBSSLMode:         getenv("DB_SSL_MODE", "disable"),
		DBDSN:             getenv("DB_DSN", "netbill.db"),
		DBMaxIdleConn:     getenvInt("DB_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DB_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DB_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DB_CONN_MAX_IDLE_TIME", 60),
		AutoMigrate:       getenvBool("AUTO_MIGRATE", false),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		HTTPAddr:   getenv("HTTP_ADDR", ":8080"),
		AdminToken: strings.TrimSpace(getenv("ADMIN_TOKEN", "")),

		CoA: CoAConfig{
			Port:          getenvInt("COA_PORT", 3799),
			DefaultSecret: getenv("COA_DEFAULT_SECRET", ""),
			Timeout:       getenvDuration("COA_TIMEOUT", 5*time.Second),
		},
		Isolir: IsolirConfig{
			Group:    getenv("ISOLIR_GROUP", "isolir"),
			Priority: getenvInt("ISOLIR_PRIORITY", 1),
		},
		Messaging: MessagingConfig{
			GatewayURL:   strings.TrimSpace(getenv("MESSAGING_GATEWAY_URL", "")),
			GatewayToken: strings.TrimSpace(getenv("MESSAGING_GATEWAY_TOKEN", "")),
			Timeout:      getenvDuration("MESSAGING_TIMEOUT", 10*time.Second),
		},
		Reminder: ReminderConfig{
			DefaultEnabled: getenvBool("REMINDER_DEFAULT_ENABLED", true),
			Rate:           getenvInt("REMINDER_RATE", 10),
			RateWindow:     getenvDuration("REMINDER_RATE_WINDOW", time.Minute),
			DefaultHour:    getenvInt("REMINDER_DEFAULT_HOUR", 9),
			DefaultOffsets: getenvInts("REMINDER_DEFAULT_OFFSETS", []int{-3, -1, 0}),
		},
		Scheduler: SchedulerConfig{
			VoucherSpec:   getenv("SCHEDULER_VOUCHER_SPEC", "@every 1m"),
			IsolateSpec:   getenv("SCHEDULER_ISOLATE_SPEC", "@every 1h"),
			ReminderSpec:  getenv("SCHEDULER_REMINDER_SPEC", "0 * * * *"),
			RetentionSpec: getenv("SCHEDULER_RETENTION_SPEC", "0 3 * * *"),
			JobTimeout:    getenvDuration("SCHEDULER_JOB_TIMEOUT", 10*time.Minute),
			Workers:       getenvInt("SCHEDULER_WORKERS", 1),
			RunRetention:  getenvDuration("SCHEDULER_RUN_RETENTION", 720*time.Hour),
			EnabledJobs:   parseList(getenv("SCHEDULER_ENABLED_JOBS", "")),
		},
	}

	return cfg
}

// Location resolves the business timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	return loadLocation(c.Timezone)
}

// AAALocation resolves the timezone of radacct wall-clock values.
func (c Config) AAALocation() *time.Location {
	if strings.TrimSpace(c.AAATimezone) == "" {
		return c.Location()
	}
	return loadLocation(c.AAATimezone)
}

func loadLocation(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("invalid timezone %q, using UTC: %v", name, err)
		return time.UTC
	}
	return loc
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

// otlpProtocol resolves a signal-specific protocol, then the shared one.
func otlpProtocol(signalKey string) string {
	return strings.ToLower(strings.TrimSpace(getenv(signalKey, getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))))
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("invalid duration for %s: %v", key, err)
		return def
	}
	return parsed
}

func getenvInts(key string, def []int) []int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	out := make([]int, 0)
	for _, part := range parseList(raw) {
		v, err := strconv.Atoi(part)
		if err != nil {
			log.Printf("ignoring invalid value %q in %s", part, key)
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

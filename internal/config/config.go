package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/match-aggregator/internal/platform/logging"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                     string
	ServiceName                string
	ServiceVersion             string
	HTTPAddr                   string
	ReadTimeout                time.Duration
	WriteTimeout               time.Duration
	ShutdownTimeout            time.Duration
	CORSAllowedOrigins         []string
	SwaggerEnabled             bool
	DBURL                      string
	DBDisablePreparedBinary    bool
	RedisURL                   string
	RedisKeyPrefix             string
	RedisCacheTTL              time.Duration
	StreamPrefix               string
	StreamMaxLen               int64
	CacheTTL                   time.Duration
	ListMode                   string
	AdapterTimeout             time.Duration
	FanOutMaxConcurrency       int
	HealthDegradedAfter        int
	HealthDownAfter            int
	HealthProbeInterval        time.Duration
	LiveRefreshEnabled         bool
	LiveRefreshInterval        time.Duration
	LiveRefreshOnStart         bool
	LiveRefreshWorkers         int
	LiveSports                 []string
	OpsToken                   string
	ProviderCatalogPath        string
	Providers                  ProviderCatalog
	ESPNBaseURL                string
	SportMonksBaseURL          string
	SportMonksToken            string
	BallDontLieBaseURL         string
	BallDontLieAPIKey          string
	ScorePageBaseURL           string
	PprofEnabled               bool
	PprofAddr                  string
	MetricsEnabled             bool
	UptraceEnabled             bool
	UptraceDSN                 string
	UptraceLogsEnabled         bool
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
	LogLevel                   logging.Level
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:             appEnv,
		ServiceName:        getEnv("APP_SERVICE_NAME", "match-aggregator"),
		ServiceVersion:     getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:           getEnv("APP_HTTP_ADDR", ":8080"),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		DBURL:              strings.TrimSpace(getEnv("DB_URL", "")),
		RedisURL:           strings.TrimSpace(getEnv("REDIS_URL", "")),
		RedisKeyPrefix:     getEnv("REDIS_KEY_PREFIX", "matches"),
		StreamPrefix:       getEnv("LIVE_STREAM_PREFIX", "matches.live"),
		OpsToken:           strings.TrimSpace(getEnv("OPS_TOKEN", "")),
		ESPNBaseURL:        getEnv("ESPN_BASE_URL", "https://site.api.espn.com/apis/site/v2/sports"),
		SportMonksBaseURL:  getEnv("SPORTMONKS_BASE_URL", "https://api.sportmonks.com/v3/football"),
		SportMonksToken:    strings.TrimSpace(getEnv("SPORTMONKS_TOKEN", "")),
		BallDontLieBaseURL: getEnv("BALLDONTLIE_BASE_URL", "https://api.balldontlie.io/v1"),
		BallDontLieAPIKey:  strings.TrimSpace(getEnv("BALLDONTLIE_API_KEY", "")),
		ScorePageBaseURL:   strings.TrimSpace(getEnv("SCOREPAGE_BASE_URL", "")),
		LogLevel:           logging.ParseLevel(getEnv("APP_LOG_LEVEL", "info")),
	}

	if cfg.ReadTimeout, err = getEnvAsDuration("APP_READ_TIMEOUT", "10s"); err != nil {
		return Config{}, err
	}
	if cfg.WriteTimeout, err = getEnvAsDuration("APP_WRITE_TIMEOUT", "30s"); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = getEnvAsDuration("APP_SHUTDOWN_TIMEOUT", "10s"); err != nil {
		return Config{}, err
	}

	swaggerDefault := appEnv != EnvProd
	if cfg.SwaggerEnabled, err = getEnvAsBool("SWAGGER_ENABLED", swaggerDefault); err != nil {
		return Config{}, err
	}

	if cfg.DBDisablePreparedBinary, err = getEnvAsBool("DB_DISABLE_PREPARED_BINARY_RESULT", true); err != nil {
		return Config{}, err
	}
	if cfg.RedisCacheTTL, err = getEnvAsDuration("REDIS_CACHE_TTL", "30s"); err != nil {
		return Config{}, err
	}
	streamMaxLen, err := getEnvAsInt("LIVE_STREAM_MAX_LEN", 10000)
	if err != nil {
		return Config{}, fmt.Errorf("parse LIVE_STREAM_MAX_LEN: %w", err)
	}
	if streamMaxLen <= 0 {
		return Config{}, fmt.Errorf("LIVE_STREAM_MAX_LEN must be > 0")
	}
	cfg.StreamMaxLen = int64(streamMaxLen)

	if cfg.CacheTTL, err = getEnvAsDuration("CACHE_TTL", "20s"); err != nil {
		return Config{}, err
	}
	if cfg.AdapterTimeout, err = getEnvAsDuration("ADAPTER_TIMEOUT", "8s"); err != nil {
		return Config{}, err
	}

	cfg.ListMode = strings.ToLower(strings.TrimSpace(getEnv("LIST_MODE", "short_circuit")))
	if cfg.ListMode != "short_circuit" && cfg.ListMode != "fan_out" {
		return Config{}, fmt.Errorf("invalid LIST_MODE %q: valid values are short_circuit, fan_out", cfg.ListMode)
	}
	// 0 lets every candidate adapter run at once.
	if cfg.FanOutMaxConcurrency, err = getEnvAsInt("FAN_OUT_MAX_CONCURRENCY", 0); err != nil {
		return Config{}, fmt.Errorf("parse FAN_OUT_MAX_CONCURRENCY: %w", err)
	}
	if cfg.FanOutMaxConcurrency < 0 {
		return Config{}, fmt.Errorf("FAN_OUT_MAX_CONCURRENCY must be >= 0")
	}

	if cfg.HealthDegradedAfter, err = getEnvAsInt("HEALTH_DEGRADED_AFTER", 3); err != nil {
		return Config{}, fmt.Errorf("parse HEALTH_DEGRADED_AFTER: %w", err)
	}
	if cfg.HealthDegradedAfter < 1 {
		return Config{}, fmt.Errorf("HEALTH_DEGRADED_AFTER must be >= 1")
	}
	if cfg.HealthDownAfter, err = getEnvAsInt("HEALTH_DOWN_AFTER", 6); err != nil {
		return Config{}, fmt.Errorf("parse HEALTH_DOWN_AFTER: %w", err)
	}
	if cfg.HealthDownAfter <= cfg.HealthDegradedAfter {
		return Config{}, fmt.Errorf("HEALTH_DOWN_AFTER must be > HEALTH_DEGRADED_AFTER")
	}
	if cfg.HealthProbeInterval, err = getEnvAsDuration("HEALTH_PROBE_INTERVAL", "1m"); err != nil {
		return Config{}, err
	}

	if cfg.LiveRefreshEnabled, err = getEnvAsBool("LIVE_REFRESH_ENABLED", true); err != nil {
		return Config{}, err
	}
	if cfg.LiveRefreshInterval, err = getEnvAsDuration("LIVE_REFRESH_INTERVAL", "45s"); err != nil {
		return Config{}, err
	}
	if cfg.LiveRefreshOnStart, err = getEnvAsBool("LIVE_REFRESH_ON_START", true); err != nil {
		return Config{}, err
	}
	if cfg.LiveRefreshWorkers, err = getEnvAsInt("LIVE_REFRESH_WORKERS", 4); err != nil {
		return Config{}, fmt.Errorf("parse LIVE_REFRESH_WORKERS: %w", err)
	}
	if cfg.LiveRefreshWorkers < 1 {
		return Config{}, fmt.Errorf("LIVE_REFRESH_WORKERS must be >= 1")
	}
	cfg.LiveSports = splitCSV(strings.ToUpper(getEnv("LIVE_SPORTS", "FOOTBALL,BASKETBALL")))

	cfg.ProviderCatalogPath = strings.TrimSpace(getEnv("PROVIDER_CATALOG_PATH", ""))
	if cfg.ProviderCatalogPath != "" {
		catalog, err := LoadProviderCatalog(cfg.ProviderCatalogPath)
		if err != nil {
			return Config{}, err
		}
		cfg.Providers = catalog
	}

	if cfg.PprofEnabled, err = getEnvAsBool("PPROF_ENABLED", false); err != nil {
		return Config{}, err
	}
	cfg.PprofAddr = strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if cfg.MetricsEnabled, err = getEnvAsBool("METRICS_ENABLED", true); err != nil {
		return Config{}, err
	}

	if cfg.UptraceEnabled, err = getEnvAsBool("UPTRACE_ENABLED", false); err != nil {
		return Config{}, err
	}
	cfg.UptraceDSN = strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if cfg.UptraceDSN == "" {
		cfg.UptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if cfg.UptraceEnabled && cfg.UptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	if cfg.UptraceLogsEnabled, err = getEnvAsBool("UPTRACE_LOGS_ENABLED", false); err != nil {
		return Config{}, err
	}

	if cfg.PyroscopeEnabled, err = getEnvAsBool("PYROSCOPE_ENABLED", false); err != nil {
		return Config{}, err
	}
	cfg.PyroscopeServerAddress = strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if cfg.PyroscopeEnabled && cfg.PyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	cfg.PyroscopeAuthToken = getEnv("PYROSCOPE_AUTH_TOKEN", "")
	cfg.PyroscopeBasicAuthUser = getEnv("PYROSCOPE_BASIC_AUTH_USER", "")
	cfg.PyroscopeBasicAuthPassword = getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")
	if cfg.PyroscopeUploadRate, err = getEnvAsDuration("PYROSCOPE_UPLOAD_RATE", "15s"); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// lookupEnv treats unset and blank variables alike.
func lookupEnv(key string) (string, bool) {
	value := strings.TrimSpace(os.Getenv(key))
	return value, value != ""
}

func getEnv(key, fallback string) string {
	if value, ok := lookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value, ok := lookupEnv(key)
	if !ok {
		return fallback, nil
	}
	return strconv.Atoi(value)
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	value, ok := lookupEnv(key)
	if !ok {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}

// getEnvAsDuration rejects non-positive durations.
func getEnvAsDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, fallback))
	switch {
	case err != nil:
		return 0, fmt.Errorf("parse %s: %w", key, err)
	case d <= 0:
		return 0, fmt.Errorf("%s must be > 0", key)
	}
	return d, nil
}

func splitCSV(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseUptraceDSNFromOTLPHeaders picks uptrace-dsn out of a
// "k1=v1,k2=v2" OTLP header list.
func parseUptraceDSNFromOTLPHeaders(raw string) string {
	for _, item := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(item, "=")
		if ok && strings.EqualFold(strings.TrimSpace(key), "uptrace-dsn") {
			return strings.Trim(strings.TrimSpace(value), `"'`)
		}
	}
	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

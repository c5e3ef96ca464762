package config

import (
	"os"
	"strconv"
)

type Config struct {
	APIPort  string
	LogLevel string

	TemplateDir      string
	TemplateManifest string

	MaxBodyBytes int64

	MetricsEnabled bool

	APIRateLimitRPS   float64
	APIRateLimitBurst int

	HTTPShutdownTimeoutSeconds int

	BatchPushgatewayURL string
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("PORT", "3000"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		TemplateDir:      mustEnv("TEMPLATE_DIR", "./templates"),
		TemplateManifest: mustEnv("TEMPLATE_MANIFEST", "p190A.yaml"),

		MaxBodyBytes: int64(mustEnvInt("MAX_BODY_BYTES", 10<<20)),

		MetricsEnabled: mustEnvBool("METRICS_ENABLED", true),

		APIRateLimitRPS:   mustEnvFloat("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst: mustEnvInt("API_RATE_LIMIT_BURST", 10),

		HTTPShutdownTimeoutSeconds: mustEnvInt("HTTP_SHUTDOWN_TIMEOUT_SECONDS", 10),

		BatchPushgatewayURL: mustEnv("BATCH_PUSHGATEWAY_URL", ""),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

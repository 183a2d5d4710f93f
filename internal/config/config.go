package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTable    string

	WebhookSecret    string
	SubEncryptionKey string

	Correlation Correlation

	LemonSqueezy LemonSqueezy

	GoogleClientID string

	PayloadArchiveBucket string // empty disables raw payload archiving
	AlertTopicARN        string // empty disables ops alerts

	AllowedOrigins []string // CORS allowed origins
	RateLimitRPS   float64
	RateLimitBurst int
}

// Correlation tunes how webhooks are matched to checkout-time records.
type Correlation struct {
	PollIntervals   []time.Duration
	MaxReads        int
	FreshnessWindow time.Duration
	TempRecordTTL   time.Duration
}

// LemonSqueezy holds the payment provider API settings.
type LemonSqueezy struct {
	APIURL      string
	APIKey      string
	StoreID     string
	RedirectURL string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:  getEnv("PORT", "3000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTable:    getEnv("DYNAMO_TABLE", "speech-gen-ai"),

		WebhookSecret:    getEnv("LEMON_SQUEEZY_WEBHOOK_SIGNATURE", ""),
		SubEncryptionKey: getEnv("SUB_ENCRYPTION_KEY", ""),

		Correlation: Correlation{
			PollIntervals:   getEnvDurations("CORRELATION_POLL_INTERVALS", []time.Duration{10 * time.Second, 20 * time.Second}),
			MaxReads:        getEnvInt("CORRELATION_MAX_READS", 2),
			FreshnessWindow: getEnvDuration("PROFILE_UPDATE_FRESHNESS", 10*time.Minute),
			TempRecordTTL:   getEnvDuration("TEMP_RECORD_TTL", 15*time.Minute),
		},

		LemonSqueezy: LemonSqueezy{
			APIURL:      getEnv("LEMON_SQUEEZY_API_URL", "https://api.lemonsqueezy.com"),
			APIKey:      getEnv("LEMON_SQUEEZY_API_KEY", ""),
			StoreID:     getEnv("LEMON_SQUEEZY_STORE_ID", ""),
			RedirectURL: getEnv("LEMON_SQUEEZY_REDIRECT_URL", ""),
		},

		GoogleClientID: getEnv("GOOGLE_CLIENT_ID", ""),

		PayloadArchiveBucket: getEnv("PAYLOAD_ARCHIVE_BUCKET", ""),
		AlertTopicARN:        getEnv("ALERT_TOPIC_ARN", ""),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvDurations parses a comma-separated list such as "10s,20s". Any
// unparsable element discards the whole value.
func getEnvDurations(key string, fallback []time.Duration) []time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []time.Duration
	for _, part := range strings.Split(v, ",") {
		d, err := time.ParseDuration(strings.TrimSpace(part))
		if err != nil {
			return fallback
		}
		out = append(out, d)
	}
	return out
}

package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port              int           `envconfig:"PORT" default:"8080"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL       string        `envconfig:"DATABASE_URL" required:"true"`
	DBConnectAttempts uint          `envconfig:"DB_CONNECT_ATTEMPTS" default:"5"`
	RedisURL          string        `envconfig:"REDIS_URL" default:""`
	RedisConnAttempts uint          `envconfig:"REDIS_CONNECT_ATTEMPTS" default:"5"`
	JWTSecret         string        `envconfig:"JWT_SECRET" required:"true"`
	JWTIssuer         string        `envconfig:"JWT_ISSUER" default:"creatorhub"`
	Version           string        `envconfig:"VERSION" default:"dev"`
	BcryptCost        int           `envconfig:"BCRYPT_COST" default:"12"`
	RulesetCacheTTL   time.Duration `envconfig:"RULESET_CACHE_TTL" default:"5m"`
	TenantCacheTTL    time.Duration `envconfig:"TENANT_CACHE_TTL" default:"30s"`
	LogQueueSize      int           `envconfig:"LOG_QUEUE_SIZE" default:"1024"`
	RetentionSchedule string        `envconfig:"RETENTION_SCHEDULE" default:"0 3 * * *"`
	RetentionDays     int           `envconfig:"RETENTION_DAYS" default:"90"`
	CheckRateLimit    string        `envconfig:"CHECK_RATE_LIMIT" default:"120-M"`
	WebhookTimeout    time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"5s"`
	WebhookAttempts   uint          `envconfig:"WEBHOOK_ATTEMPTS" default:"3"`
	WebhookRetryDelay time.Duration `envconfig:"WEBHOOK_RETRY_DELAY" default:"1s"`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

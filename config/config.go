package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Observ   ObservabilityConfig
	Business BusinessConfig
}

type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	Env             string        `envconfig:"ENV" default:"development"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	RateLimitRPS    float64       `envconfig:"RATE_LIMIT_RPS" default:"50"`
	RateLimitBurst  int           `envconfig:"RATE_LIMIT_BURST" default:"100"`
	AdminToken      string        `envconfig:"ADMIN_TOKEN"`
}

type DatabaseConfig struct {
	Driver string `envconfig:"DB_DRIVER" default:"sqlite"`
	URL    string `envconfig:"DATABASE_URL" default:":memory:"`
}

type RedisConfig struct {
	Enabled  bool          `envconfig:"REDIS_ENABLED" default:"false"`
	Addr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	LockTTL  time.Duration `envconfig:"LOCK_TTL" default:"5s"`
}

type KafkaConfig struct {
	Enabled       bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	Brokers       []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	TopicLedger   string   `envconfig:"KAFKA_TOPIC_LEDGER" default:"ledger-events"`
	ConsumerGroup string   `envconfig:"KAFKA_CONSUMER_GROUP" default:"ledger-audit-group"`
}

type ObservabilityConfig struct {
	JaegerEndpoint string `envconfig:"JAEGER_ENDPOINT"`
}

type BusinessConfig struct {
	AllowNegativeStock bool `envconfig:"ALLOW_NEGATIVE_STOCK" default:"false"`
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	log.Printf("Config loaded: env=%s, port=%s, db=%s", cfg.Server.Env, cfg.Server.Port, cfg.Database.Driver)
	return &cfg, nil
}

package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"autonote-audio"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	SpeechmaticsAPIKey   string `envconfig:"SPEECHMATICS_API_KEY"`
	SpeechmaticsURL      string `envconfig:"SPEECHMATICS_URL"`
	SpeechmaticsLanguage string `envconfig:"SPEECHMATICS_LANGUAGE" default:"en"`

	TranscribePollInterval time.Duration `envconfig:"TRANSCRIBE_POLL_INTERVAL" default:"2s"`
	TranscribeMaxAttempts  int           `envconfig:"TRANSCRIBE_MAX_ATTEMPTS" default:"150"`

	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY"`
	SummaryModel   string `envconfig:"SUMMARY_MODEL"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL"`

	EmbeddingWorkerInterval time.Duration `envconfig:"EMBEDDING_WORKER_INTERVAL" default:"10s"`

	SentryDSN         string `envconfig:"SENTRY_DSN"`
	SentryEnvironment string `envconfig:"SENTRY_ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("AUTONOTE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasSpeechmatics() bool {
	return c.SpeechmaticsAPIKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

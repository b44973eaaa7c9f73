package config

import (
	"fmt"
	"math"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Extractor
	ProviderType       string        `envconfig:"PROVIDER_TYPE" default:"deepface"`
	DeepFaceURL        string        `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	DeepFaceModel      string        `envconfig:"DEEPFACE_MODEL" default:"Dlib"`
	DeepFaceDetector   string        `envconfig:"DEEPFACE_DETECTOR" default:"opencv"`
	DeepFaceTimeout    time.Duration `envconfig:"DEEPFACE_TIMEOUT" default:"30s"`
	DeepFaceRetryCount int           `envconfig:"DEEPFACE_RETRY_COUNT" default:"2"`

	// Local cache
	EncodingsDir string `envconfig:"ENCODINGS_DIR" default:"encodings"`

	// Object storage
	StorageBackend   string `envconfig:"STORAGE_BACKEND" default:"s3"`
	StorageBucket    string `envconfig:"STORAGE_BUCKET" required:"true"`
	StorageEndpoint  string `envconfig:"STORAGE_ENDPOINT"`
	StorageAccessKey string `envconfig:"STORAGE_ACCESS_KEY"`
	StorageSecretKey string `envconfig:"STORAGE_SECRET_KEY"`
	StorageUseSSL    bool   `envconfig:"STORAGE_USE_SSL" default:"true"`
	AWSRegion        string `envconfig:"AWS_REGION" default:"us-east-1"`
	PublicBaseURL    string `envconfig:"PUBLIC_BASE_URL"`

	// Remote mirror
	MirrorBackend string `envconfig:"MIRROR_BACKEND" default:"blob"`
	DatabaseURL   string `envconfig:"DATABASE_URL"`

	// Matching
	MatchTolerance  float64 `envconfig:"MATCH_TOLERANCE" default:"0.55"`
	MatchMaxResults int     `envconfig:"MATCH_MAX_RESULTS" default:"500"`
	MatchRateLimit  float64 `envconfig:"MATCH_RATE_LIMIT" default:"0"`

	// Corpus builder
	BuildConcurrency int           `envconfig:"BUILD_CONCURRENCY" default:"4"`
	ExtractRateLimit float64       `envconfig:"EXTRACT_RATE_LIMIT" default:"0"`
	FetchTimeout     time.Duration `envconfig:"FETCH_TIMEOUT" default:"20s"`
	MirrorTimeout    time.Duration `envconfig:"MIRROR_TIMEOUT" default:"20s"`
	CorpusMaxImages  int           `envconfig:"CORPUS_MAX_IMAGES" default:"500"`

	// Events
	Events          []string      `envconfig:"EVENTS"`
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"5m"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects combinations envconfig cannot express with tags.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case "s3", "minio":
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q (supported: s3, minio)", c.StorageBackend)
	}

	if c.StorageBackend == "minio" && c.StorageEndpoint == "" {
		return fmt.Errorf("STORAGE_ENDPOINT is required for the minio backend")
	}

	switch c.MirrorBackend {
	case "blob":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when MIRROR_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unknown MIRROR_BACKEND %q (supported: blob, postgres)", c.MirrorBackend)
	}

	if !(c.MatchTolerance > 0) || math.IsInf(c.MatchTolerance, 0) {
		return fmt.Errorf("MATCH_TOLERANCE must be a finite positive number, got %v", c.MatchTolerance)
	}
	if c.MatchMaxResults < 0 {
		return fmt.Errorf("MATCH_MAX_RESULTS must not be negative")
	}
	if c.BuildConcurrency < 1 {
		return fmt.Errorf("BUILD_CONCURRENCY must be at least 1")
	}
	if c.FetchTimeout <= 0 || c.MirrorTimeout <= 0 || c.DeepFaceTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.EncodingsDir == "" {
		return fmt.Errorf("ENCODINGS_DIR must not be empty")
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

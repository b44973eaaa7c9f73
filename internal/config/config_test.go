package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*Config) bool
	}{
		{
			name: "loads with all required vars",
			envVars: map[string]string{
				"ENV":               "production",
				"STORAGE_BUCKET":    "photos",
				"MATCH_TOLERANCE":   "0.6",
				"FETCH_TIMEOUT":     "5s",
				"EVENTS":            "event_A,event_B",
				"BUILD_CONCURRENCY": "8",
			},
			wantErr: false,
			check: func(c *Config) bool {
				return c.Environment == "production" &&
					c.StorageBucket == "photos" &&
					c.MatchTolerance == 0.6 &&
					c.FetchTimeout == 5*time.Second &&
					len(c.Events) == 2 && c.Events[1] == "event_B" &&
					c.BuildConcurrency == 8
			},
		},
		{
			name: "uses defaults when optional vars missing",
			envVars: map[string]string{
				"STORAGE_BUCKET": "photos",
			},
			wantErr: false,
			check: func(c *Config) bool {
				return c.Environment == "development" &&
					c.ProviderType == "deepface" &&
					c.DeepFaceModel == "Dlib" &&
					c.MatchTolerance == 0.55 &&
					c.MatchMaxResults == 500 &&
					c.CorpusMaxImages == 500 &&
					c.FetchTimeout == 20*time.Second &&
					c.MirrorTimeout == 20*time.Second &&
					c.StorageBackend == "s3" &&
					c.MirrorBackend == "blob" &&
					c.EncodingsDir == "encodings"
			},
		},
		{
			name:    "fails when STORAGE_BUCKET missing",
			envVars: map[string]string{},
			wantErr: true,
		},
		{
			name: "fails when postgres mirror has no DATABASE_URL",
			envVars: map[string]string{
				"STORAGE_BUCKET": "photos",
				"MIRROR_BACKEND": "postgres",
			},
			wantErr: true,
		},
		{
			name: "accepts postgres mirror with DATABASE_URL",
			envVars: map[string]string{
				"STORAGE_BUCKET": "photos",
				"MIRROR_BACKEND": "postgres",
				"DATABASE_URL":   "postgres://localhost/facefind",
			},
			check: func(c *Config) bool {
				return c.MirrorBackend == "postgres"
			},
		},
		{
			name: "fails on minio without endpoint",
			envVars: map[string]string{
				"STORAGE_BUCKET":  "photos",
				"STORAGE_BACKEND": "minio",
			},
			wantErr: true,
		},
		{
			name: "fails on non-positive tolerance",
			envVars: map[string]string{
				"STORAGE_BUCKET":  "photos",
				"MATCH_TOLERANCE": "0",
			},
			wantErr: true,
		},
		{
			name: "fails on NaN tolerance",
			envVars: map[string]string{
				"STORAGE_BUCKET":  "photos",
				"MATCH_TOLERANCE": "NaN",
			},
			wantErr: true,
		},
		{
			name: "fails on infinite tolerance",
			envVars: map[string]string{
				"STORAGE_BUCKET":  "photos",
				"MATCH_TOLERANCE": "+Inf",
			},
			wantErr: true,
		},
		{
			name: "fails on unknown mirror backend",
			envVars: map[string]string{
				"STORAGE_BUCKET": "photos",
				"MIRROR_BACKEND": "redis",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			// Set test environment variables
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("Load() unexpected error: %v", err)
				return
			}

			if tt.check != nil && !tt.check(cfg) {
				t.Errorf("Load() config check failed, got: %+v", cfg)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"development", "development", true},
		{"production", "production", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Environment: tt.env}
			if got := c.IsDevelopment(); got != tt.want {
				t.Errorf("IsDevelopment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"production", "production", true},
		{"development", "development", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Environment: tt.env}
			if got := c.IsProduction(); got != tt.want {
				t.Errorf("IsProduction() = %v, want %v", got, tt.want)
			}
		})
	}
}

package face

import (
	"fmt"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/facefind/internal/config"
	"github.com/saturnino-fabrica-de-software/facefind/internal/provider"
	"github.com/saturnino-fabrica-de-software/facefind/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/facefind/internal/provider/mock"
)

// ProviderType defines supported embedding extractor types
type ProviderType string

const (
	// ProviderTypeDeepFace calls a DeepFace API serving a 128-d model
	ProviderTypeDeepFace ProviderType = "deepface"
	// ProviderTypeMock hashes image bytes, for dev/test
	ProviderTypeMock ProviderType = "mock"
)

// NewExtractor creates an Extractor based on configuration
//
// Environment variables:
//   - PROVIDER_TYPE: "deepface" or "mock" (default: "deepface")
//   - DEEPFACE_URL, DEEPFACE_MODEL, DEEPFACE_DETECTOR
//   - DEEPFACE_TIMEOUT, DEEPFACE_RETRY_COUNT
func NewExtractor(cfg *config.Config, logger *slog.Logger) (provider.Extractor, error) {
	switch ProviderType(cfg.ProviderType) {
	case ProviderTypeDeepFace, "":
		return createDeepFaceProvider(cfg, logger), nil

	case ProviderTypeMock:
		return mock.New(), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: %s, %s)",
			cfg.ProviderType, ProviderTypeDeepFace, ProviderTypeMock)
	}
}

// createDeepFaceProvider fills unset fields from deepface.DefaultConfig
func createDeepFaceProvider(cfg *config.Config, logger *slog.Logger) provider.Extractor {
	dfConfig := deepface.DefaultConfig()

	if cfg.DeepFaceURL != "" {
		dfConfig.BaseURL = cfg.DeepFaceURL
	}
	if cfg.DeepFaceModel != "" {
		dfConfig.Model = cfg.DeepFaceModel
	}
	if cfg.DeepFaceDetector != "" {
		dfConfig.Detector = cfg.DeepFaceDetector
	}
	if cfg.DeepFaceTimeout > 0 {
		dfConfig.Timeout = cfg.DeepFaceTimeout
	}
	if cfg.DeepFaceRetryCount >= 0 {
		dfConfig.RetryCount = cfg.DeepFaceRetryCount
	}

	return deepface.NewProvider(dfConfig, logger)
}

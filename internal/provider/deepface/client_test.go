package deepface

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(url string) Config {
	config := DefaultConfig()
	config.BaseURL = url
	config.RetryCount = 0
	config.BackoffBase = 10 * time.Millisecond
	return config
}

func TestClient_Represent(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse interface{}
		serverStatus   int
		wantErr        bool
		wantErrContain string
		validateResp   func(*testing.T, *RepresentResponse)
	}{
		{
			name: "successful response with single face",
			serverResponse: RepresentResponse{
				Results: []RepresentResult{
					{
						Embedding:      make([]float64, 128),
						FacialArea:     FacialArea{X: 10, Y: 20, W: 100, H: 100},
						FaceConfidence: 0.97,
					},
				},
			},
			serverStatus: http.StatusOK,
			validateResp: func(t *testing.T, resp *RepresentResponse) {
				require.NotNil(t, resp)
				assert.Len(t, resp.Results, 1)
				assert.Len(t, resp.Results[0].Embedding, 128)
				assert.Equal(t, 10, resp.Results[0].FacialArea.X)
				assert.Equal(t, 100, resp.Results[0].FacialArea.H)
				assert.InDelta(t, 0.97, resp.Results[0].FaceConfidence, 1e-9)
			},
		},
		{
			name: "successful response with multiple faces",
			serverResponse: RepresentResponse{
				Results: []RepresentResult{
					{Embedding: make([]float64, 128)},
					{Embedding: make([]float64, 128)},
				},
			},
			serverStatus: http.StatusOK,
			validateResp: func(t *testing.T, resp *RepresentResponse) {
				require.NotNil(t, resp)
				assert.Len(t, resp.Results, 2)
			},
		},
		{
			name:           "server error 500",
			serverResponse: map[string]string{"error": "internal server error"},
			serverStatus:   http.StatusInternalServerError,
			wantErr:        true,
			wantErrContain: "status 500",
		},
		{
			name:           "bad request 400",
			serverResponse: map[string]string{"error": "Face could not be detected in numpy array."},
			serverStatus:   http.StatusBadRequest,
			wantErr:        true,
			wantErrContain: "status 400",
		},
		{
			name:           "service unavailable 503",
			serverResponse: map[string]string{"error": "service temporarily unavailable"},
			serverStatus:   http.StatusServiceUnavailable,
			wantErr:        true,
			wantErrContain: "deepface service unavailable",
		},
		{
			name:           "invalid json response",
			serverResponse: "not a valid json",
			serverStatus:   http.StatusOK,
			wantErr:        true,
			wantErrContain: "invalid response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/represent", r.URL.Path)
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var req RepresentRequest
				err := json.NewDecoder(r.Body).Decode(&req)
				require.NoError(t, err)

				assert.NotEmpty(t, req.Img)
				assert.Equal(t, "Dlib", req.ModelName)
				assert.Equal(t, "opencv", req.DetectorBackend)
				assert.True(t, req.EnforceDetection)

				w.WriteHeader(tt.serverStatus)
				if str, ok := tt.serverResponse.(string); ok {
					_, _ = w.Write([]byte(str))
				} else {
					_ = json.NewEncoder(w).Encode(tt.serverResponse)
				}
			}))
			defer server.Close()

			client := NewClient(testConfig(server.URL))
			resp, err := client.Represent(context.Background(), "data:image/jpeg;base64,dGVzdA==")

			if tt.wantErr {
				require.Error(t, err)
				if tt.wantErrContain != "" {
					assert.Contains(t, err.Error(), tt.wantErrContain)
				}
				return
			}

			require.NoError(t, err)
			if tt.validateResp != nil {
				tt.validateResp(t, resp)
			}
		})
	}
}

func TestClient_RetryOnFailure(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(RepresentResponse{Results: []RepresentResult{}})
	}))
	defer server.Close()

	config := testConfig(server.URL)
	config.RetryCount = 3

	resp, err := NewClient(config).Represent(context.Background(), "x")

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, int32(3), attempts.Load(), "expected exactly 3 attempts")
}

func TestClient_RetryExhaustion(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	config := testConfig(server.URL)
	config.RetryCount = 2

	_, err := NewClient(config).Represent(context.Background(), "x")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeepFaceUnavailable)
	assert.Equal(t, int32(3), attempts.Load(), "expected initial attempt + 2 retries")
}

func TestClient_NoRetryOnClientError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Face could not be detected"}`))
	}))
	defer server.Close()

	config := testConfig(server.URL)
	config.RetryCount = 3

	_, err := NewClient(config).Represent(context.Background(), "x")

	require.Error(t, err)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.NoFace())
	assert.Equal(t, int32(1), attempts.Load())
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(testConfig(server.URL)).Represent(ctx, "x")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	config := testConfig(server.URL)
	config.Timeout = 50 * time.Millisecond

	_, err := NewClient(config).Represent(context.Background(), "x")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeepFaceUnavailable)
}

func TestCalculateBackoff(t *testing.T) {
	base := 100 * time.Millisecond

	assert.Equal(t, base, calculateBackoff(base, 0))
	assert.Equal(t, base, calculateBackoff(base, 1))
	assert.Equal(t, 2*base, calculateBackoff(base, 2))
	assert.Equal(t, 4*base, calculateBackoff(base, 3))
	assert.Equal(t, maxBackoff, calculateBackoff(10*time.Second, 6))
}

func TestNewClient(t *testing.T) {
	config := Config{
		BaseURL:    "http://localhost:5005",
		Timeout:    10 * time.Second,
		Model:      "Dlib",
		Detector:   "opencv",
		RetryCount: 3,
	}

	client := NewClient(config)

	require.NotNil(t, client)
	assert.Equal(t, config.Timeout, client.httpClient.Timeout)
	assert.Equal(t, time.Second, client.config.BackoffBase)
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "http://localhost:5005", config.BaseURL)
	assert.Equal(t, 30*time.Second, config.Timeout)
	assert.Equal(t, "Dlib", config.Model)
	assert.Equal(t, "opencv", config.Detector)
	assert.Equal(t, 2, config.RetryCount)
}

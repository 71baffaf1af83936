package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/snipdex/internal/domain"
	"github.com/kailas-cloud/snipdex/internal/metrics"
)

// DefaultBaseURL points at a local Ollama server, which speaks the OpenAI embeddings API.
const DefaultBaseURL = "http://localhost:11434/v1"

// Embedder is an embedding runtime using an OpenAI-compatible API served on the local machine.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	runtime    string
	logger     *zap.Logger
}

// Config holds the embedding runtime settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Runtime    string
	Logger     *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding runtime.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	if clientCfg.BaseURL == "" {
		clientCfg.BaseURL = DefaultBaseURL
	}

	runtime := cfg.Runtime
	if runtime == "" {
		runtime = "openai"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		runtime:    runtime,
		logger:     logger,
	}
}

// Init verifies the server is reachable and serves the configured model.
// Any failure is reported as domain.ErrEmbedderUnavailable.
func (e *Embedder) Init(ctx context.Context) error {
	models, err := e.client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w: %w", domain.ErrEmbedderUnavailable, err)
	}
	// Some servers return an empty list; only reject when the list is authoritative.
	if len(models.Models) == 0 {
		return nil
	}
	for _, m := range models.Models {
		if m.ID == string(e.model) || m.ID == string(e.model)+":latest" {
			return nil
		}
	}
	return fmt.Errorf("model %q not served by runtime: %w", e.model, domain.ErrEmbedderUnavailable)
}

// Embed implements domain.Embedder. Returns the vector and usage with transport-level metrics.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()

	resp, err := e.client.CreateEmbeddings(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.runtime, string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.runtime, string(e.model), "api_error").Inc()
		return domain.EmbeddingResult{}, parseAPIError(err)
	}

	if len(resp.Data) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.runtime, string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.runtime, string(e.model), "empty_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingFailed)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.runtime, string(e.model), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.runtime, string(e.model)).Observe(duration.Seconds())

	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrEmbeddingFailed.
func parseAPIError(err error) error {
	wrap := domain.ErrEmbeddingFailed

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("embedding API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("embedding API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("embedding request failed: %w", wrap)
}

// extractDetail pulls "detail" (FastAPI servers) or "error" (Ollama) out of a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if parsed.Detail != "" {
		return parsed.Detail
	}
	return parsed.Error
}

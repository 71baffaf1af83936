package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/snipdex/internal/domain"
)

// ErrorKind classifies a failed worker response.
type ErrorKind string

// Worker error kinds.
const (
	KindNone         ErrorKind = ""
	KindInvalidInput ErrorKind = "invalid_input"
	KindUnavailable  ErrorKind = "unavailable"
	KindFailed       ErrorKind = "failed"
)

// Request is the message sent across the embedding boundary.
type Request struct {
	Text string `json:"text"`
}

// Response is the message returned across the embedding boundary.
// Exactly one of Vector (OK=true) or Error (OK=false) is meaningful.
type Response struct {
	OK     bool      `json:"ok"`
	Vector []float32 `json:"vector,omitempty"`
	Error  string    `json:"error,omitempty"`
	Kind   ErrorKind `json:"kind,omitempty"`
}

// Worker runs the embedding runtime behind a request/response boundary.
// Handle never panics and never returns a Go error.
type Worker struct {
	embedder domain.Embedder
	logger   *zap.Logger
}

// NewWorker creates a worker around an embedder.
func NewWorker(e domain.Embedder, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{embedder: e, logger: logger}
}

// Handle validates the request and computes its vector.
func (w *Worker) Handle(ctx context.Context, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Embedding runtime panicked", zap.Any("panic", r))
			resp = Response{Error: fmt.Sprintf("embedding runtime panic: %v", r), Kind: KindFailed}
		}
	}()

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return Response{Error: "text is required", Kind: KindInvalidInput}
	}

	res, err := w.embedder.Embed(ctx, text)
	if err != nil {
		return Response{Error: err.Error(), Kind: classify(err)}
	}
	return Response{OK: true, Vector: res.Embedding}
}

func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, domain.ErrEmbedderUnavailable):
		return KindUnavailable
	default:
		return KindFailed
	}
}

// Err converts a failed response back into a typed error. Returns nil when OK.
func (r Response) Err() error {
	if r.OK {
		return nil
	}
	var sentinel error
	switch r.Kind {
	case KindInvalidInput:
		sentinel = domain.ErrInvalidInput
	case KindUnavailable:
		sentinel = domain.ErrEmbedderUnavailable
	default:
		sentinel = domain.ErrEmbeddingFailed
	}
	if r.Error == "" {
		return sentinel
	}
	return fmt.Errorf("%s: %w", r.Error, sentinel)
}

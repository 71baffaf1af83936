package chi

import (
	"time"

	"github.com/kailas-cloud/snipdex/internal/domain/item"
	"github.com/kailas-cloud/snipdex/internal/domain/search/result"
	searchuc "github.com/kailas-cloud/snipdex/internal/usecase/search"
)

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	CodeBadRequest          ErrorCode = "bad_request"
	CodeUnauthorized        ErrorCode = "unauthorized"
	CodeValidationFailed    ErrorCode = "validation_failed"
	CodeNotFound            ErrorCode = "not_found"
	CodeDuplicateInTarget   ErrorCode = "duplicate_in_target"
	CodeInvalidVector       ErrorCode = "invalid_vector"
	CodeMissingEmbedding    ErrorCode = "missing_embedding"
	CodeEmbedderUnavailable ErrorCode = "embedder_unavailable"
	CodeEmbeddingFailed     ErrorCode = "embedding_failed"
	CodeQuotaExceeded       ErrorCode = "quota_exceeded"
	CodeStorageFailure      ErrorCode = "storage_failure"
	CodeInternalError       ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// CreateSnippetRequest is the body of POST /snippets.
type CreateSnippetRequest struct {
	Text      string  `json:"text"`
	Domain    string  `json:"domain"`
	SourceURL *string `json:"source_url,omitempty"`
	Title     *string `json:"title,omitempty"`
}

// MoveSnippetRequest is the body of POST /snippets/{id}/move.
type MoveSnippetRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Snippet is the wire form of an item.
type Snippet struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Domain    string    `json:"domain"`
	CreatedAt time.Time `json:"created_at"`
	SourceURL string    `json:"source_url,omitempty"`
	Title     string    `json:"title,omitempty"`
}

// CreateSnippetResponse reports whether the embedding was computed at capture time.
type CreateSnippetResponse struct {
	Snippet
	Embedded bool `json:"embedded"`
}

// SnippetListResponse is the body of GET /snippets.
type SnippetListResponse struct {
	Items []Snippet `json:"items"`
	Total int       `json:"total"`
}

// ClearResponse is the body of DELETE /snippets/{domain}.
type ClearResponse struct {
	Domain  string `json:"domain"`
	Removed int    `json:"removed"`
}

// SearchResultItem is one ranked snippet.
type SearchResultItem struct {
	Snippet
	Score float64 `json:"score"`
}

// SearchResponse is the body of GET /search and GET /search/state.
type SearchResponse struct {
	Token      uint64             `json:"token"`
	State      string             `json:"state"`
	Query      string             `json:"query,omitempty"`
	Superseded bool               `json:"superseded,omitempty"`
	Status     string             `json:"status,omitempty"`
	Results    []SearchResultItem `json:"results"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func snippetToDTO(it *item.Item) Snippet {
	return Snippet{
		ID:        it.ID(),
		Text:      it.Text(),
		Domain:    string(it.Domain()),
		CreatedAt: it.CreatedAt(),
		SourceURL: it.SourceURL(),
		Title:     it.Title(),
	}
}

func snippetsToDTO(items []item.Item) []Snippet {
	out := make([]Snippet, len(items))
	for i := range items {
		out[i] = snippetToDTO(&items[i])
	}
	return out
}

func resultsToDTO(results []result.Result) []SearchResultItem {
	out := make([]SearchResultItem, len(results))
	for i := range results {
		it := results[i].Item()
		out[i] = SearchResultItem{Snippet: snippetToDTO(&it), Score: results[i].Score()}
	}
	return out
}

func searchResponseToDTO(resp *searchuc.Response) SearchResponse {
	return SearchResponse{
		Token:      resp.Token,
		State:      string(resp.State),
		Superseded: resp.Superseded,
		Results:    resultsToDTO(resp.Results),
	}
}

func snapshotToDTO(s *searchuc.Snapshot) SearchResponse {
	return SearchResponse{
		Token:   s.Token,
		State:   string(s.State),
		Query:   s.Query,
		Status:  s.Status,
		Results: resultsToDTO(s.Results),
	}
}

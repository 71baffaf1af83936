package domain

// Storage keys shared by every storage area.
const (
	// SnippetsKey holds the ordered item sequence of one domain.
	SnippetsKey = "snippets"
	// EmbeddingsKey holds the id to vector mapping shared across domains.
	EmbeddingsKey = "snippet_embeddings_v1"
)

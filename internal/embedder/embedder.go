// Package embedder wraps text embedding as a narrow capability: text in,
// a fixed dimension float vector out. The core depends only on the
// Embedder interface; the CLI wires in whichever implementation the
// configuration names.
package embedder

import (
	"context"
	"fmt"
)

// Embedder produces fixed-dimension embeddings for decision text. The
// delta engine never calls it for unchanged decisions.
type Embedder interface {
	// Embed returns a single embedding vector of Dimension() length.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds many texts in one round trip. Preferred over
	// repeated Embed calls whenever more than one decision changed.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension is the fixed length of every vector this Embedder returns.
	Dimension() int

	// Fingerprint identifies the provider, model, and dimension in a
	// single comparable string, persisted by the store so that a later
	// sync with a different embedder can be detected and refused.
	Fingerprint() string
}

// Config configures construction of a provider-backed Embedder.
type Config struct {
	// Provider selects the implementation: "openai" or "hash".
	Provider string

	// BaseURL overrides the provider's default API endpoint, primarily
	// for pointing at a local or mock server in tests.
	BaseURL string

	// Model is the provider-specific model identifier.
	Model string

	// Dimension is the fixed vector length the model produces.
	Dimension int

	// APIKeyRef is either a literal API key or a keyring://service/key
	// URI resolved via internal/secrets before the client is built.
	APIKeyRef string
}

// fingerprint renders the standard "provider:model:dimension" fingerprint
// string shared by every Embedder implementation.
func fingerprint(provider, model string, dimension int) string {
	return fmt.Sprintf("%s:%s:%d", provider, model, dimension)
}

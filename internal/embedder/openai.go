package embedder

import (
	"context"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	helixerr "github.com/kevinmichaelchen/helix-tools/pkg/errors"
)

// defaultDimension is the vector length used when none is configured; the
// OpenAI embedder then requests vectors of this many dimensions.
const defaultDimension = 384

// OpenAIEmbedder embeds decision text using the OpenAI Embeddings API.
type OpenAIEmbedder struct {
	client    openaisdk.Client
	model     string
	dimension int
}

// NewOpenAI constructs an OpenAIEmbedder. apiKey must already be resolved
// (keyring:// URIs are not understood at this layer).
func NewOpenAI(cfg Config, apiKey string) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, helixerr.New(helixerr.CodeEmbedderInvalidConfig, "openai embedder requires an api key")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	dim := cfg.Dimension
	if dim == 0 {
		dim = defaultDimension
	}

	return &OpenAIEmbedder{
		client:    openaisdk.NewClient(opts...),
		model:     model,
		dimension: dim,
	}, nil
}

func (e *OpenAIEmbedder) Dimension() int { return e.dimension }

func (e *OpenAIEmbedder) Fingerprint() string { return fingerprint("openai", e.model, e.dimension) }

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Model: e.model,
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Dimensions: openaisdk.Int(int64(e.dimension)),
	})
	if err != nil {
		return nil, helixerr.Wrap(err, helixerr.CodeEmbedderRequestFailure, "openai embeddings request failed")
	}

	if len(resp.Data) != len(texts) {
		return nil, helixerr.New(helixerr.CodeEmbedderRequestFailure, "openai returned a mismatched number of embeddings")
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}

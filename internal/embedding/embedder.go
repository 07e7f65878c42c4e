package embedding

import "context"

// Embedder produces raw embedding vectors for text. Implementations wrap
// a concrete model provider; the Generator owns lifecycle and output
// validation on top of this interface.
type Embedder interface {
	// Embed generates one vector per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

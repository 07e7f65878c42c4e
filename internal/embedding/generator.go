package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"
)

// ErrUnavailable indicates the embedding model could not be loaded or
// produced unusable output. Callers decide whether that is fatal: the
// search path surfaces it, the write path downgrades it to a warning.
var ErrUnavailable = errors.New("embedding: unavailable")

var errMissingFactory = errors.New("embedding: factory is required")

// Factory creates the shared Embedder instance. Construction may be slow
// (model load) and may fail; the Generator coordinates both cases.
type Factory func(ctx context.Context) (Embedder, error)

// GeneratorConfig configures the shared embedding generator.
type GeneratorConfig struct {
	Factory   Factory
	Dimension int
	Logger    *zap.Logger
}

// Generator owns the lazily-initialized shared Embedder. The first Embed
// call triggers initialization; concurrent callers wait on the same
// attempt instead of racing to load a second instance. A failed attempt
// is not latched: the next call retries from scratch.
type Generator struct {
	factory   Factory
	dimension int
	logger    *zap.Logger

	mu       sync.Mutex
	embedder Embedder
	attempt  *initAttempt
}

type initAttempt struct {
	done     chan struct{}
	embedder Embedder
	err      error
}

// NewGenerator constructs a Generator.
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if cfg.Factory == nil {
		return nil, errMissingFactory
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("embedding: dimension must be positive")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		factory:   cfg.Factory,
		dimension: cfg.Dimension,
		logger:    logger,
	}, nil
}

// Dimension returns the configured embedding dimension.
func (g *Generator) Dimension() int {
	return g.dimension
}

// Embed converts text into a unit-norm vector of the configured
// dimension. Any failure, from model load to malformed model output, is
// reported as ErrUnavailable.
func (g *Generator) Embed(ctx context.Context, text string) (Vector, error) {
	embedder, err := g.instance(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	vectors, err := embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 vector, got %d", ErrUnavailable, len(vectors))
	}
	raw := Vector(vectors[0])
	if len(raw) != g.dimension {
		return nil, fmt.Errorf("%w: model returned %d dimensions, expected %d", ErrUnavailable, len(raw), g.dimension)
	}
	for _, component := range raw {
		if math.IsNaN(float64(component)) || math.IsInf(float64(component), 0) {
			return nil, fmt.Errorf("%w: model returned non-finite component", ErrUnavailable)
		}
	}

	normalized, err := normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return normalized, nil
}

// instance returns the shared embedder, initializing it on first use.
func (g *Generator) instance(ctx context.Context) (Embedder, error) {
	g.mu.Lock()
	if g.embedder != nil {
		embedder := g.embedder
		g.mu.Unlock()
		return embedder, nil
	}

	attempt := g.attempt
	if attempt == nil {
		attempt = &initAttempt{done: make(chan struct{})}
		g.attempt = attempt
		go g.initialize(attempt)
	}
	g.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-attempt.done:
	}

	if attempt.err != nil {
		return nil, attempt.err
	}
	return attempt.embedder, nil
}

func (g *Generator) initialize(attempt *initAttempt) {
	g.logger.Info("initializing embedding model")
	embedder, err := g.factory(context.Background())

	g.mu.Lock()
	if err != nil {
		attempt.err = err
		g.logger.Warn("embedding model initialization failed", zap.Error(err))
	} else {
		attempt.embedder = embedder
		g.embedder = embedder
		g.logger.Info("embedding model initialized", zap.String("model", embedder.ModelName()))
	}
	// Clearing the attempt lets the next call retry after a failure.
	g.attempt = nil
	g.mu.Unlock()

	close(attempt.done)
}

// Package intel defines the external text-intelligence and embedding
// provider contracts and their Cohere-backed implementation.
package intel

import "context"

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TextIntelligence scores and annotates content. Context is an
// optional tenant brand-voice hint passed through to the prompts.
type TextIntelligence interface {
	Score(ctx context.Context, title, body, voice string) (float64, error)
	Summarize(ctx context.Context, title, body, voice string) (string, error)
	Categorize(ctx context.Context, title, body, voice string) ([]string, error)
}

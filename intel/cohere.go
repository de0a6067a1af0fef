package intel

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

const requestTimeout = 60 * time.Second

// Cohere implements Embedder and TextIntelligence against the Cohere
// API (github.com/cohere-ai/cohere-go/v2).
type Cohere struct {
	client     *cohereclient.Client
	embedModel string
	chatModel  string
}

// CohereConfig holds API credentials and model selection.
type CohereConfig struct {
	APIKey     string
	EmbedModel string // default embed-english-v3.0
	ChatModel  string // default command-r-08-2024
}

// NewCohere creates a Cohere client. The HTTP client forces HTTP/1.1
// to avoid HTTP/2 protocol errors against the Cohere edge.
func NewCohere(cfg CohereConfig) (*Cohere, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("cohere api key is required")
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = "embed-english-v3.0"
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "command-r-08-2024"
	}

	httpClient := &http.Client{
		Timeout: requestTimeout,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(cfg.APIKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	return &Cohere{client: client, embedModel: cfg.EmbedModel, chatModel: cfg.ChatModel}, nil
}

// Embed returns one embedding vector for the given text.
func (c *Cohere) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("cannot embed empty text")
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.client.V2.Embed(ctx, &cohere.V2EmbedRequest{
		Texts:          []string{text},
		Model:          c.embedModel,
		InputType:      cohere.EmbedInputTypeSearchDocument,
		EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
	})
	if err != nil {
		return nil, fmt.Errorf("cohere embed error: %w", err)
	}
	if resp == nil || resp.Embeddings == nil || resp.Embeddings.Float == nil {
		return nil, errors.New("cohere embed returned no float embeddings")
	}
	floats := resp.Embeddings.Float
	if len(floats) != 1 {
		return nil, errors.New("embedding count mismatch")
	}

	vec := make([]float32, len(floats[0]))
	for i, v := range floats[0] {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Score asks the chat model for a 0-10 relevance score.
func (c *Cohere) Score(ctx context.Context, title, body, voice string) (float64, error) {
	prompt := fmt.Sprintf(
		"Rate the relevance of the following article from 0 to 10.%s\n"+
			"Respond with a single number only.\n\nTitle: %s\n\n%s",
		voicePreamble(voice), title, truncate(body, 6000))

	text, err := c.chat(ctx, prompt)
	if err != nil {
		return 0, err
	}
	return ParseScore(text)
}

// Summarize asks the chat model for a short summary.
func (c *Cohere) Summarize(ctx context.Context, title, body, voice string) (string, error) {
	prompt := fmt.Sprintf(
		"Summarize the following article in 2-3 sentences.%s\n\nTitle: %s\n\n%s",
		voicePreamble(voice), title, truncate(body, 6000))

	text, err := c.chat(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Categorize asks the chat model for category labels.
func (c *Cohere) Categorize(ctx context.Context, title, body, voice string) ([]string, error) {
	prompt := fmt.Sprintf(
		"Assign up to 3 short category labels to the following article.%s\n"+
			"Respond with a comma-separated list only.\n\nTitle: %s\n\n%s",
		voicePreamble(voice), title, truncate(body, 6000))

	text, err := c.chat(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return ParseCategories(text), nil
}

func (c *Cohere) chat(ctx context.Context, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.client.Chat(ctx, &cohere.ChatRequest{
		Model:   &c.chatModel,
		Message: message,
	})
	if err != nil {
		return "", fmt.Errorf("cohere chat error: %w", err)
	}
	if resp == nil {
		return "", errors.New("cohere chat returned empty response")
	}
	return resp.Text, nil
}

func voicePreamble(voice string) string {
	voice = strings.TrimSpace(voice)
	if voice == "" {
		return ""
	}
	return " Audience context: " + voice + "."
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

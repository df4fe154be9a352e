package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mvporto/fii-rag/internal/core/domain"
	"github.com/mvporto/fii-rag/internal/infrastructure/resilience"
)

// Client wraps the OpenAI API behind the three oracle roles the pipeline
// needs: embedding, answer generation and metric scoring. Calls are guarded
// by a circuit breaker but never retried here.
type Client struct {
	api        *openai.Client
	genModel   string
	embedModel string
	breakers   *resilience.Breakers
}

type Config struct {
	APIKey     string
	BaseURL    string
	GenModel   string
	EmbedModel string
	Breakers   *resilience.Breakers
}

func New(cfg Config) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	breakers := cfg.Breakers
	if breakers == nil {
		breakers = resilience.New(resilience.DefaultConfig())
	}
	return &Client{
		api:        openai.NewClientWithConfig(apiCfg),
		genModel:   cfg.GenModel,
		embedModel: cfg.EmbedModel,
		breakers:   breakers,
	}
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var vectors [][]float32
	err := e.client.breakers.Execute(ctx, "embed", func(ctx context.Context) error {
		resp, err := e.client.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(e.client.embedModel),
			Input: texts,
		})
		if err != nil {
			return err
		}
		if len(resp.Data) != len(texts) {
			return fmt.Errorf("embedding count mismatch: %d/%d", len(resp.Data), len(texts))
		}
		vectors = make([][]float32, len(resp.Data))
		for _, item := range resp.Data {
			if item.Index < 0 || item.Index >= len(vectors) {
				return fmt.Errorf("embedding index %d out of range", item.Index)
			}
			vectors[item.Index] = item.Embedding
		}
		return nil
	}, classifyOracleError)
	if err != nil {
		return nil, wrapOracleError(domain.ErrEmbedding, "embed", err)
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, domain.WrapError(domain.ErrEmbedding, "embed query", errors.New("empty embedding result"))
	}
	return vectors[0], nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) GeneratePlain(ctx context.Context, question string) (string, error) {
	// The bare question, no grounding. This is the hallucination baseline.
	text, err := g.client.complete(ctx, "generate_plain", question, 0.7)
	if err != nil {
		return "", wrapOracleError(domain.ErrGeneration, "generate plain answer", err)
	}
	return text, nil
}

func (g *Generator) GenerateCited(ctx context.Context, question, contextBlock string) (string, error) {
	text, err := g.client.complete(ctx, "generate_cited", buildCitedPrompt(question, contextBlock), 0)
	if err != nil {
		return "", wrapOracleError(domain.ErrGeneration, "generate cited answer", err)
	}
	return text, nil
}

type Scorer struct {
	client *Client
}

func NewScorer(client *Client) *Scorer {
	return &Scorer{client: client}
}

func (s *Scorer) Score(ctx context.Context, prompt string) (float64, error) {
	text, err := s.client.complete(ctx, "score", prompt, 0)
	if err != nil {
		return 0, wrapOracleError(domain.ErrEvaluation, "score answer", err)
	}
	score, err := parseScore(text)
	if err != nil {
		return 0, domain.WrapError(domain.ErrEvaluation, "score answer", err)
	}
	return score, nil
}

func (c *Client) complete(ctx context.Context, operation, prompt string, temperature float32) (string, error) {
	var text string
	err := c.breakers.Execute(ctx, operation, func(ctx context.Context) error {
		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.genModel,
			Temperature: temperature,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("completion returned no choices")
		}
		text = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	}, classifyOracleError)
	if err != nil {
		return "", err
	}
	return text, nil
}

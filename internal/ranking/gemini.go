package ranking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/psysupport/psysupport-api/internal/models"
	"github.com/psysupport/psysupport-api/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when the configured model is empty or an OpenAI name
const DefaultGeminiModel = "gemini-1.5-flash"

// contentGenerator is the part of *genai.GenerativeModel the ranker uses
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiRanker ranks candidates with Google's Gemini models
type GeminiRanker struct {
	model  contentGenerator
	client *genai.Client
	name   string
}

// NewGeminiRanker connects to the Gemini API
func NewGeminiRanker(ctx context.Context, apiKey, model string) (*GeminiRanker, error) {
	if apiKey == "" {
		return nil, ErrNoCredentials
	}
	if model == "" || strings.HasPrefix(model, "gpt-") {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	gm := client.GenerativeModel(model)
	gm.SetTemperature(rankingTemperature)
	gm.SetMaxOutputTokens(rankingMaxTokens)
	gm.ResponseMIMEType = "application/json"
	gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}

	return &GeminiRanker{model: gm, client: client, name: model}, nil
}

// Close releases the underlying client
func (g *GeminiRanker) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Name returns the strategy label
func (g *GeminiRanker) Name() string {
	return StrategyGemini
}

// Rank implements Provider
func (g *GeminiRanker) Rank(ctx context.Context, q *models.Questionnaire, candidates []*models.PsychologistCandidate) ([]models.MatchResult, error) {
	start := time.Now()

	resp, err := g.model.GenerateContent(ctx, genai.Text(buildPrompt(q, candidates)))
	if err != nil {
		logger.LogAPICall("gemini", "generate_content", "error", time.Since(start).Seconds(), zap.Error(err))
		return nil, fmt.Errorf("gemini generate error: %w", err)
	}

	results, err := parseResults(responseText(resp))
	if err != nil {
		return nil, err
	}
	if err := requireKnown(results, candidates); err != nil {
		return nil, err
	}

	logger.LogAPICall("gemini", "generate_content", "success", time.Since(start).Seconds(),
		zap.String("model", g.name),
		zap.Int("results", len(results)))
	return results, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}

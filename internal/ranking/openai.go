package ranking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/psysupport/psysupport-api/internal/models"
	"github.com/psysupport/psysupport-api/pkg/httpclient"
	"github.com/psysupport/psysupport-api/pkg/logger"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIEndpoint is the chat completions URL used when none is configured
	DefaultOpenAIEndpoint = "https://api.openai.com/v1/chat/completions"
	// DefaultModel is used when no model is configured
	DefaultModel = "gpt-4o-mini"

	rankingTemperature = 0.3
	rankingMaxTokens   = 1000
	maxResponseBytes   = 1 << 20
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenAIRanker asks an OpenAI-compatible chat completions endpoint to rank
type OpenAIRanker struct {
	client   httpclient.Client
	endpoint string
	model    string
	apiKey   string
}

// NewOpenAIRanker creates a ranker. Empty endpoint and model use the defaults.
func NewOpenAIRanker(client httpclient.Client, endpoint, model, apiKey string) *OpenAIRanker {
	if endpoint == "" {
		endpoint = DefaultOpenAIEndpoint
	}
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIRanker{
		client:   client,
		endpoint: endpoint,
		model:    model,
		apiKey:   apiKey,
	}
}

// Name returns the strategy label
func (r *OpenAIRanker) Name() string {
	return StrategyOpenAI
}

// Rank implements Provider
func (r *OpenAIRanker) Rank(ctx context.Context, q *models.Questionnaire, candidates []*models.PsychologistCandidate) ([]models.MatchResult, error) {
	if r.apiKey == "" {
		return nil, ErrNoCredentials
	}

	start := time.Now()

	payload, err := json.Marshal(chatRequest{
		Model: r.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(q, candidates)},
		},
		Temperature: rankingTemperature,
		MaxTokens:   rankingMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode ranking request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create ranking request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		logger.LogAPICall("openai", "chat_completions", "error", time.Since(start).Seconds(), zap.Error(err))
		return nil, fmt.Errorf("ranking request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read ranking response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.LogAPICall("openai", "chat_completions", "error", time.Since(start).Seconds(),
			zap.Int("status_code", resp.StatusCode))
		return nil, fmt.Errorf("ranking provider returned status %d", resp.StatusCode)
	}

	var decoded chatResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode ranking response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	results, err := parseResults(decoded.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	if err := requireKnown(results, candidates); err != nil {
		return nil, err
	}

	logger.LogAPICall("openai", "chat_completions", "success", time.Since(start).Seconds(),
		zap.String("model", r.model),
		zap.Int("results", len(results)))
	return results, nil
}

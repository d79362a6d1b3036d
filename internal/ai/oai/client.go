// Package oai implements the ai.Generator interface on top of the
// OpenAI chat completions API.
package oai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/ashevtsov/jobsieve/internal/ai"
	"github.com/ashevtsov/jobsieve/internal/util"
)

const (
	defaultModel   = "gpt-5-mini"
	defaultTimeout = 120 * time.Second

	maxRetries  = 3
	baseBackoff = 2 * time.Second
	maxBackoff  = 32 * time.Second
)

var errMaxRetriesExceeded = errors.New("max retries exceeded")

var reasoningEfforts = map[ai.Effort]shared.ReasoningEffort{
	ai.EffortLow:    shared.ReasoningEffortLow,
	ai.EffortMedium: shared.ReasoningEffortMedium,
	ai.EffortHigh:   shared.ReasoningEffortHigh,
}

// Generator wraps the OpenAI client to provide simple prompt-based
// interactions with a configurable reasoning effort.
type Generator struct {
	client    openai.Client
	modelName string
	effort    ai.Effort
	timeout   time.Duration
}

// NewGenerator creates a new Generator for the OpenAI API.
func NewGenerator(apiKey, model string, effort ai.Effort) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if effort == "" {
		effort = ai.EffortLow
	}

	return &Generator{
		client:    openai.NewClient(option.WithAPIKey(apiKey)),
		modelName: model,
		effort:    effort,
		timeout:   defaultTimeout,
	}, nil
}

// GenerateContent sends the prompt to OpenAI and returns the completion
// text. Rate-limited calls are retried with exponential backoff.
func (g *Generator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if g == nil {
		return "", errors.New("openai generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.modelName),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		ReasoningEffort: reasoningEfforts[g.effort],
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * baseBackoff
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			if err := util.WaitFor(ctx, backoff); err != nil {
				return "", err
			}
		}

		completion, err := g.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				continue
			}
			return "", fmt.Errorf("openai api call failed: %w", err)
		}

		if len(completion.Choices) == 0 {
			return "", errors.New("openai api returned no choices")
		}

		content := strings.TrimSpace(completion.Choices[0].Message.Content)
		if content == "" {
			return "", errors.New("openai api returned empty response")
		}
		return content, nil
	}

	return "", fmt.Errorf("%w: %v", errMaxRetriesExceeded, lastErr)
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

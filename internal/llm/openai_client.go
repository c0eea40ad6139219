package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nbenliogludev/deskgpt/internal/action"
	"github.com/nbenliogludev/deskgpt/internal/config"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

var ErrMissingAPIKey = errors.New("OPENAI_API_KEY environment variable is required")

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type OpenAIClient struct {
	chat        chatCompleter
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	logger      zerolog.Logger
}

func NewOpenAIClient(cfg config.LLMConfig, logger zerolog.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return newClient(openai.NewClientWithConfig(oc), cfg, logger), nil
}

func newClient(chat chatCompleter, cfg config.LLMConfig, logger zerolog.Logger) *OpenAIClient {
	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIClient{
		chat:        chat,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		logger:      logger.With().Str("component", "llm").Logger(),
	}
}

// GenerateActions makes exactly one chat completion call. There is no retry;
// a failed call is reported to the user, who can rephrase.
func (c *OpenAIClient) GenerateActions(ctx context.Context, req Request) ([]action.Action, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.logger.Debug().
		Str("model", c.model).
		Str("url", req.CurrentURL).
		Int("history", len(req.History)).
		Msg("requesting actions")

	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage(req)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return nil, &ModelError{Op: OpRequest, Err: err}
	}

	if len(resp.Choices) == 0 {
		return nil, &ModelError{Op: OpEmpty, Err: errors.New("no response choices")}
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return nil, &ModelError{Op: OpEmpty, Err: errors.New("blank response content")}
	}

	actions, err := action.ParseList([]byte(content))
	if err != nil {
		c.logger.Debug().Str("content", content).Msg("undecodable model response")
		return nil, &ModelError{Op: OpDecode, Err: err}
	}

	c.logger.Info().
		Int("actions", len(actions)).
		Int("tokens", resp.Usage.TotalTokens).
		Msg("actions generated")
	return actions, nil
}

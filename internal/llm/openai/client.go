package openai

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/joseph-ayodele/refund-audit/internal/llm"
)

var (
	// ErrNoChoices is returned when the API answers without any choice.
	ErrNoChoices     = errors.New("no choices in openai response")
	ErrMissingAPIKey = errors.New("openai api key is not configured")
)

// Client implements llm.Completer with one image-plus-prompt chat completion
// per call. Retries are disabled; the extraction cascade owns the time budget.
type Client struct {
	cfg    Config
	client sdk.Client
	logger *slog.Logger
}

var _ llm.Completer = (*Client)(nil)

// NewClient fails with ErrMissingAPIKey when neither cfg nor the
// environment carries a key.
func NewClient(cfg Config, logger *slog.Logger, opts ...option.RequestOption) (*Client, error) {
	cfg = cfg.withDefaults()
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	options := append([]option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}, opts...)
	return &Client{
		cfg:    cfg,
		client: sdk.NewClient(options...),
		logger: logger,
	}, nil
}

func (c *Client) Complete(ctx context.Context, prompt, imageDataURL string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	parts := []sdk.ChatCompletionContentPartUnionParam{sdk.TextContentPart(prompt)}
	if imageDataURL != "" {
		parts = append(parts, sdk.ImageContentPart(sdk.ChatCompletionContentPartImageImageURLParam{
			URL: imageDataURL,
		}))
	}

	params := sdk.ChatCompletionNewParams{
		Messages:  []sdk.ChatCompletionMessageParamUnion{sdk.UserMessage(parts)},
		Model:     c.cfg.Model,
		MaxTokens: sdk.Int(int64(c.cfg.MaxTokens)),
		ResponseFormat: sdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
	if c.cfg.Temperature != 0 {
		params.Temperature = sdk.Float(float64(c.cfg.Temperature))
	}

	c.logger.Info("llm.openai.request",
		"req_id", rid, "model", c.cfg.Model, "max_tokens", c.cfg.MaxTokens,
		"has_image", imageDataURL != "")

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		c.logger.Error("llm.openai.http_error", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}
	if len(completion.Choices) == 0 {
		c.logger.Error("llm.openai.no_choices", "req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", ErrNoChoices
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	c.logger.Info("llm.openai.ok",
		"req_id", rid,
		"content_bytes", len(content),
		"prompt_tokens", completion.Usage.PromptTokens,
		"completion_tokens", completion.Usage.CompletionTokens,
		"elapsed_ms", time.Since(start).Milliseconds())
	return content, nil
}

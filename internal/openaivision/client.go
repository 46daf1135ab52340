// Package openaivision answers structured questions about images through an
// OpenAI-compatible chat completions endpoint.
package openaivision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"visionary-spaces/internal/model"
)

const defaultModel = "gpt-4o-mini"

var ErrEmptyResponse = errors.New("openai returned no choices")

type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

var _ model.Vision = (*Client)(nil)

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is empty")
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if baseURL := strings.TrimSpace(opts.BaseURL); baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}

	modelName := strings.TrimSpace(opts.Model)
	if modelName == "" {
		modelName = defaultModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  modelName,
		logger: logger,
	}, nil
}

// GenerateStructured sends the prompt and image as one multi-part user message
// and requests a JSON object answer. The schema is rendered into the prompt
// since json_object mode does not accept one.
func (c *Client) GenerateStructured(ctx context.Context, req model.StructuredRequest) ([]byte, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if req.Schema != nil {
		schemaJSON, err := json.Marshal(req.Schema)
		if err != nil {
			return nil, fmt.Errorf("marshal schema: %w", err)
		}
		prompt += "\n\nRespond with a JSON object matching this schema: " + string(schemaJSON)
	}

	parts := []openai.ChatMessagePart{
		{
			Type: openai.ChatMessagePartTypeText,
			Text: prompt,
		},
	}
	if !req.Image.IsZero() {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: req.Image.String(),
			},
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.logger.Debug("openai vision response", "model", c.model, "text_len", len(text))
	if text == "" {
		return nil, ErrEmptyResponse
	}
	return []byte(text), nil
}

package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"visionary-spaces/internal/imagedata"
	"visionary-spaces/internal/model"
)

const (
	defaultAnalysisModel = "gemini-2.5-flash"
	defaultImageModel    = "gemini-2.5-flash-image"
)

const systemInstruction = `You are an interior design assistant.
You analyze photos of rooms and produce realistic redesigns of the same space.
Keep the room geometry, windows and camera angle of the original photo.`

var ErrEmptyResponse = errors.New("gemini returned no candidates")

type Options struct {
	APIKey        string
	BaseURL       string
	APIVersion    string
	AnalysisModel string
	ImageModel    string
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

type Client struct {
	apiKey        string
	baseURL       string
	apiVersion    string
	analysisModel string
	imageModel    string
	httpClient    *http.Client
	logger        *slog.Logger
}

var (
	_ model.Vision   = (*Client)(nil)
	_ model.Renderer = (*Client)(nil)
)

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	analysisModel := strings.TrimSpace(opts.AnalysisModel)
	if analysisModel == "" {
		analysisModel = defaultAnalysisModel
	}
	imageModel := strings.TrimSpace(opts.ImageModel)
	if imageModel == "" {
		imageModel = defaultImageModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		apiKey:        opts.APIKey,
		baseURL:       baseURL,
		apiVersion:    apiVersion,
		analysisModel: analysisModel,
		imageModel:    imageModel,
		httpClient:    opts.HTTPClient,
		logger:        logger,
	}
}

// GenerateStructured asks the analysis model for a JSON answer about an image
// and returns the raw JSON text of the first candidate.
func (c *Client) GenerateStructured(ctx context.Context, req model.StructuredRequest) ([]byte, error) {
	payload := generateContentRequest{
		Contents:          []content{userContent(req.Image, req.Prompt)},
		SystemInstruction: &content{Role: "user", Parts: []part{{Text: systemInstruction}}},
		GenerationConfig: generationConfig{
			Temperature:      0.2,
			ResponseMimeType: "application/json",
			ResponseSchema:   toGeminiSchema(req.Schema),
		},
	}

	resp, err := c.generateContent(ctx, c.analysisModel, payload)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return nil, ErrEmptyResponse
	}
	return []byte(stripCodeFence(text)), nil
}

// GenerateImage sends the image and instruction to the image model with both
// TEXT and IMAGE response modalities.
func (c *Client) GenerateImage(ctx context.Context, req model.ImageRequest) (model.ImageResult, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return model.ImageResult{}, errors.New("prompt is empty")
	}

	payload := generateContentRequest{
		Contents:          []content{userContent(req.Image, prompt)},
		SystemInstruction: &content{Role: "user", Parts: []part{{Text: systemInstruction}}},
		GenerationConfig: generationConfig{
			Temperature:        0.7,
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}

	resp, err := c.generateContent(ctx, c.imageModel, payload)
	if errors.Is(err, ErrEmptyResponse) {
		// A blocked or empty candidate list is a content outcome, not a transport failure.
		c.logger.Warn("gemini image response without candidates", "err", err)
		return model.ImageResult{}, nil
	}
	if err != nil {
		return model.ImageResult{}, err
	}
	return model.ImageResult{Text: resp.Text, Images: resp.Images}, nil
}

func userContent(img imagedata.Payload, prompt string) content {
	var parts []part
	if !img.IsZero() {
		parts = append(parts, part{InlineData: &blob{Data: img.Data, MimeType: img.MimeType}})
	}
	parts = append(parts, part{Text: prompt})
	return content{Role: "user", Parts: parts}
}

type response struct {
	Text   string
	Images []imagedata.Payload
}

func (c *Client) generateContent(ctx context.Context, modelName string, payload generateContentRequest) (response, error) {
	if c.httpClient == nil {
		return response{}, errors.New("http client is nil")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return response{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, modelName)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return response{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return response{}, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return response{}, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		return response{}, fmt.Errorf("gemini API %s: %s", httpResp.Status, strings.TrimSpace(string(rawBody)))
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return response{}, fmt.Errorf("decode response: %w", err)
	}

	if len(decoded.Candidates) == 0 {
		if decoded.PromptFeedback != nil && decoded.PromptFeedback.BlockReason != "" {
			return response{}, fmt.Errorf("%w: blocked (%s)", ErrEmptyResponse, decoded.PromptFeedback.BlockReason)
		}
		return response{}, ErrEmptyResponse
	}

	text, images := extractParts(decoded)
	c.logger.Debug("gemini response",
		"model", modelName,
		"text_len", len(text),
		"images", len(images),
		"finish_reason", decoded.Candidates[0].FinishReason)

	return response{Text: text, Images: images}, nil
}

func extractParts(resp generateContentResponse) (string, []imagedata.Payload) {
	if len(resp.Candidates) == 0 {
		return "", nil
	}

	var textBuilder strings.Builder
	var images []imagedata.Payload

	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			textBuilder.WriteString(p.Text)
		}
		if p.InlineData != nil && p.InlineData.Data != "" && p.InlineData.MimeType != "" {
			images = append(images, imagedata.Payload{MimeType: p.InlineData.MimeType, Data: p.InlineData.Data})
		}
	}

	return textBuilder.String(), images
}

func toGeminiSchema(s *model.Schema) *model.Schema {
	if s == nil {
		return nil
	}
	out := &model.Schema{
		Type:        strings.ToUpper(s.Type),
		Description: s.Description,
		Items:       toGeminiSchema(s.Items),
		Enum:        s.Enum,
		Required:    s.Required,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*model.Schema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = toGeminiSchema(v)
		}
	}
	return out
}

// stripCodeFence removes a ```json fence some models wrap JSON answers in.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

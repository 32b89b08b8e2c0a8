package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	// Instruction is the task token the PaddleOCR-VL models expect.
	Instruction = "OCR:"
	MaxTokens   = 15000
	Temperature = 0.0
)

// ErrMissingContent means the response lacked choices[0].message.content.
var ErrMissingContent = errors.New("response has no choices[0].message.content")

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Client sends images to an OpenAI-compatible chat-completion endpoint.
type Client struct {
	cfg    Config
	client openai.Client
}

// New validates cfg and builds a client. Retries are disabled at the SDK
// level; callers own the retry policy.
func New(cfg Config, opts ...option.RequestOption) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	base := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		base = append(base, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{cfg: cfg, client: openai.NewClient(append(base, opts...)...)}, nil
}

// QueryVision sends one PNG image with the OCR instruction and returns
// choices[0].message.content verbatim.
func (c *Client) QueryVision(ctx context.Context, png []byte) (string, error) {
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
				openai.TextContentPart(Instruction),
			}),
		},
		Temperature: openai.Float(Temperature),
		MaxTokens:   openai.Int(MaxTokens),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrMissingContent
	}
	// A null content is an empty answer; an absent one is malformed.
	if resp.Choices[0].Message.JSON.Content.Raw() == "" {
		return "", ErrMissingContent
	}
	return resp.Choices[0].Message.Content, nil
}

// StatusError extracts the HTTP status and raw body from an API error.
func StatusError(err error) (code int, body string, ok bool) {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return 0, "", false
	}
	return apiErr.StatusCode, apiErr.RawJSON(), true
}

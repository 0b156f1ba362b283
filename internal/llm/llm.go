package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	log "log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Returned in place of an answer when the service sends back no choices.
const (
	NoTextResponse   = "No response available."
	NoVisionResponse = "No response from model."
)

var (
	ErrMissingAPIKey = errors.New("api key is not set")
	ErrImageNotFound = errors.New("image file not found")
)

// NewAPI builds an openai-go client for an OpenAI-compatible endpoint.
// Retries are disabled: every call reaches the service exactly once.
func NewAPI(baseURL, apiKey string, httpClient *http.Client) (openai.Client, error) {
	if apiKey == "" {
		return openai.Client{}, ErrMissingAPIKey
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return openai.NewClient(opts...), nil
}

type Client struct {
	api openai.Client
}

func New(api openai.Client) *Client {
	return &Client{api: api}
}

// Complete runs a two-turn exchange: systemPrompt as the system turn and
// query as the user turn.
func (c *Client) Complete(ctx context.Context, systemPrompt, query, model string) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(query),
		},
		Model: openai.ChatModel(model),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		log.Warn("No choices in chat response", "model", model)
		return NoTextResponse, nil
	}

	return resp.Choices[0].Message.Content, nil
}

// AnalyzeImage sends prompt and the image at imagePath as a single user
// turn. There is no system turn; any persona text must be part of prompt.
func (c *Client) AnalyzeImage(ctx context.Context, prompt, model, imagePath string) (string, error) {
	url, err := EncodeImage(imagePath)
	if err != nil {
		return "", err
	}

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: url,
				}),
			}),
		},
		Model: openai.ChatModel(model),
	})
	if err != nil {
		return "", fmt.Errorf("vision completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		log.Warn("No choices in vision response", "model", model)
		return NoVisionResponse, nil
	}

	return resp.Choices[0].Message.Content, nil
}

// EncodeImage reads path and returns it as a base64 data URL.
func EncodeImage(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrImageNotFound, path)
		}
		return "", fmt.Errorf("read image: %w", err)
	}

	return "data:" + imageMIME(path) + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}

func imageMIME(path string) string {
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	if !strings.HasPrefix(t, "image/") {
		return "image/jpeg"
	}
	return t
}

package openaicompat

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"modelgate-server-go/internal/domain/run"
	"modelgate-server-go/internal/platform/logging"
)

// Config describes an OpenAI-compatible chat upstream.
type Config struct {
	BaseURL string
	APIKey  string
}

// Client adapts an OpenAI-compatible chat endpoint to the model runner
// contract. It serves vision-language models; bounding-box models have no
// chat shape and belong to the REST runner.
type Client struct {
	client *openai.Client
	logger *logging.Logger
}

// New creates the client.
func New(cfg Config, logger *logging.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openaicompat: api key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Client{
		client: openai.NewClientWithConfig(clientConfig),
		logger: logger,
	}, nil
}

// Run translates the generic message-shaped input into a chat completion and
// returns the reply text under "response", matching the shape the detection
// heuristic unwraps.
func (c *Client) Run(ctx context.Context, model string, input any, options map[string]any) (*run.Result, error) {
	req := openai.ChatCompletionRequest{Model: model}

	payload, _ := input.(map[string]any)
	if payload == nil {
		return nil, fmt.Errorf("openaicompat: input must carry messages")
	}

	messages, err := chatMessages(payload)
	if err != nil {
		return nil, err
	}
	req.Messages = messages

	if temperature, ok := floatField(payload, "temperature"); ok {
		req.Temperature = float32(temperature)
	}
	if maxTokens, ok := floatField(payload, "max_tokens"); ok {
		req.MaxTokens = int(maxTokens)
	}
	if _, ok := payload["response_format"]; ok {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openaicompat: empty choices in reply")
	}

	return &run.Result{
		JSON:        map[string]any{"response": resp.Choices[0].Message.Content},
		ContentType: "application/json",
	}, nil
}

func chatMessages(payload map[string]any) ([]openai.ChatCompletionMessage, error) {
	rawMessages, ok := payload["messages"].([]any)
	if !ok || len(rawMessages) == 0 {
		return nil, fmt.Errorf("openaicompat: input must carry messages")
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(rawMessages))
	for _, raw := range rawMessages {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		role, _ := entry["role"].(string)
		if role == "" {
			role = openai.ChatMessageRoleUser
		}

		message := openai.ChatCompletionMessage{Role: role}
		switch content := entry["content"].(type) {
		case string:
			message.Content = content
		case []any:
			message.MultiContent = contentParts(content)
		}
		messages = append(messages, message)
	}
	return messages, nil
}

func contentParts(parts []any) []openai.ChatMessagePart {
	out := make([]openai.ChatMessagePart, 0, len(parts))
	for _, raw := range parts {
		part, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		switch part["type"] {
		case "text":
			text, _ := part["text"].(string)
			out = append(out, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: text,
			})
		case "image_url":
			urlMap, _ := part["image_url"].(map[string]any)
			url, _ := urlMap["url"].(string)
			out = append(out, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: url},
			})
		}
	}
	return out
}

func floatField(payload map[string]any, key string) (float64, bool) {
	switch v := payload[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

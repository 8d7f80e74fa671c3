package summarize

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures the chat completion client.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// OpenAI summarizes with a single chat completion: the prompt becomes the
// system message and the text the user message. The prompt is sent as is;
// template rendering happens in Chunked.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI returns a client for any OpenAI-compatible endpoint.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return &OpenAI{client: openai.NewClientWithConfig(oc), model: cfg.Model}
}

func (o *OpenAI) Summarize(ctx context.Context, req Request) (*Response, error) {
	prompt := strings.TrimSpace(req.Prompt)
	var msgs []openai.ChatCompletionMessage
	if prompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: prompt})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Text})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    msgs,
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("summarize: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("summarize: chat completion returned no choices")
	}
	return &Response{
		Text:   strings.TrimSpace(resp.Choices[0].Message.Content),
		Tokens: resp.Usage.TotalTokens,
	}, nil
}

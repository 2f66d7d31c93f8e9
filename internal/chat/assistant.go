package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// SystemPrompt frames every conversation.
const SystemPrompt = `You are a highly knowledgeable ISO certification expert and consultant, embedded in an application that helps business users understand ISO certifications.

Answer in a business-focused, clear and concise way, as if speaking to a business owner or manager. When a question concerns a particular standard, cover where relevant: a plain definition, the business benefits, the key requirements and implementation steps, how to get started, common challenges, and where to find further resources such as the ISO website, certification bodies or consultants.`

// Assistant produces the next assistant turn for a conversation.
type Assistant interface {
	Complete(ctx context.Context, turns []Turn) (string, error)
}

// OpenAIAssistant calls an OpenAI-compatible chat completion endpoint.
type OpenAIAssistant struct {
	client openai.Client
	model  string
}

func NewOpenAIAssistant(apiKey, baseURL, model string) *OpenAIAssistant {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIAssistant{client: openai.NewClient(opts...), model: model}
}

func (a *OpenAIAssistant) Complete(ctx context.Context, turns []Turn) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(t.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(t.Content))
		default:
			messages = append(messages, openai.UserMessage(t.Content))
		}
	}

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       a.model,
		Messages:    messages,
		Temperature: openai.Float(0.5),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

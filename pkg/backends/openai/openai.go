package openai

import (
	"context"
	"math"

	"github.com/go-go-golems/chatscript/pkg/backends"
	"github.com/go-go-golems/chatscript/pkg/conversation"
	"github.com/go-go-golems/chatscript/pkg/settings"
	"github.com/go-go-golems/chatscript/pkg/usage"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

// ChatCompleter is the part of the go-openai client the backend uses.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req go_openai.ChatCompletionRequest) (go_openai.ChatCompletionResponse, error)
}

// Backend talks to the OpenAI chat completions API. The API reports the
// size of the full prompt on every call, so accounting is cumulative.
type Backend struct {
	client ChatCompleter
	chat   *settings.ChatSettings
}

var _ backends.Backend = &Backend{}

func MakeClient(api *settings.APISettings, client *settings.ClientSettings) (*go_openai.Client, error) {
	apiKey, ok := api.APIKey(settings.ApiTypeOpenAI)
	if !ok {
		return nil, errors.Errorf("no API key for %s", settings.ApiTypeOpenAI)
	}
	config := go_openai.DefaultConfig(apiKey)
	if baseURL := api.BaseURL(settings.ApiTypeOpenAI); baseURL != "" {
		config.BaseURL = baseURL
	}
	if c := backends.HTTPClient(client); c != nil {
		config.HTTPClient = c
	}
	return go_openai.NewClientWithConfig(config), nil
}

func New(s *settings.Settings) (*Backend, error) {
	client, err := MakeClient(s.API, s.Client)
	if err != nil {
		return nil, err
	}
	return NewWithClient(client, s.Chat)
}

func NewWithClient(client ChatCompleter, chat *settings.ChatSettings) (*Backend, error) {
	if err := backends.CheckOptions(chat, backends.OptionTemperature, backends.OptionTopP); err != nil {
		return nil, err
	}
	return &Backend{client: client, chat: chat}, nil
}

func (b *Backend) Model() string {
	return b.chat.Model
}

func (b *Backend) Accounting() usage.Accounting {
	return usage.Cumulative
}

func (b *Backend) makeRequest(messages conversation.Conversation) go_openai.ChatCompletionRequest {
	req := go_openai.ChatCompletionRequest{
		Model:    b.chat.Model,
		Messages: make([]go_openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, go_openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Text,
		})
	}
	if b.chat.Temperature != nil {
		req.Temperature = explicitFloat32(*b.chat.Temperature)
	}
	if b.chat.TopP != nil {
		req.TopP = explicitFloat32(*b.chat.TopP)
	}
	if b.chat.MaxTokens != nil {
		req.MaxCompletionTokens = *b.chat.MaxTokens
	}
	return req
}

// explicitFloat32 keeps an explicit 0 on the wire: go-openai omits zero
// sampling values, so 0 is sent as the smallest non-zero float32.
func explicitFloat32(v float64) float32 {
	if v == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(v)
}

func (b *Backend) SendTurn(ctx context.Context, messages conversation.Conversation) (*backends.Reply, error) {
	req := b.makeRequest(messages)
	log.Debug().Str("model", req.Model).Int("messages", len(req.Messages)).Msg("openai chat completion")

	resp, err := b.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}

	return &backends.Reply{
		Content: resp.Choices[0].Message.Content,
		Usage: usage.Report{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

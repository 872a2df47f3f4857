package claude

import (
	"context"
	"strings"

	"github.com/go-go-golems/chatscript/pkg/backends"
	"github.com/go-go-golems/chatscript/pkg/conversation"
	"github.com/go-go-golems/chatscript/pkg/settings"
	"github.com/go-go-golems/chatscript/pkg/usage"
	"github.com/liushuangls/go-anthropic/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultMaxTokens is sent when no max-tokens is configured, the messages
// API requiring one.
const DefaultMaxTokens = 4096

type MessagesCreator interface {
	CreateMessages(ctx context.Context, req anthropic.MessagesRequest) (anthropic.MessagesResponse, error)
}

// Backend talks to the Anthropic messages API. input_tokens covers the whole
// request, so accounting is cumulative.
type Backend struct {
	client MessagesCreator
	chat   *settings.ChatSettings
}

var _ backends.Backend = &Backend{}

func MakeClient(api *settings.APISettings, client *settings.ClientSettings) (*anthropic.Client, error) {
	apiKey, ok := api.APIKey(settings.ApiTypeClaude)
	if !ok {
		return nil, errors.Errorf("no API key for %s", settings.ApiTypeClaude)
	}
	opts := []anthropic.ClientOption{}
	if baseURL := api.BaseURL(settings.ApiTypeClaude); baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	if c := backends.HTTPClient(client); c != nil {
		opts = append(opts, anthropic.WithHTTPClient(c))
	}
	return anthropic.NewClient(apiKey, opts...), nil
}

func New(s *settings.Settings) (*Backend, error) {
	client, err := MakeClient(s.API, s.Client)
	if err != nil {
		return nil, err
	}
	return NewWithClient(client, s.Chat)
}

func NewWithClient(client MessagesCreator, chat *settings.ChatSettings) (*Backend, error) {
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

func (b *Backend) makeRequest(messages conversation.Conversation) anthropic.MessagesRequest {
	req := anthropic.MessagesRequest{
		Model:       anthropic.Model(b.chat.Model),
		System:      messages.SystemPrompt(),
		MaxTokens:   DefaultMaxTokens,
		Temperature: backends.Float32Pointer(b.chat.Temperature),
		TopP:        backends.Float32Pointer(b.chat.TopP),
	}
	if b.chat.MaxTokens != nil {
		req.MaxTokens = *b.chat.MaxTokens
	}
	for _, m := range messages.WithoutSystem() {
		if m.Role == conversation.RoleAssistant {
			req.Messages = append(req.Messages, anthropic.NewAssistantTextMessage(m.Text))
		} else {
			req.Messages = append(req.Messages, anthropic.NewUserTextMessage(m.Text))
		}
	}
	return req
}

func (b *Backend) SendTurn(ctx context.Context, messages conversation.Conversation) (*backends.Reply, error) {
	req := b.makeRequest(messages)
	log.Debug().Str("model", b.chat.Model).Int("messages", len(req.Messages)).Msg("claude create messages")

	resp, err := b.client.CreateMessages(ctx, req)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, c := range resp.Content {
		if c.Type == anthropic.MessagesContentTypeText {
			sb.WriteString(c.GetText())
		}
	}

	return &backends.Reply{
		Content: sb.String(),
		Usage: usage.Report{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
		},
	}, nil
}

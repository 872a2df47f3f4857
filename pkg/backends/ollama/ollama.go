package ollama

import (
	"context"

	"github.com/go-go-golems/chatscript/pkg/backends"
	"github.com/go-go-golems/chatscript/pkg/conversation"
	"github.com/go-go-golems/chatscript/pkg/settings"
	"github.com/go-go-golems/chatscript/pkg/usage"
	"github.com/jmorganca/ollama/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Chatter is the part of the ollama client the backend uses.
type Chatter interface {
	Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error
}

// Backend talks to a local ollama server. Ollama reports what it evaluated
// in this call only, folds the previous reply into the prompt count and
// drops the oldest turns once num_ctx is exceeded.
type Backend struct {
	client Chatter
	chat   *settings.ChatSettings
}

var _ backends.Backend = &Backend{}

// New connects to the server named by OLLAMA_HOST (default 127.0.0.1:11434).
func New(s *settings.Settings) (*Backend, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, errors.Wrap(err, "could not create ollama client")
	}
	return NewWithClient(client, s.Chat)
}

func NewWithClient(client Chatter, chat *settings.ChatSettings) (*Backend, error) {
	if err := backends.CheckOptions(chat, backends.OptionTemperature, backends.OptionRepeatPenalty); err != nil {
		return nil, err
	}
	return &Backend{client: client, chat: chat}, nil
}

func (b *Backend) Model() string {
	return b.chat.Model
}

func (b *Backend) Accounting() usage.Accounting {
	return usage.DeltaWithTrimming
}

// options returns nil when nothing was set so the server defaults apply.
func (b *Backend) options() map[string]interface{} {
	ret := map[string]interface{}{}
	if b.chat.Temperature != nil {
		ret["temperature"] = *b.chat.Temperature
	}
	if b.chat.RepeatPenalty != nil {
		ret["repeat_penalty"] = *b.chat.RepeatPenalty
	}
	if b.chat.MaxTokens != nil {
		ret["num_predict"] = *b.chat.MaxTokens
	}
	if len(ret) == 0 {
		return nil
	}
	return ret
}

func (b *Backend) SendTurn(ctx context.Context, messages conversation.Conversation) (*backends.Reply, error) {
	ollamaMessages := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		ollamaMessages = append(ollamaMessages, api.Message{
			Role:    string(m.Role),
			Content: m.Text,
		})
	}

	stream := false
	req := &api.ChatRequest{
		Model:    b.chat.Model,
		Messages: ollamaMessages,
		Stream:   &stream,
		Options:  b.options(),
	}
	log.Debug().Str("model", req.Model).Int("messages", len(req.Messages)).Msg("ollama chat")

	reply := &backends.Reply{}
	done := false
	err := b.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		if resp.Message != nil {
			reply.Content += resp.Message.Content
		}
		if resp.Done {
			done = true
			reply.Usage = usage.Report{
				PromptTokens:     resp.PromptEvalCount,
				CompletionTokens: resp.EvalCount,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !done {
		return nil, errors.New("ollama response ended before completion")
	}

	return reply, nil
}

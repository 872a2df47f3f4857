package gemini

import (
	"context"

	"github.com/go-go-golems/chatscript/pkg/backends"
	"github.com/go-go-golems/chatscript/pkg/conversation"
	"github.com/go-go-golems/chatscript/pkg/settings"
	"github.com/go-go-golems/chatscript/pkg/usage"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	genai "google.golang.org/genai"
)

// ContentGenerator is the part of the genai client the backend uses.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Backend talks to the Gemini API. Like OpenAI, the prompt token count
// covers the whole conversation sent, so accounting is cumulative.
// Free-tier request limits are handled by wrapping it in backends.Throttled.
type Backend struct {
	models ContentGenerator
	chat   *settings.ChatSettings
}

var _ backends.Backend = &Backend{}

func makeClient(ctx context.Context, s *settings.Settings) (*genai.Client, error) {
	apiKey, ok := s.API.APIKey(settings.ApiTypeGemini)
	if !ok {
		return nil, errors.Errorf("no API key for %s", settings.ApiTypeGemini)
	}
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  backends.HTTPClient(s.Client),
		HTTPOptions: genai.HTTPOptions{BaseURL: s.API.BaseURL(settings.ApiTypeGemini)},
	})
}

func New(ctx context.Context, s *settings.Settings) (*Backend, error) {
	client, err := makeClient(ctx, s)
	if err != nil {
		return nil, errors.Wrap(err, "could not create gemini client")
	}
	return NewWithClient(client.Models, s.Chat)
}

func NewWithClient(models ContentGenerator, chat *settings.ChatSettings) (*Backend, error) {
	if err := backends.CheckOptions(chat, backends.OptionTemperature, backends.OptionTopP); err != nil {
		return nil, err
	}
	return &Backend{models: models, chat: chat}, nil
}

func (b *Backend) Model() string {
	return b.chat.Model
}

func (b *Backend) Accounting() usage.Accounting {
	return usage.Cumulative
}

func roleToGeminiRole(r conversation.Role) genai.Role {
	if r == conversation.RoleAssistant {
		return genai.RoleModel
	}
	return genai.RoleUser
}

func (b *Backend) makeConfig(messages conversation.Conversation) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature: backends.Float32Pointer(b.chat.Temperature),
		TopP:        backends.Float32Pointer(b.chat.TopP),
	}
	if system := messages.SystemPrompt(); system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	return config
}

func makeContents(messages conversation.Conversation) []*genai.Content {
	ret := make([]*genai.Content, 0, len(messages))
	for _, m := range messages.WithoutSystem() {
		ret = append(ret, genai.NewContentFromText(m.Text, roleToGeminiRole(m.Role)))
	}
	return ret
}

func (b *Backend) SendTurn(ctx context.Context, messages conversation.Conversation) (*backends.Reply, error) {
	contents := makeContents(messages)
	log.Debug().Str("model", b.chat.Model).Int("contents", len(contents)).Msg("gemini generate content")

	resp, err := b.models.GenerateContent(ctx, b.chat.Model, contents, b.makeConfig(messages))
	if err != nil {
		return nil, err
	}

	if err := checkResponse(resp); err != nil {
		return nil, err
	}

	reply := &backends.Reply{Content: resp.Text()}
	if resp.UsageMetadata != nil {
		reply.Usage = usage.Report{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return reply, nil
}

var blockingFinishReasons = map[genai.FinishReason]bool{
	genai.FinishReasonSafety:            true,
	genai.FinishReasonBlocklist:         true,
	genai.FinishReasonProhibitedContent: true,
	genai.FinishReasonSPII:              true,
}

// BlockedError reports a prompt or reply the API refused to answer.
type BlockedError struct {
	Reason  string
	Message string
}

func (e *BlockedError) Error() string {
	if e.Message != "" {
		return "gemini blocked the request: " + e.Reason + ": " + e.Message
	}
	return "gemini blocked the request: " + e.Reason
}

// checkResponse rejects responses that carry no usable reply text.
func checkResponse(resp *genai.GenerateContentResponse) error {
	if resp == nil {
		return errors.New("gemini returned an empty response")
	}
	if pf := resp.PromptFeedback; pf != nil && pf.BlockReason != "" {
		return &BlockedError{Reason: string(pf.BlockReason), Message: pf.BlockReasonMessage}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return errors.New("gemini returned no candidates")
	}
	if fr := resp.Candidates[0].FinishReason; blockingFinishReasons[fr] {
		return &BlockedError{Reason: string(fr)}
	}
	return nil
}

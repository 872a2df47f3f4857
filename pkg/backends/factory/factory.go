package factory

import (
	"context"
	"strings"

	"github.com/go-go-golems/chatscript/pkg/backends"
	"github.com/go-go-golems/chatscript/pkg/backends/claude"
	"github.com/go-go-golems/chatscript/pkg/backends/gemini"
	"github.com/go-go-golems/chatscript/pkg/backends/ollama"
	"github.com/go-go-golems/chatscript/pkg/backends/openai"
	"github.com/go-go-golems/chatscript/pkg/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// BackendFactory creates chat backends from settings, the provider being
// picked by settings.Chat.ApiType.
type BackendFactory interface {
	CreateBackend(ctx context.Context, s *settings.Settings) (backends.Backend, error)
	SupportedProviders() []string
}

type StandardBackendFactory struct {
	ThrottleOptions []backends.ThrottleOption
}

var _ BackendFactory = &StandardBackendFactory{}

func NewStandardBackendFactory(options ...backends.ThrottleOption) *StandardBackendFactory {
	return &StandardBackendFactory{ThrottleOptions: options}
}

// CreateBackend builds the provider backend and wraps it with the request
// throttle when a per-minute limit applies.
func (f *StandardBackendFactory) CreateBackend(ctx context.Context, s *settings.Settings) (backends.Backend, error) {
	if s == nil || s.Chat == nil {
		return nil, errors.New("settings cannot be nil")
	}
	if s.API == nil {
		return nil, errors.New("API settings cannot be nil")
	}
	s = s.Clone()

	var b backends.Backend
	var err error
	switch s.Chat.ApiType {
	case settings.ApiTypeOpenAI:
		b, err = openai.New(s)
	case settings.ApiTypeOllama:
		b, err = ollama.New(s)
	case settings.ApiTypeGemini:
		b, err = gemini.New(ctx, s)
	case settings.ApiTypeClaude:
		b, err = claude.New(s)
	default:
		return nil, errors.Errorf("unsupported provider %q. Supported providers: %s",
			s.Chat.ApiType, strings.Join(f.SupportedProviders(), ", "))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "invalid settings for provider %s", s.Chat.ApiType)
	}

	rpm := s.RequestsPerMinute()
	if rpm > 0 {
		log.Debug().Str("provider", string(s.Chat.ApiType)).Int("requests_per_minute", rpm).Msg("throttling backend")
	}
	return backends.NewThrottled(b, rpm, f.ThrottleOptions...), nil
}

func (f *StandardBackendFactory) SupportedProviders() []string {
	ret := make([]string, 0, len(settings.ApiTypes))
	for _, t := range settings.ApiTypes {
		ret = append(ret, string(t))
	}
	return ret
}

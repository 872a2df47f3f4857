package factory

import (
	"context"
	"testing"
	"time"

	"github.com/go-go-golems/chatscript/pkg/backends"
	"github.com/go-go-golems/chatscript/pkg/backends/claude"
	"github.com/go-go-golems/chatscript/pkg/backends/ollama"
	"github.com/go-go-golems/chatscript/pkg/backends/openai"
	"github.com/go-go-golems/chatscript/pkg/settings"
	"github.com/go-go-golems/chatscript/pkg/usage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSettings(t settings.ApiType, model string) *settings.Settings {
	s := settings.NewSettings()
	s.Chat.ApiType = t
	s.Chat.Model = model
	s.API.APIKeys[string(t)+"-api-key"] = "test-key"
	return s
}

func TestStandardBackendFactory_SupportedProviders(t *testing.T) {
	providers := NewStandardBackendFactory().SupportedProviders()
	assert.Equal(t, []string{"openai", "ollama", "gemini", "claude"}, providers)
}

func TestStandardBackendFactory_CreateBackend(t *testing.T) {
	f := NewStandardBackendFactory()
	ctx := context.Background()

	b, err := f.CreateBackend(ctx, newSettings(settings.ApiTypeOpenAI, "gpt-4o-mini"))
	require.NoError(t, err)
	assert.IsType(t, &openai.Backend{}, b)
	assert.Equal(t, "gpt-4o-mini", b.Model())

	b, err = f.CreateBackend(ctx, newSettings(settings.ApiTypeOllama, "llama3"))
	require.NoError(t, err)
	assert.IsType(t, &ollama.Backend{}, b)
	assert.Equal(t, usage.DeltaWithTrimming, b.Accounting())

	b, err = f.CreateBackend(ctx, newSettings(settings.ApiTypeClaude, "claude-sonnet-4-20250514"))
	require.NoError(t, err)
	assert.IsType(t, &claude.Backend{}, b)
}

func TestStandardBackendFactory_GeminiIsThrottled(t *testing.T) {
	b, err := NewStandardBackendFactory().CreateBackend(context.Background(), newSettings(settings.ApiTypeGemini, "gemini-2.5-pro"))
	require.NoError(t, err)

	throttled, ok := b.(*backends.Throttled)
	require.True(t, ok)
	assert.Equal(t, 12*time.Second, throttled.MinInterval())
	assert.Equal(t, "gemini-2.5-pro", throttled.Model())
	assert.Equal(t, usage.Cumulative, throttled.Accounting())
}

func TestStandardBackendFactory_ExplicitRequestsPerMinute(t *testing.T) {
	s := newSettings(settings.ApiTypeOpenAI, "gpt-4o-mini")
	rpm := 30
	s.Client.RequestsPerMinute = &rpm

	b, err := NewStandardBackendFactory().CreateBackend(context.Background(), s)
	require.NoError(t, err)
	throttled, ok := b.(*backends.Throttled)
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, throttled.MinInterval())

	s = newSettings(settings.ApiTypeGemini, "gemini-2.5-pro")
	zero := 0
	s.Client.RequestsPerMinute = &zero
	b, err = NewStandardBackendFactory().CreateBackend(context.Background(), s)
	require.NoError(t, err)
	_, ok = b.(*backends.Throttled)
	assert.False(t, ok)
}

func TestStandardBackendFactory_BackendKeepsItsOwnSettings(t *testing.T) {
	s := newSettings(settings.ApiTypeOpenAI, "gpt-4o-mini")
	b, err := NewStandardBackendFactory().CreateBackend(context.Background(), s)
	require.NoError(t, err)

	s.Chat.Model = "gpt-4o"
	s.Chat.ApiType = settings.ApiTypeOllama
	assert.Equal(t, "gpt-4o-mini", b.Model())
	assert.Equal(t, usage.Cumulative, b.Accounting())
}

func TestStandardBackendFactory_Errors(t *testing.T) {
	f := NewStandardBackendFactory()
	ctx := context.Background()

	_, err := f.CreateBackend(ctx, nil)
	require.Error(t, err)

	_, err = f.CreateBackend(ctx, newSettings("mistral", "m"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Supported providers: openai, ollama, gemini, claude")

	s := newSettings(settings.ApiTypeOpenAI, "gpt-4o-mini")
	s.API.APIKeys = map[string]string{}
	_, err = f.CreateBackend(ctx, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no API key for openai")

	s = newSettings(settings.ApiTypeOllama, "llama3")
	rp := 1.1
	s.Chat.RepeatPenalty = &rp
	_, err = f.CreateBackend(ctx, s)
	require.NoError(t, err)

	s = newSettings(settings.ApiTypeOpenAI, "gpt-4o-mini")
	s.Chat.RepeatPenalty = &rp
	_, err = f.CreateBackend(ctx, s)
	require.Error(t, err)
}

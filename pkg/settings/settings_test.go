package settings

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSettingsFromViperLeavesUnsetOptionsNil(t *testing.T) {
	v := viper.New()
	v.Set("api-type", "openai")
	v.Set("model", "o4-mini")
	v.Set("temperature", 0.9)
	v.Set("openai-api-key", "sk-test")

	s, err := NewSettingsFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, ApiTypeOpenAI, s.Chat.ApiType)
	assert.Equal(t, "o4-mini", s.Chat.Model)
	require.NotNil(t, s.Chat.Temperature)
	assert.Equal(t, 0.9, *s.Chat.Temperature)
	assert.Nil(t, s.Chat.TopP)
	assert.Nil(t, s.Chat.RepeatPenalty)
	assert.Nil(t, s.Chat.MaxTokens)
	assert.Equal(t, DefaultSystemPrompt, s.Chat.SystemPrompt)

	key, ok := s.API.APIKey(ApiTypeOpenAI)
	assert.True(t, ok)
	assert.Equal(t, "sk-test", key)
	_, ok = s.API.APIKey(ApiTypeGemini)
	assert.False(t, ok)

	assert.Equal(t, 0, s.RequestsPerMinute())
}

func TestNewSettingsFromViperEmptySystemPrompt(t *testing.T) {
	v := viper.New()
	v.Set("api-type", "ollama")
	v.Set("model", "llama3")
	v.Set("system-prompt", "")

	s, err := NewSettingsFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "", s.Chat.SystemPrompt)

	v.Set("system-prompt", "You are a bee keeper")
	s, err = NewSettingsFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "You are a bee keeper", s.Chat.SystemPrompt)
}

func TestRequestsPerMinute(t *testing.T) {
	v := viper.New()
	v.Set("api-type", "gemini")
	v.Set("model", "gemini-2.5-pro")
	v.Set("timeout", "30s")

	s, err := NewSettingsFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 5, s.RequestsPerMinute())
	assert.Equal(t, 30*time.Second, s.Client.Timeout)

	v.Set("requests-per-minute", 0)
	s, err = NewSettingsFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 0, s.RequestsPerMinute())

	v.Set("requests-per-minute", -1)
	_, err = NewSettingsFromViper(v)
	require.Error(t, err)
}

func TestNewSettingsFromViperErrors(t *testing.T) {
	v := viper.New()
	v.Set("api-type", "mistral")
	v.Set("model", "x")
	_, err := NewSettingsFromViper(v)
	require.Error(t, err)

	v = viper.New()
	v.Set("api-type", "ollama")
	_, err = NewSettingsFromViper(v)
	require.Error(t, err)
}

func TestCloneIsDeep(t *testing.T) {
	s := NewSettings()
	temp := 0.5
	s.Chat.Temperature = &temp
	s.API.APIKeys["openai-api-key"] = "a"

	c := s.Clone()
	*c.Chat.Temperature = 0.1
	c.API.APIKeys["openai-api-key"] = "b"

	assert.Equal(t, 0.5, *s.Chat.Temperature)
	assert.Equal(t, "a", s.API.APIKeys["openai-api-key"])
}

func TestChatbot(t *testing.T) {
	assert.Equal(t, Chatbot{Name: "ChatGPT", Company: "OpenAI"}, ApiTypeOpenAI.Chatbot())
	assert.Equal(t, "Google", ApiTypeGemini.Chatbot().Company)
}

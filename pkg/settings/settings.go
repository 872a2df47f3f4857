package settings

import (
	"time"

	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const DefaultSystemPrompt = "You are an assistant that must assist the user"

// ChatSettings holds the model and the sampling options. A nil option means
// the provider's own default is used; no default is ever filled in here.
type ChatSettings struct {
	Model         string   `yaml:"model" mapstructure:"model"`
	ApiType       ApiType  `yaml:"api_type" mapstructure:"api-type"`
	Temperature   *float64 `yaml:"temperature,omitempty" mapstructure:"temperature"`
	TopP          *float64 `yaml:"top_p,omitempty" mapstructure:"top-p"`
	RepeatPenalty *float64 `yaml:"repeat_penalty,omitempty" mapstructure:"repeat-penalty"`
	MaxTokens     *int     `yaml:"max_tokens,omitempty" mapstructure:"max-tokens"`
	SystemPrompt  string   `yaml:"system_prompt,omitempty" mapstructure:"system-prompt"`
}

type APISettings struct {
	APIKeys  map[string]string `yaml:"api_keys,omitempty"`
	BaseUrls map[string]string `yaml:"base_urls,omitempty"`
}

func (a *APISettings) APIKey(t ApiType) (string, bool) {
	k, ok := a.APIKeys[string(t)+"-api-key"]
	return k, ok && k != ""
}

func (a *APISettings) BaseURL(t ApiType) string {
	return a.BaseUrls[string(t)+"-base-url"]
}

type ClientSettings struct {
	Timeout           time.Duration `yaml:"timeout,omitempty" mapstructure:"timeout"`
	RequestsPerMinute *int          `yaml:"requests_per_minute,omitempty" mapstructure:"requests-per-minute"`
}

type Settings struct {
	Chat   *ChatSettings   `yaml:"chat"`
	API    *APISettings    `yaml:"api"`
	Client *ClientSettings `yaml:"client"`
}

func NewSettings() *Settings {
	return &Settings{
		Chat: &ChatSettings{
			SystemPrompt: DefaultSystemPrompt,
		},
		API: &APISettings{
			APIKeys:  map[string]string{},
			BaseUrls: map[string]string{},
		},
		Client: &ClientSettings{},
	}
}

func (s *Settings) Clone() *Settings {
	return clone.Clone(s).(*Settings)
}

// RequestsPerMinute returns the configured ceiling, falling back to the
// provider's default.
func (s *Settings) RequestsPerMinute() int {
	if s.Client != nil && s.Client.RequestsPerMinute != nil {
		return *s.Client.RequestsPerMinute
	}
	return s.Chat.ApiType.DefaultRequestsPerMinute()
}

// NewSettingsFromViper reads the settings from flags, environment and config
// file, all bound on v. Only keys explicitly set end up as sampling options.
func NewSettingsFromViper(v *viper.Viper) (*Settings, error) {
	s := NewSettings()

	apiType, err := ParseApiType(v.GetString("api-type"))
	if err != nil {
		return nil, err
	}
	s.Chat.ApiType = apiType
	s.Chat.Model = v.GetString("model")
	if s.Chat.Model == "" {
		return nil, errors.New("no model specified")
	}
	if v.IsSet("system-prompt") {
		s.Chat.SystemPrompt = v.GetString("system-prompt")
	}

	s.Chat.Temperature = optionalFloat(v, "temperature")
	s.Chat.TopP = optionalFloat(v, "top-p")
	s.Chat.RepeatPenalty = optionalFloat(v, "repeat-penalty")
	if v.IsSet("max-tokens") && v.GetInt("max-tokens") > 0 {
		m := v.GetInt("max-tokens")
		s.Chat.MaxTokens = &m
	}

	for _, t := range ApiTypes {
		if k := v.GetString(string(t) + "-api-key"); k != "" {
			s.API.APIKeys[string(t)+"-api-key"] = k
		}
		if u := v.GetString(string(t) + "-base-url"); u != "" {
			s.API.BaseUrls[string(t)+"-base-url"] = u
		}
	}

	s.Client.Timeout = v.GetDuration("timeout")
	if v.IsSet("requests-per-minute") {
		rpm := v.GetInt("requests-per-minute")
		if rpm < 0 {
			return nil, errors.Errorf("invalid requests-per-minute %d", rpm)
		}
		s.Client.RequestsPerMinute = &rpm
	}

	return s, nil
}

func optionalFloat(v *viper.Viper, key string) *float64 {
	if !v.IsSet(key) {
		return nil
	}
	f := v.GetFloat64(key)
	return &f
}

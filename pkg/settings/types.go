package settings

import "github.com/pkg/errors"

type ApiType string

const (
	ApiTypeOpenAI ApiType = "openai"
	ApiTypeOllama ApiType = "ollama"
	ApiTypeGemini ApiType = "gemini"
	ApiTypeClaude ApiType = "claude"
)

var ApiTypes = []ApiType{ApiTypeOpenAI, ApiTypeOllama, ApiTypeGemini, ApiTypeClaude}

func ParseApiType(s string) (ApiType, error) {
	for _, t := range ApiTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", errors.Errorf("unknown api type %q", s)
}

// Chatbot is the product and vendor name a backend is known by, offered as
// default values for the {INJECT_CHATBOT} and {INJECT_CHATBOT_COMPANY} placeholders.
type Chatbot struct {
	Name    string
	Company string
}

var chatbots = map[ApiType]Chatbot{
	ApiTypeOpenAI: {Name: "ChatGPT", Company: "OpenAI"},
	ApiTypeOllama: {Name: "Ollama", Company: "Ollama"},
	ApiTypeGemini: {Name: "Gemini", Company: "Google"},
	ApiTypeClaude: {Name: "Claude", Company: "Anthropic"},
}

func (t ApiType) Chatbot() Chatbot {
	return chatbots[t]
}

// DefaultRequestsPerMinute is the free-tier request ceiling applied when no
// explicit limit is configured. Zero means no throttling.
func (t ApiType) DefaultRequestsPerMinute() int {
	if t == ApiTypeGemini {
		return 5
	}
	return 0
}

package backends

import (
	"context"
	"net/http"

	"github.com/go-go-golems/chatscript/pkg/conversation"
	"github.com/go-go-golems/chatscript/pkg/settings"
	"github.com/go-go-golems/chatscript/pkg/usage"
	"github.com/pkg/errors"
)

// Reply is the assistant's answer to one turn, with the usage as reported.
type Reply struct {
	Content string
	Usage   usage.Report
}

// Backend sends the whole conversation so far (ending with the new user
// message) to a chat-completion provider. Provider errors are returned as is.
type Backend interface {
	SendTurn(ctx context.Context, messages conversation.Conversation) (*Reply, error)
	Model() string
	Accounting() usage.Accounting
}

type Option string

const (
	OptionTemperature   Option = "temperature"
	OptionTopP          Option = "top-p"
	OptionRepeatPenalty Option = "repeat-penalty"
)

// CheckOptions rejects sampling options the provider does not recognize,
// instead of silently dropping them.
func CheckOptions(chat *settings.ChatSettings, supported ...Option) error {
	isSupported := func(o Option) bool {
		for _, s := range supported {
			if s == o {
				return true
			}
		}
		return false
	}

	set := map[Option]bool{
		OptionTemperature:   chat.Temperature != nil,
		OptionTopP:          chat.TopP != nil,
		OptionRepeatPenalty: chat.RepeatPenalty != nil,
	}
	for _, o := range []Option{OptionTemperature, OptionTopP, OptionRepeatPenalty} {
		if set[o] && !isSupported(o) {
			return errors.Errorf("option %s is not supported by %s", o, chat.ApiType)
		}
	}
	return nil
}

// HTTPClient returns a client honouring the configured timeout, or nil to
// let the provider SDK use its own.
func HTTPClient(s *settings.ClientSettings) *http.Client {
	if s == nil || s.Timeout <= 0 {
		return nil
	}
	return &http.Client{Timeout: s.Timeout}
}

func Float32Pointer(f *float64) *float32 {
	if f == nil {
		return nil
	}
	f_ := float32(*f)
	return &f_
}

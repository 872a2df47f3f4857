package usage

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Report is the raw token usage as a backend returned it for one call.
// Depending on the backend's Accounting, PromptTokens is either the size of the
// whole prompt sent in this call or only what the backend evaluated.
type Report struct {
	PromptTokens     int `json:"prompt_tokens" yaml:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens" yaml:"completion_tokens"`
}

// Carry is the state needed to turn the next Report into a per-turn delta.
type Carry struct {
	LastPrompt     int `json:"last_prompt"`
	LastCompletion int `json:"last_completion"`
}

// Turn is the normalized token consumption of one user/assistant exchange.
// Input can be negative when a backend trimmed its context window.
type Turn struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

type Totals struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

func (t Totals) Grand() int {
	return t.Input + t.Output
}

func (t Turn) MarshalZerologObject(e *zerolog.Event) {
	e.Int("input_tokens", t.Input).Int("output_tokens", t.Output)
}

func (t Totals) MarshalZerologObject(e *zerolog.Event) {
	e.Int("total_input_tokens", t.Input).
		Int("total_output_tokens", t.Output).
		Int("total_tokens", t.Grand())
}

// Accounting names how a backend reports prompt tokens. The set is closed:
// a new backend picks one of the existing variants.
type Accounting string

const (
	// Cumulative backends report the full prompt size of each call, which
	// includes the whole conversation so far.
	Cumulative Accounting = "cumulative"
	// DeltaWithTrimming backends echo the previous reply inside the prompt
	// count and may drop the oldest turns once their context window is full.
	DeltaWithTrimming Accounting = "delta-trimming"
)

var ErrUnknownAccounting = errors.New("unknown usage accounting")

func (a Accounting) Normalize(r Report, c Carry) (Turn, Carry, error) {
	switch a {
	case Cumulative:
		return Turn{
				Input:  r.PromptTokens - c.LastPrompt,
				Output: r.CompletionTokens,
			}, Carry{
				LastPrompt: r.PromptTokens,
			}, nil
	case DeltaWithTrimming:
		return Turn{
				Input:  r.PromptTokens - c.LastPrompt - c.LastCompletion,
				Output: r.CompletionTokens,
			}, Carry{
				LastPrompt:     r.PromptTokens,
				LastCompletion: r.CompletionTokens,
			}, nil
	default:
		return Turn{}, c, errors.Wrapf(ErrUnknownAccounting, "%q", string(a))
	}
}

func (a Accounting) Validate() error {
	switch a {
	case Cumulative, DeltaWithTrimming:
		return nil
	default:
		return errors.Wrapf(ErrUnknownAccounting, "%q", string(a))
	}
}

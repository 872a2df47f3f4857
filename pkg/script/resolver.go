package script

import (
	"github.com/go-go-golems/chatscript/pkg/variables"
)

// Outputs gives access to the replies recorded so far, by entry name.
type Outputs interface {
	Output(name string) (string, bool)
}

// Resolved is an entry ready to be sent.
type Resolved struct {
	Name string
	Text string
	// ReminderKey is set for reminder entries.
	ReminderKey string
	// Unresolved is set when a reminder's key had no output yet.
	Unresolved *UnresolvedReminderError
	// MissingVariables lists placeholders left in the text for lack of a value.
	MissingVariables []string
}

type Resolver struct {
	vars *variables.Variables
}

func NewResolver(vars *variables.Variables) *Resolver {
	return &Resolver{vars: vars}
}

func (r *Resolver) Resolve(e Entry, outputs Outputs) Resolved {
	ret := Resolved{
		Name:             e.Name,
		Text:             r.vars.Resolve(e.Text),
		MissingVariables: r.vars.Missing(e.Text),
	}

	key, ok := ReminderKey(e.Name)
	if !ok {
		return ret
	}
	ret.ReminderKey = key

	var out string
	found := false
	if outputs != nil {
		out, found = outputs.Output(key)
	}
	if !found {
		ret.Unresolved = &UnresolvedReminderError{Name: e.Name, Key: key}
		return ret
	}
	ret.Text += out
	return ret
}

// MapOutputs is the simplest Outputs, used by tests and dry runs.
type MapOutputs map[string]string

func (m MapOutputs) Output(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

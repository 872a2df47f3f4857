package script

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Entry is one named prompt of a script.
type Entry struct {
	Name string
	Text string
}

// Script is the ordered list of entries; the order is the execution order.
type Script struct {
	Entries []Entry
}

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatError reports a script that cannot be executed at all.
type FormatError struct {
	Index  int
	Reason string
}

func (e *FormatError) Error() string {
	if e.Index < 0 {
		return "invalid script: " + e.Reason
	}
	return fmt.Sprintf("invalid script entry %d: %s", e.Index, e.Reason)
}

func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", errors.Errorf("unknown script format for %s", path)
	}
}

func Load(path string) (*Script, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read script %s", path)
	}
	s, err := Parse(b, format)
	if err != nil {
		return nil, errors.Wrapf(err, "could not load script %s", path)
	}
	return s, nil
}

func Parse(b []byte, format Format) (*Script, error) {
	switch format {
	case FormatJSON:
		return parseJSON(b)
	case FormatYAML:
		return parseYAML(b)
	default:
		return nil, errors.Errorf("unknown script format %q", format)
	}
}

func parseJSON(b []byte) (*Script, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, &FormatError{Index: -1, Reason: "expected a list of single-key objects: " + err.Error()}
	}

	s := &Script{Entries: make([]Entry, 0, len(raw))}
	for i, r := range raw {
		e, reason := decodeJSONEntry(r)
		if reason != "" {
			return nil, &FormatError{Index: i, Reason: reason}
		}
		s.Entries = append(s.Entries, e)
	}
	return s, nil
}

// decodeJSONEntry walks the object token by token so that duplicate keys
// and non-string values are reported instead of being collapsed or coerced.
func decodeJSONEntry(r json.RawMessage) (Entry, string) {
	const notAnObject = "expected an object mapping a name to prompt text"

	d := json.NewDecoder(bytes.NewReader(r))
	tok, err := d.Token()
	if err != nil || tok != json.Delim('{') {
		return Entry{}, notAnObject
	}

	var e Entry
	seen := map[string]bool{}
	for d.More() {
		tok, err := d.Token()
		if err != nil {
			return Entry{}, notAnObject
		}
		name, _ := tok.(string)
		if seen[name] {
			return Entry{}, fmt.Sprintf("duplicate key %q", name)
		}
		seen[name] = true

		var value json.RawMessage
		if err := d.Decode(&value); err != nil {
			return Entry{}, notAnObject
		}
		var text string
		value = bytes.TrimSpace(value)
		if len(value) == 0 || value[0] != '"' || json.Unmarshal(value, &text) != nil {
			return Entry{}, fmt.Sprintf("prompt text of %q must be a string", name)
		}
		e = Entry{Name: name, Text: text}
	}

	if len(seen) != 1 {
		return Entry{}, fmt.Sprintf("expected exactly one key, got %d", len(seen))
	}
	return e, ""
}

func parseYAML(b []byte) (*Script, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, &FormatError{Index: -1, Reason: err.Error()}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 || doc.Content[0].Kind != yaml.SequenceNode {
		return nil, &FormatError{Index: -1, Reason: "expected a list of single-key mappings"}
	}

	seq := doc.Content[0]
	s := &Script{Entries: make([]Entry, 0, len(seq.Content))}
	for i, n := range seq.Content {
		if n.Kind != yaml.MappingNode {
			return nil, &FormatError{Index: i, Reason: "expected a mapping from a name to prompt text"}
		}
		if len(n.Content) != 2 {
			return nil, &FormatError{Index: i, Reason: fmt.Sprintf("expected exactly one key, got %d", len(n.Content)/2)}
		}
		k, v := n.Content[0], n.Content[1]
		if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
			return nil, &FormatError{Index: i, Reason: "name and prompt text must be strings"}
		}
		if v.ShortTag() == "!!null" {
			return nil, &FormatError{Index: i, Reason: fmt.Sprintf("prompt text of %q must be a string", k.Value)}
		}
		s.Entries = append(s.Entries, Entry{Name: k.Value, Text: v.Value})
	}
	return s, nil
}

package transcript

import (
	"bytes"
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Transcript holds the replies of a run twice: keyed by the prompt text as it
// was sent and keyed by entry name. Both keep first-insertion order; a key
// recorded again keeps its position and takes the newer reply.
type Transcript struct {
	Model       string
	RunID       uuid.UUID
	StartedAt   time.Time
	CompletedAt time.Time

	Prompts *orderedmap.OrderedMap[string, string]
	Names   *orderedmap.OrderedMap[string, string]
}

func New(model string, startedAt time.Time) *Transcript {
	return &Transcript{
		Model:     model,
		RunID:     uuid.New(),
		StartedAt: startedAt,
		Prompts:   orderedmap.New[string, string](),
		Names:     orderedmap.New[string, string](),
	}
}

func (t *Transcript) Record(name string, prompt string, reply string) {
	t.Prompts.Set(prompt, reply)
	t.Names.Set(name, reply)
}

// Output returns the reply recorded under an entry name.
func (t *Transcript) Output(name string) (string, bool) {
	return t.Names.Get(name)
}

func (t *Transcript) Len() int {
	return t.Names.Len()
}

type document struct {
	Model       string        `json:"model"`
	RunID       uuid.UUID     `json:"run_id"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Prompts     orderedObject `json:"prompts"`
	Names       orderedObject `json:"names"`
}

type decodedDocument struct {
	Model       string                                `json:"model"`
	RunID       uuid.UUID                             `json:"run_id"`
	StartedAt   time.Time                             `json:"started_at"`
	CompletedAt time.Time                             `json:"completed_at"`
	Prompts     *orderedmap.OrderedMap[string, string] `json:"prompts"`
	Names       *orderedmap.OrderedMap[string, string] `json:"names"`
}

func (t *Transcript) MarshalJSON() ([]byte, error) {
	return marshalNoEscape(document{
		Model:       t.Model,
		RunID:       t.RunID,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
		Prompts:     orderedObject{t.Prompts},
		Names:       orderedObject{t.Names},
	})
}

func (t *Transcript) UnmarshalJSON(b []byte) error {
	d := decodedDocument{
		Prompts: orderedmap.New[string, string](),
		Names:   orderedmap.New[string, string](),
	}
	if err := json.Unmarshal(b, &d); err != nil {
		return err
	}
	*t = Transcript{
		Model:       d.Model,
		RunID:       d.RunID,
		StartedAt:   d.StartedAt,
		CompletedAt: d.CompletedAt,
		Prompts:     d.Prompts,
		Names:       d.Names,
	}
	if t.Prompts == nil {
		t.Prompts = orderedmap.New[string, string]()
	}
	if t.Names == nil {
		t.Names = orderedmap.New[string, string]()
	}
	return nil
}

// orderedObject writes a JSON object in map order, leaving <, > and & as is.
type orderedObject struct {
	m *orderedmap.OrderedMap[string, string]
}

func (o orderedObject) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	if o.m != nil {
		for pair := o.m.Oldest(); pair != nil; pair = pair.Next() {
			if buf.Len() > 1 {
				buf.WriteByte(',')
			}
			k, err := marshalNoEscape(pair.Key)
			if err != nil {
				return nil, err
			}
			v, err := marshalNoEscape(pair.Value)
			if err != nil {
				return nil, err
			}
			buf.Write(k)
			buf.WriteByte(':')
			buf.Write(v)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalNoEscape(v interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func ReadFile(path string) (*Transcript, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ret := &Transcript{}
	if err := json.Unmarshal(b, ret); err != nil {
		return nil, errors.Wrapf(err, "could not parse transcript %s", path)
	}
	return ret, nil
}

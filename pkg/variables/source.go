package variables

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Source supplies values for declared placeholders. ok is false when the
// source has nothing for the given spec and the next source should be asked.
type Source interface {
	Lookup(ctx context.Context, spec Spec) (value string, ok bool, err error)
}

// MapSource answers from a fixed token -> value map.
type MapSource map[string]string

var _ Source = MapSource{}

func (m MapSource) Lookup(_ context.Context, spec Spec) (string, bool, error) {
	v, ok := m[spec.Token]
	return v, ok, nil
}

// ParseAssignments turns TOKEN=VALUE strings (as given on the command line)
// into a MapSource.
func ParseAssignments(assignments []string) (MapSource, error) {
	ret := MapSource{}
	for _, a := range assignments {
		token, value, found := strings.Cut(a, "=")
		if !found || token == "" {
			return nil, errors.Errorf("invalid variable assignment %q, expected TOKEN=VALUE", a)
		}
		ret[token] = value
	}
	return ret, nil
}

// LoadValues reads a YAML mapping of token -> value.
func LoadValues(path string) (MapSource, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read variable values %s", path)
	}
	ret := MapSource{}
	if err := yaml.Unmarshal(b, &ret); err != nil {
		return nil, errors.Wrapf(err, "could not parse variable values %s", path)
	}
	return ret, nil
}

// SpecDefaults answers with the constant value a spec declares, if any.
type SpecDefaults struct{}

var _ Source = SpecDefaults{}

func (SpecDefaults) Lookup(_ context.Context, spec Spec) (string, bool, error) {
	if spec.Value == nil {
		return "", false, nil
	}
	return *spec.Value, true, nil
}

type MissingVariableError struct {
	Token string
}

func (e *MissingVariableError) Error() string {
	return "no value for required variable " + e.Token
}

// Collect resolves every spec by asking the sources in order. Optional specs
// without a value are recorded as missing; required ones fail the collection.
func Collect(ctx context.Context, specs []Spec, sources ...Source) (*Variables, error) {
	pairs := []Pair{}
	missing := []string{}

	for _, spec := range specs {
		value, found := "", false
		for _, s := range sources {
			v, ok, err := s.Lookup(ctx, spec)
			if err != nil {
				return nil, errors.Wrapf(err, "could not get value for %s", spec.Token)
			}
			if ok {
				value, found = v, true
				break
			}
		}

		if !found {
			if spec.Required {
				return nil, &MissingVariableError{Token: spec.Token}
			}
			log.Debug().Str("token", spec.Token).Msg("no value for optional variable")
			missing = append(missing, spec.Token)
			continue
		}
		pairs = append(pairs, Pair{Token: spec.Token, Value: value})
	}

	return New(pairs, missing...), nil
}

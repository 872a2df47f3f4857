package variables

import (
	_ "embed"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Spec declares one injectable placeholder and how to obtain its value.
type Spec struct {
	Token    string  `yaml:"token"`
	Question string  `yaml:"question,omitempty"`
	Value    *string `yaml:"value,omitempty"`
	Required bool    `yaml:"required,omitempty"`
}

type specFile struct {
	Variables []Spec `yaml:"variables"`
}

//go:embed "specs.yaml"
var defaultSpecsYAML []byte

// DefaultSpecs returns the placeholders used by the bundled EABSS scripts.
func DefaultSpecs() ([]Spec, error) {
	return ParseSpecs(defaultSpecsYAML)
}

func LoadSpecs(path string) ([]Spec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read variable specs %s", path)
	}
	specs, err := ParseSpecs(b)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse variable specs %s", path)
	}
	return specs, nil
}

func ParseSpecs(b []byte) ([]Spec, error) {
	var f specFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	for i, s := range f.Variables {
		if strings.TrimSpace(s.Token) == "" {
			return nil, errors.Errorf("variable %d has no token", i)
		}
		if seen[s.Token] {
			return nil, errors.Errorf("variable %s declared twice", s.Token)
		}
		seen[s.Token] = true
	}

	return f.Variables, nil
}

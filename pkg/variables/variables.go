package variables

import (
	"sort"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Variables maps placeholder tokens (e.g. "{INJECT_TOPIC}") to the values
// that replace them in prompt text. A Variables is built once per run and
// is read-only afterwards.
type Variables struct {
	values   *orderedmap.OrderedMap[string, string]
	missing  []string
	replacer *strings.Replacer
}

type Pair struct {
	Token string
	Value string
}

// New builds a Variables from resolved pairs. Tokens listed in missing are
// known placeholders without a value; they are left untouched by Resolve.
func New(pairs []Pair, missing ...string) *Variables {
	values := orderedmap.New[string, string]()
	for _, p := range pairs {
		if p.Token == "" {
			continue
		}
		values.Set(p.Token, p.Value)
	}

	oldnew := make([]string, 0, values.Len()*2)
	for pair := values.Oldest(); pair != nil; pair = pair.Next() {
		oldnew = append(oldnew, pair.Key, pair.Value)
	}

	m := []string{}
	for _, token := range missing {
		if _, ok := values.Get(token); !ok && token != "" {
			m = append(m, token)
		}
	}
	sort.Strings(m)

	return &Variables{
		values:   values,
		missing:  m,
		replacer: strings.NewReplacer(oldnew...),
	}
}

func FromMap(m map[string]string) *Variables {
	tokens := make([]string, 0, len(m))
	for token := range m {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	pairs := make([]Pair, 0, len(tokens))
	for _, token := range tokens {
		pairs = append(pairs, Pair{Token: token, Value: m[token]})
	}
	return New(pairs)
}

// Resolve substitutes every token in a single pass. Replaced spans are not
// scanned again, so a value containing another token is left as is.
func (v *Variables) Resolve(text string) string {
	if v == nil || v.values.Len() == 0 {
		return text
	}
	return v.replacer.Replace(text)
}

// Missing returns the declared-but-unset tokens that occur in text.
func (v *Variables) Missing(text string) []string {
	if v == nil {
		return nil
	}
	ret := []string{}
	for _, token := range v.missing {
		if strings.Contains(text, token) {
			ret = append(ret, token)
		}
	}
	return ret
}

func (v *Variables) Get(token string) (string, bool) {
	if v == nil {
		return "", false
	}
	return v.values.Get(token)
}

func (v *Variables) Len() int {
	if v == nil {
		return 0
	}
	return v.values.Len()
}

func (v *Variables) Pairs() []Pair {
	if v == nil {
		return nil
	}
	ret := make([]Pair, 0, v.values.Len())
	for pair := v.values.Oldest(); pair != nil; pair = pair.Next() {
		ret = append(ret, Pair{Token: pair.Key, Value: pair.Value})
	}
	return ret
}

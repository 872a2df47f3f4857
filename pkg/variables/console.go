package variables

import (
	"context"
	"io"

	"github.com/tcnksm/go-input"
)

// ConsoleSource asks the user for each value, one question per placeholder.
type ConsoleSource struct {
	ui *input.UI
}

var _ Source = &ConsoleSource{}

func NewConsoleSource(r io.Reader, w io.Writer) *ConsoleSource {
	return &ConsoleSource{
		ui: &input.UI{
			Reader: r,
			Writer: w,
		},
	}
}

func (c *ConsoleSource) Lookup(ctx context.Context, spec Spec) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	query := spec.Question
	if query == "" {
		query = "Please enter a value for " + spec.Token
	}

	answer, err := c.ui.Ask(query, &input.Options{
		Required:  spec.Required,
		Loop:      spec.Required,
		HideOrder: true,
	})
	if err != nil {
		return "", false, err
	}

	return answer, true, nil
}

package cmds

import (
	"context"
	"io"

	"github.com/go-go-golems/chatscript/pkg/settings"
	"github.com/go-go-golems/chatscript/pkg/variables"
	"github.com/pkg/errors"
)

const (
	tokenChatbot        = "{INJECT_CHATBOT}"
	tokenChatbotCompany = "{INJECT_CHATBOT_COMPANY}"
)

type variableOptions struct {
	SpecsFile   string
	ValuesFile  string
	Assignments []string
	ApiType     settings.ApiType
	// Interactive asks on the console for whatever no other source provides.
	Interactive bool
	In          io.Reader
	Out         io.Writer
}

// collectVariables asks, in order: --var assignments, the --variables file,
// constant values from --variable-specs, the backend's chatbot names and, when
// interactive, the user.
func collectVariables(ctx context.Context, o variableOptions) (*variables.Variables, error) {
	specs, err := loadSpecs(o.SpecsFile)
	if err != nil {
		return nil, err
	}

	assignments, err := variables.ParseAssignments(o.Assignments)
	if err != nil {
		return nil, err
	}
	sources := []variables.Source{assignments}

	if o.ValuesFile != "" {
		values, err := variables.LoadValues(o.ValuesFile)
		if err != nil {
			return nil, errors.Wrapf(err, "could not load variables from %s", o.ValuesFile)
		}
		sources = append(sources, values)
	}

	sources = append(sources, variables.SpecDefaults{})

	if chatbot := o.ApiType.Chatbot(); chatbot.Name != "" {
		sources = append(sources, variables.MapSource{
			tokenChatbot:        chatbot.Name,
			tokenChatbotCompany: chatbot.Company,
		})
	}

	if o.Interactive {
		sources = append(sources, variables.NewConsoleSource(o.In, o.Out))
	}

	return variables.Collect(ctx, specs, sources...)
}

func loadSpecs(path string) ([]variables.Spec, error) {
	if path == "" {
		return variables.DefaultSpecs()
	}
	return variables.LoadSpecs(path)
}

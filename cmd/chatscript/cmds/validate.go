package cmds

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/go-go-golems/chatscript/pkg/script"
	"github.com/go-go-golems/chatscript/pkg/variables"
	"github.com/spf13/cobra"
)

var placeholderRegexp = regexp.MustCompile(`\{INJECT_[A-Z_]+\}`)

func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a prompt script without contacting any model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cmd.Flags().GetString("script")
			if err != nil {
				return err
			}
			strict, err := cmd.Flags().GetBool("strict-reminders")
			if err != nil {
				return err
			}
			specsFile, err := cmd.Flags().GetString("variable-specs")
			if err != nil {
				return err
			}

			sc, err := script.Load(path)
			if err != nil {
				return err
			}
			if err := sc.Validate(strict); err != nil {
				return err
			}
			specs, err := loadSpecs(specsFile)
			if err != nil {
				return err
			}
			return describeScript(cmd.OutOrStdout(), sc, specs)
		},
	}

	cmd.Flags().String("script", "", "Prompt script (JSON or YAML)")
	cmd.Flags().Bool("strict-reminders", false, "Reject reminders that refer to no earlier entry")
	cmd.Flags().String("variable-specs", "", "YAML file listing the placeholders to collect")
	cobra.CheckErr(cmd.MarkFlagRequired("script"))

	return cmd
}

// describeScript lists the entries in execution order, with the reminder
// each one resolves to and the placeholders it uses.
func describeScript(w io.Writer, sc *script.Script, specs []variables.Spec) error {
	known := map[string]bool{}
	for _, s := range specs {
		known[s.Token] = true
	}

	seen := map[string]bool{}
	for i, e := range sc.Entries {
		line := fmt.Sprintf("%3d  %s", i, e.Name)
		if key, ok := script.ReminderKey(e.Name); ok {
			if seen[key] {
				line += fmt.Sprintf("  (appends %s)", key)
			} else {
				line += fmt.Sprintf("  (appends nothing: no earlier %s)", key)
			}
		}
		seen[e.Name] = true

		tokens := placeholderRegexp.FindAllString(e.Text, -1)
		if len(tokens) > 0 {
			var marked []string
			for _, t := range tokens {
				if !known[t] {
					t += "?"
				}
				marked = append(marked, t)
			}
			line += "  " + strings.Join(marked, " ")
		}

		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "%d entries\n", len(sc.Entries))
	return err
}

package cmds

import (
	"fmt"
	"io"

	"github.com/go-go-golems/chatscript/pkg/transcript"
	"github.com/spf13/cobra"
)

func NewShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show FILE",
		Short: "Print the replies of a saved transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			byPrompt, err := cmd.Flags().GetBool("prompts")
			if err != nil {
				return err
			}
			t, err := transcript.ReadFile(args[0])
			if err != nil {
				return err
			}
			return printTranscript(cmd.OutOrStdout(), t, byPrompt)
		},
	}
	cmd.Flags().Bool("prompts", false, "Key the replies by prompt text instead of entry name")
	return cmd
}

func printTranscript(w io.Writer, t *transcript.Transcript, byPrompt bool) error {
	if _, err := fmt.Fprintf(w, "model: %s\nrun: %s\ncompleted: %s\n\n",
		t.Model, t.RunID, t.CompletedAt.Format("2006-01-02 15:04:05")); err != nil {
		return err
	}

	m := t.Names
	if byPrompt {
		m = t.Prompts
	}
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		if _, err := fmt.Fprintf(w, "## %s\n\n%s\n\n", pair.Key, pair.Value); err != nil {
			return err
		}
	}
	return nil
}

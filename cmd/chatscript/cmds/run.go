package cmds

import (
	"context"
	"fmt"
	"os"

	"github.com/go-go-golems/chatscript/pkg/backends/factory"
	"github.com/go-go-golems/chatscript/pkg/events"
	"github.com/go-go-golems/chatscript/pkg/runner"
	"github.com/go-go-golems/chatscript/pkg/script"
	"github.com/go-go-golems/chatscript/pkg/settings"
	"github.com/go-go-golems/chatscript/pkg/transcript"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a prompt script against a chat model and save the transcript",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.GetViper()
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			return runScript(cmd, v)
		},
	}

	flags := cmd.Flags()
	flags.String("model", "", "Model to use")
	flags.String("api-type", string(settings.ApiTypeOllama), "Backend (openai, ollama, gemini, claude)")
	flags.String("script", "", "Prompt script (JSON or YAML list of single-key maps)")
	flags.Float64("temperature", 0, "Sampling temperature (provider default when unset)")
	flags.Float64("top-p", 0, "Nucleus sampling (openai, gemini, claude)")
	flags.Float64("repeat-penalty", 0, "Repeat penalty (ollama)")
	flags.Int("max-tokens", 0, "Maximum tokens per reply")
	flags.String("system-prompt", settings.DefaultSystemPrompt, "System prompt")
	flags.Bool("verbose", false, "Print token usage after every turn")
	flags.String("variables", "", "YAML file mapping placeholders to values")
	flags.StringArray("var", nil, "Placeholder value as TOKEN=VALUE (repeatable)")
	flags.String("variable-specs", "", "YAML file listing the placeholders to collect")
	flags.String("output-dir", ".", "Directory the transcript is written to")
	flags.String("run-marker", transcript.DefaultMarker, "Marker put between model and timestamp in the transcript name")
	flags.Int("requests-per-minute", 0, "Request ceiling (gemini defaults to 5, 0 disables)")
	flags.Duration("timeout", 0, "HTTP timeout per request")
	flags.Bool("strict-reminders", false, "Reject reminders that refer to no earlier entry")
	for _, t := range settings.ApiTypes {
		if t == settings.ApiTypeOllama {
			continue
		}
		flags.String(string(t)+"-api-key", "", fmt.Sprintf("%s API key", t))
		flags.String(string(t)+"-base-url", "", fmt.Sprintf("%s base URL", t))
	}
	cobra.CheckErr(cmd.MarkFlagRequired("script"))

	return cmd
}

func runScript(cmd *cobra.Command, v *viper.Viper) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := settings.NewSettingsFromViper(v)
	if err != nil {
		return err
	}

	strict := v.GetBool("strict-reminders")
	sc, err := script.Load(v.GetString("script"))
	if err != nil {
		return err
	}
	if err := sc.Validate(strict); err != nil {
		return err
	}

	backend, err := factory.NewStandardBackendFactory().CreateBackend(ctx, s)
	if err != nil {
		return err
	}

	assignments, err := cmd.Flags().GetStringArray("var")
	if err != nil {
		return err
	}
	vars, err := collectVariables(ctx, variableOptions{
		SpecsFile:   v.GetString("variable-specs"),
		ValuesFile:  v.GetString("variables"),
		Assignments: assignments,
		ApiType:     s.Chat.ApiType,
		Interactive: isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()),
		In:          cmd.InOrStdin(),
		Out:         cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	router, err := events.NewEventRouter(events.WithVerbose(zerolog.GlobalLevel() <= zerolog.DebugLevel))
	if err != nil {
		return err
	}
	router.AddHandler("printer", events.TopicRun, events.PrinterFunc(cmd.OutOrStdout(), v.GetBool("verbose")))

	r := runner.New(backend, vars,
		runner.WithSystemPrompt(s.Chat.SystemPrompt),
		runner.WithEventSink(router.NewSink(events.TopicRun)),
		runner.WithStrictReminders(strict),
	)

	var t *transcript.Transcript
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return router.Run(ctx)
	})
	eg.Go(func() error {
		defer func() {
			_ = router.Close()
		}()
		select {
		case <-router.Running():
		case <-ctx.Done():
			return ctx.Err()
		}

		var err error
		t, err = r.Run(ctx, sc)
		return err
	})
	if err := eg.Wait(); err != nil {
		return err
	}
	if t == nil {
		return errors.New("run produced no transcript")
	}

	w := transcript.NewWriter(v.GetString("output-dir"), transcript.WithMarker(v.GetString("run-marker")))
	path, err := w.Write(t)
	if err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("transcript written")
	_, err = fmt.Fprintf(cmd.ErrOrStderr(), "transcript written to %s\n", path)
	return err
}

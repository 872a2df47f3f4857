package events

import (
	"fmt"
	"io"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog/log"
)

const separator = "----------------------------------------"

// PrinterFunc returns a router handler that prints each turn to w: the
// resolved prompt, the ">>>" marker, the reply and a separator. With verbose
// set, a token usage line follows every reply.
func PrinterFunc(w io.Writer, verbose bool) func(msg *message.Message) error {
	return func(msg *message.Message) error {
		defer msg.Ack()

		e, err := NewEventFromJson(msg.Payload)
		if err != nil {
			log.Warn().Err(err).Str("message_id", msg.UUID).Msg("could not decode event")
			return nil
		}

		switch p_ := e.(type) {
		case *EventTurnStart:
			_, err = fmt.Fprintf(w, "%s \n>>>\n", p_.Prompt)

		case *EventTurnComplete:
			_, err = fmt.Fprintln(w, p_.Reply)
			if err == nil && verbose {
				_, err = fmt.Fprintf(w, "\n%s\n", FormatUsage(p_.Usage.Input, p_.Usage.Output, p_.Totals.Input, p_.Totals.Output))
			}
			if err == nil {
				_, err = fmt.Fprintf(w, "\n%s\n\n", separator)
			}

		case *EventReminderUnresolved:
			_, err = fmt.Fprintf(w, "[!] %s: no earlier entry named %q, nothing appended\n", p_.Metadata().Name, p_.Key)

		case *EventMissingVariables:
			_, err = fmt.Fprintf(w, "[!] %s: no value for %s\n", p_.Metadata().Name, strings.Join(p_.Tokens, ", "))

		case *EventRunComplete:
			if verbose {
				_, err = fmt.Fprintf(w, "%d turns, total input: %d | total output: %d | grand total: %d\n",
					p_.Turns, p_.Totals.Input, p_.Totals.Output, p_.Totals.Grand())
			}

		case *EventError:
			_, err = fmt.Fprintf(w, "\n[error] %s\n", p_.ErrorString)
		}

		return err
	}
}

func FormatUsage(turnIn, turnOut, totalIn, totalOut int) string {
	return fmt.Sprintf("input tokens this turn: %d, total input so far: %d | output tokens this turn: %d, total output so far: %d\ngrand total so far: %d",
		turnIn, totalIn, turnOut, totalOut, totalIn+totalOut)
}

package runner

import (
	"context"
	"time"

	"github.com/go-go-golems/chatscript/pkg/backends"
	"github.com/go-go-golems/chatscript/pkg/conversation"
	"github.com/go-go-golems/chatscript/pkg/events"
	"github.com/go-go-golems/chatscript/pkg/script"
	"github.com/go-go-golems/chatscript/pkg/settings"
	"github.com/go-go-golems/chatscript/pkg/transcript"
	"github.com/go-go-golems/chatscript/pkg/usage"
	"github.com/go-go-golems/chatscript/pkg/variables"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Runner drives one backend through a script, one turn at a time, sending
// the whole history on every turn.
type Runner struct {
	backend         backends.Backend
	resolver        *script.Resolver
	systemPrompt    string
	sink            events.EventSink
	strictReminders bool
	now             func() time.Time
}

type Option func(*Runner)

// WithSystemPrompt replaces the default system prompt. An empty prompt
// starts the history without a system message.
func WithSystemPrompt(prompt string) Option {
	return func(r *Runner) {
		r.systemPrompt = prompt
	}
}

func WithEventSink(sink events.EventSink) Option {
	return func(r *Runner) {
		r.sink = sink
	}
}

// WithStrictReminders rejects scripts with a reminder that refers to no
// earlier entry, before anything is sent.
func WithStrictReminders(strict bool) Option {
	return func(r *Runner) {
		r.strictReminders = strict
	}
}

func WithNow(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

func New(backend backends.Backend, vars *variables.Variables, options ...Option) *Runner {
	ret := &Runner{
		backend:      backend,
		resolver:     script.NewResolver(vars),
		systemPrompt: settings.DefaultSystemPrompt,
		sink:         events.NullSink{},
		now:          time.Now,
	}
	for _, o := range options {
		o(ret)
	}
	return ret
}

type run struct {
	*Runner
	id uuid.UUID
}

func (r *run) metadata(index int, name string) events.EventMetadata {
	return events.EventMetadata{
		ID:    uuid.New(),
		RunID: r.id,
		Model: r.backend.Model(),
		Index: index,
		Name:  name,
	}
}

func (r *run) publish(e events.Event) {
	if err := r.sink.PublishEvent(e); err != nil {
		log.Warn().Err(err).Str("event_type", string(e.Type())).Msg("failed to publish event")
	}
}

// Run executes every entry of s in order and returns the transcript. The
// first backend error aborts the run; no transcript is returned then.
func (r *Runner) Run(ctx context.Context, s *script.Script) (*transcript.Transcript, error) {
	if err := s.Validate(r.strictReminders); err != nil {
		return nil, err
	}
	accounting := r.backend.Accounting()
	if err := accounting.Validate(); err != nil {
		return nil, err
	}

	t := transcript.New(r.backend.Model(), r.now())
	r_ := &run{Runner: r, id: t.RunID}
	tracker := usage.NewTracker(accounting)

	logger := log.With().Str("run_id", t.RunID.String()).Str("model", t.Model).Logger()
	logger.Info().Int("entries", len(s.Entries)).Str("accounting", string(accounting)).Msg("starting run")
	r_.publish(events.NewRunStartEvent(r_.metadata(-1, ""), len(s.Entries), accounting))

	history := conversation.NewManager(conversation.WithManagerConversationID(t.RunID))
	if r.systemPrompt != "" {
		history.AppendMessages(conversation.NewChatMessage(conversation.RoleSystem, r.systemPrompt,
			conversation.WithTime(t.StartedAt)))
	}

	for i, e := range s.Entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resolved := r.resolver.Resolve(e, t)
		if resolved.Unresolved != nil {
			logger.Warn().Err(resolved.Unresolved).Int("index", i).Msg("reminder has nothing to append")
			r_.publish(events.NewReminderUnresolvedEvent(r_.metadata(i, e.Name), resolved.Unresolved.Key))
		}
		if len(resolved.MissingVariables) > 0 {
			logger.Warn().Strs("tokens", resolved.MissingVariables).Int("index", i).Str("name", e.Name).
				Msg("placeholders left without a value")
			r_.publish(events.NewMissingVariablesEvent(r_.metadata(i, e.Name), resolved.MissingVariables))
		}

		r_.publish(events.NewTurnStartEvent(r_.metadata(i, e.Name), resolved.Text))
		history.AppendMessages(conversation.NewChatMessage(conversation.RoleUser, resolved.Text,
			conversation.WithName(e.Name), conversation.WithTime(r.now())))

		reply, err := r.backend.SendTurn(ctx, history.GetConversation())
		if err != nil {
			err = errors.Wrapf(err, "turn %d (%s)", i, e.Name)
			r_.publish(events.NewErrorEvent(r_.metadata(i, e.Name), err))
			return nil, err
		}

		history.AppendMessages(conversation.NewChatMessage(conversation.RoleAssistant, reply.Content,
			conversation.WithName(e.Name), conversation.WithTime(r.now())))
		t.Record(e.Name, resolved.Text, reply.Content)

		turn, err := tracker.Observe(reply.Usage)
		if err != nil {
			return nil, err
		}
		logger.Debug().Int("index", i).Str("name", e.Name).Int("messages", history.Len()).
			Object("usage", turn).Object("totals", tracker.Totals()).
			Msg("turn complete")
		r_.publish(events.NewTurnCompleteEvent(r_.metadata(i, e.Name), resolved.Text, reply.Content, turn, tracker.Totals()))
	}

	t.CompletedAt = r.now()
	logger.Info().Int("turns", tracker.Turns()).Object("totals", tracker.Totals()).Msg("run complete")
	r_.publish(events.NewRunCompleteEvent(r_.metadata(-1, ""), tracker.Turns(), tracker.Totals()))

	return t, nil
}

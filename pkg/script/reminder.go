package script

import (
	"fmt"
	"strings"
)

const (
	ReminderPrefix    = "reminder_"
	reminderSeparator = "_"
)

// ReminderKey returns the name of the entry a reminder refers to: the last
// "_"-separated segment of the reminder's name. "reminder_step_two" refers
// to "two", not "step_two".
func ReminderKey(name string) (string, bool) {
	if !strings.HasPrefix(name, ReminderPrefix) {
		return "", false
	}
	parts := strings.Split(name, reminderSeparator)
	return parts[len(parts)-1], true
}

// UnresolvedReminderError flags a reminder whose key has no earlier output.
// The reminder is still sent, with nothing appended.
type UnresolvedReminderError struct {
	Name string
	Key  string
}

func (e *UnresolvedReminderError) Error() string {
	return fmt.Sprintf("reminder %s refers to %s, which has no earlier output", e.Name, e.Key)
}

// Validate checks the script before any turn is dispatched. With strict set,
// reminders must refer to an entry that appears earlier in the script.
func (s *Script) Validate(strict bool) error {
	if s == nil || len(s.Entries) == 0 {
		return &FormatError{Index: -1, Reason: "script has no entries"}
	}

	seen := map[string]bool{}
	for i, e := range s.Entries {
		if e.Name == "" {
			return &FormatError{Index: i, Reason: "entry has an empty name"}
		}
		if key, ok := ReminderKey(e.Name); ok && strict && !seen[key] {
			return &FormatError{Index: i, Reason: (&UnresolvedReminderError{Name: e.Name, Key: key}).Error()}
		}
		seen[e.Name] = true
	}
	return nil
}

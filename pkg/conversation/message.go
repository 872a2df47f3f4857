package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

type NodeID uuid.UUID

func NewNodeID() NodeID {
	return NodeID(uuid.New())
}

func (id NodeID) String() string {
	return uuid.UUID(id).String()
}

type Message struct {
	ID   NodeID    `json:"id"`
	Role Role      `json:"role"`
	Text string    `json:"text"`
	Time time.Time `json:"time"`
	// Name is the script entry a user or assistant message belongs to.
	Name string `json:"name,omitempty"`
}

type MessageOption func(*Message)

func WithTime(t time.Time) MessageOption {
	return func(m *Message) {
		m.Time = t
	}
}

func WithName(name string) MessageOption {
	return func(m *Message) {
		m.Name = name
	}
}

func NewChatMessage(role Role, text string, options ...MessageOption) *Message {
	ret := &Message{
		ID:   NewNodeID(),
		Role: role,
		Text: text,
		Time: time.Now(),
	}
	for _, o := range options {
		o(ret)
	}
	return ret
}

func (m *Message) View() string {
	return fmt.Sprintf("[%s]: %s", m.Role, strings.TrimRight(m.Text, "\n"))
}

// Conversation is the ordered message history of one run.
type Conversation []*Message

// SystemPrompt returns the concatenated text of all system messages.
func (c Conversation) SystemPrompt() string {
	parts := []string{}
	for _, m := range c {
		if m.Role == RoleSystem {
			parts = append(parts, m.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// WithoutSystem returns the user and assistant messages, for providers that
// take the system prompt out of band.
func (c Conversation) WithoutSystem() Conversation {
	ret := make(Conversation, 0, len(c))
	for _, m := range c {
		if m.Role != RoleSystem {
			ret = append(ret, m)
		}
	}
	return ret
}

func (c Conversation) Last() *Message {
	if len(c) == 0 {
		return nil
	}
	return c[len(c)-1]
}

func (c Conversation) Clone() Conversation {
	ret := make(Conversation, len(c))
	for i, m := range c {
		m_ := *m
		ret[i] = &m_
	}
	return ret
}

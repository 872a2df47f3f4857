package conversation

import (
	"github.com/google/uuid"
)

// Manager keeps the linear history of one conversation. Messages are only
// ever appended; nothing is branched, edited or dropped.
type Manager interface {
	GetConversation() Conversation
	AppendMessages(msgs ...*Message)
	GetMessage(ID NodeID) (*Message, bool)
}

type ManagerImpl struct {
	ConversationID uuid.UUID
	messages       Conversation
	index          map[NodeID]*Message
}

var _ Manager = (*ManagerImpl)(nil)

type ManagerOption func(*ManagerImpl)

func WithMessages(messages ...*Message) ManagerOption {
	return func(m *ManagerImpl) {
		m.AppendMessages(messages...)
	}
}

func WithManagerConversationID(conversationID uuid.UUID) ManagerOption {
	return func(m *ManagerImpl) {
		m.ConversationID = conversationID
	}
}

func NewManager(options ...ManagerOption) *ManagerImpl {
	ret := &ManagerImpl{
		ConversationID: uuid.New(),
		index:          map[NodeID]*Message{},
	}
	for _, o := range options {
		o(ret)
	}
	return ret
}

// GetConversation returns a copy of the history; appending to it or editing
// its messages does not affect the manager.
func (m *ManagerImpl) GetConversation() Conversation {
	return m.messages.Clone()
}

func (m *ManagerImpl) AppendMessages(msgs ...*Message) {
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		m.messages = append(m.messages, msg)
		m.index[msg.ID] = msg
	}
}

func (m *ManagerImpl) GetMessage(ID NodeID) (*Message, bool) {
	msg, ok := m.index[ID]
	return msg, ok
}

func (m *ManagerImpl) Len() int {
	return len(m.messages)
}

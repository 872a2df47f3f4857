package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationHelpers(t *testing.T) {
	ts := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	c := Conversation{
		NewChatMessage(RoleSystem, "be helpful", WithTime(ts)),
		NewChatMessage(RoleUser, "hello", WithName("intro")),
		NewChatMessage(RoleAssistant, "hi\n", WithName("intro")),
	}

	assert.Equal(t, "be helpful", c.SystemPrompt())
	rest := c.WithoutSystem()
	require.Len(t, rest, 2)
	assert.Equal(t, RoleUser, rest[0].Role)
	assert.Equal(t, "intro", rest[0].Name)
	assert.Equal(t, ts, c[0].Time)
	assert.Equal(t, "[assistant]: hi", c.Last().View())

	clone := c.Clone()
	clone[1].Text = "changed"
	assert.Equal(t, "hello", c[1].Text)

	assert.Nil(t, Conversation{}.Last())
	assert.Equal(t, "", Conversation{}.SystemPrompt())
}

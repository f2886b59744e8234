package crm

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversation_Receive(t *testing.T) {
	c := NewConversation(uuid.New(), uuid.New(), "5511987654321")
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	m, err := c.Receive(ReceiveInput{ExternalID: "wamid.1", Body: "Oi, tem ração?", SentAt: at})
	require.NoError(t, err)

	assert.Equal(t, KindText, m.Kind)
	assert.Equal(t, DirectionInbound, m.Direction)
	assert.Equal(t, 1, c.Unread)
	assert.Equal(t, "Oi, tem ração?", c.LastPreview)
	assert.Equal(t, at, *c.LastMessageAt)
	assert.Len(t, c.PendingMessages(), 1)
	require.Len(t, c.GetDomainEvents(), 1)
	assert.Equal(t, EventTypeMessageReceived, c.GetDomainEvents()[0].EventType())

	_, err = c.Receive(ReceiveInput{Body: "no id"})
	assert.Error(t, err)
}

func TestConversation_Compose(t *testing.T) {
	c := NewConversation(uuid.New(), uuid.New(), "5511987654321")
	c.Unread = 3

	m, err := c.Compose("Temos sim!", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, m.Status)
	assert.Zero(t, c.Unread)
	assert.Empty(t, c.GetDomainEvents())

	_, err = c.Compose("   ", nil)
	assert.Error(t, err)

	m.MarkSent("wamid.out")
	assert.Equal(t, StatusSent, m.Status)
	assert.Equal(t, "wamid.out", m.ExternalID)
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("á", 100)
	p := preview(long)
	assert.Equal(t, 80, len([]rune(p)))
	assert.True(t, strings.HasSuffix(p, "..."))
}

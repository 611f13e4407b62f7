package conversation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in the transcript. Messages are treated as
// immutable once appended; rollback removes them wholesale instead of
// editing them in place.
type Message struct {
	ID   uuid.UUID `json:"id"`
	Time time.Time `json:"time"`
	Role Role      `json:"role"`
	Text string    `json:"text"`
}

type MessageOption func(*Message)

func WithTime(t time.Time) MessageOption {
	return func(m *Message) {
		m.Time = t
	}
}

func WithID(id uuid.UUID) MessageOption {
	return func(m *Message) {
		m.ID = id
	}
}

func NewChatMessage(role Role, text string, options ...MessageOption) *Message {
	ret := &Message{
		ID:   uuid.New(),
		Time: time.Now(),
		Role: role,
		Text: text,
	}

	for _, option := range options {
		option(ret)
	}

	return ret
}

func (m *Message) View() string {
	return fmt.Sprintf("[%s]: %s", m.Role, strings.TrimRight(m.Text, "\n"))
}

func (m *Message) MarshalJSON() ([]byte, error) {
	type Alias Message
	return json.Marshal((*Alias)(m))
}

type Conversation []*Message

func (c Conversation) View() string {
	sb := strings.Builder{}
	for _, m := range c {
		sb.WriteString(m.View())
		sb.WriteString("\n")
	}
	return sb.String()
}

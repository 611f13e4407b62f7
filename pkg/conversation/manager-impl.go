package conversation

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type ManagerImpl struct {
	ConversationID uuid.UUID
	messages       Conversation
}

var _ Manager = (*ManagerImpl)(nil)

type ManagerOption func(*ManagerImpl)

func WithSystemPrompt(prompt string) ManagerOption {
	return func(m *ManagerImpl) {
		m.messages = append(Conversation{NewChatMessage(RoleSystem, prompt)}, m.messages...)
	}
}

func WithMessages(messages ...*Message) ManagerOption {
	return func(m *ManagerImpl) {
		m.AppendMessages(messages...)
	}
}

func WithConversationID(conversationID uuid.UUID) ManagerOption {
	return func(m *ManagerImpl) {
		m.ConversationID = conversationID
	}
}

func NewManager(options ...ManagerOption) *ManagerImpl {
	ret := &ManagerImpl{
		ConversationID: uuid.Nil,
	}
	for _, option := range options {
		option(ret)
	}

	if ret.ConversationID == uuid.Nil {
		ret.ConversationID = uuid.New()
	}

	return ret
}

func (c *ManagerImpl) GetConversation() Conversation {
	ret := make(Conversation, len(c.messages))
	copy(ret, c.messages)
	return ret
}

func (c *ManagerImpl) Len() int {
	return len(c.messages)
}

func (c *ManagerImpl) AppendMessages(messages ...*Message) {
	for _, msg := range messages {
		log.Trace().
			Str("conversation_id", c.ConversationID.String()).
			Str("message_id", msg.ID.String()).
			Str("role", string(msg.Role)).
			Int("transcript_length", len(c.messages)+1).
			Msg("appending message to transcript")
	}
	c.messages = append(c.messages, messages...)
}

// PopLastMessage is the rollback primitive: it removes the most recently
// appended message. The system message at index 0 is never removed.
func (c *ManagerImpl) PopLastMessage() (*Message, bool) {
	if len(c.messages) == 0 {
		return nil, false
	}

	last := c.messages[len(c.messages)-1]
	if last.Role == RoleSystem {
		return nil, false
	}

	c.messages = c.messages[:len(c.messages)-1]
	log.Trace().
		Str("conversation_id", c.ConversationID.String()).
		Str("message_id", last.ID.String()).
		Str("role", string(last.Role)).
		Int("transcript_length", len(c.messages)).
		Msg("rolled back message from transcript")

	return last, true
}

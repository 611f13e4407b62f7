// Package conversation manages the transcript of a single chat session.
//
// The transcript is a linear, ordered sequence of role-tagged messages. The
// first message is always the system prompt, set at creation and never
// removed. User messages are appended speculatively before a turn; the
// matching assistant message is only appended when the turn produced a
// usable reply, otherwise the speculative user message is popped again so
// the transcript never accumulates unanswered turns.
package conversation

// Manager defines the transcript operations the chat session relies on.
type Manager interface {
	GetConversation() Conversation
	AppendMessages(msgs ...*Message)
	// PopLastMessage removes and returns the most recent non-system message.
	// It refuses to remove the system message at index 0.
	PopLastMessage() (*Message, bool)
	Len() int
}

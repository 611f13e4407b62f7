package chat

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/grillo/pkg/conversation"
	"github.com/go-go-golems/grillo/pkg/events"
	"github.com/go-go-golems/grillo/pkg/openrouter"
)

const summarizeInstruction = "Please give me a brief summary of the following content."

// Session drives turns end to end and is the sole owner of the transcript.
// Turns are strictly sequential; there is no concurrent-turn support.
type Session struct {
	manager   conversation.Manager
	client    *openrouter.Client
	assembler *Assembler
	model     string
}

type SessionOption func(*Session)

func WithManager(manager conversation.Manager) SessionOption {
	return func(s *Session) {
		s.manager = manager
	}
}

func NewSession(client *openrouter.Client, model string, systemPrompt string, assembler *Assembler, options ...SessionOption) *Session {
	ret := &Session{
		client:    client,
		assembler: assembler,
		model:     model,
	}

	for _, option := range options {
		option(ret)
	}

	if ret.manager == nil {
		ret.manager = conversation.NewManager(conversation.WithSystemPrompt(systemPrompt))
	}

	return ret
}

func (s *Session) CurrentModel() string {
	return s.model
}

// SetModel switches the model used by subsequent turns. The transcript and
// any in-flight turn are unaffected.
func (s *Session) SetModel(name string) {
	s.model = name
}

func (s *Session) Conversation() conversation.Conversation {
	return s.manager.GetConversation()
}

// SubmitTurn runs one turn: the user message is appended speculatively,
// sent with the full transcript, and the assistant reply committed on
// success. On any failure the speculative user message is rolled back, so
// the transcript only ever reflects turns that produced a usable reply.
func (s *Session) SubmitTurn(ctx context.Context, userText string) TurnOutcome {
	s.manager.AppendMessages(conversation.NewChatMessage(conversation.RoleUser, userText))

	outcome := s.runTurn(ctx, s.manager.GetConversation())

	if !outcome.Succeeded() {
		if _, ok := s.manager.PopLastMessage(); !ok {
			log.Error().Msg("failed to roll back speculative user message")
		}
		return outcome
	}

	s.manager.AppendMessages(conversation.NewChatMessage(conversation.RoleAssistant, outcome.Text))
	return outcome
}

// Summarize performs a one-shot turn over a transient transcript of
// [system, instruction, content]. The persistent transcript is never
// touched, regardless of outcome.
func (s *Session) Summarize(ctx context.Context, content string) TurnOutcome {
	persistent := s.manager.GetConversation()

	transient := conversation.Conversation{}
	if len(persistent) > 0 && persistent[0].Role == conversation.RoleSystem {
		transient = append(transient, persistent[0])
	}
	transient = append(transient,
		conversation.NewChatMessage(conversation.RoleUser, summarizeInstruction),
		conversation.NewChatMessage(conversation.RoleUser, content),
	)

	return s.runTurn(ctx, transient)
}

func (s *Session) runTurn(ctx context.Context, messages conversation.Conversation) TurnOutcome {
	metadata := events.EventMetadata{
		ID:     uuid.New(),
		TurnID: uuid.NewString(),
		Model:  s.model,
	}

	resp, err := s.client.StreamCompletion(ctx, s.model, messages)
	if err != nil {
		kind := classifyTransportError(err)
		log.Debug().Err(err).Str("kind", string(kind)).Msg("completion request failed before any status was known")
		return Failure(kind, err.Error())
	}

	return s.assembler.Assemble(ctx, resp, metadata)
}

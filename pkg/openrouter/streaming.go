package openrouter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type StreamEventType string

const (
	// ContentFragmentType carries one piece of assistant text.
	ContentFragmentType StreamEventType = "content-fragment"
	// DoneType is the terminal [DONE] sentinel.
	DoneType StreamEventType = "done"
	// ServerErrorType is a server-reported error object; terminal.
	ServerErrorType StreamEventType = "server-error"
	// MalformedType marks a data frame that failed to parse. Benign noise,
	// never terminal.
	MalformedType StreamEventType = "malformed"
)

// StreamEvent is one decoded frame of the completion event stream.
type StreamEvent struct {
	Type StreamEventType
	// Text is the fragment content for ContentFragmentType.
	Text string
	// Message is the server error message for ServerErrorType.
	Message string
}

var dataPrefix = []byte("data:")

const doneSentinel = "[DONE]"

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *ServerError `json:"error"`
}

// ServerError is the error object the service embeds in stream payloads and
// error response bodies.
type ServerError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

// EventStream decodes the line-oriented body of a streaming completion
// response into StreamEvents. It is a lazy, finite, single-pass pull
// iterator bound to the lifetime of the one open response body: not
// restartable, safe to abandon mid-sequence via Close.
type EventStream struct {
	body   io.ReadCloser
	reader *bufio.Reader
	done   bool
}

func newEventStream(body io.ReadCloser) *EventStream {
	return &EventStream{
		body:   body,
		reader: bufio.NewReader(body),
	}
}

// Next returns the next decoded event, or io.EOF once the sequence is
// exhausted. The sequence ends after the [DONE] sentinel, after a server
// error object, or when the underlying stream closes without either
// (silent truncation — the caller decides what the accumulated text is
// worth). Read errors other than EOF also end the sequence; they are
// logged and treated as truncation.
func (s *EventStream) Next() (*StreamEvent, error) {
	if s.done {
		return nil, io.EOF
	}

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if len(bytes.TrimSpace(line)) == 0 {
				if err != io.EOF && !errors.Is(err, context.Canceled) {
					log.Warn().Err(err).Msg("event stream ended with read error")
				}
				s.done = true
				return nil, io.EOF
			}
			// a final unterminated line still gets decoded below
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if !bytes.HasPrefix(line, dataPrefix) {
			// comment or keep-alive line, not a data frame
			continue
		}

		payload := bytes.TrimSpace(line[len(dataPrefix):])
		if string(payload) == doneSentinel {
			s.done = true
			return &StreamEvent{Type: DoneType}, nil
		}

		var chunk streamChunk
		if err := json.Unmarshal(payload, &chunk); err != nil {
			log.Debug().Err(err).Msg("skipping malformed stream payload")
			return &StreamEvent{Type: MalformedType}, nil
		}

		if len(chunk.Choices) > 0 {
			choice := chunk.Choices[0]
			if choice.Delta.Content != nil {
				return &StreamEvent{Type: ContentFragmentType, Text: *choice.Delta.Content}, nil
			}
			if choice.FinishReason != nil {
				// the finish reason is not surfaced further
				continue
			}
			continue
		}

		if chunk.Error != nil {
			s.done = true
			return &StreamEvent{Type: ServerErrorType, Message: chunk.Error.Message}, nil
		}

		// a data frame with neither choices nor error; nothing to yield
		continue
	}
}

func (s *EventStream) Close() error {
	s.done = true
	return s.body.Close()
}

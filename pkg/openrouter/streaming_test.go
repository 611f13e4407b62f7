package openrouter

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStream(body string) *EventStream {
	return newEventStream(io.NopCloser(strings.NewReader(body)))
}

func collectEvents(t *testing.T, s *EventStream) []*StreamEvent {
	t.Helper()

	ret := []*StreamEvent{}
	for {
		event, err := s.Next()
		if err == io.EOF {
			return ret
		}
		require.NoError(t, err)
		ret = append(ret, event)
	}
}

func TestEventStreamFragmentsAndDone(t *testing.T) {
	s := newTestStream(
		"data: {\"choices\":[{\"delta\":{\"content\":\"Hello\"}}]}\n" +
			"\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\" world\"}}]}\n" +
			"\n" +
			"data: [DONE]\n")

	events := collectEvents(t, s)
	require.Len(t, events, 3)

	assert.Equal(t, ContentFragmentType, events[0].Type)
	assert.Equal(t, "Hello", events[0].Text)
	assert.Equal(t, ContentFragmentType, events[1].Type)
	assert.Equal(t, " world", events[1].Text)
	assert.Equal(t, DoneType, events[2].Type)
}

func TestEventStreamEmptyFragment(t *testing.T) {
	s := newTestStream(
		"data: {\"choices\":[{\"delta\":{\"content\":\"\"}}]}\n" +
			"data: [DONE]\n")

	events := collectEvents(t, s)
	require.Len(t, events, 2)
	assert.Equal(t, ContentFragmentType, events[0].Type)
	assert.Equal(t, "", events[0].Text)
	assert.Equal(t, DoneType, events[1].Type)
}

func TestEventStreamServerError(t *testing.T) {
	s := newTestStream(
		"data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n" +
			"data: {\"error\":{\"message\":\"boom\",\"type\":\"server_error\"}}\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"never seen\"}}]}\n")

	event, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, ContentFragmentType, event.Type)

	event, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, ServerErrorType, event.Type)
	assert.Equal(t, "boom", event.Message)

	// an error frame is terminal, the rest of the body is not decoded
	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestEventStreamMalformedPayload(t *testing.T) {
	s := newTestStream(
		"data: {not json at all\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"after\"}}]}\n" +
			"data: [DONE]\n")

	events := collectEvents(t, s)
	require.Len(t, events, 3)
	assert.Equal(t, MalformedType, events[0].Type)
	assert.Equal(t, ContentFragmentType, events[1].Type)
	assert.Equal(t, "after", events[1].Text)
	assert.Equal(t, DoneType, events[2].Type)
}

func TestEventStreamSilentTruncation(t *testing.T) {
	s := newTestStream(
		"data: {\"choices\":[{\"delta\":{\"content\":\"cut\"}}]}\n")

	event, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, ContentFragmentType, event.Type)
	assert.Equal(t, "cut", event.Text)

	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestEventStreamFinishReasonSkipped(t *testing.T) {
	s := newTestStream(
		"data: {\"choices\":[{\"delta\":{\"content\":\"text\"}}]}\n" +
			"data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}]}\n" +
			"data: [DONE]\n")

	events := collectEvents(t, s)
	require.Len(t, events, 2)
	assert.Equal(t, ContentFragmentType, events[0].Type)
	assert.Equal(t, DoneType, events[1].Type)
}

func TestEventStreamIgnoresNonDataLines(t *testing.T) {
	s := newTestStream(
		": keep-alive\n" +
			"event: message\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n" +
			"data: [DONE]\n")

	events := collectEvents(t, s)
	require.Len(t, events, 2)
	assert.Equal(t, "ok", events[0].Text)
	assert.Equal(t, DoneType, events[1].Type)
}

func TestEventStreamUnterminatedFinalLine(t *testing.T) {
	s := newTestStream(
		"data: {\"choices\":[{\"delta\":{\"content\":\"end\"}}]}\n" +
			"data: [DONE]")

	events := collectEvents(t, s)
	require.Len(t, events, 2)
	assert.Equal(t, "end", events[0].Text)
	assert.Equal(t, DoneType, events[1].Type)
}

func TestEventStreamNextAfterDone(t *testing.T) {
	s := newTestStream("data: [DONE]\n")

	event, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, DoneType, event.Type)

	for i := 0; i < 3; i++ {
		_, err = s.Next()
		assert.Equal(t, io.EOF, err)
	}
}

func TestEventStreamCloseEndsSequence(t *testing.T) {
	s := newTestStream(
		"data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n")

	_, err := s.Next()
	require.NoError(t, err)

	require.NoError(t, s.Close())
	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
}

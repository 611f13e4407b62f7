package chat

import (
	"context"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/grillo/pkg/events"
	"github.com/go-go-golems/grillo/pkg/openrouter"
)

// Assembler reassembles one streamed completion into a TurnOutcome,
// publishing each fragment to the configured sinks as it arrives (the
// real-time console echo).
type Assembler struct {
	sinks []events.EventSink
}

func NewAssembler(sinks ...events.EventSink) *Assembler {
	return &Assembler{sinks: sinks}
}

func (a *Assembler) publishEvent(event events.Event) {
	for _, sink := range a.sinks {
		if err := sink.PublishEvent(event); err != nil {
			log.Warn().Err(err).Str("event_type", string(event.Type())).Msg("failed to publish event to sink")
		}
	}
}

// Assemble consumes the response for one turn and classifies the outcome.
//
// Non-200 statuses are classified from the status code alone; the body is
// only read to extract a display message, never decoded as a stream.
//
// For a 200 response the event sequence is drained: fragments accumulate
// and are echoed through the sinks; [DONE] or silent stream truncation
// finalize with the accumulated text (empty text counts as a malformed
// response); a server-reported error discards the accumulator even though
// fragments may already have been echoed — the console and the committed
// transcript are allowed to diverge in that one case.
//
// Cancellation mid-stream fails the turn with an interrupt event, whether
// it surfaces through the context or through the aborted body read.
func (a *Assembler) Assemble(ctx context.Context, resp *openrouter.StreamResponse, metadata events.EventMetadata) TurnOutcome {
	defer func() {
		_ = resp.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		kind := classifyStatus(resp.StatusCode)
		message := extractErrorMessage(resp.ErrorBody())
		log.Debug().
			Int("status_code", resp.StatusCode).
			Str("kind", string(kind)).
			Msg("completion request rejected")
		outcome := Failure(kind, message)
		a.publishEvent(events.NewErrorEvent(metadata, outcome.Err))
		return outcome
	}

	a.publishEvent(events.NewStartEvent(metadata))

	stream := resp.Events()
	completion := ""

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("turn cancelled mid-stream")
			a.publishEvent(events.NewInterruptEvent(metadata, completion))
			_ = stream.Close()
			return Failure(FailureOther, "interrupted")

		default:
			event, err := stream.Next()
			if err != nil {
				// a read cut short by cancellation is an interrupt, never
				// truncation: the partial must not be committed
				if ctx.Err() != nil {
					log.Debug().Msg("turn cancelled mid-stream")
					a.publishEvent(events.NewInterruptEvent(metadata, completion))
					_ = stream.Close()
					return Failure(FailureOther, "interrupted")
				}
				if !errors.Is(err, io.EOF) {
					// the decoder reports everything else as events; treat a
					// stray error like truncation
					log.Warn().Err(err).Msg("event stream failed")
				}
				return a.finalize(completion, metadata)
			}

			switch event.Type {
			case openrouter.ContentFragmentType:
				completion += event.Text
				a.publishEvent(events.NewPartialCompletionEvent(metadata, event.Text, completion))

			case openrouter.DoneType:
				return a.finalize(completion, metadata)

			case openrouter.ServerErrorType:
				outcome := Failure(FailureServerError, event.Message)
				a.publishEvent(events.NewErrorEvent(metadata, outcome.Err))
				return outcome

			case openrouter.MalformedType:
				// benign noise, skipped
			}
		}
	}
}

func (a *Assembler) finalize(completion string, metadata events.EventMetadata) TurnOutcome {
	if completion == "" {
		outcome := Failure(FailureMalformedResponse, "")
		a.publishEvent(events.NewErrorEvent(metadata, outcome.Err))
		return outcome
	}
	a.publishEvent(events.NewFinalEvent(metadata, completion))
	return Success(completion)
}

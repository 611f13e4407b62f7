package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/pkg/errors"

	"github.com/go-go-golems/grillo/pkg/openrouter"
)

// FailureKind classifies why a turn produced no usable reply.
type FailureKind string

const (
	// transport layer, before any HTTP status is known
	FailureTimeout         FailureKind = "timeout"
	FailureConnectionError FailureKind = "connection-error"

	// protocol/application layer
	FailureUnauthorized FailureKind = "unauthorized"
	FailureBadRequest   FailureKind = "bad-request"
	FailureRateLimited  FailureKind = "rate-limited"
	FailureServerError  FailureKind = "server-error"

	// decoding layer: the stream completed without usable content
	FailureMalformedResponse FailureKind = "malformed-response"

	FailureOther FailureKind = "other"
)

// TurnOutcome is the result of one full turn: either the assembled reply
// text, or a classified failure.
type TurnOutcome struct {
	Text string
	Err  *TurnError
}

func Success(text string) TurnOutcome {
	return TurnOutcome{Text: text}
}

func Failure(kind FailureKind, message string) TurnOutcome {
	return TurnOutcome{Err: &TurnError{Kind: kind, Message: message}}
}

func (o TurnOutcome) Succeeded() bool {
	return o.Err == nil
}

// TurnError carries the failure classification plus an optional
// server-provided message for display.
type TurnError struct {
	Kind    FailureKind
	Message string
}

func (e *TurnError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// UserMessage renders a human-readable diagnostic per failure kind, in the
// register the interaction driver prints to stderr.
func (e *TurnError) UserMessage() string {
	switch e.Kind {
	case FailureUnauthorized:
		return "Authentication error (HTTP 401). Please check your API key and try again."
	case FailureBadRequest:
		if e.Message != "" {
			return fmt.Sprintf("Bad request (HTTP 400): %s", e.Message)
		}
		return "Bad request (HTTP 400)."
	case FailureRateLimited:
		return "Rate limit exceeded (HTTP 429). Please try again later."
	case FailureServerError:
		if e.Message != "" {
			return fmt.Sprintf("Server error: %s", e.Message)
		}
		return "Server error. Please try again."
	case FailureTimeout:
		return "Network error: the request timed out. Please check your network connection."
	case FailureConnectionError:
		if e.Message != "" {
			return fmt.Sprintf("Network error: could not reach the completions endpoint (%s).", e.Message)
		}
		return "Network error: could not reach the completions endpoint."
	case FailureMalformedResponse:
		return "The service returned no usable content."
	default:
		if e.Message != "" {
			return fmt.Sprintf("Unexpected error: %s", e.Message)
		}
		return "Unexpected error."
	}
}

func classifyStatus(statusCode int) FailureKind {
	switch statusCode {
	case http.StatusUnauthorized:
		return FailureUnauthorized
	case http.StatusBadRequest:
		return FailureBadRequest
	case http.StatusTooManyRequests:
		return FailureRateLimited
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return FailureServerError
	default:
		return FailureOther
	}
}

// classifyTransportError maps a failed request (no status code known) onto
// the transport failure kinds.
func classifyTransportError(err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	return FailureConnectionError
}

// extractErrorMessage pulls a message out of a non-200 JSON body. Both the
// flat {"message": ...} and the nested {"error": {"message": ...}} shapes
// are accepted; parse failures are tolerated and yield "".
func extractErrorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var payload struct {
		Message string                  `json:"message"`
		Error   *openrouter.ServerError `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Error != nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return payload.Message
}

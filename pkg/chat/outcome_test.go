package chat

import (
	"context"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		statusCode int
		kind       FailureKind
	}{
		{http.StatusUnauthorized, FailureUnauthorized},
		{http.StatusBadRequest, FailureBadRequest},
		{http.StatusTooManyRequests, FailureRateLimited},
		{http.StatusInternalServerError, FailureServerError},
		{http.StatusBadGateway, FailureServerError},
		{http.StatusServiceUnavailable, FailureServerError},
		{http.StatusGatewayTimeout, FailureServerError},
		{http.StatusNotFound, FailureOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.kind, classifyStatus(tt.statusCode), "status %d", tt.statusCode)
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassifyTransportError(t *testing.T) {
	assert.Equal(t, FailureTimeout, classifyTransportError(context.DeadlineExceeded))
	assert.Equal(t, FailureTimeout, classifyTransportError(errors.Wrap(context.DeadlineExceeded, "request failed")))
	assert.Equal(t, FailureTimeout, classifyTransportError(timeoutError{}))
	assert.Equal(t, FailureConnectionError, classifyTransportError(errors.New("connection refused")))
}

func TestExtractErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"nested error object", `{"error":{"message":"invalid api key"}}`, "invalid api key"},
		{"flat message", `{"message":"bad model"}`, "bad model"},
		{"nested wins over flat", `{"message":"outer","error":{"message":"inner"}}`, "inner"},
		{"empty body", ``, ""},
		{"not json", `<html>502</html>`, ""},
		{"empty object", `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractErrorMessage([]byte(tt.body)))
		})
	}
}

func TestTurnErrorUserMessage(t *testing.T) {
	tests := []struct {
		kind     FailureKind
		message  string
		contains string
	}{
		{FailureUnauthorized, "", "HTTP 401"},
		{FailureBadRequest, "bad model", "bad model"},
		{FailureRateLimited, "", "HTTP 429"},
		{FailureServerError, "boom", "boom"},
		{FailureTimeout, "", "timed out"},
		{FailureConnectionError, "", "could not reach"},
		{FailureMalformedResponse, "", "no usable content"},
		{FailureOther, "odd", "odd"},
	}

	for _, tt := range tests {
		err := &TurnError{Kind: tt.kind, Message: tt.message}
		assert.Contains(t, err.UserMessage(), tt.contains, "kind %s", tt.kind)
	}
}

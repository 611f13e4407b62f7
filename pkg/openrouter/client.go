package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/grillo/pkg/conversation"
	"github.com/go-go-golems/grillo/pkg/security"
)

const DefaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"

const defaultConnectTimeout = 60 * time.Second

// maximum amount of an error response body we are willing to read
const maxErrorBodySize = 64 * 1024

// ChatMessage is the wire form of a transcript message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// Client issues streaming completion requests against a single endpoint.
// It holds no per-turn state; one Client serves the whole session.
//
// The connect timeout bounds dialing, the TLS handshake and the wait for
// response headers. The body read loop is deliberately unbounded: once the
// server is streaming, a slow fragment is not an error. A stalled-but-open
// stream can therefore block until cancelled.
type Client struct {
	httpClient *http.Client

	baseURL        string
	apiKey         string
	referer        string
	title          string
	connectTimeout time.Duration
	allowLocal     bool
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func WithConnectTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.connectTimeout = d
	}
}

// WithHTTPReferer sets the optional descriptive Referer header.
func WithHTTPReferer(referer string) Option {
	return func(c *Client) {
		c.referer = referer
	}
}

// WithAppTitle sets the optional descriptive X-Title header.
func WithAppTitle(title string) Option {
	return func(c *Client) {
		c.title = title
	}
}

// WithAllowLocalEndpoints permits http:// and loopback base URLs. Used by
// tests and self-hosted gateways.
func WithAllowLocalEndpoints() Option {
	return func(c *Client) {
		c.allowLocal = true
	}
}

func NewClient(apiKey string, options ...Option) (*Client, error) {
	ret := &Client{
		apiKey:         apiKey,
		baseURL:        DefaultBaseURL,
		connectTimeout: defaultConnectTimeout,
	}

	for _, option := range options {
		option(ret)
	}

	if ret.apiKey == "" {
		return nil, errors.New("API key is required")
	}
	if err := security.ValidateEndpointURL(ret.baseURL, ret.allowLocal); err != nil {
		return nil, err
	}

	ret.httpClient = &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: ret.connectTimeout,
			}).DialContext,
			TLSHandshakeTimeout:   ret.connectTimeout,
			ResponseHeaderTimeout: ret.connectTimeout,
		},
	}

	return ret, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		req.Header.Set("X-Title", c.title)
	}
}

// StreamCompletion POSTs the transcript with stream enabled and returns the
// open response. Transport failures (DNS, refused connection, connect
// timeout) surface as errors before any status code is known; everything
// else, including non-200 statuses, is reported through the StreamResponse.
// The caller owns the returned response and must Close it.
func (c *Client) StreamCompletion(ctx context.Context, model string, messages conversation.Conversation) (*StreamResponse, error) {
	wireMessages := make([]ChatMessage, 0, len(messages))
	for _, msg := range messages {
		wireMessages = append(wireMessages, ChatMessage{
			Role:    string(msg.Role),
			Content: msg.Text,
		})
	}

	body, err := json.Marshal(completionRequest{
		Model:    model,
		Messages: wireMessages,
		Stream:   true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal completion request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build completion request")
	}
	c.setHeaders(req)

	log.Debug().
		Str("model", model).
		Int("num_messages", len(wireMessages)).
		Msg("sending streaming completion request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "completion request failed")
	}

	return newStreamResponse(resp), nil
}

// StreamResponse is one open completion response. For a 200 status Events
// hands out the event stream; for anything else ErrorBody captures a
// bounded amount of the body so a message can be extracted.
type StreamResponse struct {
	StatusCode int

	body   io.ReadCloser
	stream *EventStream
}

func newStreamResponse(resp *http.Response) *StreamResponse {
	return &StreamResponse{
		StatusCode: resp.StatusCode,
		body:       resp.Body,
	}
}

// NewStreamResponse builds a StreamResponse from raw parts. Exported for
// tests that exercise the assembler without a network round trip.
func NewStreamResponse(statusCode int, body io.ReadCloser) *StreamResponse {
	return &StreamResponse{
		StatusCode: statusCode,
		body:       body,
	}
}

// Events returns the event stream over the response body. Single use.
func (r *StreamResponse) Events() *EventStream {
	if r.stream == nil {
		r.stream = newEventStream(r.body)
	}
	return r.stream
}

// ErrorBody reads up to maxErrorBodySize of the response body. Only
// meaningful for non-200 responses; the body is never decoded as an event
// stream in that case.
func (r *StreamResponse) ErrorBody() []byte {
	b, err := io.ReadAll(io.LimitReader(r.body, maxErrorBodySize))
	if err != nil {
		log.Debug().Err(err).Msg("failed to read error response body")
		return nil
	}
	return b
}

func (r *StreamResponse) Close() error {
	return r.body.Close()
}

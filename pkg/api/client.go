// Package api is the HTTP client for the knowledge-base assistant service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/go-go-golems/kbchat/pkg/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	pathCreateConversation = "/api/conversation/create/"
	pathSendMessage        = "/api/message/send/"
	pathListConversations  = "/api/conversations/"
)

// Client talks to the conversation service. It holds no conversation state.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	tokens      token.Provider
	tokenHeader string
}

type ClientOption func(*Client) error

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("nil http client")
		}
		c.httpClient = hc
		return nil
	}
}

func WithTokenProvider(p token.Provider) ClientOption {
	return func(c *Client) error {
		c.tokens = p
		return nil
	}
}

func WithTokenHeader(header string) ClientOption {
	return func(c *Client) error {
		if strings.TrimSpace(header) == "" {
			return errors.New("empty token header")
		}
		c.tokenHeader = header
		return nil
	}
}

// WithTimeout sets the overall request timeout. Zero leaves the transport
// default in place, which is no timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		c.httpClient.Timeout = d
		return nil
	}
}

// NewClient builds a client for baseURL. Unless WithHTTPClient is given the
// client gets its own cookie jar.
func NewClient(baseURL string, options ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "parse base url %q", baseURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "create cookie jar")
	}

	c := &Client{
		baseURL:     u,
		httpClient:  &http.Client{Jar: jar},
		tokenHeader: "X-CSRFToken",
	}
	for _, opt := range options {
		if err := opt(c); err != nil {
			return nil, errors.Wrap(err, "apply client option")
		}
	}
	return c, nil
}

// BaseURL returns the service root the client was built with.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Jar exposes the cookie jar so a token provider can read from it.
func (c *Client) Jar() http.CookieJar {
	return c.httpClient.Jar
}

// CreateConversation starts a new server-side conversation.
func (c *Client) CreateConversation(ctx context.Context, title string) (*Conversation, error) {
	var out Conversation
	err := c.do(ctx, http.MethodPost, pathCreateConversation,
		createConversationRequest{Title: title}, &out, failure{fallback: "Failed to create conversation", errorOnly: true})
	if err != nil {
		return nil, err
	}
	if out.ID.IsZero() {
		return nil, errors.Wrap(ErrInvalidResponse, "create conversation: missing id")
	}
	return &out, nil
}

// SendMessage posts message to the conversation and returns the assistant's
// reply.
func (c *Client) SendMessage(ctx context.Context, id ConversationID, message string) (*SendResult, error) {
	var raw struct {
		UserMessage *Message        `json:"user_message"`
		AIMessage   json.RawMessage `json:"ai_message"`
	}
	err := c.do(ctx, http.MethodPost, pathSendMessage,
		sendMessageRequest{ConversationID: id, Message: message}, &raw, failure{fallback: "Failed to send message"})
	if err != nil {
		return nil, err
	}
	if len(raw.AIMessage) == 0 {
		return nil, errors.Wrap(ErrInvalidResponse, "send message: missing ai_message")
	}
	var ai Message
	if err := json.Unmarshal(raw.AIMessage, &ai); err != nil {
		return nil, errors.Wrap(ErrInvalidResponse, "send message: malformed ai_message")
	}
	if ai.Content == "" {
		return nil, errors.Wrap(ErrInvalidResponse, "send message: empty ai_message.content")
	}
	return &SendResult{UserMessage: raw.UserMessage, AIMessage: ai}, nil
}

// ListConversations returns the user's conversations, most recently updated
// first.
func (c *Client) ListConversations(ctx context.Context) ([]Conversation, error) {
	var out listConversationsResponse
	if err := c.do(ctx, http.MethodGet, pathListConversations, nil, &out, failure{fallback: "Failed to load conversations"}); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

// GetConversation returns a conversation with its messages.
func (c *Client) GetConversation(ctx context.Context, id ConversationID) (*ConversationDetail, error) {
	if id.IsZero() {
		return nil, errors.New("get conversation: empty id")
	}
	var out ConversationDetail
	p := "/api/conversation/" + url.PathEscape(id.String()) + "/"
	if err := c.do(ctx, http.MethodGet, p, nil, &out, failure{fallback: "Failed to load conversation"}); err != nil {
		return nil, err
	}
	if out.ID.IsZero() {
		out.ID = id
	}
	return &out, nil
}

// DeleteConversation removes a conversation on the server.
func (c *Client) DeleteConversation(ctx context.Context, id ConversationID) error {
	if id.IsZero() {
		return errors.New("delete conversation: empty id")
	}
	p := "/api/conversation/" + url.PathEscape(id.String()) + "/delete/"
	return c.do(ctx, http.MethodDelete, p, nil, nil, failure{fallback: "Failed to delete conversation"})
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}, onFailure failure) error {
	u := c.baseURL.ResolveReference(&url.URL{Path: c.baseURL.Path + path})

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet && c.tokens != nil {
		if tok, ok := c.tokens.Token(); ok {
			req.Header.Set(c.tokenHeader, tok)
		}
	}
	req.Header.Set("Referer", c.baseURL.String()+"/")

	logger := log.With().Str("method", method).Str("path", path).Logger()
	logger.Debug().Msg("api request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Debug().Err(err).Msg("api transport error")
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response body")
	}
	logger.Debug().Int("status", resp.StatusCode).Int("bytes", len(payload)).Msg("api response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(payload, &eb)
		return newAPIError(resp.StatusCode, eb, onFailure)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return errors.Wrapf(ErrInvalidResponse, "decode %s %s: %v", method, path, err)
	}
	return nil
}

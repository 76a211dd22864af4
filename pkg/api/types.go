package api

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// ConversationID is the server-assigned conversation identifier. The server
// emits integers; the client treats the value as an opaque string.
type ConversationID string

func (id ConversationID) String() string { return string(id) }

// IsZero reports whether the id is absent.
func (id ConversationID) IsZero() bool { return strings.TrimSpace(string(id)) == "" }

func (id *ConversationID) UnmarshalJSON(b []byte) error {
	s, err := decodeID(b)
	if err != nil {
		return errors.Wrap(err, "conversation id")
	}
	*id = ConversationID(s)
	return nil
}

// MessageID identifies a stored message.
type MessageID string

func (id *MessageID) UnmarshalJSON(b []byte) error {
	s, err := decodeID(b)
	if err != nil {
		return errors.Wrap(err, "message id")
	}
	*id = MessageID(s)
	return nil
}

// decodeID accepts a JSON string, number or null.
func decodeID(b []byte) (string, error) {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return "", nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return "", errors.New("must be a string or a number")
	}
	return n.String(), nil
}

type Conversation struct {
	ID        ConversationID `json:"id" yaml:"id"`
	Title     string         `json:"title" yaml:"title"`
	Preview   string         `json:"preview,omitempty" yaml:"preview,omitempty"`
	CreatedAt string         `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// Message is one stored turn as the server reports it.
type Message struct {
	ID        MessageID `json:"id,omitempty" yaml:"id,omitempty"`
	Role      string    `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	Timestamp string    `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// ConversationDetail is a conversation with its stored messages, oldest first.
type ConversationDetail struct {
	ID       ConversationID `json:"id" yaml:"id"`
	Title    string         `json:"title" yaml:"title"`
	Messages []Message      `json:"messages" yaml:"messages"`
}

// SendResult is the decoded reply to a send. AIMessage is guaranteed to carry
// non-empty Content.
type SendResult struct {
	UserMessage *Message `json:"user_message,omitempty" yaml:"user_message,omitempty"`
	AIMessage   Message  `json:"ai_message" yaml:"ai_message"`
}

type createConversationRequest struct {
	Title string `json:"title"`
}

type sendMessageRequest struct {
	ConversationID ConversationID `json:"conversation_id"`
	Message        string         `json:"message"`
}

type listConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

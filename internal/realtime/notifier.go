package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/tbourn/go-match-backend/internal/domain"
)

// Event types carried in Envelope.Type.
const (
	EventMessage      = "message"
	EventMatch        = "match"
	EventSubscribed   = "subscribed"
	EventUnsubscribed = "unsubscribed"
	EventError        = "error"
)

// Envelope is the wire format of every server-to-client frame.
type Envelope struct {
	Type  string          `json:"type"`
	Topic string          `json:"topic,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ConversationTopic is the topic carrying messages of a conversation.
func ConversationTopic(conversationID string) string { return "conversation:" + conversationID }

// UserTopic is the per-user notification topic.
func UserTopic(userID string) string { return "user:" + userID }

// MatchNotice is the payload of a "match" event, addressed to one side.
type MatchNotice struct {
	MatchID        string    `json:"match_id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	UserID         string    `json:"user_id"` // the counterpart
	CreatedAt      time.Time `json:"created_at"`
}

// Encode marshals an envelope for topic.
func Encode(eventType, topic string, data any) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Envelope{Type: eventType, Topic: topic, Data: raw})
}

// Notifier turns domain events into envelopes and publishes them.
type Notifier struct {
	Pub Publisher
}

// NewNotifier returns a Notifier over pub.
func NewNotifier(pub Publisher) *Notifier { return &Notifier{Pub: pub} }

// MessageCreated fans a new message out to the conversation topic.
func (n *Notifier) MessageCreated(ctx context.Context, m *domain.Message) error {
	if n == nil || n.Pub == nil || m == nil {
		return nil
	}
	topic := ConversationTopic(m.ConversationID)
	payload, err := Encode(EventMessage, topic, m)
	if err != nil {
		return err
	}
	return n.Pub.Publish(ctx, topic, payload)
}

// MatchCreated tells both users about a new match.
func (n *Notifier) MatchCreated(ctx context.Context, m *domain.Match, conv *domain.Conversation) error {
	if n == nil || n.Pub == nil || m == nil {
		return nil
	}
	convID := ""
	if conv != nil {
		convID = conv.ID
	}
	var errs []error
	for _, uid := range []string{m.UserAID, m.UserBID} {
		topic := UserTopic(uid)
		payload, err := Encode(EventMatch, topic, MatchNotice{
			MatchID:        m.ID,
			ConversationID: convID,
			UserID:         m.Other(uid),
			CreatedAt:      m.CreatedAt,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := n.Pub.Publish(ctx, topic, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

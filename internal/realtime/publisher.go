package realtime

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Publisher hands an encoded event to every hub that may hold subscribers
// of topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// LocalPublisher delivers straight to an in-process hub. Used when a single
// API instance runs or Redis is not configured.
type LocalPublisher struct {
	Hub *Hub
}

// Publish implements Publisher.
func (p LocalPublisher) Publish(_ context.Context, topic string, payload []byte) error {
	p.Hub.Broadcast(topic, payload)
	return nil
}

// DefaultChannelPrefix namespaces realtime channels in Redis.
const DefaultChannelPrefix = "rt:"

// RedisBridge publishes events on Redis channels and feeds every event it
// receives back into the local hub, so subscribers on any instance see
// events produced on any other. Local delivery happens only through the
// subscription loop, never directly in Publish.
type RedisBridge struct {
	Client *redis.Client
	Hub    *Hub
	Prefix string
}

// NewRedisBridge returns a bridge using DefaultChannelPrefix.
func NewRedisBridge(client *redis.Client, hub *Hub) *RedisBridge {
	return &RedisBridge{Client: client, Hub: hub, Prefix: DefaultChannelPrefix}
}

// Publish implements Publisher.
func (b *RedisBridge) Publish(ctx context.Context, topic string, payload []byte) error {
	return b.Client.Publish(ctx, b.Prefix+topic, payload).Err()
}

// Run pattern-subscribes to the bridge channels and forwards messages to the
// hub until ctx is cancelled. ready, when non-nil, is closed once the
// subscription is confirmed.
func (b *RedisBridge) Run(ctx context.Context, ready chan<- struct{}) error {
	ps := b.Client.PSubscribe(ctx, b.Prefix+"*")
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("realtime: redis subscription closed")
			}
			topic := strings.TrimPrefix(msg.Channel, b.Prefix)
			n := b.Hub.Broadcast(topic, []byte(msg.Payload))
			log.Debug().Str("topic", topic).Int("delivered", n).Msg("realtime relay")
		}
	}
}

var (
	_ Publisher = LocalPublisher{}
	_ Publisher = (*RedisBridge)(nil)
)

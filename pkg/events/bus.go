// Package events carries UI state-change notifications from the dispatcher
// and render layer to whatever draws them, over a watermill message bus.
package events

import (
	"context"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/kbchat/pkg/config"
	"github.com/go-go-golems/kbchat/pkg/redisstream"
)

// Bus publishes Events and fans them out to named handlers. By default it is
// an in-memory gochannel; with Redis enabled every handler gets its own
// consumer group on a Redis stream, so external processes can follow along.
type Bus struct {
	logger     watermill.LoggerAdapter
	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router

	redisSettings config.RedisConfig
	redis         *redisstream.Transport
	groups        []string
}

var _ Sink = &Bus{}

type BusOption func(*Bus)

func WithLogger(logger watermill.LoggerAdapter) BusOption {
	return func(b *Bus) {
		b.logger = logger
	}
}

// WithRedis switches the transport to Redis Streams when s.Enabled is set.
func WithRedis(s config.RedisConfig) BusOption {
	return func(b *Bus) {
		b.redisSettings = s
	}
}

func NewBus(options ...BusOption) (*Bus, error) {
	b := &Bus{
		logger: NewWatermillLogger(log.Logger),
	}
	for _, o := range options {
		o(b)
	}

	if b.redisSettings.Enabled {
		b.redis = redisstream.New(b.redisSettings, b.logger)
		pub, err := b.redis.Publisher()
		if err != nil {
			return nil, err
		}
		b.publisher = pub
	} else {
		goPubSub := gochannel.NewGoChannel(gochannel.Config{
			BlockPublishUntilSubscriberAck: true,
		}, b.logger)
		b.publisher = goPubSub
		b.subscriber = goPubSub
	}

	router, err := message.NewRouter(message.RouterConfig{}, b.logger)
	if err != nil {
		return nil, errors.Wrap(err, "create router")
	}
	b.router = router

	return b, nil
}

// Publish sends e on Topic. With the in-memory transport it returns once
// every handler has acknowledged the event.
func (b *Bus) Publish(e Event) error {
	payload, err := e.Marshal()
	if err != nil {
		return errors.Wrap(err, "encode ui event")
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	if err := b.publisher.Publish(Topic, msg); err != nil {
		return errors.Wrapf(err, "publish %s", e.Type)
	}
	return nil
}

// AddHandler registers f under name. Handlers must be added before Run.
// Undecodable payloads are logged and dropped.
func (b *Bus) AddHandler(name string, f func(Event) error) error {
	sub := b.subscriber
	if b.redis != nil {
		s, err := b.redis.GroupSubscriber(name)
		if err != nil {
			return err
		}
		sub = s
		b.groups = append(b.groups, b.redis.GroupName(name))
	}

	b.router.AddNoPublisherHandler(name, Topic, sub, func(msg *message.Message) error {
		e, err := Unmarshal(msg.Payload)
		if err != nil {
			log.Warn().Err(err).Str("handler", name).Str("payload", string(msg.Payload)).Msg("dropping ui event")
			return nil
		}
		return f(e)
	})
	return nil
}

// Run blocks until ctx is done or the router fails.
func (b *Bus) Run(ctx context.Context) error {
	if b.redis != nil {
		for _, g := range b.groups {
			if err := b.redis.EnsureGroupAtTail(ctx, Topic, g); err != nil {
				return err
			}
		}
	}
	return b.router.Run(ctx)
}

// Running is closed once all handlers are subscribed.
func (b *Bus) Running() chan struct{} {
	return b.router.Running()
}

func (b *Bus) Close() error {
	var errs []string
	if err := b.router.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := b.publisher.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return errors.Errorf("close bus: %s", strings.Join(errs, "; "))
	}
	return nil
}

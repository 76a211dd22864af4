// Package redisstream builds the Redis Streams transport for the UI event
// bus. Each handler reads through its own consumer group so that several
// processes can follow the same stream.
package redisstream

import (
	"context"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/kbchat/pkg/config"
)

// Transport shares one Redis client between the publisher and all group
// subscribers.
type Transport struct {
	settings  config.RedisConfig
	client    *redis.Client
	logger    watermill.LoggerAdapter
	marshaler rstream.DefaultMarshallerUnmarshaller
}

func New(s config.RedisConfig, logger watermill.LoggerAdapter) *Transport {
	return &Transport{
		settings: s,
		client:   redis.NewClient(&redis.Options{Addr: s.Addr}),
		logger:   logger,
	}
}

func (t *Transport) Publisher() (message.Publisher, error) {
	pub, err := rstream.NewPublisher(rstream.PublisherConfig{
		Client:     t.client,
		Marshaller: t.marshaler,
	}, t.logger)
	if err != nil {
		return nil, errors.Wrap(err, "create redis stream publisher")
	}
	return pub, nil
}

// GroupName is the consumer group used for the handler called name.
func (t *Transport) GroupName(name string) string {
	return t.settings.Group + "-" + name
}

// GroupSubscriber returns a subscriber bound to the consumer group of the
// handler called name.
func (t *Transport) GroupSubscriber(name string) (message.Subscriber, error) {
	sub, err := rstream.NewSubscriber(rstream.SubscriberConfig{
		Client:        t.client,
		Unmarshaller:  t.marshaler,
		ConsumerGroup: t.GroupName(name),
		Consumer:      t.settings.Consumer,
	}, t.logger)
	if err != nil {
		return nil, errors.Wrapf(err, "create redis subscriber for %s", name)
	}
	return sub, nil
}

// EnsureGroupAtTail creates group at the stream tail ($) unless it exists, so
// a fresh UI does not replay old events.
func (t *Transport) EnsureGroupAtTail(ctx context.Context, stream, group string) error {
	err := t.client.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil {
		// BUSYGROUP means the group already exists
		if strings.Contains(err.Error(), "BUSYGROUP") {
			return nil
		}
		return errors.Wrapf(err, "create consumer group %s", group)
	}
	log.Debug().Str("stream", stream).Str("group", group).Msg("created redis consumer group at tail")
	return nil
}

func (t *Transport) Close() error {
	return t.client.Close()
}

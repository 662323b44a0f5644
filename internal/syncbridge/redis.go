package syncbridge

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// RedisPubSub implements PubSub on Redis channels. Channel names are
// namespaced with a prefix so several deployments can share one instance.
type RedisPubSub struct {
	client *goredis.Client
	prefix string
}

// NewRedisPubSub wraps an existing Redis client.
func NewRedisPubSub(client *goredis.Client, prefix string) *RedisPubSub {
	return &RedisPubSub{client: client, prefix: prefix}
}

func (r *RedisPubSub) channel(name string) string {
	if r.prefix == "" {
		return name
	}
	return r.prefix + ":" + name
}

func (r *RedisPubSub) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := r.client.Publish(ctx, r.channel(channel), payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe consumes the channel on a dedicated goroutine until cancelled.
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string, fn func([]byte)) (func(), error) {
	sub := r.client.Subscribe(ctx, r.channel(channel))

	// Force the subscription to be established before returning, so a
	// publish issued right after cannot be missed.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", channel, err)
	}

	go func() {
		for msg := range sub.Channel() {
			fn([]byte(msg.Payload))
		}
	}()

	return func() { _ = sub.Close() }, nil
}

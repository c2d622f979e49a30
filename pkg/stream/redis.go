package stream

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher mirrors the outbound feed onto a Redis pub/sub channel so
// other processes can tail the same stream without holding an SSE connection.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher connects to Redis at addr and republishes onto channel.
func NewRedisPublisher(addr, password, channel string, db int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisPublisher{
		client:  client,
		channel: channel,
	}
}

// Ping verifies the connection.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Publish republishes one delivery. The message body is the wire record
// unchanged; the transport id travels separately as a Redis stream consumer
// would not use it.
func (p *RedisPublisher) Publish(ctx context.Context, d Delivery) error {
	if err := p.client.Publish(ctx, p.channel, d.Data).Err(); err != nil {
		return fmt.Errorf("redis publish event %d: %w", d.ID, err)
	}
	return nil
}

// Close releases the underlying client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

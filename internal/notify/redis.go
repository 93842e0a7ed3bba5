package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

type redisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedis publishes events on a Redis pub/sub channel.
func NewRedis(client *redis.Client, channel string) Publisher {
	return &redisPublisher{client: client, channel: channel}
}

func (p *redisPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, data).Err()
}

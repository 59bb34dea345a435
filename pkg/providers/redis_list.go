package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/operion-triggered/pkg/connection"
	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/protocol"
	redis "github.com/redis/go-redis/v9"
)

const DefaultBatch = 10

var ErrQueueRequired = errors.New("redis list provider queue name is required")

// RedisList pops up to Batch entries from the head of a redis list per call.
type RedisList struct {
	Queue string
	Batch int

	source  connection.RedisClient
	factory models.MessageFactory
}

func NewRedisList(source connection.RedisClient, queue string, batch int, factory models.MessageFactory) (*RedisList, error) {
	if queue == "" {
		return nil, ErrQueueRequired
	}

	if batch <= 0 {
		batch = DefaultBatch
	}

	return &RedisList{
		Queue:   queue,
		Batch:   batch,
		source:  source,
		factory: models.FactoryOrDefault(factory),
	}, nil
}

func (r *RedisList) Next(ctx context.Context) ([]*models.Message, error) {
	client, err := r.source.Client()
	if err != nil {
		return nil, err
	}

	items, err := client.LPopCount(ctx, r.Queue, r.Batch).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to pop from %s: %w", r.Queue, err)
	}

	messages := make([]*models.Message, 0, len(items))
	for _, item := range items {
		msg := r.factory([]byte(item))
		msg.SetHeader(models.MetadataTriggerSource, "redis:"+r.Queue)
		messages = append(messages, msg)
	}

	return messages, nil
}

var _ protocol.MessageProvider = (*RedisList)(nil)

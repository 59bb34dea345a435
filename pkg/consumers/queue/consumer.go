// Package queue provides a consumer that pops trigger messages from a redis
// list.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/operion-triggered/pkg/connection"
	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/protocol"
	redis "github.com/redis/go-redis/v9"
)

const popTimeout = 1 * time.Second

var (
	ErrQueueRequired      = errors.New("queue consumer queue name is required")
	ErrConnectionRequired = errors.New("queue consumer requires a redis connection")
)

// Consumer blocks on BLPOP and hands each entry to its listener. Entries are
// delivered one at a time.
type Consumer struct {
	Queue string

	conn    connection.RedisClient
	factory models.MessageFactory
	logger  *slog.Logger

	mu       sync.Mutex
	listener protocol.MessageListener
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func New(conn connection.RedisClient, queue string, factory models.MessageFactory, logger *slog.Logger) (*Consumer, error) {
	c := &Consumer{
		Queue:   queue,
		conn:    conn,
		factory: models.FactoryOrDefault(factory),
		logger:  logger.With("module", "queue_consumer", "queue", queue),
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Consumer) Validate() error {
	if c.Queue == "" {
		return ErrQueueRequired
	}

	if c.conn == nil {
		return ErrConnectionRequired
	}

	return nil
}

func (c *Consumer) RegisterListener(listener protocol.MessageListener) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listener = listener
}

func (c *Consumer) Init(context.Context) error {
	return c.Validate()
}

// Start begins consuming. The redis connection must already be started.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopCh != nil {
		return nil
	}

	if _, err := c.conn.Client(); err != nil {
		return fmt.Errorf("failed to start queue consumer: %w", err)
	}

	c.stopCh = make(chan struct{})
	c.wg.Add(1)

	go c.consume(context.WithoutCancel(ctx), c.stopCh)

	return nil
}

func (c *Consumer) consume(ctx context.Context, stopCh <-chan struct{}) {
	defer c.wg.Done()

	c.logger.InfoContext(ctx, "Starting queue consumer")

	for {
		select {
		case <-stopCh:
			c.logger.InfoContext(ctx, "Queue consumer stopped")

			return
		default:
			err := c.processMessage(ctx)
			if err != nil {
				c.logger.ErrorContext(ctx, "Error processing message", "error", err)

				select {
				case <-stopCh:
				case <-time.After(time.Second):
				}
			}
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context) error {
	client, err := c.conn.Client()
	if err != nil {
		return err
	}

	result, err := client.BLPop(ctx, popTimeout, c.Queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	c.mu.Lock()
	listener := c.listener
	c.mu.Unlock()

	if listener == nil {
		return nil
	}

	msg := c.factory([]byte(result[1]))
	msg.SetHeader(models.MetadataTriggerSource, "queue:"+c.Queue)

	c.logger.InfoContext(ctx, "Received message from queue", "message_id", msg.ID)

	if err := listener.OnMessage(ctx, msg); err != nil {
		c.logger.ErrorContext(ctx, "Error handling queued trigger", "error", err, "message_id", msg.ID)
	}

	return nil
}

// Stop waits for the message in flight, if any, to be handled.
func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	stopCh := c.stopCh
	c.stopCh = nil
	c.mu.Unlock()

	if stopCh == nil {
		return nil
	}

	c.logger.InfoContext(ctx, "Stopping queue consumer")

	close(stopCh)
	c.wg.Wait()

	return nil
}

func (c *Consumer) Close(context.Context) error {
	return nil
}

var _ protocol.Consumer = (*Consumer)(nil)

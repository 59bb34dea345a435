// Package queue provides a producer that appends payloads to a redis list.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/operion-triggered/pkg/connection"
	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/protocol"
)

var (
	ErrQueueRequired      = errors.New("queue producer queue name is required")
	ErrConnectionRequired = errors.New("queue producer requires a redis connection")
)

type Producer struct {
	Queue string

	conn   connection.RedisClient
	logger *slog.Logger
}

func New(conn connection.RedisClient, queue string, logger *slog.Logger) (*Producer, error) {
	if queue == "" {
		return nil, ErrQueueRequired
	}

	if conn == nil {
		return nil, ErrConnectionRequired
	}

	return &Producer{
		Queue:  queue,
		conn:   conn,
		logger: logger.With("module", "queue_producer", "queue", queue),
	}, nil
}

func (p *Producer) Init(context.Context) error  { return nil }
func (p *Producer) Start(context.Context) error { return nil }
func (p *Producer) Stop(context.Context) error  { return nil }
func (p *Producer) Close(context.Context) error { return nil }

func (p *Producer) Produce(ctx context.Context, msg *models.Message) error {
	client, err := p.conn.Client()
	if err != nil {
		return err
	}

	if err := client.RPush(ctx, p.Queue, msg.Payload).Err(); err != nil {
		return fmt.Errorf("failed to push to %s: %w", p.Queue, err)
	}

	p.logger.DebugContext(ctx, "Pushed message", "message_id", msg.ID)

	return nil
}

var _ protocol.Producer = (*Producer)(nil)

// Package schedule provides a consumer that delivers a message on a cron
// schedule.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/protocol"
	"github.com/robfig/cron/v3"
)

var ErrCronRequired = errors.New("schedule consumer cron expression is required")

// Consumer fires its listener on every cron tick. A tick is skipped while
// the previous one is still running.
type Consumer struct {
	CronExpr string

	factory models.MessageFactory
	logger  *slog.Logger

	mu       sync.Mutex
	cron     *cron.Cron
	listener protocol.MessageListener
}

func New(cronExpr string, factory models.MessageFactory, logger *slog.Logger) (*Consumer, error) {
	c := &Consumer{
		CronExpr: cronExpr,
		factory:  models.FactoryOrDefault(factory),
		logger:   logger.With("module", "schedule_consumer", "cron", cronExpr),
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Consumer) Validate() error {
	if c.CronExpr == "" {
		return ErrCronRequired
	}

	if _, err := cron.ParseStandard(c.CronExpr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
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

func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cron != nil {
		return nil
	}

	c.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	runCtx := context.WithoutCancel(ctx)

	id, err := c.cron.AddFunc(c.CronExpr, func() { c.fire(runCtx) })
	if err != nil {
		c.cron = nil

		return fmt.Errorf("failed to add cron job: %w", err)
	}

	c.logger.InfoContext(ctx, "Starting schedule consumer", "entry_id", id)
	c.cron.Start()

	return nil
}

func (c *Consumer) fire(ctx context.Context) {
	c.mu.Lock()
	listener := c.listener
	c.mu.Unlock()

	if listener == nil {
		return
	}

	msg := c.factory(nil)
	msg.SetHeader(models.MetadataTriggerSource, "schedule")

	c.logger.InfoContext(ctx, "Cron job triggered", "message_id", msg.ID)

	if err := listener.OnMessage(ctx, msg); err != nil {
		c.logger.ErrorContext(ctx, "Scheduled trigger failed", "error", err, "message_id", msg.ID)
	}
}

// Stop waits for a running tick to finish.
func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	running := c.cron
	c.cron = nil
	c.mu.Unlock()

	if running != nil {
		<-running.Stop().Done()
		c.logger.InfoContext(ctx, "Stopped schedule consumer")
	}

	return nil
}

func (c *Consumer) Close(context.Context) error {
	return nil
}

var _ protocol.Consumer = (*Consumer)(nil)

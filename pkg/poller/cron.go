package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/operion-triggered/pkg/protocol"
	"github.com/robfig/cron/v3"
)

var ErrScheduleRequired = errors.New("cron poller schedule is required")

// Cron scans on a cron schedule until stopped. It never finishes on its own,
// so a workflow using it inside a triggered channel never lets its worker
// exit.
type Cron struct {
	Schedule string

	mu      sync.Mutex
	scanner protocol.Scanner
	cron    *cron.Cron
	logger  *slog.Logger
}

func NewCron(schedule string, logger *slog.Logger) (*Cron, error) {
	p := &Cron{
		Schedule: schedule,
		logger:   logger.With("module", "cron_poller", "schedule", schedule),
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Cron) Validate() error {
	if p.Schedule == "" {
		return ErrScheduleRequired
	}

	if _, err := cron.ParseStandard(p.Schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	return nil
}

func (p *Cron) Register(scanner protocol.Scanner) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.scanner = scanner
}

func (p *Cron) Bounded() bool {
	return false
}

func (p *Cron) Init(context.Context) error {
	return p.Validate()
}

func (p *Cron) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cron != nil {
		return nil
	}

	p.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	scanCtx := context.WithoutCancel(ctx)
	scanner := p.scanner

	id, err := p.cron.AddFunc(p.Schedule, func() {
		if scanner == nil {
			return
		}

		count, err := scanner.ProcessMessages(scanCtx)
		if err != nil {
			p.logger.ErrorContext(scanCtx, "Scheduled scan failed", "error", err)

			return
		}

		p.logger.DebugContext(scanCtx, "Scheduled scan finished", "processed", count)
	})
	if err != nil {
		p.cron = nil

		return fmt.Errorf("failed to add cron job: %w", err)
	}

	p.logger.InfoContext(ctx, "Started cron poller", "entry_id", id)
	p.cron.Start()

	return nil
}

// Stop waits for a running scan to finish.
func (p *Cron) Stop(ctx context.Context) error {
	p.mu.Lock()
	c := p.cron
	p.cron = nil
	p.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
		p.logger.InfoContext(ctx, "Stopped cron poller")
	}

	return nil
}

func (p *Cron) Close(context.Context) error {
	return nil
}

var _ protocol.Poller = (*Cron)(nil)

// Package poller decides when a polling consumer scans its input.
package poller

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dukex/operion-triggered/pkg/protocol"
)

// OneTime runs its scanner at most once per activation. Init arms it, the
// first Poll consumes the arm and every further Poll returns (0, nil) until
// the next Init. Workflows attached to a triggered channel must use it so
// that their worker terminates.
type OneTime struct {
	mu      sync.Mutex
	scanner protocol.Scanner
	armed   bool
	logger  *slog.Logger
}

func NewOneTime(logger *slog.Logger) *OneTime {
	return &OneTime{logger: logger.With("module", "one_time_poller")}
}

func (p *OneTime) Register(scanner protocol.Scanner) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.scanner = scanner
}

func (p *OneTime) Bounded() bool {
	return true
}

func (p *OneTime) Init(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.armed = true

	return nil
}

func (p *OneTime) Start(context.Context) error {
	return nil
}

// Poll performs the single scan of this activation.
func (p *OneTime) Poll(ctx context.Context) (int, error) {
	p.mu.Lock()
	if !p.armed || p.scanner == nil {
		p.mu.Unlock()

		return 0, nil
	}

	p.armed = false
	scanner := p.scanner
	p.mu.Unlock()

	count, err := scanner.ProcessMessages(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "Scan failed", "error", err, "processed", count)

		return count, err
	}

	p.logger.DebugContext(ctx, "Scan finished", "processed", count)

	return count, nil
}

func (p *OneTime) Stop(context.Context) error {
	return nil
}

func (p *OneTime) Close(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.armed = false

	return nil
}

// IsBounded reports whether p finishes on its own after one pass.
func IsBounded(p protocol.Poller) bool {
	return p != nil && p.Bounded()
}

var _ protocol.BoundedPoller = (*OneTime)(nil)

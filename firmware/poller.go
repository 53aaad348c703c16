package firmware

import (
	"context"
	"sync"
	"time"

	"github.com/fornellas/slogxt/log"
)

// DefaultStatusPollInterval is a good default for 115200 baud links: frequent
// enough for a responsive DRO, sparse enough to not crowd out command traffic.
const DefaultStatusPollInterval = 200 * time.Millisecond

// StatusPoller periodically requests a status report. It keeps at most one
// request outstanding: if the device has not answered the previous '?' yet,
// ticks are skipped rather than piled onto the serial line.
type StatusPoller struct {
	mu          sync.Mutex
	interval    time.Duration
	request     func() error
	outstanding bool
	enabled     bool
}

func NewStatusPoller(interval time.Duration, request func() error) *StatusPoller {
	return &StatusPoller{
		interval: interval,
		request:  request,
		enabled:  true,
	}
}

// ReceivedStatus marks the outstanding request as answered, re-arming the next
// tick.
func (p *StatusPoller) ReceivedStatus() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outstanding = false
}

// Reset clears the outstanding flag, eg: after a soft reset or reconnect, when
// the pending '?' is known to be gone.
func (p *StatusPoller) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outstanding = false
}

func (p *StatusPoller) Enable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = true
}

func (p *StatusPoller) Disable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = false
}

func (p *StatusPoller) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// tick requests a report unless disabled or one is already outstanding.
func (p *StatusPoller) tick() error {
	p.mu.Lock()
	if !p.enabled || p.outstanding {
		p.mu.Unlock()
		return nil
	}
	p.outstanding = true
	p.mu.Unlock()
	return p.request()
}

// Worker runs the poll loop until the context is cancelled.
func (p *StatusPoller) Worker(ctx context.Context) error {
	logger := log.MustLogger(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := p.tick(); err != nil {
				logger.Error("Failed to request status report", "err", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

package monitor

import (
	"context"
	"time"

	"github.com/lagren/statusguard/probe"
	"github.com/sirupsen/logrus"
)

// DefaultTickFloor is the fixed wait that follows the configured interval.
const DefaultTickFloor = 10 * time.Second

// Prober runs one availability check.
type Prober interface {
	Check(ctx context.Context, svc probe.Service) bool
}

// Scheduler probes every configured service in order, then waits Interval
// and then TickFloor before the next pass. The two waits add up.
type Scheduler struct {
	Engine    *Engine
	Prober    Prober
	Interval  time.Duration
	TickFloor time.Duration
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	if s.TickFloor <= 0 {
		s.TickFloor = DefaultTickFloor
	}

	logrus.Infof("Monitoring %d services every %s + %s", len(s.Engine.Services()), s.Interval, s.TickFloor)
	defer logrus.Infof("Monitoring stopped")

	for {
		s.Pass(ctx)

		if !sleep(ctx, s.Interval) || !sleep(ctx, s.TickFloor) {
			return
		}
	}
}

// Pass probes every service once and feeds each verdict to the engine.
func (s *Scheduler) Pass(ctx context.Context) {
	for _, svc := range s.Engine.Services() {
		if ctx.Err() != nil {
			return
		}

		up := s.Prober.Check(ctx, svc)

		// a probe cut short by shutdown says nothing about the service
		if ctx.Err() != nil {
			return
		}

		if err := s.Engine.Transition(ctx, svc.Name, up); err != nil {
			logrus.Errorf("Could not apply verdict for %s: %s", svc.Name, err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Package monitor drives the up/down state machine of every configured
// service, schedules escalation of unacknowledged outages and runs the probe
// loop.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lagren/statusguard/persistence"
	"github.com/lagren/statusguard/probe"
	"github.com/sirupsen/logrus"
)

// DefaultEscalationDelay is how long an outage may stay unacknowledged before
// it is auto published.
const DefaultEscalationDelay = 300 * time.Second

var (
	ErrUnknownService = errors.New("unknown service")
	ErrInvalidStatus  = errors.New("invalid status")
)

// Timer is a scheduled escalation. *time.Timer satisfies it.
type Timer interface {
	Stop() bool
}

// AfterFunc runs f in its own goroutine once d has elapsed.
type AfterFunc func(d time.Duration, f func()) Timer

func timeAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type Options struct {
	EscalationDelay time.Duration
	Now             func() time.Time
	AfterFunc       AfterFunc
}

// escalationKey identifies the timer of one outage episode.
type escalationKey struct {
	service string
	epoch   int
}

// Engine turns probe verdicts and operator actions into state changes,
// persisted records and notifications.
type Engine struct {
	services  []probe.Service
	statuses  *StatusStore
	store     persistence.Store
	publisher Publisher

	delay     time.Duration
	now       func() time.Time
	afterFunc AfterFunc

	mu        sync.Mutex
	epochs    map[string]int
	downSince map[string]time.Time
	timers    map[escalationKey]Timer
	closed    bool
}

// NewEngine loads the persisted maintenance flags and creates fresh runtime
// state for services. Nothing else is recovered from the store.
func NewEngine(ctx context.Context, services []probe.Service, store persistence.Store, publisher Publisher, opts Options) (*Engine, error) {
	maintenance, err := store.ReadMaintenance(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load maintenance flags: %w", err)
	}

	names := make([]string, 0, len(services))
	for _, svc := range services {
		names = append(names, svc.Name)
	}

	e := &Engine{
		services:  services,
		statuses:  NewStatusStore(names, maintenance),
		store:     store,
		publisher: publisher,
		delay:     opts.EscalationDelay,
		now:       opts.Now,
		afterFunc: opts.AfterFunc,
		epochs:    map[string]int{},
		downSince: map[string]time.Time{},
		timers:    map[escalationKey]Timer{},
	}

	if e.delay <= 0 {
		e.delay = DefaultEscalationDelay
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.afterFunc == nil {
		e.afterFunc = timeAfterFunc
	}

	return e, nil
}

func (e *Engine) Services() []probe.Service {
	return e.services
}

func (e *Engine) Statuses() *StatusStore {
	return e.statuses
}

// Transition applies one probe verdict for name.
func (e *Engine) Transition(ctx context.Context, name string, up bool) error {
	previous, ok := e.statuses.Observe(name, up)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownService, name)
	}

	if up == previous {
		return nil
	}

	if up {
		e.recovered(ctx, name)
	} else {
		e.down(ctx, name)
	}

	return nil
}

func (e *Engine) recovered(ctx context.Context, name string) {
	now := e.now()

	e.mu.Lock()
	var downtime time.Duration
	if since, ok := e.downSince[name]; ok {
		downtime = now.Sub(since)
		delete(e.downSince, name)
	}
	e.mu.Unlock()

	logrus.WithField("service", name).Infof("%s is back online", name)

	e.publish(ctx, Event{
		Kind:     ServiceRecovered,
		Service:  name,
		At:       now,
		Downtime: downtime,
	})

	e.statuses.SetPending(name, false)
}

func (e *Engine) down(ctx context.Context, name string) {
	now := e.now()

	e.mu.Lock()
	e.epochs[name]++
	key := escalationKey{service: name, epoch: e.epochs[name]}
	e.downSince[name] = now
	e.mu.Unlock()

	logrus.WithFields(logrus.Fields{"service": name, "epoch": key.epoch}).Warnf("%s is offline", name)

	e.publish(ctx, Event{
		Kind:    ServiceDown,
		Service: name,
		At:      now,
		Actions: DownActions,
	})

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}

	e.timers[key] = e.afterFunc(e.delay, func() {
		e.escalate(key)
	})
}

// escalate auto publishes an outage that is still down and nobody has
// acknowledged. The check runs against live state when the timer fires.
func (e *Engine) escalate(key escalationKey) {
	e.mu.Lock()
	delete(e.timers, key)
	closed := e.closed
	e.mu.Unlock()

	if closed {
		return
	}

	log := logrus.WithFields(logrus.Fields{"service": key.service, "epoch": key.epoch})

	st, ok := e.statuses.Snapshot(key.service)
	if !ok || st.Up || st.Pending {
		log.Debugf("Escalation of %s not needed", key.service)
		return
	}

	ctx := context.Background()
	now := e.now()

	log.Warnf("Auto publishing %s", key.service)

	e.publish(ctx, Event{
		Kind:    AutoPublished,
		Service: key.service,
		At:      now,
	})

	if err := persistence.RecordStatus(ctx, e.store, key.service, persistence.AutoPublished, now); err != nil {
		log.Errorf("Could not record auto published status: %s", err)
	}
}

func (e *Engine) publish(ctx context.Context, ev Event) {
	ev.ID = uuid.NewString()

	if err := e.publisher.Publish(ctx, ev); err != nil {
		logrus.WithFields(logrus.Fields{
			"service": ev.Service,
			"kind":    ev.Kind,
			"event":   ev.ID,
		}).Errorf("Could not publish event: %s", err)
	}
}

// Outstanding counts escalation timers of name that have not fired yet.
func (e *Engine) Outstanding(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for key := range e.timers {
		if key.service == name {
			n++
		}
	}
	return n
}

// Acknowledge marks the current outage of name as pending resolution, which
// suppresses its escalation.
func (e *Engine) Acknowledge(ctx context.Context, name string) error {
	if !e.statuses.SetPending(name, true) {
		return fmt.Errorf("%w: %s", ErrUnknownService, name)
	}

	return persistence.RecordStatus(ctx, e.store, name, persistence.PendingResolution, e.now())
}

// Resolve publishes status for name and clears pending resolution.
func (e *Engine) Resolve(ctx context.Context, name string, status persistence.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	if !e.statuses.SetPending(name, false) {
		return fmt.Errorf("%w: %s", ErrUnknownService, name)
	}

	return persistence.RecordStatus(ctx, e.store, name, status, e.now())
}

// SetStatus is the operator's publish menu.
func (e *Engine) SetStatus(ctx context.Context, name string, status persistence.Status) error {
	return e.Resolve(ctx, name, status)
}

func (e *Engine) MarkAllGood(ctx context.Context, name string) error {
	return e.Resolve(ctx, name, persistence.Operational)
}

// SetMaintenance records the maintenance flag of name. Alerts are not gated
// on it.
func (e *Engine) SetMaintenance(ctx context.Context, name string, on bool) error {
	if !e.statuses.SetMaintenance(name, on) {
		return fmt.Errorf("%w: %s", ErrUnknownService, name)
	}

	return persistence.SetMaintenance(ctx, e.store, name, on)
}

// Cycle adds an Unknown statistics entry for every configured service that
// has none and returns the names added.
func (e *Engine) Cycle(ctx context.Context) ([]string, error) {
	return persistence.Cycle(ctx, e.store, e.statuses.Names(), e.now())
}

// Statistics returns the persisted latest status of every service.
func (e *Engine) Statistics(ctx context.Context) (persistence.Statistics, error) {
	return e.store.ReadStatistics(ctx)
}

// Close stops all escalation timers. It is meant for process shutdown.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	for key, t := range e.timers {
		t.Stop()
		delete(e.timers, key)
	}
}

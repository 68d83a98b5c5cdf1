package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lagren/statusguard/probe"
	"github.com/stretchr/testify/assert"
)

// scriptedProber answers from a per-service list of verdicts and repeats the
// last one when the script runs out.
type scriptedProber struct {
	mu      sync.Mutex
	script  map[string][]bool
	checked []string
}

func (p *scriptedProber) Check(ctx context.Context, svc probe.Service) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.checked = append(p.checked, svc.Name)

	verdicts := p.script[svc.Name]
	if len(verdicts) == 0 {
		return true
	}

	up := verdicts[0]
	if len(verdicts) > 1 {
		p.script[svc.Name] = verdicts[1:]
	}
	return up
}

func (p *scriptedProber) passes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.checked)
}

func TestPass(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "api", "db", "web")

	prober := &scriptedProber{script: map[string][]bool{
		"api": {false, false, false},
		"db":  {true, false, true},
	}}

	s := &Scheduler{Engine: h.engine, Prober: prober}

	for i := 0; i < 3; i++ {
		s.Pass(ctx)
	}

	assert.Equal(t, []string{"api", "db", "web", "api", "db", "web", "api", "db", "web"}, prober.checked)
	assert.Equal(t, []EventKind{ServiceDown}, h.publisher.kinds("api"))
	assert.Equal(t, []EventKind{ServiceDown, ServiceRecovered}, h.publisher.kinds("db"))
	assert.Empty(t, h.publisher.kinds("web"))
	assert.Equal(t, 2, h.timers.count())
}

func TestPassStopsOnCancel(t *testing.T) {
	h := newHarness(t, "api", "db")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prober := &scriptedProber{script: map[string][]bool{"api": {false}}}
	(&Scheduler{Engine: h.engine, Prober: prober}).Pass(ctx)

	assert.Empty(t, prober.checked)
	assert.Empty(t, h.publisher.kinds("api"))
}

func TestRun(t *testing.T) {
	h := newHarness(t, "api")
	prober := &scriptedProber{script: map[string][]bool{}}

	s := &Scheduler{
		Engine:    h.engine,
		Prober:    prober,
		Interval:  20 * time.Millisecond,
		TickFloor: 20 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	// interval and floor compound to 40ms per pass
	assert.GreaterOrEqual(t, prober.passes(), 2)
	assert.LessOrEqual(t, prober.passes(), 4)
}

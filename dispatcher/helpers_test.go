package dispatcher_test

import (
	"bytes"
	"log"
	"testing"
	"time"

	"github.com/momentics/hioload-dispatch/api"
	"github.com/momentics/hioload-dispatch/dispatcher"
	"github.com/momentics/hioload-dispatch/fake"
)

// harness bundles a dispatcher with its fake clock and readiness source.
type harness struct {
	d      *dispatcher.Dispatcher
	clock  *fake.Clock
	src    *fake.Readiness
	errs   []*api.Error
	logBuf bytes.Buffer
}

var epoch = api.Deadline{Seconds: 1_700_000_000}

// newHarness uses a readiness source that advances the clock by the full
// timeout whenever nothing is ready.
func newHarness(t *testing.T, opts ...dispatcher.Option) *harness {
	t.Helper()
	clock := fake.NewClock(epoch)
	return newHarnessWith(t, clock, fake.NewReadiness(clock), opts...)
}

func newHarnessWith(t *testing.T, clock *fake.Clock, src *fake.Readiness, opts ...dispatcher.Option) *harness {
	t.Helper()
	h := &harness{clock: clock, src: src}
	base := []dispatcher.Option{
		dispatcher.WithName("test"),
		dispatcher.WithClock(clock),
		dispatcher.WithReadinessSource(src),
		dispatcher.WithLogger(log.New(&h.logBuf, "", 0)),
		dispatcher.WithErrorHandler(func(e *api.Error) { h.errs = append(h.errs, e) }),
	}
	d, err := dispatcher.New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.d = d
	t.Cleanup(func() { _ = d.Destroy() })
	return h
}

func (h *harness) step(t *testing.T) {
	t.Helper()
	if err := h.d.DoOneEvent(); err != nil {
		t.Fatalf("DoOneEvent: %v", err)
	}
}

func (h *harness) steps(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		h.step(t)
	}
}

// recorder collects callback names in call order.
type recorder struct{ calls []string }

func (r *recorder) fd(name string) api.FDCallback {
	return func(int, any) { r.calls = append(r.calls, name) }
}

func (r *recorder) timeout(name string) api.TimeoutCallback {
	return func(any) { r.calls = append(r.calls, name) }
}

func (r *recorder) idle(name string, keep bool) api.IdleCallback {
	return func(any) bool {
		r.calls = append(r.calls, name)
		return keep
	}
}

func (r *recorder) count(name string) int {
	n := 0
	for _, c := range r.calls {
		if c == name {
			n++
		}
	}
	return n
}

func near(got, want, tolerance time.Duration) bool {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

package dispatcher_test

import (
	"math"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/momentics/hioload-dispatch/api"
	"github.com/momentics/hioload-dispatch/dispatcher"
	"github.com/momentics/hioload-dispatch/fake"
)

func TestReadyHandlersRunOnePerStep(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}
	for _, fd := range []int{10, 11, 12} {
		if _, err := h.d.AddFileDescriptorHandler(fd, rec.fd(string(rune('a'+fd-10))), nil); err != nil {
			t.Fatal(err)
		}
		h.src.SetReadable(fd, true)
	}

	h.step(t)
	if len(rec.calls) != 0 {
		t.Fatalf("wait step dispatched %v", rec.calls)
	}
	if got := h.d.Stats().Pending; got != 3 {
		t.Fatalf("pending = %d, want 3", got)
	}
	for i := 1; i <= 3; i++ {
		h.step(t)
		if len(rec.calls) != i {
			t.Fatalf("after %d dispatch steps calls = %v", i, rec.calls)
		}
	}
	if !slices.Equal(rec.calls, []string{"a", "b", "c"}) {
		t.Errorf("dispatch order = %v", rec.calls)
	}
	if got := h.src.WaitCount(); got != 1 {
		t.Errorf("waits while draining = %d, want 1", got)
	}

	h.step(t)
	if got := h.src.WaitCount(); got != 2 {
		t.Errorf("expected a new wait once drained, waits = %d", got)
	}
}

func TestTimeoutsFireInDeadlineOrder(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}
	for _, tc := range []struct {
		name string
		secs uint64
	}{{"t3", 3}, {"t1", 1}, {"t2", 2}} {
		if _, err := h.d.AddTimeoutCallbackRelative(tc.secs, 0, rec.timeout(tc.name), nil); err != nil {
			t.Fatal(err)
		}
	}
	h.steps(t, 3)
	if !slices.Equal(rec.calls, []string{"t1", "t2", "t3"}) {
		t.Errorf("fire order = %v", rec.calls)
	}
}

func TestEqualDeadlinesFireInRegistrationOrder(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}
	at := epoch.Add(1, 0)
	for _, name := range []string{"x", "y", "z"} {
		if _, err := h.d.AddTimeoutCallback(at.Seconds, at.Nanoseconds, rec.timeout(name), nil); err != nil {
			t.Fatal(err)
		}
	}
	h.steps(t, 3)
	if !slices.Equal(rec.calls, []string{"x", "y", "z"}) {
		t.Errorf("fire order = %v", rec.calls)
	}
}

func TestAbsoluteTimeoutCarriesNanoseconds(t *testing.T) {
	h := newHarness(t)
	fired := false
	if _, err := h.d.AddTimeoutCallback(epoch.Seconds, 1_500_000_000, func(any) { fired = true }, nil); err != nil {
		t.Fatal(err)
	}
	h.step(t)
	if !fired {
		t.Fatal("timeout did not fire")
	}
	if got := h.src.Timeouts()[0]; got != 1500*time.Millisecond {
		t.Errorf("wait = %v, want 1.5s", got)
	}
}

func TestTimeoutFiresOnce(t *testing.T) {
	h := newHarness(t)
	calls := 0
	th, err := h.d.AddTimeoutAfter(time.Second, func(any) { calls++ }, nil)
	if err != nil {
		t.Fatal(err)
	}
	h.steps(t, 3)
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if err := h.d.RemoveTimeoutCallback(th); !isCode(err, api.ErrNotRegistered) {
		t.Errorf("removing fired timeout: %v", err)
	}
}

func TestTimeoutReRegistrationIsPeriodic(t *testing.T) {
	h := newHarness(t)
	var fires []api.Deadline
	var tick api.TimeoutCallback
	tick = func(any) {
		fires = append(fires, h.clock.Now())
		if len(fires) < 4 {
			if _, err := h.d.AddTimeoutAfter(500*time.Millisecond, tick, nil); err != nil {
				t.Error(err)
			}
		}
	}
	if _, err := h.d.AddTimeoutAfter(500*time.Millisecond, tick, nil); err != nil {
		t.Fatal(err)
	}
	h.steps(t, 6)
	if len(fires) != 4 {
		t.Fatalf("fires = %d, want 4", len(fires))
	}
	for i, at := range fires {
		want := epoch.AddDuration(time.Duration(i+1) * 500 * time.Millisecond)
		if at.Compare(want) != 0 {
			t.Errorf("fire %d at %v, want %v", i, at, want)
		}
	}
}

func TestIdleRunsUntilDone(t *testing.T) {
	h := newHarness(t)
	calls := 0
	if _, err := h.d.AddIdleCallback(func(any) bool {
		calls++
		return calls < 6
	}, nil, api.PriorityNormal); err != nil {
		t.Fatal(err)
	}
	h.steps(t, 6)
	if calls != 6 {
		t.Errorf("calls = %d, want 6", calls)
	}
	st := h.d.Stats()
	if st.Idles != 0 || st.LiveObjects != 0 {
		t.Errorf("idle left behind: %+v", st)
	}
	h.step(t)
	if calls != 6 {
		t.Errorf("idle ran after returning false")
	}
}

func TestIdlePriorityAndRoundRobin(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}
	mustIdle(t, h.d, rec.idle("low", false), api.PriorityLow)
	mustIdle(t, h.d, rec.idle("a", true), api.PriorityNormal)
	mustIdle(t, h.d, rec.idle("b", true), api.PriorityNormal)
	mustIdle(t, h.d, rec.idle("high", false), api.PriorityHigh)

	h.steps(t, 5)
	if !slices.Equal(rec.calls, []string{"high", "a", "b", "a", "b"}) {
		t.Errorf("order = %v", rec.calls)
	}
}

func TestSpecialIdlePreemptsReadyDescriptor(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}
	if _, err := h.d.SetSpecialIdleCallback(rec.idle("special", false), nil, api.PriorityNormal); err != nil {
		t.Fatal(err)
	}
	h.step(t)
	if !slices.Equal(rec.calls, []string{"special"}) {
		t.Fatalf("special did not run first: %v", rec.calls)
	}

	if _, err := h.d.AddFileDescriptorHandler(5, rec.fd("fd"), nil); err != nil {
		t.Fatal(err)
	}
	h.src.SetReadable(5, true)
	h.steps(t, 3) // wait, fd, special
	if !slices.Equal(rec.calls, []string{"special", "fd", "special"}) {
		t.Errorf("order = %v", rec.calls)
	}
	if h.d.Stats().SpecialPending {
		t.Error("special still pending after returning false")
	}
}

func TestSpecialIdleStaysPendingWhileContinuing(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}
	n := 0
	if _, err := h.d.SetSpecialIdleCallback(func(any) bool {
		n++
		rec.calls = append(rec.calls, "special")
		return n < 3
	}, nil, api.PriorityLow); err != nil {
		t.Fatal(err)
	}
	mustIdle(t, h.d, rec.idle("idle", true), api.PriorityUrgent)
	h.steps(t, 4)
	if !slices.Equal(rec.calls, []string{"special", "special", "special", "idle"}) {
		t.Errorf("order = %v", rec.calls)
	}
}

func TestSpecialIdlePolicy(t *testing.T) {
	for _, tc := range []struct {
		policy dispatcher.SpecialIdlePolicy
		want   []string
	}{
		{dispatcher.SpecialAfterAny, []string{"special", "idle", "special", "idle"}},
		{dispatcher.SpecialAfterEvents, []string{"special", "idle", "idle", "idle"}},
	} {
		t.Run(tc.policy.String(), func(t *testing.T) {
			h := newHarness(t, dispatcher.WithSpecialIdlePolicy(tc.policy))
			rec := &recorder{}
			if _, err := h.d.SetSpecialIdleCallback(rec.idle("special", false), nil, api.PriorityNormal); err != nil {
				t.Fatal(err)
			}
			mustIdle(t, h.d, rec.idle("idle", true), api.PriorityNormal)
			h.steps(t, 4)
			if !slices.Equal(rec.calls, tc.want) {
				t.Errorf("order = %v, want %v", rec.calls, tc.want)
			}
		})
	}
}

func TestReplacingSpecialReleasesPrevious(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}
	first, err := h.d.SetSpecialIdleCallback(rec.idle("first", false), nil, api.PriorityNormal)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.d.SetSpecialIdleCallback(rec.idle("second", false), nil, api.PriorityNormal); err != nil {
		t.Fatal(err)
	}
	if got := h.d.Stats().LiveObjects; got != 1 {
		t.Errorf("live = %d, want 1", got)
	}
	if err := h.d.RemoveIdleCallback(first); !isCode(err, api.ErrNotRegistered) {
		t.Errorf("removing replaced special: %v", err)
	}
	h.step(t)
	if !slices.Equal(rec.calls, []string{"second"}) {
		t.Errorf("calls = %v", rec.calls)
	}
}

func TestSpecialReplacingItselfStaysPending(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}
	replacement := rec.idle("replacement", false)
	if _, err := h.d.SetSpecialIdleCallback(func(any) bool {
		rec.calls = append(rec.calls, "original")
		if _, err := h.d.SetSpecialIdleCallback(replacement, nil, api.PriorityNormal); err != nil {
			t.Error(err)
		}
		return false
	}, nil, api.PriorityNormal); err != nil {
		t.Fatal(err)
	}
	h.steps(t, 2)
	if !slices.Equal(rec.calls, []string{"original", "replacement"}) {
		t.Errorf("calls = %v", rec.calls)
	}
}

func TestWaitShrinksTowardsDeadline(t *testing.T) {
	clock := fake.NewClock(epoch)
	src := fake.NewReadiness(nil)
	h := newHarnessWith(t, clock, src)
	fired := false
	if _, err := h.d.AddTimeoutAfter(2500*time.Millisecond, func(any) { fired = true }, nil); err != nil {
		t.Fatal(err)
	}
	want := []time.Duration{2500 * time.Millisecond, 1500 * time.Millisecond, 500 * time.Millisecond}
	for i, w := range want {
		h.step(t)
		if got := h.d.Stats().LastWait; !near(got, w, time.Millisecond) {
			t.Fatalf("wait %d = %v, want %v", i, got, w)
		}
		if fired {
			t.Fatalf("fired early at step %d", i)
		}
		clock.Advance(time.Second)
	}
	h.step(t)
	if !fired {
		t.Fatal("timeout did not fire once due")
	}
	if got := h.d.Stats().LastWait; got != 0 {
		t.Errorf("overdue wait = %v, want 0", got)
	}
}

func TestIdleMakesWaitZero(t *testing.T) {
	h := newHarness(t)
	if _, err := h.d.AddTimeoutAfter(time.Hour, func(any) {}, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := h.d.AddFileDescriptorHandler(3, func(int, any) {}, nil); err != nil {
		t.Fatal(err)
	}
	mustIdle(t, h.d, func(any) bool { return true }, api.PriorityLow)
	h.steps(t, 5)
	for _, w := range h.src.Timeouts() {
		if w != 0 {
			t.Fatalf("wait with idle registered = %v", w)
		}
	}
}

func TestWaitIsInfiniteWithOnlyDescriptors(t *testing.T) {
	clock := fake.NewClock(epoch)
	src := fake.NewReadiness(clock)
	h := newHarnessWith(t, clock, src)
	if _, err := h.d.AddFileDescriptorHandler(4, func(int, any) {}, nil); err != nil {
		t.Fatal(err)
	}
	src.SetReadable(4, true)
	h.step(t)
	if got := src.Timeouts()[0]; got >= 0 {
		t.Errorf("wait = %v, want infinite", got)
	}
}

func TestMaxWaitCapsInfiniteWait(t *testing.T) {
	cfg := dispatcher.DefaultConfig()
	cfg.MaxWait = 50 * time.Millisecond
	h := newHarness(t, dispatcher.WithConfig(cfg))
	if _, err := h.d.AddFileDescriptorHandler(4, func(int, any) {}, nil); err != nil {
		t.Fatal(err)
	}
	h.step(t)
	if got := h.src.Timeouts()[0]; got != 50*time.Millisecond {
		t.Errorf("wait = %v, want 50ms", got)
	}
}

func TestNothingRegisteredIsNoop(t *testing.T) {
	h := newHarness(t)
	h.steps(t, 3)
	if got := h.src.WaitCount(); got != 0 {
		t.Errorf("waited %d times with nothing registered", got)
	}
	if got := strings.Count(h.logBuf.String(), "nothing registered"); got != 1 {
		t.Errorf("warning logged %d times, want 1", got)
	}
}

func TestWaitFailureLeavesRegistriesIntact(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}
	if _, err := h.d.AddFileDescriptorHandler(7, rec.fd("fd"), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := h.d.AddTimeoutAfter(time.Second, rec.timeout("t"), nil); err != nil {
		t.Fatal(err)
	}
	before := h.d.Stats()
	h.src.FailNext(errBoom)
	err := h.d.DoOneEvent()
	if !isCode(err, api.ErrWaitFailed) {
		t.Fatalf("DoOneEvent = %v, want wait failure", err)
	}
	if len(h.errs) != 1 || h.errs[0].Code != api.ErrCodeWaitFailed {
		t.Errorf("reported = %v", h.errs)
	}
	after := h.d.Stats()
	if after.Descriptors != before.Descriptors || after.Timeouts != before.Timeouts || after.LiveObjects != before.LiveObjects {
		t.Errorf("registries changed: before %+v after %+v", before, after)
	}
	if after.WaitErrors != 1 {
		t.Errorf("wait errors = %d", after.WaitErrors)
	}
	h.step(t)
	if !slices.Equal(rec.calls, []string{"t"}) {
		t.Errorf("retry calls = %v", rec.calls)
	}
}

func TestFarDeadlinesSaturateInsteadOfFiring(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}
	if _, err := h.d.AddTimeoutCallbackRelative(math.MaxUint64, 0, rec.timeout("relative"), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := h.d.AddTimeoutCallback(math.MaxUint64, 2_000_000_000, rec.timeout("absolute"), nil); err != nil {
		t.Fatal(err)
	}
	ih := mustIdle(t, h.d, rec.idle("idle", true), api.PriorityLow)

	h.steps(t, 3)
	if !slices.Equal(rec.calls, []string{"idle", "idle", "idle"}) {
		t.Fatalf("calls = %v", rec.calls)
	}
	if err := h.d.RemoveIdleCallback(ih); err != nil {
		t.Fatal(err)
	}
	h.step(t)
	if len(rec.calls) != 3 {
		t.Errorf("far timeout fired: %v", rec.calls)
	}
	waits := h.src.Timeouts()
	if last := waits[len(waits)-1]; last != time.Duration(math.MaxInt64) {
		t.Errorf("wait = %v, want saturated", last)
	}
	if got := h.d.Stats().Timeouts; got != 2 {
		t.Errorf("timeouts = %d, want 2", got)
	}
}

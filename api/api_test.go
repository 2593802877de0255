package api_test

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/momentics/hioload-dispatch/api"
)

func TestDeadlineAddCarriesNanoseconds(t *testing.T) {
	d := api.Deadline{Seconds: 10, Nanoseconds: 900_000_000}.Add(1, 300_000_000)
	if d.Seconds != 12 || d.Nanoseconds != 200_000_000 {
		t.Fatalf("got %+v", d)
	}
	n := api.Deadline{Nanoseconds: 3_500_000_000}.Normalize()
	if n.Seconds != 3 || n.Nanoseconds != 500_000_000 {
		t.Fatalf("normalize = %+v", n)
	}
}

func TestDeadlineArithmeticSaturates(t *testing.T) {
	now := api.Deadline{Seconds: 1_700_000_000, Nanoseconds: 5}
	if got := now.Add(math.MaxUint64, 0); got != api.MaxDeadline {
		t.Errorf("Add(max seconds) = %+v", got)
	}
	if got := now.Add(math.MaxUint64-1_700_000_000, 999_999_999); got != api.MaxDeadline {
		t.Errorf("Add with nanosecond carry = %+v", got)
	}
	if got := (api.Deadline{Seconds: math.MaxUint64, Nanoseconds: 2_000_000_000}).Normalize(); got != api.MaxDeadline {
		t.Errorf("Normalize = %+v", got)
	}
	if got := now.AddDuration(time.Duration(math.MaxInt64)); !now.Before(got) {
		t.Errorf("AddDuration went backwards: %+v", got)
	}
	if !now.Before(api.MaxDeadline) || api.MaxDeadline.Due(now) {
		t.Error("saturated deadline is due")
	}
	if got := api.MaxDeadline.Until(now); got != time.Duration(math.MaxInt64) {
		t.Errorf("Until = %v", got)
	}
	edge := api.Deadline{Seconds: math.MaxUint64 - 1, Nanoseconds: 600_000_000}.Add(0, 500_000_000)
	if edge != (api.Deadline{Seconds: math.MaxUint64, Nanoseconds: 100_000_000}) {
		t.Errorf("carry into last second = %+v", edge)
	}
}

func TestDeadlineOrderingAndUntil(t *testing.T) {
	a := api.Deadline{Seconds: 5, Nanoseconds: 10}
	b := api.Deadline{Seconds: 5, Nanoseconds: 20}
	if !a.Before(b) || b.Before(a) || a.Compare(a) != 0 {
		t.Fatal("ordering broken")
	}
	if !a.Due(b) || b.Due(a) {
		t.Fatal("Due broken")
	}
	if got := b.Until(a); got != 10*time.Nanosecond {
		t.Errorf("Until = %v", got)
	}
	if got := a.Until(b); got != 0 {
		t.Errorf("past deadline Until = %v", got)
	}
	far := api.Deadline{Seconds: 1 << 62}
	if got := far.Until(api.Deadline{}); got <= 0 {
		t.Errorf("saturation = %v", got)
	}
	nsBorrow := api.Deadline{Seconds: 6, Nanoseconds: 5}.Until(api.Deadline{Seconds: 5, Nanoseconds: 999_999_999})
	if nsBorrow != 6*time.Nanosecond {
		t.Errorf("borrow = %v", nsBorrow)
	}
}

func TestDeadlineTimeRoundTrip(t *testing.T) {
	now := time.Unix(1_700_000_000, 123)
	d := api.DeadlineFromTime(now)
	if !d.Time().Equal(now) {
		t.Errorf("round trip %v != %v", d.Time(), now)
	}
	if (api.DeadlineFromTime(time.Unix(-5, 0)) != api.Deadline{}) {
		t.Error("pre-epoch time not clamped")
	}
}

func TestFDSet(t *testing.T) {
	var s api.FDSet
	if s.Max() != -1 || s.Len() != 0 {
		t.Fatal("zero set not empty")
	}
	for _, fd := range []int{3, 130, 64, -1} {
		s.Set(fd)
	}
	if s.Len() != 3 || s.Max() != 130 || !s.IsSet(64) || s.IsSet(65) || s.IsSet(-1) {
		t.Fatalf("set state wrong: len=%d max=%d", s.Len(), s.Max())
	}
	var seen []int
	s.Each(func(fd int) { seen = append(seen, fd) })
	if fmt.Sprint(seen) != "[3 64 130]" {
		t.Errorf("Each = %v", seen)
	}
	s.Clear(130)
	s.Clear(1000)
	if s.Max() != 64 {
		t.Errorf("Max after clear = %d", s.Max())
	}
	s.Zero()
	if s.Len() != 0 {
		t.Error("Zero left members")
	}
}

func TestDescriptorSetTimeoutLimit(t *testing.T) {
	ds := api.NewDescriptorSet()
	if ds.MaxTimeout() >= 0 {
		t.Fatal("fresh set has a limit")
	}
	ds.LimitTimeout(time.Second)
	ds.LimitTimeout(2 * time.Second)
	if ds.MaxTimeout() != time.Second {
		t.Errorf("limit = %v, want smallest", ds.MaxTimeout())
	}
	ds.Write.Set(9)
	if ds.Empty() || ds.MaxFD() != 9 {
		t.Error("write set ignored")
	}
	ds.Reset()
	if !ds.Empty() || ds.MaxTimeout() >= 0 {
		t.Error("Reset incomplete")
	}
}

func TestStructuredErrors(t *testing.T) {
	cause := errors.New("EBADF")
	err := api.WrapError(api.ErrCodeWaitFailed, "DoOneEvent", cause).WithContext("timeout", 0)
	if !errors.Is(err, api.ErrWaitFailed) || !errors.Is(err, cause) {
		t.Fatal("errors.Is chain broken")
	}
	if errors.Is(err, api.ErrNotRegistered) {
		t.Fatal("matched unrelated sentinel")
	}
	if api.CodeOf(fmt.Errorf("outer: %w", err)) != api.ErrCodeWaitFailed {
		t.Error("CodeOf through wrapping")
	}
	if api.CodeOf(fmt.Errorf("x: %w", api.ErrDestroyed)) != api.ErrCodeDestroyed {
		t.Error("CodeOf for bare sentinel")
	}
	if api.CodeOf(nil) != api.ErrCodeOK {
		t.Error("CodeOf(nil)")
	}
	msg := api.NewError(api.ErrCodeNotRegistered, "RemoveIdleCallback", "").Error()
	if msg != "RemoveIdleCallback: handle not registered" {
		t.Errorf("message = %q", msg)
	}
}

func TestHandlesAndPriorities(t *testing.T) {
	if !(api.FDHandle{}).IsNull() || api.NewTimeoutHandle(3).IsNull() || api.NewIdleHandle(4).ID() != 4 {
		t.Error("handle helpers")
	}
	if api.Priority(7).Valid() || !api.PriorityUrgent.Valid() {
		t.Error("priority range")
	}
	if api.PriorityHigh.String() != "high" {
		t.Errorf("String = %q", api.PriorityHigh)
	}
}

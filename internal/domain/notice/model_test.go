package notice_test

import (
	"testing"
	"time"

	"activityboard/internal/domain/notice"
)

// fakeTimer records scheduled hides so tests can fire them deterministically.
type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

// Stop implements notice.Timer.
func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeClock struct {
	timers []*fakeTimer
	now    time.Time
}

func (c *fakeClock) afterFunc(d time.Duration, f func()) notice.Timer {
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Now() time.Time { return c.now }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

// TestNotice_Validate tests validation of Notice.
func TestNotice_Validate(t *testing.T) {
	tests := []struct {
		name    string
		notice  notice.Notice
		wantErr error
	}{
		{name: "success", notice: notice.Success("Signed up"), wantErr: nil},
		{name: "error", notice: notice.Error("Already signed up"), wantErr: nil},
		{name: "bad kind", notice: notice.Notice{Kind: "warning", Text: "x"}, wantErr: notice.ErrInvalidKind},
		{name: "empty text", notice: notice.Notice{Kind: notice.KindSuccess}, wantErr: notice.ErrEmptyText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.notice.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestError_FallsBackWhenDetailMissing verifies the generic fallback text.
func TestError_FallsBackWhenDetailMissing(t *testing.T) {
	n := notice.Error("")
	if n.Text != notice.TextFallback {
		t.Errorf("Text = %q, want %q", n.Text, notice.TextFallback)
	}
	if !n.IsError() {
		t.Error("expected error kind")
	}
}

// TestArea_ShowThenExpire covers hidden -> visible -> hidden after the fixed delay.
func TestArea_ShowThenExpire(t *testing.T) {
	clock := newFakeClock()
	area := notice.NewArea(clock.afterFunc, clock.Now)

	if _, state := area.Current(); state != notice.StateHidden {
		t.Fatalf("initial state = %s, want hidden", state)
	}

	shown := area.Show(notice.Success("Signed up"))
	if !shown.ShownAt.Equal(clock.now) {
		t.Errorf("ShownAt = %v, want %v", shown.ShownAt, clock.now)
	}
	if got := shown.HideAt().Sub(shown.ShownAt); got != 5*time.Second {
		t.Errorf("HideAt - ShownAt = %v, want 5s", got)
	}
	if len(clock.timers) != 1 || clock.timers[0].d != notice.HideAfter {
		t.Fatalf("expected one 5s timer, got %+v", clock.timers)
	}
	n, state := area.Current()
	if state != notice.StateVisible || n.Text != "Signed up" {
		t.Fatalf("Current() = %+v %s, want visible Signed up", n, state)
	}

	clock.timers[0].f()
	if _, state := area.Current(); state != notice.StateHidden {
		t.Errorf("state after timer = %s, want hidden", state)
	}
}

// TestArea_NewNoticeSupersedesOld verifies no queueing and that the stale timer is inert.
func TestArea_NewNoticeSupersedesOld(t *testing.T) {
	clock := newFakeClock()
	area := notice.NewArea(clock.afterFunc, clock.Now)

	area.Show(notice.Success("first"))
	clock.now = clock.now.Add(3 * time.Second)
	area.Show(notice.Error("second"))

	if !clock.timers[0].stopped {
		t.Error("first timer was not stopped")
	}

	// Even if the stale timer already fired, the newer notice stays visible.
	clock.timers[0].f()
	n, state := area.Current()
	if state != notice.StateVisible || n.Text != "second" {
		t.Fatalf("Current() = %+v %s, want visible second", n, state)
	}

	clock.timers[1].f()
	if _, state := area.Current(); state != notice.StateHidden {
		t.Errorf("state = %s, want hidden", state)
	}
}

// TestArea_Hide cancels the pending timer.
func TestArea_Hide(t *testing.T) {
	clock := newFakeClock()
	area := notice.NewArea(clock.afterFunc, clock.Now)
	area.Show(notice.Success("x"))
	area.Hide()

	if !clock.timers[0].stopped {
		t.Error("timer not stopped by Hide")
	}
	if _, state := area.Current(); state != notice.StateHidden {
		t.Errorf("state = %s, want hidden", state)
	}
}

// TestArea_RealTimer exercises the default runtime timer path.
func TestArea_RealTimer(t *testing.T) {
	area := notice.NewArea(nil, nil)
	area.Show(notice.Success("x"))
	area.Hide()
	if _, state := area.Current(); state != notice.StateHidden {
		t.Errorf("state = %s, want hidden", state)
	}
}

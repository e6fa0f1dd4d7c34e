package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock(" 08:30 ")
	if err != nil || h != 8 || m != 30 {
		t.Fatalf("ParseClock = %d %d %v", h, m, err)
	}
	for _, bad := range []string{"", "8", "24:00", "12:60", "ab:cd", "-1:10"} {
		if _, _, err := ParseClock(bad); !errors.Is(err, ErrBadClock) {
			t.Errorf("ParseClock(%q) err = %v", bad, err)
		}
	}
}

func TestNextRun(t *testing.T) {
	cet := time.FixedZone("CET", 3600)
	cases := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2020, 11, 10, 6, 0, 0, 0, cet), time.Date(2020, 11, 10, 8, 0, 0, 0, cet)},
		{time.Date(2020, 11, 10, 8, 0, 0, 0, cet), time.Date(2020, 11, 11, 8, 0, 0, 0, cet)},
		{time.Date(2020, 11, 10, 23, 0, 0, 0, cet), time.Date(2020, 11, 11, 8, 0, 0, 0, cet)},
		// 07:30 UTC is already 08:30 in CET.
		{time.Date(2020, 11, 10, 7, 30, 0, 0, time.UTC), time.Date(2020, 11, 11, 8, 0, 0, 0, cet)},
	}
	for _, c := range cases {
		if got := NextRun(c.now, 8, 0, cet); !got.Equal(c.want) {
			t.Errorf("NextRun(%v) = %v, want %v", c.now, got, c.want)
		}
	}
}

func TestRun_RecoversPanics(t *testing.T) {
	err := Run(context.Background(), "test_panic", func(context.Context) error { panic("boom") })
	if err == nil || err.Error() != "panic: boom" {
		t.Fatalf("expected recovered panic, got %v", err)
	}
	want := errors.New("failed")
	if err := Run(context.Background(), "test_err", func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Fatalf("expected job error, got %v", err)
	}
}

func TestEvery_SurvivesFailuresAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	job := func(context.Context) error {
		n := runs.Add(1)
		switch n {
		case 1:
			return errors.New("transient")
		case 2:
			panic("unexpected")
		}
		return nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		Every(ctx, "test_every", 5*time.Millisecond, job)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 4 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	wg.Wait()
	if runs.Load() < 4 {
		t.Fatalf("loop stopped after failures: %d runs", runs.Load())
	}
}

func TestEvery_RejectsNonPositiveInterval(t *testing.T) {
	called := false
	Every(context.Background(), "test_zero", 0, func(context.Context) error { called = true; return nil })
	if called {
		t.Fatalf("job must not run without a valid interval")
	}
}

func TestDailyAt_RunsAtClockTime(t *testing.T) {
	start := time.Now()
	fake := time.Date(2020, 11, 10, 7, 59, 59, 950_000_000, time.UTC)
	now = func() time.Time { return fake.Add(time.Since(start)) }
	t.Cleanup(func() { now = time.Now })

	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- DailyAt(ctx, "test_daily", "08:00", time.UTC, func(context.Context) error {
			runs.Add(1)
			return nil
		})
	}()

	time.Sleep(300 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("DailyAt: %v", err)
	}
	if got := runs.Load(); got != 1 {
		t.Fatalf("expected exactly one run, got %d", got)
	}
}

func TestDailyAt_BadClock(t *testing.T) {
	err := DailyAt(context.Background(), "test_bad", "25:00", nil, func(context.Context) error { return nil })
	if !errors.Is(err, ErrBadClock) {
		t.Fatalf("expected ErrBadClock, got %v", err)
	}
}

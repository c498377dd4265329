package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/guttosm/nsepulse/internal/snapshot"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   int
	symbols []string
	force   bool
	err     error
	block   chan struct{}
}

var _ Runner = (*fakeRunner)(nil)

func (f *fakeRunner) Run(ctx context.Context, symbols []string, force bool) (snapshot.Summary, error) {
	f.mu.Lock()
	f.calls++
	f.symbols, f.force = symbols, force
	f.mu.Unlock()
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return snapshot.Summary{}, ctx.Err()
		}
	}
	if f.err != nil {
		return snapshot.Summary{Failed: 1}, f.err
	}
	return snapshot.Summary{Recorded: len(symbols)}, nil
}

func TestNew_InvalidSpec(t *testing.T) {
	if _, err := New("not a spec", nil, &fakeRunner{}, nil, 0, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for invalid cron spec")
	}
}

func TestTick_SkipsNonTradingDays(t *testing.T) {
	cases := []struct {
		name string
		now  time.Time
		runs bool
	}{
		{name: "thursday", now: time.Date(2024, 3, 28, 11, 0, 0, 0, time.UTC), runs: true},
		{name: "good friday", now: time.Date(2024, 3, 29, 11, 0, 0, 0, time.UTC), runs: false},
		{name: "saturday", now: time.Date(2024, 3, 30, 11, 0, 0, 0, time.UTC), runs: false},
		// 20:00 UTC Sunday is already Monday in India
		{name: "sunday evening utc", now: time.Date(2024, 3, 31, 20, 0, 0, 0, time.UTC), runs: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := &fakeRunner{}
			s, err := New("30 16 * * 1-5", snapshot.IST, r, []string{"TCS", "INFY"}, time.Second, zerolog.Nop())
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if got := s.tick(tc.now); got != tc.runs {
				t.Fatalf("tick=%v want %v", got, tc.runs)
			}
			want := 0
			if tc.runs {
				want = 1
			}
			if r.calls != want {
				t.Fatalf("runner calls=%d want %d", r.calls, want)
			}
			if tc.runs && (len(r.symbols) != 2 || r.force) {
				t.Fatalf("runner got symbols=%v force=%v", r.symbols, r.force)
			}
		})
	}
}

func TestTick_RunErrorIsLoggedNotFatal(t *testing.T) {
	r := &fakeRunner{err: errors.New("boom")}
	s, err := New("@daily", snapshot.IST, r, []string{"TCS"}, 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !s.tick(time.Date(2024, 3, 28, 11, 0, 0, 0, snapshot.IST)) {
		t.Fatalf("trading day must attempt a run")
	}
}

func TestStartStop(t *testing.T) {
	s, err := New("30 16 * * 1-5", snapshot.IST, &fakeRunner{}, nil, 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Start()
	next := s.Next()
	if next.IsZero() {
		t.Fatalf("next tick not scheduled")
	}
	if in := next.In(snapshot.IST); in.Hour() != 16 || in.Minute() != 30 {
		t.Fatalf("next tick %v not at 16:30 IST", in)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestStop_CancelsRunningJob(t *testing.T) {
	r := &fakeRunner{block: make(chan struct{})}
	s, err := New("@every 1h", snapshot.IST, r, []string{"TCS"}, 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	done := make(chan struct{})
	go func() {
		s.tick(time.Date(2024, 3, 28, 11, 0, 0, 0, snapshot.IST))
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	// the job was not started by cron, so Stop returns at once and cancels it
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("running job not cancelled by Stop")
	}
}

package systemd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	states []string
	err    error
}

func (r *recorder) notify(_ bool, state string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
	return r.err == nil, r.err
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.states...)
}

func install(t *testing.T, r *recorder) {
	t.Helper()
	restore := notify
	notify = r.notify
	t.Cleanup(func() { notify = restore })
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLifecycleStates(t *testing.T) {
	r := &recorder{}
	install(t, r)

	Ready(discard())
	Status(discard(), "publishing 640x480")
	Stopping(discard())

	want := []string{"READY=1", "STATUS=publishing 640x480", "STOPPING=1"}
	got := r.snapshot()
	if len(got) != len(want) {
		t.Fatalf("states = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("state %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNotifyErrorIsNotFatal(t *testing.T) {
	r := &recorder{err: errors.New("socket gone")}
	install(t, r)
	Ready(discard())
	if len(r.snapshot()) != 1 {
		t.Error("notify not attempted")
	}
}

func TestKeepalive(t *testing.T) {
	r := &recorder{}
	install(t, r)

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()
	keepalive(ctx, discard(), 10*time.Millisecond)

	got := r.snapshot()
	if len(got) < 2 {
		t.Fatalf("sent %d pings, want several", len(got))
	}
	for _, s := range got {
		if s != "WATCHDOG=1" {
			t.Errorf("state = %q, want WATCHDOG=1", s)
		}
	}
}

func TestWatchdogDisabled(t *testing.T) {
	t.Setenv("WATCHDOG_USEC", "")
	done := make(chan struct{})
	go func() {
		Watchdog(context.Background(), discard())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watchdog blocked although disabled")
	}
}

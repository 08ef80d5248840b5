package logging

import (
	"context"
	"log/slog"
	"strconv"
	"testing"
	"time"
)

func TestRingBufferWraps(t *testing.T) {
	rb := NewRingBuffer(3)
	for i := range 5 {
		rb.Write(LogEntry{Message: strconv.Itoa(i)})
	}

	if rb.Count() != 3 {
		t.Fatalf("Count = %d, want 3", rb.Count())
	}

	tests := []struct {
		n    int
		want []string
	}{
		{0, []string{"2", "3", "4"}},
		{2, []string{"3", "4"}},
		{10, []string{"2", "3", "4"}},
	}
	for _, tt := range tests {
		got := rb.Tail(tt.n)
		if len(got) != len(tt.want) {
			t.Fatalf("Tail(%d) returned %d entries", tt.n, len(got))
		}
		for i := range got {
			if got[i].Message != tt.want[i] {
				t.Errorf("Tail(%d)[%d] = %q, want %q", tt.n, i, got[i].Message, tt.want[i])
			}
		}
	}
}

func TestRingBufferEmpty(t *testing.T) {
	if got := NewRingBuffer(4).ReadAll(); got != nil {
		t.Errorf("ReadAll on empty buffer = %v, want nil", got)
	}
}

func TestBufferHandlerGroups(t *testing.T) {
	rb := NewRingBuffer(4)
	logger := slog.New(NewBufferHandler(rb, slog.LevelDebug)).
		With("module", "recording").
		WithGroup("frame").
		With("index", 3)

	logger.Debug("Saved", "took", 5*time.Millisecond, slog.Group("size", "w", 640))

	entries := rb.ReadAll()
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	e := entries[0]
	if e.Module != "recording" {
		t.Errorf("module = %q", e.Module)
	}
	want := map[string]any{
		"frame.index":  int64(3),
		"frame.took":   "5ms",
		"frame.size.w": int64(640),
	}
	for k, v := range want {
		if e.Attributes[k] != v {
			t.Errorf("%s = %#v, want %#v", k, e.Attributes[k], v)
		}
	}
}

func TestBufferHandlerLevel(t *testing.T) {
	rb := NewRingBuffer(4)
	var lv slog.LevelVar
	lv.Set(slog.LevelWarn)
	h := NewBufferHandler(rb, &lv)

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info enabled at warn")
	}
	lv.Set(slog.LevelInfo)
	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("level change not observed")
	}
}

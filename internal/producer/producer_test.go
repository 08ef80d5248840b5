//go:build linux

package producer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smazurov/framebridge/internal/events"
	"github.com/smazurov/framebridge/internal/framechannel"
	"github.com/smazurov/framebridge/internal/video"
)

// countingSource yields solid frames whose value is the frame number.
type countingSource struct {
	width, height int
	n             atomic.Int32
	limit         int32
	err           error
	delay         time.Duration
}

func (s *countingSource) ReadFrameInto(ctx context.Context, dst *video.Frame) error {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.delay):
		}
	}
	n := s.n.Add(1)
	if s.limit > 0 && n > s.limit {
		if s.err != nil {
			return s.err
		}
		<-ctx.Done()
		return ctx.Err()
	}
	dst.Resize(s.width, s.height)
	v := byte(n)
	dst.Fill(v, v, v)
	return nil
}

func (s *countingSource) TogglePause() {}
func (s *countingSource) Close() error { return nil }

func TestRunPublishesAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	src := &countingSource{width: 32, height: 24, delay: time.Millisecond}
	ready := make(chan struct{})
	p := New(src, Config{
		ChannelDir: dir,
		Width:      32,
		Height:     24,
		OnReady:    func() { close(ready) },
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	<-ready
	consumer, err := framechannel.Open(framechannel.DefaultName, framechannel.WithDir(dir))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer consumer.Close()

	readCtx, readCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer readCancel()
	data, hdr, err := consumer.ReadInto(readCtx, nil)
	if err != nil {
		t.Fatalf("ReadInto: %v", err)
	}
	if hdr.Width != 32 || hdr.Height != 24 || len(data) != 32*24*3 {
		t.Errorf("header = %+v, %d bytes", hdr, len(data))
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, framechannel.DefaultName)); !os.IsNotExist(err) {
		t.Errorf("channel still present after Run: %v", err)
	}
	if p.Stats().Published == 0 {
		t.Error("no frames published")
	}
}

func TestRunCountsOverwrites(t *testing.T) {
	src := &countingSource{width: 4, height: 4, limit: 5}
	p := New(src, Config{ChannelDir: t.TempDir(), Width: 4, Height: 4})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Nobody consumed, so every publish after the first replaced an unread frame.
	if got := p.Stats(); got.Published != 5 || got.Overwritten != 4 {
		t.Errorf("stats = %+v, want 5 published, 4 overwritten", got)
	}
}

func TestRunStopsOnSourceError(t *testing.T) {
	boom := errors.New("device unplugged")
	dir := t.TempDir()
	src := &countingSource{width: 4, height: 4, limit: 2, err: boom}
	p := New(src, Config{ChannelDir: dir, Width: 4, Height: 4})

	err := p.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}
	if _, statErr := os.Stat(filepath.Join(dir, framechannel.DefaultName)); !os.IsNotExist(statErr) {
		t.Error("channel not removed after failure")
	}
}

func TestRunRejectsMismatchedFrames(t *testing.T) {
	src := &countingSource{width: 8, height: 8}
	p := New(src, Config{ChannelDir: t.TempDir(), Width: 4, Height: 4})

	err := p.Run(context.Background())
	if !errors.Is(err, framechannel.ErrFrameSize) {
		t.Errorf("error = %v, want ErrFrameSize", err)
	}
}

func TestRunRejectsOversizeChannel(t *testing.T) {
	p := New(&countingSource{}, Config{ChannelDir: t.TempDir(), Width: 4000, Height: 3000})
	if err := p.Run(context.Background()); !errors.Is(err, framechannel.ErrFrameTooLarge) {
		t.Errorf("error = %v, want ErrFrameTooLarge", err)
	}
}

func TestRunPublishesLifecycleEvents(t *testing.T) {
	bus := events.New()
	created := make(chan events.ChannelCreatedEvent, 1)
	destroyed := make(chan events.ChannelDestroyedEvent, 1)
	defer bus.Subscribe(func(e events.ChannelCreatedEvent) { created <- e })()
	defer bus.Subscribe(func(e events.ChannelDestroyedEvent) { destroyed <- e })()

	src := &countingSource{width: 4, height: 4, limit: 3}
	p := New(src, Config{ChannelName: "events", ChannelDir: t.TempDir(), Width: 4, Height: 4, Bus: bus})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := p.Run(ctx); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-created:
		if e.Name != "events" || e.Width != 4 {
			t.Errorf("created = %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no ChannelCreatedEvent")
	}
	select {
	case e := <-destroyed:
		if e.Published != 3 {
			t.Errorf("destroyed.Published = %d, want 3", e.Published)
		}
	case <-time.After(time.Second):
		t.Fatal("no ChannelDestroyedEvent")
	}
}

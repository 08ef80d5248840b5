//go:build linux

package video

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smazurov/framebridge/internal/framechannel"
)

func TestSharedMemoryAttachesOnceProducerStarts(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type result struct {
		v   *SharedMemory
		err error
	}
	attached := make(chan result, 1)
	go func() {
		v, err := NewSharedMemory(ctx, SharedMemoryConfig{Dir: dir, RetryInterval: 10 * time.Millisecond})
		attached <- result{v, err}
	}()

	// Let the consumer fail at least one attach attempt.
	time.Sleep(50 * time.Millisecond)

	producer, err := framechannel.Create(framechannel.DefaultName, 64, 48, framechannel.WithDir(dir))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer framechannel.Destroy(framechannel.DefaultName, framechannel.WithDir(dir))
	defer producer.Close()

	res := <-attached
	if res.err != nil {
		t.Fatalf("NewSharedMemory: %v", res.err)
	}
	defer res.v.Close()

	src := solid(64, 48, 128)
	if _, err := producer.Publish(src.Data); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	var dst Frame
	if err := res.v.ReadFrameInto(ctx, &dst); err != nil {
		t.Fatalf("ReadFrameInto: %v", err)
	}
	if dst.Width != 64 || dst.Height != 48 || dst.Empty() {
		t.Fatalf("frame is %dx%d", dst.Width, dst.Height)
	}
	for i, b := range dst.Data {
		if b != 128 {
			t.Fatalf("byte %d = %d, want 128", i, b)
		}
	}
}

func TestSharedMemoryAttachCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := NewSharedMemory(ctx, SharedMemoryConfig{Dir: t.TempDir(), RetryInterval: 5 * time.Millisecond})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want DeadlineExceeded", err)
	}
}

func TestSharedMemoryPauseIsNoop(t *testing.T) {
	dir := t.TempDir()
	producer, err := framechannel.Create("paused", 2, 2, framechannel.WithDir(dir))
	if err != nil {
		t.Fatal(err)
	}
	defer framechannel.Destroy("paused", framechannel.WithDir(dir))
	defer producer.Close()

	v, err := NewSharedMemory(context.Background(), SharedMemoryConfig{Name: "paused", Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close()
	v.TogglePause()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for want := byte(1); want <= 3; want++ {
		if _, err := producer.Publish(solid(2, 2, want).Data); err != nil {
			t.Fatal(err)
		}
		var dst Frame
		if err := v.ReadFrameInto(ctx, &dst); err != nil {
			t.Fatal(err)
		}
		if dst.Data[0] != want {
			t.Errorf("frame = %d, want %d", dst.Data[0], want)
		}
	}
}

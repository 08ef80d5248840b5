package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type watchedConfig struct {
	Name  string `toml:"name"`
	Value int    `toml:"value"`
}

func loadWatched(path string) (watchedConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return watchedConfig{}, err
	}
	var cfg watchedConfig
	err = toml.Unmarshal(data, &cfg)
	return cfg, err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startWatcher(t *testing.T, path string, loader func(string) (watchedConfig, error), opts ...WatcherOption[watchedConfig]) *Watcher[watchedConfig] {
	t.Helper()
	opts = append([]WatcherOption[watchedConfig]{WithDebounce[watchedConfig](50 * time.Millisecond)}, opts...)
	w := NewWatcher(path, loader, quietLogger(), opts...)
	if err := w.Start(t.Context()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("Stop: %v", err)
		}
	})
	return w
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "framebridge.toml")
	os.WriteFile(path, []byte("name = \"initial\"\nvalue = 1\n"), 0o644)

	received := make(chan watchedConfig, 4)
	w := startWatcher(t, path, loadWatched)
	w.OnReload(func(cfg watchedConfig) { received <- cfg })

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("name = \"updated\"\nvalue = 42\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-received:
		if cfg.Name != "updated" || cfg.Value != 42 {
			t.Errorf("got %+v", cfg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}

func TestWatcherSeesAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "framebridge.toml")
	os.WriteFile(path, []byte("value = 1\n"), 0o644)

	received := make(chan watchedConfig, 4)
	w := startWatcher(t, path, loadWatched)
	w.OnReload(func(cfg watchedConfig) { received <- cfg })

	time.Sleep(50 * time.Millisecond)
	tmp := filepath.Join(dir, "framebridge.toml.tmp")
	os.WriteFile(tmp, []byte("value = 7\n"), 0o644)
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-received:
		if cfg.Value != 7 {
			t.Errorf("Value = %d, want 7", cfg.Value)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload after rename")
	}
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "framebridge.toml")
	os.WriteFile(path, []byte("value = 1\n"), 0o644)

	var loads atomic.Int32
	startWatcher(t, path, func(p string) (watchedConfig, error) {
		loads.Add(1)
		return loadWatched(p)
	})

	time.Sleep(50 * time.Millisecond)
	os.WriteFile(filepath.Join(dir, "other.toml"), []byte("value = 2\n"), 0o644)
	time.Sleep(200 * time.Millisecond)

	if n := loads.Load(); n != 0 {
		t.Errorf("loader ran %d times for an unrelated file", n)
	}
}

func TestWatcherDebounces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "framebridge.toml")
	os.WriteFile(path, []byte("value = 0\n"), 0o644)

	var loads atomic.Int32
	received := make(chan watchedConfig, 10)
	w := startWatcher(t, path, func(p string) (watchedConfig, error) {
		loads.Add(1)
		return loadWatched(p)
	}, WithDebounce[watchedConfig](150*time.Millisecond))
	w.OnReload(func(cfg watchedConfig) { received <- cfg })

	time.Sleep(50 * time.Millisecond)
	for i := 1; i <= 5; i++ {
		os.WriteFile(path, []byte("value = "+string(rune('0'+i))+"\n"), 0o644)
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case cfg := <-received:
		if cfg.Value != 5 {
			t.Errorf("Value = %d, want the last write", cfg.Value)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
	time.Sleep(300 * time.Millisecond)
	if n := loads.Load(); n != 1 {
		t.Errorf("loader ran %d times, want 1", n)
	}
}

func TestWatcherUnsubscribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "framebridge.toml")
	os.WriteFile(path, []byte("value = 0\n"), 0o644)

	var first, second atomic.Int32
	done := make(chan struct{}, 4)
	w := startWatcher(t, path, loadWatched)
	unsubscribe := w.OnReload(func(watchedConfig) { first.Add(1) })
	w.OnReload(func(watchedConfig) { second.Add(1); done <- struct{}{} })
	unsubscribe()

	time.Sleep(50 * time.Millisecond)
	os.WriteFile(path, []byte("value = 1\n"), 0o644)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
	if first.Load() != 0 {
		t.Error("unsubscribed handler was called")
	}
}

func TestWatcherErrorHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "framebridge.toml")
	os.WriteFile(path, []byte("value = 0\n"), 0o644)

	errCh := make(chan error, 4)
	called := make(chan struct{}, 4)
	w := startWatcher(t, path, loadWatched, WithErrorHandler[watchedConfig](func(err error) { errCh <- err }))
	w.OnReload(func(watchedConfig) { called <- struct{}{} })

	time.Sleep(50 * time.Millisecond)
	os.WriteFile(path, []byte("value = [broken"), 0o644)

	select {
	case err := <-errCh:
		var decodeErr *toml.DecodeError
		if !errors.As(err, &decodeErr) {
			t.Errorf("error = %v, want a TOML decode error", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error")
	}
	select {
	case <-called:
		t.Error("handler called with a broken config")
	default:
	}
}

func TestWatcherStopWithoutStart(t *testing.T) {
	w := NewWatcher("unused.toml", loadWatched, quietLogger())
	if err := w.Stop(); err != nil {
		t.Errorf("Stop = %v", err)
	}
}

//go:build linux

package framechannel

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// waitSlice bounds one futex sleep when the caller's context can be cancelled.
const waitSlice = 100 * time.Millisecond

// Header describes the frame currently held by the channel.
type Header struct {
	Width    int
	Height   int
	Channels int
	Sequence uint64
	Ready    bool
}

// Size returns the payload byte count described by the header.
func (h Header) Size() int {
	return h.Width * h.Height * h.Channels
}

// Option configures where a channel lives.
type Option func(*options)

type options struct {
	dir string
}

// WithDir places the region file in dir instead of DefaultDir.
func WithDir(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.dir = dir
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{dir: DefaultDir}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Path returns the filesystem path backing the named region.
func Path(name string, opts ...Option) (string, error) {
	if name == "" || strings.ContainsRune(name, '/') {
		return "", fmt.Errorf("invalid frame channel name %q", name)
	}
	return filepath.Join(buildOptions(opts).dir, name), nil
}

// Channel is one process's mapping of the shared region.
type Channel struct {
	name   string
	path   string
	mem    []byte
	mu     mutex
	cond   cond
	width  int
	height int
	closed atomic.Bool
}

// Create removes any stale region with the same name, then creates, sizes and
// initializes a fresh one for width x height frames.
func Create(name string, width, height int, opts ...Option) (*Channel, error) {
	if err := ValidateDimensions(width, height); err != nil {
		return nil, fmt.Errorf("%dx%d: %w", width, height, err)
	}
	path, err := Path(name, opts...)
	if err != nil {
		return nil, err
	}

	// A crashed producer leaves its region behind.
	if err := removeRegion(path); err != nil {
		return nil, fmt.Errorf("%w: remove stale %s: %v", ErrResource, path, err)
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL|unix.O_CLOEXEC, 0o666)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", ErrResource, path, err)
	}
	defer unix.Close(fd)

	if err := unix.Ftruncate(fd, RegionSize); err != nil {
		_ = removeRegion(path)
		return nil, fmt.Errorf("%w: truncate %s: %v", ErrResource, path, err)
	}

	mem, err := unix.Mmap(fd, 0, RegionSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = removeRegion(path)
		return nil, fmt.Errorf("%w: mmap %s: %v", ErrResource, path, err)
	}

	clear(mem[:HeaderSize])
	c := newChannel(name, path, mem)

	c.mu.Lock()
	atomic.StoreUint32(c.word(offReady), 0)
	c.putInt(offWidth, width)
	c.putInt(offHeight, height)
	c.putInt(offChannels, Channels)
	c.width, c.height = width, height
	c.mu.Unlock()

	// Open refuses the region until the magic is visible.
	atomic.StoreUint32(c.word(offMagic), Magic)
	return c, nil
}

// Open attaches to a region created by a producer. It returns ErrNotExist while
// the region is missing or still being initialized.
func Open(name string, opts ...Option) (*Channel, error) {
	path, err := Path(name, opts...)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.ENOENT) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("%w: open %s: %v", ErrResource, path, err)
	}
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", ErrResource, path, err)
	}
	switch {
	case st.Size == 0:
		return nil, ErrNotExist
	case st.Size != RegionSize:
		return nil, fmt.Errorf("%w: %s is %d bytes, want %d", ErrLayoutMismatch, path, st.Size, RegionSize)
	}

	mem, err := unix.Mmap(fd, 0, RegionSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %s: %v", ErrResource, path, err)
	}

	c := newChannel(name, path, mem)
	switch magic := atomic.LoadUint32(c.word(offMagic)); magic {
	case Magic:
	case 0:
		_ = unix.Munmap(mem)
		return nil, ErrNotExist
	default:
		_ = unix.Munmap(mem)
		return nil, fmt.Errorf("%w: %s has magic %#x", ErrLayoutMismatch, path, magic)
	}

	c.mu.Lock()
	c.width, c.height = c.getInt(offWidth), c.getInt(offHeight)
	channels := c.getInt(offChannels)
	c.mu.Unlock()

	if channels != Channels || ValidateDimensions(c.width, c.height) != nil {
		_ = unix.Munmap(mem)
		return nil, fmt.Errorf("%w: %s holds %dx%dx%d", ErrLayoutMismatch, path, c.width, c.height, channels)
	}
	return c, nil
}

// Destroy removes the named region. Missing regions are not an error.
func Destroy(name string, opts ...Option) error {
	path, err := Path(name, opts...)
	if err != nil {
		return err
	}
	return removeRegion(path)
}

func removeRegion(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func newChannel(name, path string, mem []byte) *Channel {
	c := &Channel{name: name, path: path, mem: mem}
	c.mu = mutex{key: c.word(offLock)}
	c.cond = cond{seq: c.word(offCond)}
	return c
}

func (c *Channel) word(off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&c.mem[off]))
}

func (c *Channel) sequence() *uint64 {
	return (*uint64)(unsafe.Pointer(&c.mem[offSequence]))
}

func (c *Channel) putInt(off, v int) {
	binary.NativeEndian.PutUint32(c.mem[off:off+4], uint32(int32(v)))
}

func (c *Channel) getInt(off int) int {
	return int(int32(binary.NativeEndian.Uint32(c.mem[off : off+4])))
}

func (c *Channel) payload() []byte {
	return c.mem[HeaderSize : HeaderSize+FrameSize(c.width, c.height)]
}

// Name returns the region name.
func (c *Channel) Name() string { return c.name }

// Path returns the file backing the region.
func (c *Channel) Path() string { return c.path }

// Width returns the frame width fixed at creation.
func (c *Channel) Width() int { return c.width }

// Height returns the frame height fixed at creation.
func (c *Channel) Height() int { return c.height }

// FrameSize returns the byte count of one frame in this channel.
func (c *Channel) FrameSize() int { return FrameSize(c.width, c.height) }

// Publish copies frame into the slot and flags it ready, signaling one waiter
// if no frame was pending. It reports whether an undelivered frame was overwritten.
// Publish never waits for a consumer.
func (c *Channel) Publish(frame []byte) (overwrote bool, err error) {
	if c.closed.Load() {
		return false, ErrClosed
	}
	if len(frame) != c.FrameSize() {
		return false, fmt.Errorf("%w: got %d bytes, want %d", ErrFrameSize, len(frame), c.FrameSize())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	copy(c.payload(), frame)
	atomic.AddUint64(c.sequence(), 1)

	ready := c.word(offReady)
	if atomic.LoadUint32(ready) != 0 {
		return true, nil
	}
	atomic.StoreUint32(ready, 1)
	c.cond.Signal()
	return false, nil
}

// ReadInto blocks until a frame is ready, copies it into dst (grown as needed),
// clears the ready flag and returns the filled slice with its header.
//
// The wait has no deadline of its own. When ctx can be cancelled the wait sleeps in
// short slices and returns ctx.Err() once ctx is done.
func (c *Channel) ReadInto(ctx context.Context, dst []byte) ([]byte, Header, error) {
	if c.closed.Load() {
		return dst, Header{}, ErrClosed
	}

	timeout := time.Duration(0)
	if ctx.Done() != nil {
		timeout = waitSlice
	}

	c.mu.Lock()
	ready := c.word(offReady)
	for atomic.LoadUint32(ready) == 0 {
		if err := ctx.Err(); err != nil {
			c.mu.Unlock()
			return dst, Header{}, err
		}
		c.cond.Wait(c.mu, timeout)
	}

	size := c.FrameSize()
	if cap(dst) < size {
		dst = make([]byte, size)
	}
	dst = dst[:size]
	copy(dst, c.payload())
	atomic.StoreUint32(ready, 0)
	hdr := c.headerLocked()
	c.mu.Unlock()

	return dst, hdr, nil
}

// Header returns a snapshot of the channel metadata.
func (c *Channel) Header() Header {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.headerLocked()
}

func (c *Channel) headerLocked() Header {
	return Header{
		Width:    c.getInt(offWidth),
		Height:   c.getInt(offHeight),
		Channels: c.getInt(offChannels),
		Sequence: atomic.LoadUint64(c.sequence()),
		Ready:    atomic.LoadUint32(c.word(offReady)) != 0,
	}
}

// Close unmaps the region. It never removes the name; see Destroy.
func (c *Channel) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return unix.Munmap(c.mem)
}

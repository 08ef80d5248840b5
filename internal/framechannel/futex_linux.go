//go:build linux

package framechannel

import (
	"errors"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Operations without FUTEX_PRIVATE_FLAG: the kernel keys the wait queue on the
// backing page, not on the virtual address, so waiters in other processes match.
const (
	futexWaitOp = 0
	futexWakeOp = 1
)

// futexWait sleeps while *addr == val. A zero timeout waits without deadline.
// Spurious returns are normal; callers re-check their condition.
func futexWait(addr *uint32, val uint32, timeout time.Duration) error {
	var ts *unix.Timespec
	if timeout > 0 {
		t := unix.NsecToTimespec(int64(timeout))
		ts = &t
	}
	_, _, errno := unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)), futexWaitOp, uintptr(val),
		uintptr(unsafe.Pointer(ts)), 0, 0)
	switch errno {
	case 0, unix.EAGAIN, unix.EINTR, unix.ETIMEDOUT:
		return nil
	default:
		return errno
	}
}

// futexWake wakes at most n waiters sleeping on addr.
func futexWake(addr *uint32, n int) error {
	_, _, errno := unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)), futexWakeOp, uintptr(n), 0, 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

var errUnlockUnlocked = errors.New("framechannel: unlock of unlocked mutex")

// mutex is a three-state futex lock over a word that may live in shared memory.
// 0 is free, 1 is held with no waiters, 2 is held with possible waiters.
type mutex struct {
	key *uint32
}

func (m mutex) Lock() {
	if atomic.CompareAndSwapUint32(m.key, 0, 1) {
		return
	}
	m.lockSlow()
}

// lockSlow marks the lock contended before sleeping, so the holder knows to wake us.
func (m mutex) lockSlow() {
	for atomic.SwapUint32(m.key, 2) != 0 {
		_ = futexWait(m.key, 2, 0)
	}
}

func (m mutex) Unlock() {
	switch atomic.SwapUint32(m.key, 0) {
	case 0:
		panic(errUnlockUnlocked)
	case 2:
		_ = futexWake(m.key, 1)
	}
}

// cond is a sequence-counter condition variable.
// Wait reads the sequence while still holding the mutex; a Signal issued after
// the mutex is released bumps the sequence and makes the futex wait return at once.
type cond struct {
	seq *uint32
}

// Wait releases m, sleeps until signaled (or timeout, when positive) and reacquires m.
func (c cond) Wait(m mutex, timeout time.Duration) {
	seq := atomic.LoadUint32(c.seq)
	m.Unlock()
	_ = futexWait(c.seq, seq, timeout)
	m.lockSlow()
}

// Signal wakes one waiter.
func (c cond) Signal() {
	atomic.AddUint32(c.seq, 1)
	_ = futexWake(c.seq, 1)
}

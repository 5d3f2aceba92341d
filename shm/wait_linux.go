//go:build linux

/*
 * Copyright 2026 the shmstream authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package shm

import (
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Futex operation codes. x/sys/unix exposes the syscall number but not the
// ops; the non-private forms are required because segment regions are
// shared across processes.
const (
	futexOpWait = 0 // FUTEX_WAIT
	futexOpWake = 1 // FUTEX_WAKE
)

// futexWait parks the calling thread until the value at addr is no longer
// val, a wake arrives on addr, the timeout elapses, or a signal interrupts
// the syscall. All of those are equivalent to the caller: the wake is
// advisory only, and the guarded-wait loop re-checks its predicate.
func futexWait(addr *uint32, val uint32, timeout time.Duration) {
	// Re-check atomically before entering the syscall. This closes the
	// lost-wake race where the counterpart advances the cursor and wakes
	// between our snapshot and the futex entry.
	if atomic.LoadUint32(addr) != val {
		return
	}

	ts := unix.NsecToTimespec(timeout.Nanoseconds())
	_, _, _ = unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexOpWait),
		uintptr(val),
		uintptr(unsafe.Pointer(&ts)),
		0,
		0,
	)
	// EAGAIN: value already changed. EINTR: signal. ETIMEDOUT: slice
	// elapsed. None need distinguishing; the caller re-checks regardless.
}

// futexWake wakes up to n waiters parked on addr. Best-effort: waking
// nobody is fine, the periodic timeout covers any lost notification.
func futexWake(addr *uint32, n int) {
	_, _, _ = unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexOpWake),
		uintptr(n),
		0,
		0,
		0,
	)
}

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
	"context"
	"fmt"
	"io"
	"math"
	"time"
	"unsafe"
)

// waitSlice bounds every park on a cursor word. Wakes are best-effort (a
// close does not change the word a waiter is keyed to), so a waiter must
// resurface periodically and re-check its predicate rather than trust a
// notification to arrive.
const waitSlice = 10 * time.Millisecond

// waitFn parks the calling goroutine until the word at addr moves away from
// old, a wake arrives, or a bounded timeout elapses. The return is advisory
// either way: callers re-enter their loop and re-check the predicate. A
// non-nil error aborts the operation (context cancellation).
type waitFn func(addr *uint32, old uint32) error

// Stream is a single-producer/single-consumer byte channel over a shared
// memory region: a ctrlBlock followed by a circular data area of capacity
// bytes, of which capacity-1 are usable (one slot stays empty so that
// readPos == writePos always means empty).
//
// Exactly one goroutine may produce and exactly one may consume, fixed for
// the lifetime of the Stream. The two cursors are partitioned by that
// single-writer discipline; the state word is mutated only with atomic OR.
// A Stream attached on the other side of a thread or process boundary (see
// Attach, OpenSegment) operates on the same region with the same layout.
type Stream struct {
	mem []byte // control block + data area, 4-byte aligned
	cap uint32 // data area size in bytes
}

// ctrlOf overlays the control block on the first bytes of a region.
func ctrlOf(region []byte) *ctrlBlock {
	return (*ctrlBlock)(unsafe.Pointer(&region[0]))
}

// aligned4 reports whether the region base is 4-byte aligned, as required
// for atomic and futex access to the control words.
func aligned4(region []byte) bool {
	return uintptr(unsafe.Pointer(&region[0]))&3 == 0
}

// New allocates a fresh region of capacity+CtrlBlockSize bytes with all
// control words zeroed and returns a Stream over it. The usable buffer
// space is capacity-1 bytes.
func New(capacity int) (*Stream, error) {
	if capacity < MinCapacity {
		return nil, fmt.Errorf("shm: capacity %d below minimum %d", capacity, MinCapacity)
	}
	if uint64(capacity) > math.MaxUint32-CtrlBlockSize {
		return nil, fmt.Errorf("shm: capacity %d exceeds 32-bit cursor range", capacity)
	}

	// Back the region with uint32 words so the control block is aligned
	// for atomic and futex access.
	total := CtrlBlockSize + capacity
	words := make([]uint32, (total+3)/4)
	mem := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), total)

	return &Stream{
		mem: mem,
		cap: uint32(capacity),
	}, nil
}

// Attach wraps an existing region without re-initializing it: cursors and
// state are inherited as-is. This is how the counterpart side reconstructs
// the same channel from a region handle received out-of-band.
func Attach(region []byte) (*Stream, error) {
	if err := validateRegion(region); err != nil {
		return nil, err
	}
	return &Stream{
		mem: region,
		cap: uint32(len(region) - CtrlBlockSize),
	}, nil
}

// Region returns the underlying shared region, suitable for handing to the
// counterpart thread (which calls Attach on it).
func (s *Stream) Region() []byte {
	return s.mem
}

// Capacity returns the data area size in bytes. The stream buffers at most
// Capacity()-1 unread bytes at any instant.
func (s *Stream) Capacity() int {
	return int(s.cap)
}

func (s *Stream) ctrl() *ctrlBlock {
	return ctrlOf(s.mem)
}

func (s *Stream) data() []byte {
	return s.mem[CtrlBlockSize:]
}

// blockingWait parks on the cursor word for up to one waitSlice. Timeouts
// and spurious wakes are not errors; the caller's loop re-checks.
func blockingWait(addr *uint32, old uint32) error {
	futexWait(addr, old, waitSlice)
	return nil
}

// ctxWait returns a wait strategy that parks in bounded slices and gives up
// when ctx is done. This is the cooperative-suspension variant: identical
// predicate logic, only the park differs.
func ctxWait(ctx context.Context) waitFn {
	return func(addr *uint32, old uint32) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		d := waitSlice
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining < d {
				d = remaining
			}
		}
		if d > 0 {
			futexWait(addr, old, d)
		}
		return ctx.Err()
	}
}

// WriteBlocking writes all of p into the stream, parking the calling
// goroutine whenever the buffer is full. It returns len(p) on success; a
// short count is returned only with a non-nil error (ErrClosed after a
// Close, ErrReadClosed after the consumer signaled CloseRead).
func (s *Stream) WriteBlocking(p []byte) (int, error) {
	return s.writeLoop(p, blockingWait)
}

// Write is the cooperative variant of WriteBlocking: same state machine,
// but suspension honors ctx cancellation and deadline.
func (s *Stream) Write(ctx context.Context, p []byte) (int, error) {
	return s.writeLoop(p, ctxWait(ctx))
}

// writeLoop is the single producer state machine shared by both write entry
// points. Each attempt copies into the contiguous free span at the tail of
// the buffer, deferring any wrapped portion to the next iteration, then
// publishes the new write cursor and wakes the consumer.
func (s *Stream) writeLoop(p []byte, wait waitFn) (int, error) {
	c := s.ctrl()
	written := 0

	for written < len(p) {
		if st := c.State(); st != 0 {
			if st&stateReadClosed != 0 {
				return written, ErrReadClosed
			}
			if st&stateClosed != 0 {
				return written, ErrClosed
			}
		}

		w := c.WritePos()
		r := c.ReadPos()

		if (w+1)%s.cap == r {
			// Full. Park keyed to the read cursor we just observed so a
			// concurrent reader's advance is guaranteed to wake us.
			if err := wait(c.ReadPosAddr(), r); err != nil {
				return written, err
			}
			continue
		}

		// Contiguous free span: up to the read cursor if it is ahead of
		// us, otherwise to the physical end of the array.
		var span uint32
		if r > w {
			span = r - w
		} else {
			span = s.cap - w
		}

		// Clamp in int so a remaining length past 32 bits cannot
		// truncate before the span limit applies.
		n := len(p) - written
		if n > int(span) {
			n = int(span)
		}
		// Never advance onto the read cursor: full would become
		// indistinguishable from empty. Stop one slot short.
		if (w+uint32(n))%s.cap == r {
			n--
		}

		copy(s.data()[w:w+uint32(n)], p[written:written+n])
		c.SetWritePos((w + uint32(n)) % s.cap)
		futexWake(c.WritePosAddr(), 1)

		written += n
	}

	return written, nil
}

// ReadBlocking fills p from the stream, parking whenever the buffer is
// empty and not yet closed. It returns len(p) unless end-of-stream
// intervenes: then it returns however many bytes were gathered, and once
// the stream is fully drained it returns (0, io.EOF) on this and every
// subsequent call.
func (s *Stream) ReadBlocking(p []byte) (int, error) {
	return s.readLoop(p, len(p), blockingWait)
}

// Read is the cooperative variant of ReadBlocking: same state machine, but
// suspension honors ctx cancellation and deadline.
func (s *Stream) Read(ctx context.Context, p []byte) (int, error) {
	return s.readLoop(p, len(p), ctxWait(ctx))
}

// readLoop is the single consumer state machine shared by all read entry
// points. min is the number of bytes that must be gathered before an empty
// buffer ends the call; the Stream API uses min = len(p), Conn uses 1.
func (s *Stream) readLoop(p []byte, min int, wait waitFn) (int, error) {
	c := s.ctrl()

	// Terminal fast path: once end-of-stream is latched, no read blocks
	// and no cursor moves again.
	if c.EndOfStream() {
		return 0, io.EOF
	}

	read := 0
	for read < len(p) {
		r := c.ReadPos()
		w := c.WritePos()

		if r == w {
			if read >= min {
				return read, nil
			}
			if c.Closed() {
				// Closed and drained: no more data will ever arrive.
				c.OrState(stateEOS)
				if read == 0 {
					return 0, io.EOF
				}
				return read, nil
			}
			// Park keyed to the write cursor we just observed.
			if err := wait(c.WritePosAddr(), w); err != nil {
				return read, err
			}
			continue
		}

		// Contiguous available span: up to the write cursor unless it has
		// wrapped behind us, then to the physical end of the array.
		var span uint32
		if w > r {
			span = w - r
		} else {
			span = s.cap - r
		}

		// Same int-domain clamp as the write side.
		n := len(p) - read
		if n > int(span) {
			n = int(span)
		}

		copy(p[read:read+n], s.data()[r:r+uint32(n)])
		c.SetReadPos((r + uint32(n)) % s.cap)
		futexWake(c.ReadPosAddr(), 1)

		read += n
	}

	return read, nil
}

// readSome reads at least one byte (blocking if necessary) and at most
// len(p). Used by Conn, whose readers expect io.Reader semantics rather
// than the fill-the-target contract of ReadBlocking.
func (s *Stream) readSome(p []byte) (int, error) {
	return s.readLoop(p, 1, blockingWait)
}

// Close signals that no more writes will occur and wakes a consumer parked
// waiting for data, so it observes closure instead of sitting out its full
// wait slice. Idempotent. Buffered bytes remain readable; once the consumer
// drains them it latches end-of-stream.
func (s *Stream) Close() {
	c := s.ctrl()
	c.OrState(stateClosed)
	futexWake(c.WritePosAddr(), 1)
	futexWake(c.ReadPosAddr(), 1)
}

// CloseRead signals from the consumer side that it has gone away. A parked
// or subsequent write fails with ErrReadClosed instead of waiting on a
// reader that will never come back.
func (s *Stream) CloseRead() {
	c := s.ctrl()
	c.OrState(stateReadClosed)
	futexWake(c.ReadPosAddr(), 1)
}

// Reset zeroes all three control words, returning the stream to the state
// of a freshly constructed channel of the same capacity. The caller must
// guarantee that no read or write is in flight; Reset itself is not
// synchronized against concurrent operations.
func (s *Stream) Reset() {
	c := s.ctrl()
	c.SetReadPos(0)
	c.SetWritePos(0)
	c.SetState(0)
}

// StreamState is a snapshot of the control block for diagnostics.
type StreamState struct {
	Capacity    uint32 // data area size in bytes
	ReadPos     uint32 // consumer cursor
	WritePos    uint32 // producer cursor
	Buffered    uint32 // unread bytes at snapshot time
	Closed      bool   // producer signaled close
	EndOfStream bool   // consumer latched end-of-stream
	ReadClosed  bool   // consumer signaled it has gone away
}

// DebugState returns a snapshot of the stream's control words. Values are
// loaded atomically but the snapshot as a whole is only advisory while the
// counterpart is running.
func (s *Stream) DebugState() StreamState {
	c := s.ctrl()
	r := c.ReadPos()
	w := c.WritePos()
	st := c.State()

	return StreamState{
		Capacity:    s.cap,
		ReadPos:     r,
		WritePos:    w,
		Buffered:    uint32((uint64(w) + uint64(s.cap) - uint64(r)) % uint64(s.cap)),
		Closed:      st&stateClosed != 0,
		EndOfStream: st&stateEOS != 0,
		ReadClosed:  st&stateReadClosed != 0,
	}
}

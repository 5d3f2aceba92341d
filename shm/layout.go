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
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
)

// Region layout constants. The layout is fixed byte-for-byte so that a
// foreign implementation attached to the same region interoperates.
const (
	// CtrlBlockSize is the size of the control block preceding the data
	// area: readPosition, writePosition and state, each a native-endian
	// 32-bit word.
	CtrlBlockSize = 12

	// MinCapacity is the smallest usable data area. One slot is always
	// kept empty to disambiguate full from empty, so capacity 2 buffers
	// a single byte.
	MinCapacity = 2

	// DefaultCapacity is the data area size used when a caller does not
	// specify one.
	DefaultCapacity = 65536
)

// State bits of the control block's third word.
const (
	// stateClosed is set by the producer: no more writes will occur.
	stateClosed = uint32(1) << 0

	// stateEOS is latched by the consumer after observing closed with an
	// empty buffer. Terminal: every later read returns io.EOF.
	stateEOS = uint32(1) << 1

	// stateReadClosed is set by the consumer to signal that it has gone
	// away, so a blocked producer can give up instead of waiting forever.
	stateReadClosed = uint32(1) << 2
)

// ctrlBlock overlays the first CtrlBlockSize bytes of a region. All access
// goes through the atomic methods below; the struct is never copied.
//
// Layout (native endian):
//
//	0x00 readPos  uint32  next byte index to consume, in [0, capacity)
//	0x04 writePos uint32  next byte index to produce, in [0, capacity)
//	0x08 state    uint32  bit0 closed, bit1 end-of-stream, bit2 read closed
type ctrlBlock struct {
	readPos  uint32
	writePos uint32
	state    uint32
}

// ReadPos returns the consumer cursor.
func (c *ctrlBlock) ReadPos() uint32 {
	return atomic.LoadUint32(&c.readPos)
}

// SetReadPos publishes a new consumer cursor. Consumer-only.
func (c *ctrlBlock) SetReadPos(pos uint32) {
	atomic.StoreUint32(&c.readPos, pos)
}

// WritePos returns the producer cursor.
func (c *ctrlBlock) WritePos() uint32 {
	return atomic.LoadUint32(&c.writePos)
}

// SetWritePos publishes a new producer cursor. Producer-only.
func (c *ctrlBlock) SetWritePos(pos uint32) {
	atomic.StoreUint32(&c.writePos, pos)
}

// State returns the state word.
func (c *ctrlBlock) State() uint32 {
	return atomic.LoadUint32(&c.state)
}

// OrState sets the given bits in the state word.
func (c *ctrlBlock) OrState(bits uint32) {
	for {
		old := atomic.LoadUint32(&c.state)
		if atomic.CompareAndSwapUint32(&c.state, old, old|bits) {
			return
		}
	}
}

// SetState overwrites the state word. Used only by Reset.
func (c *ctrlBlock) SetState(v uint32) {
	atomic.StoreUint32(&c.state, v)
}

// ReadPosAddr returns the address of the consumer cursor word. The producer
// waits on it while the buffer is full.
func (c *ctrlBlock) ReadPosAddr() *uint32 {
	return &c.readPos
}

// WritePosAddr returns the address of the producer cursor word. The consumer
// waits on it while the buffer is empty.
func (c *ctrlBlock) WritePosAddr() *uint32 {
	return &c.writePos
}

// Closed reports whether the producer has signaled close.
func (c *ctrlBlock) Closed() bool {
	return c.State()&stateClosed != 0
}

// EndOfStream reports whether end-of-stream has been latched.
func (c *ctrlBlock) EndOfStream() bool {
	return c.State()&stateEOS != 0
}

// validateRegion checks that a borrowed region can back a Stream: large
// enough for the control block plus a minimal data area, 4-byte aligned so
// the control words are valid atomic/futex targets, and with cursors inside
// the data area. Cursor bounds are the only content check: an attached
// region inherits its state, it is never re-zeroed.
func validateRegion(region []byte) error {
	if len(region) < CtrlBlockSize+MinCapacity {
		return fmt.Errorf("shm: region too small: %d bytes, need at least %d",
			len(region), CtrlBlockSize+MinCapacity)
	}
	if !aligned4(region) {
		return fmt.Errorf("shm: region is not 4-byte aligned")
	}
	capacity := uint32(len(region) - CtrlBlockSize)
	c := ctrlOf(region)
	if rp := c.ReadPos(); rp >= capacity {
		return fmt.Errorf("shm: read position %d out of range [0, %d)", rp, capacity)
	}
	if wp := c.WritePos(); wp >= capacity {
		return fmt.Errorf("shm: write position %d out of range [0, %d)", wp, capacity)
	}
	return nil
}

// Segment file naming and housekeeping.

const segmentPrefix = "shmstream_"

// segmentPath generates the backing file path for a named segment,
// preferring /dev/shm where available.
func segmentPath(name string) string {
	if isDevShmAvailable() {
		return filepath.Join("/dev/shm", segmentPrefix+name)
	}
	return filepath.Join(os.TempDir(), segmentPrefix+name)
}

// isDevShmAvailable checks if /dev/shm is available.
func isDevShmAvailable() bool {
	info, err := os.Stat("/dev/shm")
	if err != nil {
		return false
	}
	return info.IsDir()
}

// RemoveSegment removes the backing file of a named segment.
func RemoveSegment(name string) error {
	paths := []string{
		filepath.Join("/dev/shm", segmentPrefix+name),
		filepath.Join(os.TempDir(), segmentPrefix+name),
	}

	var lastErr error
	for _, path := range paths {
		if err := os.Remove(path); err == nil {
			return nil
		} else if !os.IsNotExist(err) {
			lastErr = err
		}
	}

	if lastErr != nil {
		return lastErr
	}
	return os.ErrNotExist
}

// SegmentExists checks whether a named segment's backing file exists.
func SegmentExists(name string) bool {
	paths := []string{
		filepath.Join("/dev/shm", segmentPrefix+name),
		filepath.Join(os.TempDir(), segmentPrefix+name),
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return true
		}
	}
	return false
}

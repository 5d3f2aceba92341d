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
	"testing"
	"unsafe"
)

func TestCtrlBlockLayout(t *testing.T) {
	// The region layout is a wire contract: three consecutive 32-bit words
	// with the data area at offset 12.
	if size := unsafe.Sizeof(ctrlBlock{}); size != CtrlBlockSize {
		t.Fatalf("ctrlBlock size = %d, layout requires %d", size, CtrlBlockSize)
	}

	var c ctrlBlock
	if off := unsafe.Offsetof(c.readPos); off != 0 {
		t.Fatalf("readPos offset = %d, want 0", off)
	}
	if off := unsafe.Offsetof(c.writePos); off != 4 {
		t.Fatalf("writePos offset = %d, want 4", off)
	}
	if off := unsafe.Offsetof(c.state); off != 8 {
		t.Fatalf("state offset = %d, want 8", off)
	}
}

func TestCtrlBlockStateBits(t *testing.T) {
	var c ctrlBlock

	c.OrState(stateClosed)
	if !c.Closed() {
		t.Fatal("closed bit not observed")
	}
	if c.EndOfStream() {
		t.Fatal("end-of-stream bit set unexpectedly")
	}

	c.OrState(stateEOS)
	if !c.Closed() || !c.EndOfStream() {
		t.Fatal("OR must accumulate bits")
	}
	// state > 1 implies end-of-stream; state != 0 implies closed.
	if c.State() <= 1 {
		t.Fatalf("state = %d, expected > 1 once end-of-stream is latched", c.State())
	}

	c.SetState(0)
	if c.Closed() || c.EndOfStream() {
		t.Fatal("reset state must clear all bits")
	}
}

func TestValidateRegion(t *testing.T) {
	if err := validateRegion(make([]byte, CtrlBlockSize)); err == nil {
		t.Fatal("expected error for region without data area")
	}

	// Misaligned base: slice into a word-aligned backing at an odd offset.
	backing := make([]uint32, 16)
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&backing[0])), 64)
	if err := validateRegion(raw[1:]); err == nil {
		t.Fatal("expected error for misaligned region")
	}

	// Out-of-range cursor inherited from a corrupt region.
	s, err := New(16)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctrlOf(s.Region()).SetWritePos(16)
	if err := validateRegion(s.Region()); err == nil {
		t.Fatal("expected error for out-of-range write position")
	}
	ctrlOf(s.Region()).SetWritePos(0)
	ctrlOf(s.Region()).SetReadPos(99)
	if err := validateRegion(s.Region()); err == nil {
		t.Fatal("expected error for out-of-range read position")
	}
}

func TestSegmentPathNaming(t *testing.T) {
	path := segmentPath("abc")
	if path == "" {
		t.Fatal("empty segment path")
	}
	if got := segmentPath("abc"); got != path {
		t.Fatalf("segment path not stable: %q vs %q", got, path)
	}
}

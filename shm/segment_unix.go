//go:build unix

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

	"golang.org/x/sys/unix"
)

// Segment is a Stream whose region is backed by a memory-mapped file, so
// the same channel can be opened from another process. The creator side
// calls CreateSegment, the counterpart OpenSegment; both operate on the
// identical region layout.
type Segment struct {
	File   *os.File
	Mem    []byte
	Stream *Stream
	Path   string
}

// CreateSegment creates and maps a new named segment sized for the given
// data capacity. The file is created exclusively; all control words start
// zeroed courtesy of Truncate.
func CreateSegment(name string, capacity int) (*Segment, error) {
	if capacity < MinCapacity {
		return nil, fmt.Errorf("shm: capacity %d below minimum %d", capacity, MinCapacity)
	}

	path := segmentPath(name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("shm: create segment file %s: %w", path, err)
	}

	cleanup := func() {
		file.Close()
		os.Remove(path)
	}

	totalSize := CtrlBlockSize + capacity
	if err := file.Truncate(int64(totalSize)); err != nil {
		cleanup()
		return nil, fmt.Errorf("shm: resize segment file: %w", err)
	}

	mem, err := mmapFile(file, totalSize)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("shm: mmap segment: %w", err)
	}

	stream, err := Attach(mem)
	if err != nil {
		unix.Munmap(mem)
		cleanup()
		return nil, err
	}

	return &Segment{
		File:   file,
		Mem:    mem,
		Stream: stream,
		Path:   path,
	}, nil
}

// OpenSegment maps an existing named segment. The data capacity is derived
// from the file size; cursors and state are inherited, never re-zeroed.
func OpenSegment(name string) (*Segment, error) {
	path := segmentPath(name)

	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("shm: open segment file %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("shm: stat segment file: %w", err)
	}

	size := info.Size()
	if size < CtrlBlockSize+MinCapacity {
		file.Close()
		return nil, fmt.Errorf("shm: segment file too small: %d bytes", size)
	}

	mem, err := mmapFile(file, int(size))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("shm: mmap segment: %w", err)
	}

	stream, err := Attach(mem)
	if err != nil {
		unix.Munmap(mem)
		file.Close()
		return nil, fmt.Errorf("shm: invalid segment %s: %w", path, err)
	}

	return &Segment{
		File:   file,
		Mem:    mem,
		Stream: stream,
		Path:   path,
	}, nil
}

// Close unmaps the region and closes the backing file. It does not remove
// the file; the last owner calls RemoveSegment when the channel is done.
func (s *Segment) Close() error {
	var firstErr error

	if s.Mem != nil {
		if err := unix.Munmap(s.Mem); err != nil && firstErr == nil {
			firstErr = err
		}
		s.Mem = nil
	}

	if s.File != nil {
		if err := s.File.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.File = nil
	}

	return firstErr
}

// mmapFile maps size bytes of file read-write and shared.
func mmapFile(file *os.File, size int) ([]byte, error) {
	data, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap failed: %w", err)
	}
	return data, nil
}

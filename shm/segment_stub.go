//go:build !unix

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
	"errors"
	"os"
)

// ErrSegmentsUnsupported is returned on platforms without mmap-backed
// segments. In-memory Streams (New/Attach) still work everywhere.
var ErrSegmentsUnsupported = errors.New("shm: file-backed segments not supported on this platform")

// Segment is unavailable on this platform.
type Segment struct {
	File   *os.File
	Mem    []byte
	Stream *Stream
	Path   string
}

// CreateSegment is not supported on this platform.
func CreateSegment(name string, capacity int) (*Segment, error) {
	return nil, ErrSegmentsUnsupported
}

// OpenSegment is not supported on this platform.
func OpenSegment(name string) (*Segment, error) {
	return nil, ErrSegmentsUnsupported
}

// Close is a no-op on this platform.
func (s *Segment) Close() error {
	return nil
}

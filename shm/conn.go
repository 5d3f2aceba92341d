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
)

// Conn models a duplex byte pipe over two Streams, one per direction. Each
// side is the producer of its write stream and the consumer of its read
// stream, preserving the single-producer/single-consumer discipline of the
// underlying channels.
//
// Unlike Stream.ReadBlocking, Conn.Read follows io.Reader semantics: it
// returns as soon as at least one byte is available.
type Conn struct {
	rd     *Stream
	wr     *Stream
	closed atomic.Bool
}

// NewConn builds a connection endpoint that consumes from read and produces
// into write. The counterpart endpoint is built with the streams swapped.
func NewConn(read, write *Stream) *Conn {
	return &Conn{
		rd: read,
		wr: write,
	}
}

// Pair returns two connected in-process endpoints, each direction backed by
// a fresh stream of the given capacity.
func Pair(capacity int) (*Conn, *Conn, error) {
	a, err := New(capacity)
	if err != nil {
		return nil, nil, err
	}
	b, err := New(capacity)
	if err != nil {
		return nil, nil, err
	}
	return NewConn(a, b), NewConn(b, a), nil
}

// Read reads at least one byte into p, blocking while the peer has written
// nothing. Returns io.EOF after the peer closed and the stream drained.
func (c *Conn) Read(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, ErrConnClosed
	}

	n, err := c.rd.readSome(p)
	if err != nil && c.closed.Load() {
		return 0, ErrConnClosed
	}
	return n, err
}

// Write writes all of p to the peer.
func (c *Conn) Write(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, ErrConnClosed
	}

	n, err := c.wr.WriteBlocking(p)
	if err != nil && c.closed.Load() {
		return n, ErrConnClosed
	}
	return n, err
}

// Close closes the write direction so the peer's reader drains to
// end-of-stream, and signals the read direction's producer that this side
// is gone. Idempotent.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.wr.Close()
	c.rd.CloseRead()
	return nil
}

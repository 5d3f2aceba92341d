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

import "errors"

// ErrClosed indicates the stream has been closed for writing; further writes
// are disallowed until an explicit Reset.
var ErrClosed = errors.New("shm: stream closed")

// ErrReadClosed indicates the consumer side has gone away; a pending or
// subsequent write will never be drained.
var ErrReadClosed = errors.New("shm: read side closed")

// ErrConnClosed indicates the duplex connection has been closed locally.
var ErrConnClosed = errors.New("shm: connection closed")

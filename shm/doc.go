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

// Package shm provides a single-producer/single-consumer byte stream over a
// shared memory region.
//
// The core component is a fixed-capacity circular byte buffer preceded by a
// three-word control block, both living in one contiguous region that two
// threads of execution (or two processes, via a memory-mapped file) access
// concurrently. Synchronization is done entirely with atomic operations plus
// futex-style wait/notify on the cursor words; no locks are taken and no
// syscall is needed on the data path while the buffer has room.
//
// One side of a Stream is always the exclusive producer and the other the
// exclusive consumer, fixed for the lifetime of the channel. The producer
// signals shutdown with Close; the consumer drains the remaining bytes and
// then observes end-of-stream. The region layout is fixed byte-for-byte so
// that heterogeneous implementations can interoperate over the same memory.
package shm

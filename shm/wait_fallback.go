//go:build !linux

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
)

// pollInterval is the sleep granularity of the fallback wait. Coarser than
// a futex wake but bounded by the same slice discipline.
const pollInterval = 100 * time.Microsecond

// futexWait polls the word at addr for up to timeout. The guarded-wait
// discipline (every wake is advisory, the predicate is re-checked) makes a
// sleep-based strategy correct on platforms without futex support.
func futexWait(addr *uint32, val uint32, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for atomic.LoadUint32(addr) == val {
		if !time.Now().Before(deadline) {
			return
		}
		time.Sleep(pollInterval)
	}
}

// futexWake is a no-op: fallback waiters resurface on their own.
func futexWake(addr *uint32, n int) {
}

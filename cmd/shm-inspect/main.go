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

// shm-inspect attaches to a named shared memory segment and prints its
// control-block state, optionally polling so cursor movement of a live
// producer/consumer pair can be watched.
package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/ipcwire/shmstream/shm"
)

func main() {
	name := flag.String("name", "", "segment name to inspect")
	watch := flag.Duration("watch", 0, "poll interval; 0 prints one snapshot")
	flag.Parse()

	logger := slog.New(tint.NewHandler(colorable.NewColorableStderr(), &tint.Options{
		Level:   slog.LevelDebug,
		NoColor: !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)

	if *name == "" {
		logger.Error("missing -name")
		flag.Usage()
		os.Exit(2)
	}

	if !shm.SegmentExists(*name) {
		logger.Error("segment not found", "name", *name)
		os.Exit(1)
	}

	seg, err := shm.OpenSegment(*name)
	if err != nil {
		logger.Error("open segment", "name", *name, "err", err)
		os.Exit(1)
	}
	defer seg.Close()

	logger.Info("attached",
		"name", *name,
		"path", seg.Path,
		"capacity", seg.Stream.Capacity(),
		"region_bytes", len(seg.Mem),
	)

	for {
		st := seg.Stream.DebugState()
		logger.Info("state",
			"read_pos", st.ReadPos,
			"write_pos", st.WritePos,
			"buffered", st.Buffered,
			"closed", st.Closed,
			"eos", st.EndOfStream,
			"read_closed", st.ReadClosed,
		)

		if *watch <= 0 {
			return
		}
		time.Sleep(*watch)
	}
}

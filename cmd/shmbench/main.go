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

// shmbench drives a producer/consumer pair over one stream and reports
// sustained throughput. The producer and consumer run on separate
// goroutines against separate attachments of the same region, which is the
// deployment shape the library targets.
package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/ipcwire/shmstream/cmd/shmbench/config"
	"github.com/ipcwire/shmstream/shm"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	logger := slog.New(tint.NewHandler(colorable.NewColorableStdout(), &tint.Options{
		Level:   slog.LevelDebug,
		NoColor: !isatty.IsTerminal(os.Stdout.Fd()),
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	logger.Info("starting bench",
		"capacity", cfg.Capacity,
		"total_bytes", cfg.TotalBytes,
		"write_chunk", cfg.WriteChunk,
		"read_chunk", cfg.ReadChunk,
	)

	producer, err := shm.New(cfg.Capacity)
	if err != nil {
		logger.Error("create stream", "err", err)
		os.Exit(1)
	}
	consumer, err := shm.Attach(producer.Region())
	if err != nil {
		logger.Error("attach stream", "err", err)
		os.Exit(1)
	}

	start := time.Now()

	writeErr := make(chan error, 1)
	go func() {
		chunk := make([]byte, cfg.WriteChunk)
		for i := range chunk {
			chunk[i] = byte(i)
		}
		remaining := cfg.TotalBytes
		for remaining > 0 {
			n := len(chunk)
			if remaining < n {
				n = remaining
			}
			if _, err := producer.WriteBlocking(chunk[:n]); err != nil {
				writeErr <- err
				return
			}
			remaining -= n
		}
		producer.Close()
		writeErr <- nil
	}()

	var sum uint64
	received := 0
	buf := make([]byte, cfg.ReadChunk)
	for received < cfg.TotalBytes {
		n, err := consumer.ReadBlocking(buf)
		for _, b := range buf[:n] {
			sum += uint64(b)
		}
		received += n
		if err != nil {
			break
		}
	}

	if err := <-writeErr; err != nil {
		logger.Error("producer failed", "err", err)
		os.Exit(1)
	}
	if received != cfg.TotalBytes {
		logger.Error("short transfer", "received", received, "expected", cfg.TotalBytes)
		os.Exit(1)
	}

	elapsed := time.Since(start)
	mbps := float64(received) / (1 << 20) / elapsed.Seconds()

	logger.Info("done",
		"bytes", received,
		"checksum", sum,
		"elapsed", elapsed.Round(time.Millisecond),
		"throughput_mib_s", int(mbps),
	)
}

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

// Package config defines the shmbench run configuration. YAML decoding is
// strict and every field has an explicit default.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds one bench run's parameters.
type Config struct {
	Capacity   int `yaml:"capacity"`    // stream data area in bytes
	TotalBytes int `yaml:"total_bytes"` // bytes pushed through the stream
	WriteChunk int `yaml:"write_chunk"` // producer call size
	ReadChunk  int `yaml:"read_chunk"`  // consumer call size
}

// Load reads a YAML config from path. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true) // Reject unknown fields

		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}

	cfg.setDefaults()
	return &cfg, cfg.validate()
}

func (c *Config) setDefaults() {
	if c.Capacity == 0 {
		c.Capacity = 65536
	}
	if c.TotalBytes == 0 {
		c.TotalBytes = 256 << 20
	}
	if c.WriteChunk == 0 {
		c.WriteChunk = 4096
	}
	if c.ReadChunk == 0 {
		c.ReadChunk = 4096
	}
}

func (c *Config) validate() error {
	if c.Capacity < 2 {
		return fmt.Errorf("capacity must be at least 2, got %d", c.Capacity)
	}
	if c.TotalBytes < 1 {
		return fmt.Errorf("total_bytes must be positive, got %d", c.TotalBytes)
	}
	if c.WriteChunk < 1 || c.ReadChunk < 1 {
		return fmt.Errorf("chunk sizes must be positive")
	}
	return nil
}

// Copyright 2022 Overlaynet Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config holds the topod service configuration.
package config

import (
	"io"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/overlaynet/topod/pkg/log"
	"github.com/overlaynet/topod/pkg/private/serrors"
)

// Config is the topod service configuration.
type Config struct {
	Coord   Coord      `toml:"coord,omitempty"`
	Logging log.Config `toml:"log,omitempty"`
	Metrics Metrics    `toml:"metrics,omitempty"`
}

// Coord configures the coordination-store session.
type Coord struct {
	// Servers is the list of ensemble addresses.
	Servers []string `toml:"servers,omitempty"`
	// SessionTimeout bounds every round trip, e.g. "5s".
	SessionTimeout string `toml:"session_timeout,omitempty"`
	// Root is the node under which all topology state lives.
	Root string `toml:"root,omitempty"`
}

// Metrics configures the operational HTTP endpoint.
type Metrics struct {
	// Addr is the listen address for health and Prometheus metrics. Empty
	// disables the endpoint.
	Addr string `toml:"addr,omitempty"`
}

// InitDefaults populates unset fields with default values.
func (cfg *Config) InitDefaults() {
	cfg.Logging.InitDefaults()
	if len(cfg.Coord.Servers) == 0 {
		cfg.Coord.Servers = []string{"127.0.0.1:2181"}
	}
	if cfg.Coord.SessionTimeout == "" {
		cfg.Coord.SessionTimeout = "5s"
	}
	if cfg.Coord.Root == "" {
		cfg.Coord.Root = "/topo"
	}
}

// Validate checks the configuration for consistency.
func (cfg *Config) Validate() error {
	if _, err := cfg.Coord.Timeout(); err != nil {
		return err
	}
	return nil
}

// Timeout parses the session timeout.
func (c Coord) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.SessionTimeout)
	if err != nil {
		return 0, serrors.Wrap("invalid session timeout", err,
			"value", c.SessionTimeout)
	}
	return d, nil
}

// LoadFile reads, parses and validates the configuration file.
func LoadFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, serrors.Wrap("reading config file", err, "path", path)
	}
	var cfg Config
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return nil, serrors.Wrap("parsing config file", err, "path", path)
	}
	cfg.InitDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Sample writes a documented sample configuration.
func Sample(dst io.Writer) error {
	_, err := io.WriteString(dst, sample)
	return err
}

const sample = `[coord]
# Addresses of the coordination-store ensemble.
servers = ["127.0.0.1:2181"]
# Session timeout, bounds every round trip.
session_timeout = "5s"
# Node under which all topology state lives.
root = "/topo"

[log]
# Log level: "debug", "info" or "error".
level = "info"

[metrics]
# Listen address for health and Prometheus metrics. Empty disables.
addr = "127.0.0.1:30452"
`

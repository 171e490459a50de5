// Package config holds the connection and runtime configuration for an
// eossync Facade, bound to command-line flags the way the pack's
// `cmd/` tools do it, via github.com/spf13/pflag.
/*
 * Copyright (c) 2024, Electronic Theatre Controls, Inc.
 */
package config

import (
	"strconv"
	"time"

	"github.com/spf13/pflag"
)

// Config is everything the facade needs that the spec treats as an
// external collaborator's knob rather than protocol state (§6).
type Config struct {
	Host        string
	Port        uint16
	RecvTimeout time.Duration
	LogCapacity int
}

// Default returns the spec's documented defaults: TCP port 3032, a
// 10ms recv timeout, and an unbounded log (§6).
func Default() Config {
	return Config{
		Host:        "127.0.0.1",
		Port:        3032,
		RecvTimeout: 10 * time.Millisecond,
		LogCapacity: 0,
	}
}

// BindFlags registers fs flags for every field, defaulted from cfg's
// current values. Call Default() first to seed conventional defaults,
// then BindFlags, then fs.Parse.
func (cfg *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&cfg.Host, "host", cfg.Host, "Eos console host/IP")
	fs.Uint16Var(&cfg.Port, "port", cfg.Port, "Eos console OSC TCP port")
	fs.DurationVar(&cfg.RecvTimeout, "recv-timeout", cfg.RecvTimeout, "bounded wait per transport recv")
	fs.IntVar(&cfg.LogCapacity, "log-capacity", cfg.LogCapacity, "max buffered log records (0 = unbounded)")
}

// Addr renders the "host:port" string Facade.Initialize/transport.Connect expects.
func (cfg Config) Addr() string {
	return cfg.Host + ":" + strconv.Itoa(int(cfg.Port))
}

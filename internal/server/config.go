package server

import (
	"time"

	"github.com/rs/zerolog"
)

// Config carries every tunable resource bound. Zero fields are replaced
// with the matching default, so callers can set only what they care about.
type Config struct {
	// Backlog is the listen queue depth requested from the OS.
	Backlog int

	// MaxFileDescriptors caps concurrent connections. At the cap,
	// pending connections stay in the OS backlog until a slot frees.
	MaxFileDescriptors int

	// PollTimeout bounds how long the reactor blocks waiting for
	// readiness; it also bounds the latency of Stop.
	PollTimeout time.Duration

	// MaxIdleTime is the per-connection inactivity limit enforced by
	// the idle sweep.
	MaxIdleTime time.Duration

	// MaxHeaderSize caps cumulative header name+value bytes per request.
	MaxHeaderSize int

	// MaxBodySize caps the declared or accumulated body per request.
	MaxBodySize int

	// Logger receives server events. Defaults to a no-op logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns the stock limits.
func DefaultConfig() Config {
	nop := zerolog.Nop()
	return Config{
		Backlog:            1 << 20,
		MaxFileDescriptors: 32 * 1024,
		PollTimeout:        time.Second,
		MaxIdleTime:        5 * time.Second,
		MaxHeaderSize:      16 * 1024,
		MaxBodySize:        5 << 20,
		Logger:             &nop,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Backlog <= 0 {
		c.Backlog = def.Backlog
	}
	if c.MaxFileDescriptors <= 0 {
		c.MaxFileDescriptors = def.MaxFileDescriptors
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = def.PollTimeout
	}
	if c.MaxIdleTime <= 0 {
		c.MaxIdleTime = def.MaxIdleTime
	}
	if c.MaxHeaderSize <= 0 {
		c.MaxHeaderSize = def.MaxHeaderSize
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = def.MaxBodySize
	}
	if c.Logger == nil {
		c.Logger = def.Logger
	}
	return c
}

package server

import "time"

const (
	// DefaultShutdownTimeout bounds graceful shutdown when none is configured.
	DefaultShutdownTimeout = 10 * time.Second

	// defaultSlowRequestThreshold marks action logs as slow. Provider calls
	// routinely take seconds, so it is generous.
	defaultSlowRequestThreshold = 10 * time.Second
)

package orchestrator

import (
	"log"
	"time"
)

// ExecutorConfig holds the tunables of an Executor.
type ExecutorConfig struct {
	// MaxParallel bounds the number of stages running at once. Zero or
	// negative means unbounded.
	MaxParallel int

	// Logger receives stage warnings. Nil uses log.Default().
	Logger *log.Logger

	// Now is the clock used for run and stage timestamps.
	Now func() time.Time
}

// ExecutorOption mutates an ExecutorConfig.
type ExecutorOption func(*ExecutorConfig)

// WithMaxParallel bounds concurrent stage dispatch.
func WithMaxParallel(n int) ExecutorOption {
	return func(c *ExecutorConfig) { c.MaxParallel = n }
}

// WithLogger sets the logger used for stage warnings.
func WithLogger(l *log.Logger) ExecutorOption {
	return func(c *ExecutorConfig) { c.Logger = l }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) ExecutorOption {
	return func(c *ExecutorConfig) { c.Now = now }
}

func defaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		Logger: log.Default(),
		Now:    time.Now,
	}
}

package controller

import (
	"time"

	"github.com/google/uuid"

	"github.com/vinayprograms/pursuit/internal/executor"
	"github.com/vinayprograms/pursuit/internal/strategy"
)

// Env is what the reducer consumes from the outside world.
type Env struct {
	Now   func() time.Time
	Rand  executor.Source
	NewID func() string
	// Strategies defaults to strategy.DefaultLibrary().
	Strategies *strategy.Library
}

// DefaultEnv uses the wall clock, a source seeded with seed (0 means
// time-derived) and random UUIDs.
func DefaultEnv(seed uint64) Env {
	return Env{
		Now:        time.Now,
		Rand:       executor.NewSeededSource(seed),
		NewID:      uuid.NewString,
		Strategies: strategy.DefaultLibrary(),
	}
}

// complete fills unset fields from DefaultEnv.
func (e Env) complete() Env {
	if e.Now == nil {
		e.Now = time.Now
	}
	if e.Rand == nil {
		e.Rand = executor.NewSeededSource(0)
	}
	if e.NewID == nil {
		e.NewID = uuid.NewString
	}
	if e.Strategies == nil {
		e.Strategies = strategy.DefaultLibrary()
	}
	return e
}

// Package model defines shared data structures.
package model

import (
	"math"
	"path/filepath"
	"strings"
	"time"
)

// DefaultMaxAttempts is the run length used when nothing else is configured.
// Legacy lifetime records, which predate the attempts-at-best field, assume it.
const DefaultMaxAttempts = 10

// DefaultSettleDelay is how long outcome processing waits for the host to
// finish its own reset and scoring work.
const DefaultSettleDelay = 50 * time.Millisecond

// BoostPerTick is the boost drained by one held tick: the standard drain rate
// of 33.333 units per second sampled at 120 Hz.
const BoostPerTick = (100.0 / 3.0) / 120.0

// UnsetBoost marks a minimum-boost field that has not been recorded yet.
const UnsetBoost = math.MaxFloat64

// BoostSet reports whether v holds a recorded boost value.
func BoostSet(v float64) bool {
	return v != UnsetBoost
}

// Config defines trainer settings read by the core.
type Config struct {
	MaxAttempts int
	SettleDelay time.Duration
	AutoAdvance bool
	Enabled     bool
}

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: DefaultMaxAttempts,
		SettleDelay: DefaultSettleDelay,
		Enabled:     true,
	}
}

// Lifetime holds the persisted best-run record of a single shot.
type Lifetime struct {
	BestSuccesses              int
	AttemptsAtBest             int
	TotalBoostAtBest           float64
	TotalSuccessfulBoostAtBest float64
	MinBoost                   float64
}

// NewLifetime returns an empty lifetime record.
func NewLifetime() Lifetime {
	return Lifetime{MinBoost: UnsetBoost}
}

// ShotStats captures the live session counters of a shot merged with its
// lifetime record.
type ShotStats struct {
	Attempts                 int
	Successes                int
	TotalBoostUsed           float64
	TotalSuccessfulBoostUsed float64
	MinSuccessfulBoostUsed   float64

	Lifetime Lifetime
}

// NewShotStats returns zeroed session counters on top of the given lifetime record.
func NewShotStats(lt Lifetime) *ShotStats {
	return &ShotStats{
		MinSuccessfulBoostUsed: UnsetBoost,
		Lifetime:               lt,
	}
}

// ResetSession zeroes the session counters and keeps the lifetime record.
func (s *ShotStats) ResetSession() {
	s.Attempts = 0
	s.Successes = 0
	s.TotalBoostUsed = 0
	s.TotalSuccessfulBoostUsed = 0
	s.MinSuccessfulBoostUsed = UnsetBoost
}

// PackTable maps a shot index to its lifetime record for one pack.
type PackTable map[int]Lifetime

// PersistentStore maps a pack id to its lifetime table. It is serialized as a
// whole; a pack with an empty table is not persisted.
type PersistentStore map[string]PackTable

// Clone returns a deep copy of the store.
func (p PersistentStore) Clone() PersistentStore {
	out := make(PersistentStore, len(p))
	for packID, table := range p {
		t := make(PackTable, len(table))
		for idx, lt := range table {
			t[idx] = lt
		}
		out[packID] = t
	}
	return out
}

// PackIDFromPath derives a pack id from a training pack file name.
func PackIDFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.NewReplacer("|", "_", ";", "_").Replace(base)
}

// Package aggregator owns the per-shot counters of the active training pack
// and the lifetime-best table they fold into.
package aggregator

import (
	"io"
	"log/slog"
	"math"
	"sort"

	"github.com/verte-zerg/ctrainer/internal/model"
)

// minPlausibleBoost is the smallest non-zero single-attempt boost a loaded
// record may carry. One held tick already drains far more.
const minPlausibleBoost = 1e-4

// State is the position of a shot in its run.
type State int

const (
	// Idle means no attempt of the current run has started.
	Idle State = iota
	// InProgress means the run has attempts left.
	InProgress
	// Exhausted means the run reached the attempt limit.
	Exhausted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InProgress:
		return "in-progress"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Outcome describes a recorded attempt result.
type Outcome struct {
	ShotIndex   int
	Success     bool
	Boost       float64
	RunComplete bool
}

// Aggregator tracks the session table of one pack. It is not safe for
// concurrent use; every method is expected to run on the host callback thread.
type Aggregator struct {
	logger      *slog.Logger
	maxAttempts int

	packID     string
	totalShots int
	current    int
	shots      map[int]*model.ShotStats
	store      model.PersistentStore

	boost       float64
	attemptLive bool
}

// New returns an Aggregator with no pack loaded. A nil logger discards output.
func New(maxAttempts int, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if maxAttempts < 1 {
		maxAttempts = model.DefaultMaxAttempts
	}
	return &Aggregator{
		logger:      logger,
		maxAttempts: maxAttempts,
		shots:       map[int]*model.ShotStats{},
		store:       model.PersistentStore{},
	}
}

// SetStore replaces the persistent lifetime table, typically right after it
// was decoded at startup. The active session table is rebuilt from it.
func (a *Aggregator) SetStore(store model.PersistentStore) {
	if store == nil {
		store = model.PersistentStore{}
	}
	a.store = store
	if a.packID != "" {
		a.rebuild()
	}
}

// Store returns the persistent lifetime table. Callers must not mutate it.
func (a *Aggregator) Store() model.PersistentStore {
	return a.store
}

// SetMaxAttempts changes the run length. Recorded lifetime bests are left untouched.
func (a *Aggregator) SetMaxAttempts(n int) {
	if n < 1 {
		a.logger.Warn("ignoring invalid max attempts", "value", n)
		return
	}
	a.maxAttempts = n
}

// MaxAttempts returns the configured run length.
func (a *Aggregator) MaxAttempts() int { return a.maxAttempts }

// PackID returns the id of the active pack, or "" if none is loaded.
func (a *Aggregator) PackID() string { return a.packID }

// TotalShots returns the shot count of the active pack.
func (a *Aggregator) TotalShots() int { return a.totalShots }

// Current returns the active shot index.
func (a *Aggregator) Current() int { return a.current }

// RunningBoost returns the boost accrued by the attempt in progress.
func (a *Aggregator) RunningBoost() float64 { return a.boost }

// AttemptLive reports whether an attempt started and has no outcome yet.
func (a *Aggregator) AttemptLive() bool { return a.attemptLive }

// Shot returns a copy of the stats for a shot index.
func (a *Aggregator) Shot(idx int) model.ShotStats {
	return *a.shot(idx)
}

// Shots returns the indexes present in the session table in ascending order.
func (a *Aggregator) Shots() []int {
	out := make([]int, 0, len(a.shots))
	for idx := range a.shots {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// State returns the run state of a shot.
func (a *Aggregator) State(idx int) State {
	s := a.shot(idx)
	switch {
	case s.Attempts == 0:
		return Idle
	case s.Attempts >= a.maxAttempts:
		return Exhausted
	default:
		return InProgress
	}
}

// shot returns the stats entry for idx, creating it on first reference.
func (a *Aggregator) shot(idx int) *model.ShotStats {
	s, ok := a.shots[idx]
	if !ok {
		s = model.NewShotStats(a.lifetimeFor(idx))
		a.shots[idx] = s
	}
	return s
}

func (a *Aggregator) lifetimeFor(idx int) model.Lifetime {
	if table, ok := a.store[a.packID]; ok {
		if lt, ok := table[idx]; ok {
			return normalizeLifetime(lt)
		}
	}
	return model.NewLifetime()
}

// LoadPack folds the previous pack into the store and builds a fresh session
// table for the new one.
func (a *Aggregator) LoadPack(packID string, totalShots, activeIndex int) {
	if a.packID != "" {
		a.Fold()
	}
	a.packID = packID
	a.totalShots = totalShots
	a.rebuild()
	a.current = a.wrap(activeIndex)
	a.boost = 0
	a.attemptLive = false
	a.logger.Debug("pack loaded", "pack", packID, "shots", totalShots, "active", a.current)
}

func (a *Aggregator) rebuild() {
	a.shots = make(map[int]*model.ShotStats, a.totalShots)
	for idx := 0; idx < a.totalShots; idx++ {
		a.shots[idx] = model.NewShotStats(a.lifetimeFor(idx))
	}
}

func normalizeLifetime(lt model.Lifetime) model.Lifetime {
	v := lt.MinBoost
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || (v > 0 && v < minPlausibleBoost) {
		lt.MinBoost = model.UnsetBoost
	}
	return lt
}

// StartAttempt records an attempt start on the active shot. An exhausted run
// restarts at attempt one.
func (a *Aggregator) StartAttempt() {
	s := a.shot(a.current)
	if s.Attempts >= a.maxAttempts {
		a.logger.Debug("attempt started on exhausted shot; starting new run", "shot", a.current)
		s.ResetSession()
		s.Attempts = 1
	} else {
		s.Attempts++
	}
	if s.Attempts > s.Lifetime.AttemptsAtBest {
		s.Lifetime.AttemptsAtBest = s.Attempts
	}
	a.boost = 0
	a.attemptLive = true
}

// AccrueBoost adds one tick of boost to the attempt in progress.
func (a *Aggregator) AccrueBoost(held bool) {
	if !held || !a.attemptLive {
		return
	}
	if a.shot(a.current).Attempts == 0 {
		return
	}
	a.boost += model.BoostPerTick
}

// RecordOutcome applies the result of the attempt in progress. It returns
// false when the active shot has no recorded attempt or the attempt already
// has an outcome, in which case nothing changes.
func (a *Aggregator) RecordOutcome(success bool) (Outcome, bool) {
	s := a.shot(a.current)
	if s.Attempts == 0 {
		a.logger.Info("dropping outcome without a recorded attempt", "shot", a.current, "success", success)
		return Outcome{}, false
	}
	if !a.attemptLive {
		a.logger.Info("dropping outcome for an attempt that already ended", "shot", a.current, "success", success)
		return Outcome{}, false
	}

	used := a.boost
	s.TotalBoostUsed += used
	if success {
		s.Successes++
		s.TotalSuccessfulBoostUsed += used
		if !model.BoostSet(s.MinSuccessfulBoostUsed) || used < s.MinSuccessfulBoostUsed {
			s.MinSuccessfulBoostUsed = used
		}
	}
	a.boost = 0
	a.attemptLive = false

	updateLifetime(s)

	out := Outcome{ShotIndex: a.current, Success: success, Boost: used}
	if s.Attempts >= a.maxAttempts {
		out.RunComplete = true
		s.ResetSession()
	}
	a.logger.Debug("attempt recorded",
		"shot", a.current,
		"success", success,
		"boost", used,
		"run_complete", out.RunComplete,
	)
	return out, true
}

// ChangeShot switches to another shot, wrapping past either end of the pack,
// and returns the resolved index.
func (a *Aggregator) ChangeShot(newIndex int) int {
	if len(a.shots) > 0 {
		updateLifetime(a.shot(a.current))
		a.Fold()
	}
	a.current = a.wrap(newIndex)
	a.boost = 0
	a.attemptLive = false
	return a.current
}

func (a *Aggregator) wrap(idx int) int {
	if a.totalShots <= 0 {
		if idx < 0 {
			return 0
		}
		return idx
	}
	if idx >= a.totalShots {
		return 0
	}
	if idx < 0 {
		return a.totalShots - 1
	}
	return idx
}

// ResetSession zeroes the session counters of every shot.
func (a *Aggregator) ResetSession() {
	for _, s := range a.shots {
		s.ResetSession()
	}
	a.boost = 0
	a.attemptLive = false
}

// ClearLifetime erases the lifetime records of the active pack.
func (a *Aggregator) ClearLifetime() {
	delete(a.store, a.packID)
	for _, s := range a.shots {
		s.Lifetime = model.NewLifetime()
	}
}

// Fold writes the lifetime records of the session table into the store.
func (a *Aggregator) Fold() {
	if a.packID == "" || len(a.shots) == 0 {
		return
	}
	table, ok := a.store[a.packID]
	if !ok {
		table = model.PackTable{}
		a.store[a.packID] = table
	}
	for idx, s := range a.shots {
		table[idx] = s.Lifetime
	}
}

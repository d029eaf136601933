package aggregator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/ctrainer/internal/model"
)

func newLoaded(t *testing.T, maxAttempts, shots int) *Aggregator {
	t.Helper()
	a := New(maxAttempts, nil)
	a.LoadPack("pack", shots, 0)
	return a
}

func playAttempt(a *Aggregator, success bool, boostTicks int) Outcome {
	a.StartAttempt()
	for i := 0; i < boostTicks; i++ {
		a.AccrueBoost(true)
	}
	out, _ := a.RecordOutcome(success)
	return out
}

func TestLoadPackBuildsSizedTable(t *testing.T) {
	a := New(10, nil)
	a.SetStore(model.PersistentStore{
		"pack": {
			1: {BestSuccesses: 4, AttemptsAtBest: 10, TotalBoostAtBest: 100, TotalSuccessfulBoostAtBest: 40, MinBoost: 5},
		},
	})
	a.LoadPack("pack", 3, 2)

	require.Equal(t, []int{0, 1, 2}, a.Shots())
	require.Equal(t, 2, a.Current())
	require.Equal(t, 4, a.Shot(1).Lifetime.BestSuccesses)
	require.Equal(t, 0, a.Shot(1).Attempts)
	require.Equal(t, model.NewLifetime(), a.Shot(0).Lifetime)
}

func TestLoadPackNormalizesCorruptMinBoost(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -3, 1e-30} {
		a := New(10, nil)
		a.SetStore(model.PersistentStore{"pack": {0: {MinBoost: v}}})
		a.LoadPack("pack", 1, 0)
		require.False(t, model.BoostSet(a.Shot(0).Lifetime.MinBoost), "value %v", v)
	}

	a := New(10, nil)
	a.SetStore(model.PersistentStore{"pack": {0: {MinBoost: 0}, 1: {MinBoost: 2.5}}})
	a.LoadPack("pack", 2, 0)
	require.Equal(t, 0.0, a.Shot(0).Lifetime.MinBoost)
	require.Equal(t, 2.5, a.Shot(1).Lifetime.MinBoost)
}

func TestLoadPackFoldsPreviousPack(t *testing.T) {
	a := newLoaded(t, 10, 2)
	playAttempt(a, true, 3)

	a.LoadPack("other", 5, 0)
	prev := a.Store()["pack"]
	require.Equal(t, 1, prev[0].BestSuccesses)
	require.Equal(t, "other", a.PackID())
	require.Len(t, a.Shots(), 5)
}

func TestStartAttemptRaisesAttemptsAtBest(t *testing.T) {
	a := newLoaded(t, 10, 1)
	a.StartAttempt()
	s := a.Shot(0)
	require.Equal(t, 1, s.Attempts)
	require.Equal(t, 1, s.Lifetime.AttemptsAtBest)
	require.Equal(t, InProgress, a.State(0))
}

func TestAttemptBound(t *testing.T) {
	a := newLoaded(t, 3, 1)
	for i := 0; i < 20; i++ {
		a.StartAttempt()
		require.LessOrEqual(t, a.Shot(0).Attempts, 3)
	}
}

func TestExhaustedRestart(t *testing.T) {
	a := newLoaded(t, 3, 1)
	for i := 0; i < 3; i++ {
		a.StartAttempt()
	}
	a.shot(0).Successes = 2
	a.shot(0).TotalBoostUsed = 12
	a.shot(0).MinSuccessfulBoostUsed = 1
	require.Equal(t, Exhausted, a.State(0))

	a.StartAttempt()
	s := a.Shot(0)
	require.Equal(t, 1, s.Attempts)
	require.Equal(t, 0, s.Successes)
	require.Equal(t, 0.0, s.TotalBoostUsed)
	require.False(t, model.BoostSet(s.MinSuccessfulBoostUsed))
}

func TestAccrueBoost(t *testing.T) {
	a := newLoaded(t, 10, 1)

	a.AccrueBoost(true)
	require.Equal(t, 0.0, a.RunningBoost(), "no attempt started")

	a.StartAttempt()
	for i := 0; i < 120; i++ {
		a.AccrueBoost(true)
		a.AccrueBoost(false)
	}
	require.InDelta(t, 100.0/3.0, a.RunningBoost(), 1e-9)

	a.RecordOutcome(true)
	require.Equal(t, 0.0, a.RunningBoost())
	a.AccrueBoost(true)
	require.Equal(t, 0.0, a.RunningBoost(), "no attempt live after outcome")
}

func TestRecordOutcomeTotals(t *testing.T) {
	a := newLoaded(t, 10, 1)
	playAttempt(a, true, 12)
	playAttempt(a, false, 30)
	playAttempt(a, true, 6)

	s := a.Shot(0)
	require.Equal(t, 3, s.Attempts)
	require.Equal(t, 2, s.Successes)
	require.InDelta(t, 48*model.BoostPerTick, s.TotalBoostUsed, 1e-9)
	require.InDelta(t, 18*model.BoostPerTick, s.TotalSuccessfulBoostUsed, 1e-9)
	require.InDelta(t, 6*model.BoostPerTick, s.MinSuccessfulBoostUsed, 1e-9)
	require.InDelta(t, 6*model.BoostPerTick, s.Lifetime.MinBoost, 1e-9)
}

func TestRaceGuardOutcomeWithoutAttempt(t *testing.T) {
	a := newLoaded(t, 10, 2)
	playAttempt(a, true, 2)
	before := a.Shot(0)

	a.ChangeShot(1)
	_, ok := a.RecordOutcome(true)
	require.False(t, ok)
	require.Equal(t, 0, a.Shot(1).Attempts)
	require.Equal(t, 0, a.Shot(1).Successes)
	require.Equal(t, before.Lifetime, a.Shot(0).Lifetime)
}

func TestSecondOutcomeForOneAttemptIsDropped(t *testing.T) {
	a := newLoaded(t, 10, 1)
	require.False(t, a.AttemptLive())
	a.StartAttempt()
	require.True(t, a.AttemptLive())

	_, ok := a.RecordOutcome(true)
	require.True(t, ok)
	require.False(t, a.AttemptLive())

	_, ok = a.RecordOutcome(true)
	require.False(t, ok)
	s := a.Shot(0)
	require.Equal(t, 1, s.Attempts)
	require.Equal(t, 1, s.Successes)
	require.Equal(t, 1, s.Lifetime.BestSuccesses)
	require.Equal(t, 1, s.Lifetime.AttemptsAtBest)
}

func TestOutcomeAfterReturningToPlayedShotIsDropped(t *testing.T) {
	a := newLoaded(t, 10, 2)
	a.ChangeShot(1)
	playAttempt(a, false, 0)
	a.ChangeShot(0)
	a.StartAttempt()
	a.ChangeShot(1)

	_, ok := a.RecordOutcome(true)
	require.False(t, ok)
	require.Equal(t, 1, a.Shot(1).Attempts)
	require.Equal(t, 0, a.Shot(1).Successes)
}

func TestRunCompletionResetsSession(t *testing.T) {
	a := newLoaded(t, 3, 1)
	var last Outcome
	for i := 0; i < 3; i++ {
		last = playAttempt(a, i != 1, 1)
	}
	require.True(t, last.RunComplete)
	s := a.Shot(0)
	require.Equal(t, 0, s.Attempts)
	require.Equal(t, Idle, a.State(0))
	require.Equal(t, 2, s.Lifetime.BestSuccesses)
	require.Equal(t, 3, s.Lifetime.AttemptsAtBest)

	a.StartAttempt()
	require.Equal(t, 1, a.Shot(0).Attempts)
}

func TestChangeShotWraps(t *testing.T) {
	a := newLoaded(t, 10, 10)
	require.Equal(t, 0, a.ChangeShot(10))
	require.Equal(t, 9, a.ChangeShot(-1))
	require.Equal(t, 4, a.ChangeShot(4))
}

func TestChangeShotFoldsLeavingShot(t *testing.T) {
	a := newLoaded(t, 10, 3)
	playAttempt(a, true, 4)
	a.StartAttempt()
	a.AccrueBoost(true)

	a.ChangeShot(1)
	require.Equal(t, 0.0, a.RunningBoost())
	lt := a.Store()["pack"][0]
	require.Equal(t, 1, lt.BestSuccesses)
	require.Equal(t, 2, lt.AttemptsAtBest)
}

func TestResetSessionKeepsLifetime(t *testing.T) {
	a := newLoaded(t, 10, 2)
	playAttempt(a, true, 1)
	a.ResetSession()
	s := a.Shot(0)
	require.Equal(t, 0, s.Attempts)
	require.Equal(t, 1, s.Lifetime.BestSuccesses)
}

func TestClearLifetime(t *testing.T) {
	a := newLoaded(t, 10, 2)
	a.SetStore(model.PersistentStore{
		"pack":  {0: {BestSuccesses: 3, AttemptsAtBest: 10, MinBoost: 2}},
		"other": {0: {BestSuccesses: 1, AttemptsAtBest: 10, MinBoost: 2}},
	})
	a.ClearLifetime()
	require.NotContains(t, a.Store(), "pack")
	require.Contains(t, a.Store(), "other")
	require.Equal(t, model.NewLifetime(), a.Shot(0).Lifetime)
}

func TestSetMaxAttemptsAppliesToNextTransition(t *testing.T) {
	a := newLoaded(t, 10, 1)
	for i := 0; i < 5; i++ {
		playAttempt(a, true, 0)
	}
	require.Equal(t, 5, a.Shot(0).Lifetime.BestSuccesses)

	a.SetMaxAttempts(3)
	require.Equal(t, 5, a.Shot(0).Lifetime.BestSuccesses)
	require.Equal(t, Exhausted, a.State(0))
	a.StartAttempt()
	require.Equal(t, 1, a.Shot(0).Attempts)

	a.SetMaxAttempts(0)
	require.Equal(t, 3, a.MaxAttempts())
}

func TestMonotonicLifetimeBests(t *testing.T) {
	a := newLoaded(t, 5, 2)
	pattern := []bool{true, false, true, true, false, false, true, true, true, true, false, true}
	prevBest := 0
	prevMin := model.UnsetBoost
	for i := 0; i < 60; i++ {
		if i%17 == 16 {
			a.ChangeShot(a.Current() + 1)
		}
		playAttempt(a, pattern[i%len(pattern)], (i*7)%11)
		lt := a.Shot(a.Current()).Lifetime
		if a.Current() == 0 {
			require.GreaterOrEqual(t, lt.BestSuccesses, prevBest)
			require.LessOrEqual(t, lt.MinBoost, prevMin)
			prevBest = lt.BestSuccesses
			prevMin = lt.MinBoost
		}
	}
}

func TestUpdateLifetimeTieBreakPrecedence(t *testing.T) {
	best := model.Lifetime{BestSuccesses: 5, AttemptsAtBest: 10, TotalBoostAtBest: 300, TotalSuccessfulBoostAtBest: 120, MinBoost: model.UnsetBoost}

	s := model.NewShotStats(best)
	s.Attempts, s.Successes, s.TotalBoostUsed, s.TotalSuccessfulBoostUsed = 10, 5, 250, 100
	updateLifetime(s)
	require.Equal(t, 5, s.Lifetime.BestSuccesses)
	require.Equal(t, 10, s.Lifetime.AttemptsAtBest)
	require.Equal(t, 250.0, s.Lifetime.TotalBoostAtBest)
	require.Equal(t, 100.0, s.Lifetime.TotalSuccessfulBoostAtBest)

	s = model.NewShotStats(best)
	s.Attempts, s.Successes, s.TotalBoostUsed, s.TotalSuccessfulBoostUsed = 10, 5, 350, 200
	updateLifetime(s)
	require.Equal(t, best, s.Lifetime, "more boost on a tie must not replace the record")

	s = model.NewShotStats(best)
	s.Attempts, s.Successes, s.TotalBoostUsed, s.TotalSuccessfulBoostUsed = 8, 6, 400, 320
	updateLifetime(s)
	require.Equal(t, 6, s.Lifetime.BestSuccesses)
	require.Equal(t, 8, s.Lifetime.AttemptsAtBest)
	require.Equal(t, 400.0, s.Lifetime.TotalBoostAtBest)

	s = model.NewShotStats(best)
	s.Attempts, s.Successes, s.TotalBoostUsed = 12, 4, 500
	updateLifetime(s)
	require.Equal(t, 4, s.Lifetime.BestSuccesses, "a longer run replaces the record outright")
	require.Equal(t, 12, s.Lifetime.AttemptsAtBest)

	s = model.NewShotStats(best)
	updateLifetime(s)
	require.Equal(t, best, s.Lifetime, "no attempts leaves the record untouched")
}

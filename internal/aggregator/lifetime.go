package aggregator

import "github.com/verte-zerg/ctrainer/internal/model"

// updateLifetime folds the current run of s into its lifetime best.
//
// A longer run than any recorded replaces the record outright. Otherwise more
// successes win, even over a longer run. Equal successes over at least as many
// attempts win only with less total boost.
func updateLifetime(s *model.ShotStats) {
	lt := &s.Lifetime

	// Minimum boost is per attempt, not per run.
	if model.BoostSet(s.MinSuccessfulBoostUsed) && s.MinSuccessfulBoostUsed < lt.MinBoost {
		lt.MinBoost = s.MinSuccessfulBoostUsed
	}
	if s.Attempts == 0 {
		return
	}

	attemptsIncreased := s.Attempts > lt.AttemptsAtBest
	successImproved := s.Successes > lt.BestSuccesses

	switch {
	case attemptsIncreased:
		lt.AttemptsAtBest = s.Attempts
		lt.BestSuccesses = s.Successes
		lt.TotalBoostAtBest = s.TotalBoostUsed
		lt.TotalSuccessfulBoostAtBest = s.TotalSuccessfulBoostUsed
	case successImproved:
		lt.BestSuccesses = s.Successes
		lt.AttemptsAtBest = s.Attempts
		lt.TotalBoostAtBest = s.TotalBoostUsed
		lt.TotalSuccessfulBoostAtBest = s.TotalSuccessfulBoostUsed
	case s.Successes == lt.BestSuccesses && s.Attempts >= lt.AttemptsAtBest:
		if s.TotalBoostUsed < lt.TotalBoostAtBest {
			lt.AttemptsAtBest = s.Attempts
			lt.TotalBoostAtBest = s.TotalBoostUsed
			lt.TotalSuccessfulBoostAtBest = s.TotalSuccessfulBoostUsed
		}
	}
}

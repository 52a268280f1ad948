// Package adaptive computes difficulty adjustments from rolling performance.
// Difficulty is a continuous score in [0,1]; quantizing to easy/medium/hard
// labels happens at question-selection time, not here.
package adaptive

import (
	"math"
	"time"

	types "github.com/prepsutra/dpp-backend/internal/domain"
)

const (
	raiseThreshold = 0.8
	dropThreshold  = 0.4
	raiseStep      = 0.1
	dropStep       = 0.15
	decayRate      = 0.05
	recentWindow   = 5
)

// Metrics summarizes a slice of attempts. Zero-valued for empty input.
type Metrics struct {
	Total      int     `json:"total"`
	Correct    int     `json:"correct"`
	Accuracy   float64 `json:"accuracy"`
	AvgTimeSec float64 `json:"avg_time_sec"`
	// Confidence is recency-weighted: each attempt contributes
	// +-exp(-0.05 * daysAgo), averaged, then rescaled from [-1,1] to [0,1].
	Confidence float64 `json:"confidence"`
}

// PerformanceMetrics aggregates attempts relative to now. Empty input yields
// the zero Metrics, never a division by zero.
func PerformanceMetrics(attempts []*types.DPPAttempt, now time.Time) Metrics {
	if len(attempts) == 0 {
		return Metrics{}
	}

	var correct, timeSec int
	var weighted float64
	for _, a := range attempts {
		if a.IsCorrect {
			correct++
		}
		timeSec += a.TimeSpentSec

		daysAgo := now.Sub(a.SubmittedAt).Hours() / 24
		if daysAgo < 0 {
			daysAgo = 0
		}
		w := math.Exp(-decayRate * daysAgo)
		if a.IsCorrect {
			weighted += w
		} else {
			weighted -= w
		}
	}

	n := float64(len(attempts))
	return Metrics{
		Total:      len(attempts),
		Correct:    correct,
		Accuracy:   float64(correct) / n,
		AvgTimeSec: float64(timeSec) / n,
		Confidence: (weighted/n + 1) / 2,
	}
}

// NextDifficulty returns the adjusted difficulty score. Recent attempts
// (ordered newest first) take priority; overall performance is the fallback
// when there is no recent signal. Output is always clamped to [0,1].
func NextDifficulty(current float64, performance Metrics, recent []*types.DPPAttempt) float64 {
	accuracy := performance.Accuracy
	haveSignal := performance.Total > 0

	if len(recent) > 0 {
		window := recent
		if len(window) > recentWindow {
			window = window[:recentWindow]
		}
		correct := 0
		for _, a := range window {
			if a.IsCorrect {
				correct++
			}
		}
		accuracy = float64(correct) / float64(len(window))
		haveSignal = true
	}

	if haveSignal {
		switch {
		case accuracy > raiseThreshold:
			current += raiseStep
		case accuracy < dropThreshold:
			current -= dropStep
		}
	}

	return clamp01(current)
}

// QuantizeDifficulty maps a continuous score onto the discrete bank labels.
func QuantizeDifficulty(score float64) string {
	switch {
	case score < 1.0/3:
		return types.DifficultyEasy
	case score < 2.0/3:
		return types.DifficultyMedium
	default:
		return types.DifficultyHard
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

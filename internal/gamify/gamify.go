// Package gamify holds the pure points/level/badge helpers. No I/O here;
// callers feed it a progress snapshot.
package gamify

import (
	"math"

	types "github.com/prepsutra/dpp-backend/internal/domain"
)

// Points awarded per terminal assignment outcome.
const (
	PointsCorrect   = 10
	PointsIncorrect = 2
	PointsSkipped   = 0
)

type Badge struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Level grows with the square root of points: 0-99 is level 1, 100-399 is
// level 2, 400-899 is level 3, and so on.
func Level(points int) int {
	if points < 0 {
		points = 0
	}
	return int(math.Floor(math.Sqrt(float64(points)/100))) + 1
}

// PointsToNextLevel is the remaining distance to the next level boundary.
func PointsToNextLevel(points int) int {
	if points < 0 {
		points = 0
	}
	level := Level(points)
	return level*level*100 - points
}

// PointsFor maps a terminal assignment status to its award.
func PointsFor(status string, isCorrect bool) int {
	switch status {
	case types.AssignmentStatusCompleted:
		if isCorrect {
			return PointsCorrect
		}
		return PointsIncorrect
	default:
		return PointsSkipped
	}
}

// Badges derives the earned badge list from a progress snapshot.
func Badges(p *types.DPPProgress) []Badge {
	if p == nil {
		return nil
	}

	var badges []Badge
	if p.MaxStreak >= 7 {
		badges = append(badges, Badge{
			Key:         "week_streak",
			Name:        "Week Warrior",
			Description: "Practiced 7 days in a row",
		})
	}
	if p.MaxStreak >= 30 {
		badges = append(badges, Badge{
			Key:         "month_streak",
			Name:        "Monthly Master",
			Description: "Practiced 30 days in a row",
		})
	}
	if p.TotalCompleted >= 100 {
		badges = append(badges, Badge{
			Key:         "century",
			Name:        "Centurion",
			Description: "Completed 100 practice problems",
		})
	}
	if p.TotalCompleted >= 50 && p.Accuracy() >= 0.9 {
		badges = append(badges, Badge{
			Key:         "sharpshooter",
			Name:        "Sharpshooter",
			Description: "90%+ accuracy over 50+ problems",
		})
	}
	return badges
}

package services

import (
	"math"
	"testing"
	"time"

	"github.com/prepsutra/dpp-backend/internal/data/repos"
	types "github.com/prepsutra/dpp-backend/internal/domain"
)

func TestZeroFilledDaily(t *testing.T) {
	now := time.Date(2026, 3, 30, 15, 0, 0, 0, time.UTC)
	buckets := []repos.DailyBucket{
		{Day: "2026-03-28", Total: 4, Correct: 3, TimeSec: 120},
		{Day: "2026-03-30", Total: 2, Correct: 2, TimeSec: 60},
	}

	out := zeroFilledDaily(buckets, now, 30)
	if len(out) != 30 {
		t.Fatalf("len = %d, want 30", len(out))
	}
	if out[0].Day != "2026-03-01" {
		t.Errorf("first day = %s, want 2026-03-01", out[0].Day)
	}
	if out[29].Day != "2026-03-30" || out[29].Total != 2 {
		t.Errorf("last day = %+v, want 2026-03-30 with total 2", out[29])
	}
	if out[27].Day != "2026-03-28" || out[27].Correct != 3 {
		t.Errorf("bucketed day = %+v, want 2026-03-28 with correct 3", out[27])
	}

	// Every other day must be an explicit zero, not missing.
	for i, d := range out {
		if i == 27 || i == 29 {
			continue
		}
		if d.Total != 0 || d.Correct != 0 || d.TimeSec != 0 {
			t.Errorf("day %s not zero-filled: %+v", d.Day, d)
		}
	}
}

func TestBuildTrends(t *testing.T) {
	mk := func(accs ...float64) []WeeklyProgress {
		out := make([]WeeklyProgress, 0, len(accs))
		for i, a := range accs {
			out = append(out, WeeklyProgress{Week: string(rune('A' + i)), Accuracy: a})
		}
		return out
	}

	// Empty input yields empty series, not nil and not an error.
	tr := buildTrends(nil)
	if tr.Direction != "stable" {
		t.Errorf("empty input direction = %s, want stable", tr.Direction)
	}
	if tr.Accuracy == nil || len(tr.Accuracy) != 0 {
		t.Errorf("empty input accuracy series = %#v, want empty slice", tr.Accuracy)
	}
	if tr.Activity == nil || len(tr.Activity) != 0 {
		t.Errorf("empty input activity series = %#v, want empty slice", tr.Activity)
	}

	if tr := buildTrends(mk(0.5)); tr.Direction != "stable" || len(tr.Accuracy) != 1 {
		t.Errorf("single week trend = %+v, want stable with one point", tr)
	}

	tr = buildTrends(mk(0.5, 0.5, 0.5, 0.8))
	if tr.Direction != "improving" {
		t.Errorf("direction = %s, want improving (delta %.1f)", tr.Direction, tr.AccuracyDelta)
	}

	tr = buildTrends(mk(0.8, 0.8, 0.8, 0.5))
	if tr.Direction != "declining" {
		t.Errorf("direction = %s, want declining (delta %.1f)", tr.Direction, tr.AccuracyDelta)
	}

	tr = buildTrends(mk(0.7, 0.71, 0.69, 0.7))
	if tr.Direction != "stable" {
		t.Errorf("direction = %s, want stable (delta %.1f)", tr.Direction, tr.AccuracyDelta)
	}

	// Only the trailing window counts: ancient weeks must not drag the mean,
	// and the series cover the window only.
	tr = buildTrends(mk(0.1, 0.1, 0.7, 0.7, 0.7, 0.7))
	if tr.Direction != "stable" || tr.Weeks != trendWindowWeeks {
		t.Errorf("windowed trend = %+v, want stable over %d weeks", tr, trendWindowWeeks)
	}
	if len(tr.Accuracy) != trendWindowWeeks || len(tr.Activity) != trendWindowWeeks {
		t.Errorf("series lengths = %d/%d, want %d", len(tr.Accuracy), len(tr.Activity), trendWindowWeeks)
	}
	if tr.Accuracy[0] != 0.7 {
		t.Errorf("first windowed accuracy = %.2f, want 0.7", tr.Accuracy[0])
	}
}

func TestBuildTrendsActivitySeries(t *testing.T) {
	weekly := []WeeklyProgress{
		{Week: "2026-W10", Total: 12, ActiveDays: 3, Accuracy: 0.5},
		{Week: "2026-W11", Total: 20, ActiveDays: 5, Accuracy: 0.6},
	}
	tr := buildTrends(weekly)
	if len(tr.Activity) != 2 {
		t.Fatalf("activity points = %d, want 2", len(tr.Activity))
	}
	if tr.Activity[1].Questions != 20 || tr.Activity[1].ActiveDays != 5 {
		t.Errorf("latest activity = %+v, want 20 questions over 5 days", tr.Activity[1])
	}
}

func TestBuildPredictionsExtrapolatesLastTwoWeeks(t *testing.T) {
	p := &types.DPPProgress{TotalCompleted: 10, TotalCorrect: 5}

	// Slope comes from the last two weekly points only, applied to the
	// latest week; older weeks and overall accuracy stay out of it.
	weekly := []WeeklyProgress{{Accuracy: 0.1}, {Accuracy: 0.6}, {Accuracy: 0.7}}
	pred := buildPredictions(p, weekly, nil)
	if math.Abs(pred.PredictedAccuracy-80) > 1e-9 {
		t.Errorf("predicted accuracy = %.1f, want 80 (70 + last-two-week slope of 10)", pred.PredictedAccuracy)
	}

	// The tier keys on the latest weekly accuracy, not the all-time figure.
	if pred.ReadinessTier != "steady" {
		t.Errorf("tier = %s, want steady for a 70%% latest week", pred.ReadinessTier)
	}
}

func TestBuildPredictionsClampsAccuracy(t *testing.T) {
	p := &types.DPPProgress{TotalCompleted: 10, TotalCorrect: 9}

	// Steep upward slope would extrapolate past 100.
	weekly := []WeeklyProgress{{Accuracy: 0.2}, {Accuracy: 0.9}}
	pred := buildPredictions(p, weekly, nil)
	if pred.PredictedAccuracy > 100 || pred.PredictedAccuracy < 0 {
		t.Errorf("predicted accuracy %.1f outside [0,100]", pred.PredictedAccuracy)
	}

	down := []WeeklyProgress{{Accuracy: 0.9}, {Accuracy: 0.1}}
	low := &types.DPPProgress{TotalCompleted: 10, TotalCorrect: 1}
	pred = buildPredictions(low, down, nil)
	if pred.PredictedAccuracy != 0 {
		t.Errorf("predicted accuracy %.1f, want clamp to 0", pred.PredictedAccuracy)
	}
	if pred.ReadinessTier != "foundation" {
		t.Errorf("tier = %s, want foundation", pred.ReadinessTier)
	}
}

func TestBuildPredictionsStreakProjection(t *testing.T) {
	p := &types.DPPProgress{CurrentStreak: 4, TotalCompleted: 10, TotalCorrect: 8}

	heavy := []DailyActivity{{Total: 6}, {Total: 5}, {Total: 7}}
	if got := buildPredictions(p, nil, heavy).ProjectedStreak; got != 11 {
		t.Errorf("heavy usage projection = %d, want 11", got)
	}

	moderate := []DailyActivity{{Total: 3}, {Total: 4}}
	if got := buildPredictions(p, nil, moderate).ProjectedStreak; got != 7 {
		t.Errorf("moderate usage projection = %d, want 7", got)
	}

	light := []DailyActivity{{Total: 1}}
	if got := buildPredictions(p, nil, light).ProjectedStreak; got != 5 {
		t.Errorf("light usage projection = %d, want 5", got)
	}

	// Volume averages over the whole calendar window; idle days count.
	sparse := make([]DailyActivity, 30)
	sparse[3] = DailyActivity{Total: 80}
	sparse[17] = DailyActivity{Total: 80}
	if got := buildPredictions(p, nil, sparse).ProjectedStreak; got != 11 {
		t.Errorf("sparse usage projection = %d, want 11 (160 over 30 days)", got)
	}
	sparse[3] = DailyActivity{Total: 5}
	sparse[17] = DailyActivity{Total: 5}
	if got := buildPredictions(p, nil, sparse).ProjectedStreak; got != 5 {
		t.Errorf("sparse usage projection = %d, want 5 (10 over 30 days)", got)
	}
}

func TestBuildRecommendations(t *testing.T) {
	p := &types.DPPProgress{TotalCompleted: 20, TotalCorrect: 8} // 40%
	subjects := []SubjectStat{
		{Subject: "Physics", Total: 10, Correct: 4, Accuracy: 0.4},
		{Subject: "Mathematics", Total: 10, Correct: 9, Accuracy: 0.9},
		{Subject: "Chemistry", Total: 2, Correct: 0, Accuracy: 0},
	}
	topics := []TopicStat{
		{Topic: "Kinematics", Subject: "Physics", Total: 5, Accuracy: 0.6},
		{Topic: "Optics", Subject: "Physics", Total: 5, Accuracy: 0.2},
		{Topic: "Thermo", Subject: "Physics", Total: 5, Accuracy: 0.5},
		{Topic: "Waves", Subject: "Physics", Total: 5, Accuracy: 0.4},
		{Topic: "Algebra", Subject: "Mathematics", Total: 5, Accuracy: 0.95},
	}
	daily := []DailyActivity{{Total: 1}, {Total: 0}, {Total: 2}}

	recos := buildRecommendations(p, subjects, topics, daily)

	// One subject_review per subject under 60%, regardless of how few
	// attempts put it there.
	var subjectRecos []string
	for _, r := range recos {
		if r.Type == "subject_review" {
			subjectRecos = append(subjectRecos, r.Subject)
		}
	}
	if len(subjectRecos) != 2 || subjectRecos[0] != "Physics" || subjectRecos[1] != "Chemistry" {
		t.Errorf("subject_review subjects = %v, want [Physics Chemistry]", subjectRecos)
	}

	// topic_focus takes the three lowest-accuracy topics under 65%.
	var topicRecos []string
	for _, r := range recos {
		if r.Type == "topic_focus" {
			topicRecos = append(topicRecos, r.Topic)
		}
	}
	want := []string{"Optics", "Waves", "Thermo"}
	if len(topicRecos) != len(want) {
		t.Fatalf("topic_focus topics = %v, want %v", topicRecos, want)
	}
	for i := range want {
		if topicRecos[i] != want[i] {
			t.Fatalf("topic_focus topics = %v, want %v", topicRecos, want)
		}
	}

	// Fixed emission order: subject_review, topic_focus, time_management,
	// accuracy_improvement.
	var order []string
	for _, r := range recos {
		if len(order) == 0 || order[len(order)-1] != r.Type {
			order = append(order, r.Type)
		}
	}
	wantOrder := []string{"subject_review", "topic_focus", "time_management", "accuracy_improvement"}
	if len(order) != len(wantOrder) {
		t.Fatalf("type order = %v, want %v", order, wantOrder)
	}
	for i := range wantOrder {
		if order[i] != wantOrder[i] {
			t.Fatalf("type order = %v, want %v", order, wantOrder)
		}
	}

	for _, r := range recos {
		wantPriority := map[string]string{
			"subject_review":       "high",
			"topic_focus":          "medium",
			"time_management":      "low",
			"accuracy_improvement": "high",
		}[r.Type]
		if r.Priority != wantPriority {
			t.Errorf("%s priority = %s, want %s", r.Type, r.Priority, wantPriority)
		}
	}

	// A brand-new user gets no scolding.
	empty := buildRecommendations(&types.DPPProgress{}, nil, nil, nil)
	if len(empty) != 0 {
		t.Errorf("new user recommendations = %v, want none", empty)
	}
}

func TestBuildRecommendationsLowVolumeSubject(t *testing.T) {
	p := &types.DPPProgress{TotalCompleted: 10, TotalCorrect: 4} // 40%
	subjects := []SubjectStat{{Subject: "Physics", Total: 4, Correct: 1, Accuracy: 0.25}}

	recos := buildRecommendations(p, subjects, nil, nil)
	if len(recos) != 2 {
		t.Fatalf("recommendations = %v, want subject_review then accuracy_improvement", recos)
	}
	if recos[0].Type != "subject_review" || recos[0].Subject != "Physics" {
		t.Errorf("first recommendation = %+v, want Physics subject_review", recos[0])
	}
	if recos[1].Type != "accuracy_improvement" {
		t.Errorf("last recommendation = %+v, want accuracy_improvement", recos[1])
	}
}

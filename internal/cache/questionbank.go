// Package cache holds the in-process question bank cache. It is a performance
// optimization, never a correctness boundary: concurrent rebuilds for the same
// key are tolerated, last writer wins.
package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prepsutra/dpp-backend/internal/data/repos"
	types "github.com/prepsutra/dpp-backend/internal/domain"
	"github.com/prepsutra/dpp-backend/internal/pkg/logger"
)

const (
	// DefaultTTL bounds how stale a cached question snapshot may get.
	DefaultTTL = 5 * time.Minute
	// Oversample gives the generator enough variety to dedup against history.
	Oversample = 100
)

type entry struct {
	questions []*types.Question
	expiresAt time.Time
}

type QuestionBank struct {
	mu      sync.RWMutex
	entries map[string]entry

	questions repos.QuestionRepo
	ttl       time.Duration
	log       *logger.Logger

	now func() time.Time
}

func NewQuestionBank(questions repos.QuestionRepo, ttl time.Duration, baseLog *logger.Logger) *QuestionBank {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &QuestionBank{
		entries:   make(map[string]entry),
		questions: questions,
		ttl:       ttl,
		log:       baseLog.With("component", "QuestionBank"),
		now:       time.Now,
	}
}

// EligibleQuestions returns the cached snapshot for the filter, rebuilding
// synchronously on miss or expiry. Callers must treat the slice as read-only.
func (c *QuestionBank) EligibleQuestions(ctx context.Context, filter repos.QuestionFilter) ([]*types.Question, error) {
	key := FingerprintFilter(filter)

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Before(e.expiresAt) {
		return e.questions, nil
	}

	questions, err := c.questions.Find(ctx, nil, filter, Oversample)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = entry{questions: questions, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()

	c.log.Debug("question bank cache rebuilt", "key", key, "count", len(questions))
	return questions, nil
}

// Invalidate drops every cached snapshot. Called when a config changes so the
// next generation sees the new filter immediately rather than after TTL.
func (c *QuestionBank) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// FingerprintFilter derives a stable cache key from the filter's axes. Two
// users with identical filters share one slot; differing filters never clobber
// each other.
func FingerprintFilter(f repos.QuestionFilter) string {
	parts := []string{
		joinUUIDs(f.SubjectIDs),
		joinUUIDs(f.TopicIDs),
		joinSorted(f.Difficulties),
		joinSorted(f.Types),
	}
	if f.ActiveOnly {
		parts = append(parts, "active")
	}
	return strings.Join(parts, "|")
}

func joinUUIDs(ids []uuid.UUID) string {
	if len(ids) == 0 {
		return ""
	}
	ss := make([]string, 0, len(ids))
	for _, id := range ids {
		ss = append(ss, id.String())
	}
	sort.Strings(ss)
	return strings.Join(ss, ",")
}

func joinSorted(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	cp := append([]string(nil), ss...)
	sort.Strings(cp)
	return strings.Join(cp, ",")
}

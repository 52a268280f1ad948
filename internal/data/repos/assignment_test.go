package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prepsutra/dpp-backend/internal/data/repos/testutil"
	types "github.com/prepsutra/dpp-backend/internal/domain"
	"gorm.io/datatypes"
)

func TestDPPAssignmentRepoTerminalTransitions(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewDPPAssignmentRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "assignmentrepo@example.com", "10")
	subj := testutil.SeedSubject(t, ctx, tx, "Mathematics")
	topic := testutil.SeedTopic(t, ctx, tx, subj.ID, "Algebra")
	q := testutil.SeedQuestion(t, ctx, tx, subj.ID, topic.ID, types.DifficultyEasy, types.QuestionTypeMCQ, "B")

	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	set := testutil.SeedSet(t, ctx, tx, u.ID, day, 1)
	a := testutil.SeedAssignment(t, ctx, tx, set, q.ID, 1)

	now := time.Now().UTC()
	ok, err := repo.CompleteIfPending(ctx, tx, a.ID, "B", true, now, 42, datatypes.JSON([]byte(`{}`)))
	if err != nil || !ok {
		t.Fatalf("CompleteIfPending: ok=%v err=%v", ok, err)
	}

	// Second transition must lose the status guard.
	ok, err = repo.CompleteIfPending(ctx, tx, a.ID, "A", false, now, 1, nil)
	if err != nil {
		t.Fatalf("CompleteIfPending again: %v", err)
	}
	if ok {
		t.Fatalf("expected second CompleteIfPending to affect zero rows")
	}
	ok, err = repo.SkipIfPending(ctx, tx, a.ID, now, nil)
	if err != nil {
		t.Fatalf("SkipIfPending after complete: %v", err)
	}
	if ok {
		t.Fatalf("expected SkipIfPending on completed row to affect zero rows")
	}

	got, err := repo.GetByID(ctx, tx, a.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	if got.Status != types.AssignmentStatusCompleted {
		t.Fatalf("status = %q, want COMPLETED", got.Status)
	}
	if got.IsCorrect == nil || !*got.IsCorrect {
		t.Fatalf("is_correct not persisted")
	}
	if got.Question == nil || got.Question.ID != q.ID {
		t.Fatalf("question not preloaded")
	}

	if n, err := repo.CountPendingInSet(ctx, tx, set.ID); err != nil || n != 0 {
		t.Fatalf("CountPendingInSet: n=%d err=%v", n, err)
	}

	ids, err := repo.DistinctQuestionIDsByUser(ctx, tx, u.ID)
	if err != nil || len(ids) != 1 || ids[0] != q.ID {
		t.Fatalf("DistinctQuestionIDsByUser: ids=%v err=%v", ids, err)
	}

	counts, err := repo.CountsBySetIDs(ctx, tx, []uuid.UUID{set.ID})
	if err != nil || len(counts) != 1 {
		t.Fatalf("CountsBySetIDs: counts=%v err=%v", counts, err)
	}
	if counts[0].Total != 1 || counts[0].Completed != 1 || counts[0].Correct != 1 || counts[0].Skipped != 0 {
		t.Fatalf("unexpected counts: %+v", counts[0])
	}
}

func TestDPPSetRepoUniqueDay(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewDPPSetRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "setrepo@example.com", "10")
	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	first := &types.DPPSet{ID: uuid.New(), UserID: u.ID, Date: day, Status: types.DPPStatusPending}
	if _, err := repo.Create(ctx, tx, first); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Savepoint keeps the outer tx usable after the expected violation.
	if err := tx.SavePoint("dup").Error; err != nil {
		t.Fatalf("savepoint: %v", err)
	}
	dup := &types.DPPSet{ID: uuid.New(), UserID: u.ID, Date: day, Status: types.DPPStatusPending}
	_, err := repo.Create(ctx, tx, dup)
	if err == nil {
		t.Fatalf("expected unique violation for same user+day")
	}
	if !IsUniqueViolation(err) {
		t.Fatalf("IsUniqueViolation(%v) = false", err)
	}
	if err := tx.RollbackTo("dup").Error; err != nil {
		t.Fatalf("rollback to savepoint: %v", err)
	}

	got, err := repo.GetByUserAndDate(ctx, tx, u.ID, day)
	if err != nil || got == nil || got.ID != first.ID {
		t.Fatalf("GetByUserAndDate: got=%v err=%v", got, err)
	}

	ok, err := repo.MarkCompleted(ctx, tx, first.ID, time.Now().UTC())
	if err != nil || !ok {
		t.Fatalf("MarkCompleted: ok=%v err=%v", ok, err)
	}
	ok, err = repo.MarkCompleted(ctx, tx, first.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("MarkCompleted again: %v", err)
	}
	if ok {
		t.Fatalf("expected second MarkCompleted to be a no-op")
	}
}

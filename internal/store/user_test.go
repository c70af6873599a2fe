package store

import (
	"testing"

	"github.com/neighbornudge/neighbornudge/internal/database"
	"github.com/neighbornudge/neighbornudge/internal/model"
)

func setupUserTestDB(t *testing.T) *UserStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUserStore(db)
}

func TestUserGetByUsernameNotFound(t *testing.T) {
	us := setupUserTestDB(t)

	got, err := us.GetByUsername("nobody")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got != nil {
		t.Error("expected nil for unknown user")
	}
}

func TestAwardCreatesUserOnFirstAward(t *testing.T) {
	us := setupUserTestDB(t)

	award, err := us.Award("alice", 5, model.ReasonTaskProposed, nil)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if award.Points != 5 {
		t.Errorf("award points = %d, want 5", award.Points)
	}
	if award.Reason != model.ReasonTaskProposed {
		t.Errorf("reason = %q, want %q", award.Reason, model.ReasonTaskProposed)
	}

	u, err := us.GetByUsername("alice")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u == nil {
		t.Fatal("expected user to be created by first award")
	}
	if u.NudgePoints != 5 {
		t.Errorf("points = %d, want 5", u.NudgePoints)
	}
	if u.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
}

func TestAwardAccumulates(t *testing.T) {
	us := setupUserTestDB(t)

	us.Award("alice", 5, model.ReasonTaskProposed, nil)
	us.Award("alice", 10, model.ReasonTaskCompleted, nil)

	u, _ := us.GetByUsername("alice")
	if u.NudgePoints != 15 {
		t.Errorf("points = %d, want 15", u.NudgePoints)
	}

	sum, err := us.SumAwards("alice")
	if err != nil {
		t.Fatalf("sum awards: %v", err)
	}
	if sum != 15 {
		t.Errorf("award log sum = %d, want 15", sum)
	}

	awards, err := us.ListAwards("alice")
	if err != nil {
		t.Fatalf("list awards: %v", err)
	}
	if len(awards) != 2 {
		t.Errorf("expected 2 award events, got %d", len(awards))
	}
}

func TestAwardRejectsNonPositive(t *testing.T) {
	us := setupUserTestDB(t)

	if _, err := us.Award("alice", 0, model.ReasonTaskProposed, nil); err == nil {
		t.Error("expected error for zero award")
	}
	if _, err := us.Award("alice", -5, model.ReasonTaskProposed, nil); err == nil {
		t.Error("expected error for negative award")
	}

	if u, _ := us.GetByUsername("alice"); u != nil {
		t.Error("rejected award must not create the user")
	}
}

func TestLeaderboardOrdering(t *testing.T) {
	us := setupUserTestDB(t)

	us.Award("alice", 5, model.ReasonTaskProposed, nil)
	us.Award("bob", 10, model.ReasonTaskCompleted, nil)
	us.Award("bob", 10, model.ReasonTaskCompleted, nil)
	us.Award("carol", 10, model.ReasonTaskCompleted, nil)

	entries, err := us.Leaderboard(10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].RedditUsername != "bob" || entries[0].NudgePoints != 20 {
		t.Errorf("first = %+v, want bob with 20", entries[0])
	}
	if entries[0].Rank != 1 || entries[1].Rank != 2 || entries[2].Rank != 3 {
		t.Error("expected ranks 1..3 in order")
	}

	// Limit is respected.
	top, err := us.Leaderboard(1)
	if err != nil {
		t.Fatalf("leaderboard limit: %v", err)
	}
	if len(top) != 1 {
		t.Errorf("expected 1 entry with limit 1, got %d", len(top))
	}
}

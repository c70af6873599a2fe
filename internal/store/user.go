package store

import (
	"database/sql"
	"fmt"

	"github.com/neighbornudge/neighbornudge/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := scanner.Scan(&u.RedditUsername, &u.NudgePoints, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userCols = `reddit_username, nudge_points, created_at`

func (s *UserStore) GetByUsername(username string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE reddit_username = ?`, username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// Leaderboard returns up to limit users ordered by points descending, oldest
// account first on ties.
func (s *UserStore) Leaderboard(limit int) ([]model.LeaderboardEntry, error) {
	rows, err := s.db.Query(
		`SELECT reddit_username, nudge_points FROM users
		 ORDER BY nudge_points DESC, created_at ASC, reddit_username ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.RedditUsername, &e.NudgePoints); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- Point award methods ---

func scanAward(scanner interface{ Scan(...any) error }) (*model.PointAward, error) {
	var a model.PointAward
	var taskID sql.NullString

	err := scanner.Scan(&a.ID, &a.RedditUsername, &a.Points, &a.Reason, &taskID, &a.CreatedAt)
	if err != nil {
		return nil, err
	}

	if taskID.Valid {
		a.TaskID = &taskID.String
	}
	return &a, nil
}

const awardCols = `id, reddit_username, points, reason, task_id, created_at`

// Award increments the user's balance and appends the matching event to the
// award log in one transaction. The user row is created on first award, so
// the balance and the log cannot diverge.
func (s *UserStore) Award(username string, points int, reason string, taskID *string) (*model.PointAward, error) {
	if points <= 0 {
		return nil, fmt.Errorf("award points: amount must be positive, got %d", points)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin award tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO users (reddit_username, nudge_points) VALUES (?, ?)
		 ON CONFLICT(reddit_username) DO UPDATE SET nudge_points = nudge_points + excluded.nudge_points`,
		username, points,
	)
	if err != nil {
		return nil, fmt.Errorf("increment points: %w", err)
	}

	var tID sql.NullString
	if taskID != nil {
		tID = sql.NullString{String: *taskID, Valid: true}
	}
	result, err := tx.Exec(
		`INSERT INTO point_awards (reddit_username, points, reason, task_id) VALUES (?, ?, ?, ?)`,
		username, points, reason, tID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert award: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit award tx: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+awardCols+` FROM point_awards WHERE id = ?`, id)
	return scanAward(row)
}

func (s *UserStore) ListAwards(username string) ([]model.PointAward, error) {
	rows, err := s.db.Query(
		`SELECT `+awardCols+` FROM point_awards WHERE reddit_username = ? ORDER BY created_at DESC, id DESC`,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("list awards: %w", err)
	}
	defer rows.Close()

	var awards []model.PointAward
	for rows.Next() {
		a, err := scanAward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan award: %w", err)
		}
		awards = append(awards, *a)
	}
	return awards, rows.Err()
}

// SumAwards reconstructs a user's balance from the award log. It must always
// equal the nudge_points column; exposed so callers can verify.
func (s *UserStore) SumAwards(username string) (int, error) {
	var sum sql.NullInt64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(points), 0) FROM point_awards WHERE reddit_username = ?`,
		username,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum awards: %w", err)
	}
	return int(sum.Int64), nil
}

package model

import "time"

// User is a community member identified by their Reddit username. There is
// no separate internal id; the username is the key.
type User struct {
	RedditUsername string    `json:"reddit_username"`
	NudgePoints    int       `json:"nudge_points"`
	CreatedAt      time.Time `json:"created_at"`
}

// Award reasons recorded in the point_awards log.
const (
	ReasonTaskProposed  = "task_proposed"
	ReasonTaskCompleted = "task_completed"
)

// PointAward is one immutable entry in the award-event log. The sum of a
// user's awards always equals their nudge_points balance; both are written
// in the same transaction.
type PointAward struct {
	ID             int64     `json:"id"`
	RedditUsername string    `json:"reddit_username"`
	Points         int       `json:"points"`
	Reason         string    `json:"reason"`
	TaskID         *string   `json:"task_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// LeaderboardEntry is a ranked user row for the points leaderboard.
type LeaderboardEntry struct {
	Rank           int    `json:"rank"`
	RedditUsername string `json:"reddit_username"`
	NudgePoints    int    `json:"nudge_points"`
}

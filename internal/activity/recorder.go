package activity

import (
	"context"
	"database/sql"
	"time"

	"github.com/charmbracelet/log"

	"growthdesk/internal/domain"
	"growthdesk/internal/repo"
)

// Recorder appends immutable audit rows. Writes are best-effort: a failed
// audit write is logged and never rolls back the transition that caused it.
type Recorder struct {
	DB  *sql.DB
	Log *log.Logger
	Now func() time.Time
}

func New(db *sql.DB) Recorder {
	return Recorder{DB: db, Log: log.Default(), Now: time.Now}
}

// Refs names the workflow entity an activity row concerns.
type Refs struct {
	StrategyID    string
	DeliverableID string
}

func (rec Recorder) now() time.Time {
	if rec.Now != nil {
		return rec.Now()
	}
	return time.Now()
}

func (rec Recorder) logger() *log.Logger {
	if rec.Log != nil {
		return rec.Log
	}
	return log.Default()
}

// Record appends one audit row, swallowing any store failure.
func (rec Recorder) Record(ctx context.Context, activityType, message, actorID string, refs Refs) {
	a := domain.Activity{
		Type:      activityType,
		Message:   message,
		ActorID:   actorID,
		CreatedAt: rec.now().UTC().Format(time.RFC3339),
	}
	if refs.StrategyID != "" {
		a.StrategyID = &refs.StrategyID
	}
	if refs.DeliverableID != "" {
		a.DeliverableID = &refs.DeliverableID
	}
	if err := (repo.Repo{DB: rec.DB}).InsertActivity(ctx, a); err != nil {
		rec.logger().Warn("activity write failed", "type", activityType, "err", err)
	}
}

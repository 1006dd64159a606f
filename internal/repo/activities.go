package repo

import (
	"context"
	"database/sql"
	"strings"

	"growthdesk/internal/domain"
)

func (r Repo) InsertActivity(ctx context.Context, a domain.Activity) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO activities(type,message,actor_id,strategy_id,deliverable_id,created_at) VALUES (?,?,?,?,?,?)`,
		a.Type, a.Message, a.ActorID, nullableStringPtr(a.StrategyID), nullableStringPtr(a.DeliverableID), a.CreatedAt)
	return err
}

type ActivityFilters struct {
	Type          string
	StrategyID    string
	DeliverableID string
	Limit         int
}

func (r Repo) ListActivities(ctx context.Context, f ActivityFilters) ([]domain.Activity, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	if f.StrategyID != "" {
		clauses = append(clauses, "strategy_id=?")
		args = append(args, f.StrategyID)
	}
	if f.DeliverableID != "" {
		clauses = append(clauses, "deliverable_id=?")
		args = append(args, f.DeliverableID)
	}
	query := `SELECT id,type,message,actor_id,strategy_id,deliverable_id,created_at FROM activities WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Activity
	for rows.Next() {
		var a domain.Activity
		var strategyID, deliverableID sql.NullString
		if err := rows.Scan(&a.ID, &a.Type, &a.Message, &a.ActorID, &strategyID, &deliverableID, &a.CreatedAt); err != nil {
			return nil, err
		}
		if strategyID.Valid {
			a.StrategyID = &strategyID.String
		}
		if deliverableID.Valid {
			a.DeliverableID = &deliverableID.String
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

package repo

import (
	"context"
	"database/sql"

	"growthdesk/internal/domain"
)

func (r Repo) InsertComment(ctx context.Context, c domain.Comment) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO comments(id,strategy_id,deliverable_id,author_id,body,created_at) VALUES (?,?,?,?,?,?)`,
		c.ID, nullableStringPtr(c.StrategyID), nullableStringPtr(c.DeliverableID), c.AuthorID, c.Body, c.CreatedAt)
	return err
}

func (r Repo) ListComments(ctx context.Context, strategyID, deliverableID string) ([]domain.Comment, error) {
	query := `SELECT id,strategy_id,deliverable_id,author_id,body,created_at FROM comments`
	var args []any
	switch {
	case strategyID != "":
		query += ` WHERE strategy_id=?`
		args = append(args, strategyID)
	case deliverableID != "":
		query += ` WHERE deliverable_id=?`
		args = append(args, deliverableID)
	}
	query += ` ORDER BY created_at ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Comment
	for rows.Next() {
		var c domain.Comment
		var strategyRef, deliverableRef sql.NullString
		if err := rows.Scan(&c.ID, &strategyRef, &deliverableRef, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		if strategyRef.Valid {
			c.StrategyID = &strategyRef.String
		}
		if deliverableRef.Valid {
			c.DeliverableID = &deliverableRef.String
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) InsertQuestion(ctx context.Context, q domain.Question) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO questions(id,event_company_id,author_id,body,answer_body,created_at) VALUES (?,?,?,?,?,?)`,
		q.ID, q.EventCompanyID, q.AuthorID, q.Body, nullableStringPtr(q.AnswerBody), q.CreatedAt)
	return err
}

func (r Repo) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	var q domain.Question
	var answer sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,event_company_id,author_id,body,answer_body,created_at FROM questions WHERE id=?`, id).
		Scan(&q.ID, &q.EventCompanyID, &q.AuthorID, &q.Body, &answer, &q.CreatedAt)
	if err == sql.ErrNoRows {
		return q, ErrNotFound
	}
	if answer.Valid {
		q.AnswerBody = &answer.String
	}
	return q, err
}

func (r Repo) AnswerQuestion(ctx context.Context, id, answer string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE questions SET answer_body=? WHERE id=?`, answer, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ListQuestions(ctx context.Context, eventCompanyID string) ([]domain.Question, error) {
	query := `SELECT id,event_company_id,author_id,body,answer_body,created_at FROM questions`
	var args []any
	if eventCompanyID != "" {
		query += ` WHERE event_company_id=?`
		args = append(args, eventCompanyID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Question
	for rows.Next() {
		var q domain.Question
		var answer sql.NullString
		if err := rows.Scan(&q.ID, &q.EventCompanyID, &q.AuthorID, &q.Body, &answer, &q.CreatedAt); err != nil {
			return nil, err
		}
		if answer.Valid {
			q.AnswerBody = &answer.String
		}
		res = append(res, q)
	}
	return res, rows.Err()
}

package repo

import (
	"context"
	"database/sql"

	"growthdesk/internal/domain"
)

func scanStrategy(scan func(dest ...any) error) (domain.Strategy, error) {
	var s domain.Strategy
	var desc, content sql.NullString
	err := scan(&s.ID, &s.EventCompanyID, &s.Title, &desc, &content, &s.Status, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	if desc.Valid {
		s.Description = desc.String
	}
	if content.Valid {
		s.ContentJSON = &content.String
	}
	return s, nil
}

const strategyColumns = `id,event_company_id,title,description,content_json,status,version,created_at,updated_at`

func (r Repo) InsertStrategy(ctx context.Context, s domain.Strategy) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO strategies(`+strategyColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		s.ID, s.EventCompanyID, s.Title, nullable(s.Description), nullableStringPtr(s.ContentJSON), s.Status, s.Version, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r Repo) GetStrategy(ctx context.Context, id string) (domain.Strategy, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+strategyColumns+` FROM strategies WHERE id=?`, id)
	return scanStrategy(row.Scan)
}

func (r Repo) GetStrategyTx(ctx context.Context, tx *sql.Tx, id string) (domain.Strategy, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+strategyColumns+` FROM strategies WHERE id=?`, id)
	return scanStrategy(row.Scan)
}

func (r Repo) ListStrategies(ctx context.Context, eventCompanyID string) ([]domain.Strategy, error) {
	query := `SELECT ` + strategyColumns + ` FROM strategies`
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
	var res []domain.Strategy
	for rows.Next() {
		s, err := scanStrategy(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// UpdateStrategyStatusTx writes the strategy status, version and updated_at
// inside the caller's transaction.
func (r Repo) UpdateStrategyStatusTx(ctx context.Context, tx *sql.Tx, id, status string, version int, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE strategies SET status=?, version=?, updated_at=? WHERE id=?`,
		status, version, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStrategyContent updates title/description/content without touching
// status or version.
func (r Repo) UpdateStrategyContent(ctx context.Context, tx *sql.Tx, s domain.Strategy) error {
	res, err := tx.ExecContext(ctx, `UPDATE strategies SET title=?, description=?, content_json=?, updated_at=? WHERE id=?`,
		s.Title, nullable(s.Description), nullableStringPtr(s.ContentJSON), s.UpdatedAt, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanItem(scan func(dest ...any) error) (domain.StrategyItem, error) {
	var it domain.StrategyItem
	var desc, content sql.NullString
	err := scan(&it.ID, &it.StrategyID, &it.Title, &desc, &content, &it.SortOrder, &it.Status)
	if err == sql.ErrNoRows {
		return it, ErrNotFound
	}
	if err != nil {
		return it, err
	}
	if desc.Valid {
		it.Description = desc.String
	}
	if content.Valid {
		it.ContentJSON = &content.String
	}
	return it, nil
}

const itemColumns = `id,strategy_id,title,description,content_json,sort_order,status`

func (r Repo) InsertStrategyItem(ctx context.Context, it domain.StrategyItem) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO strategy_items(`+itemColumns+`) VALUES (?,?,?,?,?,?,?)`,
		it.ID, it.StrategyID, it.Title, nullable(it.Description), nullableStringPtr(it.ContentJSON), it.SortOrder, it.Status)
	return err
}

func (r Repo) GetStrategyItem(ctx context.Context, id string) (domain.StrategyItem, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM strategy_items WHERE id=?`, id)
	return scanItem(row.Scan)
}

func (r Repo) GetStrategyItemTx(ctx context.Context, tx *sql.Tx, id string) (domain.StrategyItem, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM strategy_items WHERE id=?`, id)
	return scanItem(row.Scan)
}

func (r Repo) ListStrategyItems(ctx context.Context, strategyID string) ([]domain.StrategyItem, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+itemColumns+` FROM strategy_items WHERE strategy_id=? ORDER BY sort_order ASC`, strategyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

// ListItemStatusesTx loads all sibling statuses inside the transaction so the
// rollup always sees the latest committed snapshot.
func (r Repo) ListItemStatusesTx(ctx context.Context, tx *sql.Tx, strategyID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT status FROM strategy_items WHERE strategy_id=? ORDER BY sort_order ASC`, strategyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r Repo) UpdateItemStatusTx(ctx context.Context, tx *sql.Tx, id, status string) error {
	res, err := tx.ExecContext(ctx, `UPDATE strategy_items SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetItemsTx bulk-resets every item of a strategy to pending.
func (r Repo) ResetItemsTx(ctx context.Context, tx *sql.Tx, strategyID string) error {
	_, err := tx.ExecContext(ctx, `UPDATE strategy_items SET status=? WHERE strategy_id=?`, domain.ItemPending, strategyID)
	return err
}

func (r Repo) UpdateStrategyItemContent(ctx context.Context, tx *sql.Tx, it domain.StrategyItem) error {
	res, err := tx.ExecContext(ctx, `UPDATE strategy_items SET title=?, description=?, content_json=?, sort_order=? WHERE id=?`,
		it.Title, nullable(it.Description), nullableStringPtr(it.ContentJSON), it.SortOrder, it.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountItemsByStatus groups a strategy's items by status.
func (r Repo) CountItemsByStatus(ctx context.Context, strategyID string) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, count(*) FROM strategy_items WHERE strategy_id=? GROUP BY status`, strategyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		res[status] = count
	}
	return res, rows.Err()
}

func collectItems(rows *sql.Rows) ([]domain.StrategyItem, error) {
	var res []domain.StrategyItem
	for rows.Next() {
		it, err := scanItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, it)
	}
	return res, rows.Err()
}

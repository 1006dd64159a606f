package repo

import (
	"context"
	"database/sql"
	"strings"

	"growthdesk/internal/domain"
)

const deliverableColumns = `id,event_company_id,title,description,type,status,version,content_json,file_ref,created_at,updated_at`

func scanDeliverable(scan func(dest ...any) error) (domain.Deliverable, error) {
	var d domain.Deliverable
	var desc, content, fileRef sql.NullString
	err := scan(&d.ID, &d.EventCompanyID, &d.Title, &desc, &d.Type, &d.Status, &d.Version, &content, &fileRef, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	if err != nil {
		return d, err
	}
	if desc.Valid {
		d.Description = desc.String
	}
	if content.Valid {
		d.ContentJSON = &content.String
	}
	if fileRef.Valid {
		d.FileRef = &fileRef.String
	}
	return d, nil
}

func (r Repo) InsertDeliverable(ctx context.Context, d domain.Deliverable) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO deliverables(`+deliverableColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		d.ID, d.EventCompanyID, d.Title, nullable(d.Description), d.Type, d.Status, d.Version,
		nullableStringPtr(d.ContentJSON), nullableStringPtr(d.FileRef), d.CreatedAt, d.UpdatedAt)
	return err
}

func (r Repo) GetDeliverable(ctx context.Context, id string) (domain.Deliverable, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+deliverableColumns+` FROM deliverables WHERE id=?`, id)
	return scanDeliverable(row.Scan)
}

func (r Repo) GetDeliverableTx(ctx context.Context, tx *sql.Tx, id string) (domain.Deliverable, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+deliverableColumns+` FROM deliverables WHERE id=?`, id)
	return scanDeliverable(row.Scan)
}

type DeliverableFilters struct {
	EventCompanyID string
	Status         string
	Type           string
}

func (r Repo) ListDeliverables(ctx context.Context, f DeliverableFilters) ([]domain.Deliverable, error) {
	var clauses []string
	var args []any
	if f.EventCompanyID != "" {
		clauses = append(clauses, "event_company_id=?")
		args = append(args, f.EventCompanyID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+deliverableColumns+` FROM deliverables `+where+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Deliverable
	for rows.Next() {
		d, err := scanDeliverable(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

// UpdateDeliverableStatusTx writes status, version and updated_at together so
// resubmission's status+version move as a unit.
func (r Repo) UpdateDeliverableStatusTx(ctx context.Context, tx *sql.Tx, id, status string, version int, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE deliverables SET status=?, version=?, updated_at=? WHERE id=?`,
		status, version, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpdateDeliverableContent(ctx context.Context, tx *sql.Tx, d domain.Deliverable) error {
	res, err := tx.ExecContext(ctx, `UPDATE deliverables SET title=?, description=?, type=?, content_json=?, file_ref=?, updated_at=? WHERE id=?`,
		d.Title, nullable(d.Description), d.Type, nullableStringPtr(d.ContentJSON), nullableStringPtr(d.FileRef), d.UpdatedAt, d.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPendingForCompany returns strategies and deliverables awaiting a
// client decision for the given company, across all of its event links.
func (r Repo) ListPendingForCompany(ctx context.Context, companyID string) ([]domain.Strategy, []domain.Deliverable, error) {
	srows, err := r.DB.QueryContext(ctx, `SELECT `+strategyColumns+` FROM strategies
WHERE status=? AND event_company_id IN (SELECT id FROM event_companies WHERE company_id=?)
ORDER BY created_at DESC`, domain.StrategyPendingReview, companyID)
	if err != nil {
		return nil, nil, err
	}
	defer srows.Close()
	var strategies []domain.Strategy
	for srows.Next() {
		s, err := scanStrategy(srows.Scan)
		if err != nil {
			return nil, nil, err
		}
		strategies = append(strategies, s)
	}
	if err := srows.Err(); err != nil {
		return nil, nil, err
	}

	drows, err := r.DB.QueryContext(ctx, `SELECT `+deliverableColumns+` FROM deliverables
WHERE status=? AND event_company_id IN (SELECT id FROM event_companies WHERE company_id=?)
ORDER BY created_at DESC`, domain.DeliverableInReview, companyID)
	if err != nil {
		return nil, nil, err
	}
	defer drows.Close()
	var deliverables []domain.Deliverable
	for drows.Next() {
		d, err := scanDeliverable(drows.Scan)
		if err != nil {
			return nil, nil, err
		}
		deliverables = append(deliverables, d)
	}
	return strategies, deliverables, drows.Err()
}

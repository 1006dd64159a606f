package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"growthdesk/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func (r Repo) InsertCompany(ctx context.Context, c domain.Company) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO companies(id,name,website,created_at) VALUES (?,?,?,?)`,
		c.ID, c.Name, nullable(c.Website), c.CreatedAt)
	return err
}

func (r Repo) GetCompany(ctx context.Context, id string) (domain.Company, error) {
	var c domain.Company
	var website sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,website,created_at FROM companies WHERE id=?`, id).
		Scan(&c.ID, &c.Name, &website, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if website.Valid {
		c.Website = website.String
	}
	return c, err
}

func (r Repo) ListCompanies(ctx context.Context) ([]domain.Company, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,COALESCE(website,''),created_at FROM companies ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Company
	for rows.Next() {
		var c domain.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Website, &c.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) InsertUser(ctx context.Context, u domain.User) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO users(id,email,name,role,company_id,created_at) VALUES (?,?,?,?,?,?)`,
		u.ID, u.Email, u.Name, u.Role, nullableStringPtr(u.CompanyID), u.CreatedAt)
	return err
}

func (r Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	var companyID sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,email,name,role,company_id,created_at FROM users WHERE id=?`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.Role, &companyID, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	if companyID.Valid {
		u.CompanyID = &companyID.String
	}
	return u, err
}

type UserFilters struct {
	Role      string
	CompanyID string
}

func (r Repo) ListUsers(ctx context.Context, f UserFilters) ([]domain.User, error) {
	var clauses []string
	var args []any
	if f.Role != "" {
		clauses = append(clauses, "role=?")
		args = append(args, f.Role)
	}
	if f.CompanyID != "" {
		clauses = append(clauses, "company_id=?")
		args = append(args, f.CompanyID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,email,name,role,company_id,created_at FROM users `+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		var u domain.User
		var companyID sql.NullString
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &companyID, &u.CreatedAt); err != nil {
			return nil, err
		}
		if companyID.Valid {
			u.CompanyID = &companyID.String
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (r Repo) InsertEvent(ctx context.Context, e domain.Event) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO events(id,name,description,starts_at,ends_at,created_at) VALUES (?,?,?,?,?,?)`,
		e.ID, e.Name, nullable(e.Description), nullable(e.StartsAt), nullable(e.EndsAt), e.CreatedAt)
	return err
}

func (r Repo) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	var e domain.Event
	var desc, startsAt, endsAt sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,description,starts_at,ends_at,created_at FROM events WHERE id=?`, id).
		Scan(&e.ID, &e.Name, &desc, &startsAt, &endsAt, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	if desc.Valid {
		e.Description = desc.String
	}
	if startsAt.Valid {
		e.StartsAt = startsAt.String
	}
	if endsAt.Valid {
		e.EndsAt = endsAt.String
	}
	return e, err
}

func (r Repo) ListEvents(ctx context.Context) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,COALESCE(description,''),COALESCE(starts_at,''),COALESCE(ends_at,''),created_at FROM events ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.StartsAt, &e.EndsAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r Repo) InsertEventCompany(ctx context.Context, ec domain.EventCompany) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO event_companies(id,event_id,company_id,created_at) VALUES (?,?,?,?)`,
		ec.ID, ec.EventID, ec.CompanyID, ec.CreatedAt)
	return err
}

func (r Repo) GetEventCompany(ctx context.Context, id string) (domain.EventCompany, error) {
	var ec domain.EventCompany
	err := r.DB.QueryRowContext(ctx, `SELECT id,event_id,company_id,created_at FROM event_companies WHERE id=?`, id).
		Scan(&ec.ID, &ec.EventID, &ec.CompanyID, &ec.CreatedAt)
	if err == sql.ErrNoRows {
		return ec, ErrNotFound
	}
	return ec, err
}

func (r Repo) ListEventCompanies(ctx context.Context, eventID string) ([]domain.EventCompany, error) {
	query := `SELECT id,event_id,company_id,created_at FROM event_companies`
	var args []any
	if eventID != "" {
		query += ` WHERE event_id=?`
		args = append(args, eventID)
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.EventCompany
	for rows.Next() {
		var ec domain.EventCompany
		if err := rows.Scan(&ec.ID, &ec.EventID, &ec.CompanyID, &ec.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, ec)
	}
	return res, rows.Err()
}

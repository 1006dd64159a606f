package notify

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"growthdesk/internal/domain"
	"growthdesk/internal/repo"
)

// Dispatcher resolves the audience for an event-company and writes one
// notification row per recipient. Each fan-out is a single batch insert:
// either every recipient gets a row or none does.
type Dispatcher struct {
	DB  *sql.DB
	Log *log.Logger
	Now func() time.Time
}

func New(db *sql.DB) Dispatcher {
	return Dispatcher{DB: db, Log: log.Default(), Now: time.Now}
}

func (d Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Dispatcher) logger() *log.Logger {
	if d.Log != nil {
		return d.Log
	}
	return log.Default()
}

// NotifyAgency fans out to all agency admins.
func (d Dispatcher) NotifyAgency(ctx context.Context, eventCompanyID, title, message, link string) error {
	recipients, err := d.agencyAdmins(ctx)
	if err != nil {
		return err
	}
	return d.write(ctx, recipients, title, message, link)
}

// NotifyClient fans out to the client users of the event-company's company.
func (d Dispatcher) NotifyClient(ctx context.Context, eventCompanyID, title, message, link string) error {
	recipients, err := d.clientUsers(ctx, eventCompanyID)
	if err != nil {
		return err
	}
	return d.write(ctx, recipients, title, message, link)
}

// NotifyCounterparty resolves the acting user's side and notifies the
// opposite party of the event-company.
func (d Dispatcher) NotifyCounterparty(ctx context.Context, actingUserID, eventCompanyID, title, message, link string) error {
	var role string
	err := d.DB.QueryRowContext(ctx, `SELECT role FROM users WHERE id=?`, actingUserID).Scan(&role)
	if err == sql.ErrNoRows {
		return fmt.Errorf("acting user %s: %w", actingUserID, repo.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if role == domain.RoleClient {
		return d.NotifyAgency(ctx, eventCompanyID, title, message, link)
	}
	return d.NotifyClient(ctx, eventCompanyID, title, message, link)
}

// Dispatch is the best-effort entry point used after a committed workflow
// transition: failures are logged, never propagated.
func (d Dispatcher) Dispatch(ctx context.Context, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		d.logger().Warn("notification dispatch failed", "err", err)
	}
}

func (d Dispatcher) agencyAdmins(ctx context.Context) ([]string, error) {
	rows, err := d.DB.QueryContext(ctx, `SELECT id FROM users WHERE role=?`, domain.RoleAgencyAdmin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIDs(rows)
}

func (d Dispatcher) clientUsers(ctx context.Context, eventCompanyID string) ([]string, error) {
	rows, err := d.DB.QueryContext(ctx, `
SELECT u.id FROM users u
JOIN event_companies ec ON ec.company_id = u.company_id
WHERE ec.id=? AND u.role=?`, eventCompanyID, domain.RoleClient)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIDs(rows)
}

func (d Dispatcher) write(ctx context.Context, recipients []string, title, message, link string) error {
	if len(recipients) == 0 {
		return nil
	}
	now := d.now().UTC().Format(time.RFC3339)
	batch := make([]domain.Notification, 0, len(recipients))
	for _, userID := range recipients {
		n := domain.Notification{
			UserID:    userID,
			Title:     title,
			Message:   message,
			CreatedAt: now,
		}
		if link != "" {
			n.Link = &link
		}
		batch = append(batch, n)
	}
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := (repo.Repo{DB: d.DB}).InsertNotificationsTx(ctx, tx, batch); err != nil {
		return err
	}
	return tx.Commit()
}

func collectIDs(rows *sql.Rows) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

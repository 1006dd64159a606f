package repo

import (
	"context"
	"database/sql"

	"growthdesk/internal/domain"
)

// InsertNotificationsTx writes a batch of notification rows inside the
// caller's transaction. All rows land or none do.
func (r Repo) InsertNotificationsTx(ctx context.Context, tx *sql.Tx, batch []domain.Notification) error {
	for _, n := range batch {
		if _, err := tx.ExecContext(ctx, `INSERT INTO notifications(user_id,title,message,link,read,created_at) VALUES (?,?,?,?,?,?)`,
			n.UserID, n.Title, n.Message, nullableStringPtr(n.Link), boolToInt(n.Read), n.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

type NotificationFilters struct {
	UserID     string
	UnreadOnly bool
	Limit      int
}

func (r Repo) ListNotifications(ctx context.Context, f NotificationFilters) ([]domain.Notification, error) {
	query := `SELECT id,user_id,title,message,link,read,created_at FROM notifications WHERE user_id=?`
	args := []any{f.UserID}
	if f.UnreadOnly {
		query += ` AND read=0`
	}
	query += ` ORDER BY id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var link sql.NullString
		var read int
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &link, &read, &n.CreatedAt); err != nil {
			return nil, err
		}
		if link.Valid {
			n.Link = &link.String
		}
		n.Read = read != 0
		res = append(res, n)
	}
	return res, rows.Err()
}

// MarkNotificationRead acknowledges a notification for its recipient only.
func (r Repo) MarkNotificationRead(ctx context.Context, id int64, userID string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE notifications SET read=1 WHERE id=? AND user_id=?`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM notifications WHERE user_id=? AND read=0`, userID).Scan(&n)
	return n, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

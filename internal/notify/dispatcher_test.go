package notify_test

import (
	"context"
	"testing"
	"time"

	"growthdesk/internal/db"
	"growthdesk/internal/domain"
	"growthdesk/internal/migrate"
	"growthdesk/internal/notify"
	"growthdesk/internal/repo"
)

func newDispatcher(t *testing.T) (notify.Dispatcher, repo.Repo, context.Context) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	d := notify.New(conn)
	d.Now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return d, repo.Repo{DB: conn}, context.Background()
}

func seedAudience(t *testing.T, r repo.Repo, ctx context.Context) {
	t.Helper()
	now := "2026-03-01T00:00:00Z"
	acme := "acme"
	if err := r.InsertCompany(ctx, domain.Company{ID: acme, Name: "Acme", CreatedAt: now}); err != nil {
		t.Fatal(err)
	}
	users := []domain.User{
		{ID: "amy", Email: "amy@agency.test", Role: domain.RoleAgencyAdmin, CreatedAt: now},
		{ID: "ada", Email: "ada@agency.test", Role: domain.RoleAgencyAdmin, CreatedAt: now},
		{ID: "mark", Email: "mark@agency.test", Role: domain.RoleAgencyMember, CreatedAt: now},
		{ID: "cleo", Email: "cleo@acme.test", Role: domain.RoleClient, CompanyID: &acme, CreatedAt: now},
		{ID: "carl", Email: "carl@acme.test", Role: domain.RoleClient, CompanyID: &acme, CreatedAt: now},
	}
	for _, u := range users {
		if err := r.InsertUser(ctx, u); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.InsertEvent(ctx, domain.Event{ID: "ev1", Name: "Launch", CreatedAt: now}); err != nil {
		t.Fatal(err)
	}
	if err := r.InsertEventCompany(ctx, domain.EventCompany{ID: "ec1", EventID: "ev1", CompanyID: acme, CreatedAt: now}); err != nil {
		t.Fatal(err)
	}
}

func unread(t *testing.T, r repo.Repo, ctx context.Context, userID string) int {
	t.Helper()
	n, err := r.CountUnreadNotifications(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestNotifyClientFansOutPerRecipient(t *testing.T) {
	d, r, ctx := newDispatcher(t)
	seedAudience(t, r, ctx)

	if err := d.NotifyClient(ctx, "ec1", "Ready", "a strategy awaits review", "/strategies/s1"); err != nil {
		t.Fatalf("notify client: %v", err)
	}
	if unread(t, r, ctx, "cleo") != 1 || unread(t, r, ctx, "carl") != 1 {
		t.Fatalf("each client user should get exactly one row")
	}
	if unread(t, r, ctx, "amy") != 0 || unread(t, r, ctx, "mark") != 0 {
		t.Fatalf("agency users must not receive client fan-out")
	}

	items, err := r.ListNotifications(ctx, repo.NotificationFilters{UserID: "cleo"})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Title != "Ready" || items[0].Link == nil || *items[0].Link != "/strategies/s1" {
		t.Fatalf("notification row = %+v", items)
	}
}

func TestNotifyAgencyTargetsAdminsOnly(t *testing.T) {
	d, r, ctx := newDispatcher(t)
	seedAudience(t, r, ctx)

	if err := d.NotifyAgency(ctx, "ec1", "Reviewed", "item rejected", ""); err != nil {
		t.Fatalf("notify agency: %v", err)
	}
	if unread(t, r, ctx, "amy") != 1 || unread(t, r, ctx, "ada") != 1 {
		t.Fatalf("both admins should be notified")
	}
	if unread(t, r, ctx, "mark") != 0 {
		t.Fatalf("agency member must not be notified")
	}
}

func TestNotifyCounterpartyFlipsSides(t *testing.T) {
	d, r, ctx := newDispatcher(t)
	seedAudience(t, r, ctx)

	// client actor -> agency admins
	if err := d.NotifyCounterparty(ctx, "cleo", "ec1", "Comment", "new comment", ""); err != nil {
		t.Fatal(err)
	}
	if unread(t, r, ctx, "amy") != 1 || unread(t, r, ctx, "cleo") != 0 {
		t.Fatalf("client action should notify agency side only")
	}

	// agency actor -> client users
	if err := d.NotifyCounterparty(ctx, "mark", "ec1", "Comment", "new comment", ""); err != nil {
		t.Fatal(err)
	}
	if unread(t, r, ctx, "cleo") != 1 || unread(t, r, ctx, "carl") != 1 {
		t.Fatalf("agency action should notify client side")
	}
}

func TestEmptyAudienceIsNoOp(t *testing.T) {
	d, r, ctx := newDispatcher(t)
	now := "2026-03-01T00:00:00Z"

	// event company whose company has no client users
	if err := r.InsertCompany(ctx, domain.Company{ID: "ghost", Name: "Ghost", CreatedAt: now}); err != nil {
		t.Fatal(err)
	}
	if err := r.InsertEvent(ctx, domain.Event{ID: "ev1", Name: "Launch", CreatedAt: now}); err != nil {
		t.Fatal(err)
	}
	if err := r.InsertEventCompany(ctx, domain.EventCompany{ID: "ec-ghost", EventID: "ev1", CompanyID: "ghost", CreatedAt: now}); err != nil {
		t.Fatal(err)
	}

	if err := d.NotifyClient(ctx, "ec-ghost", "Ready", "nobody home", ""); err != nil {
		t.Fatalf("empty audience must be a silent no-op, got %v", err)
	}
	var count int
	if err := d.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("notifications = %d, want 0", count)
	}
}

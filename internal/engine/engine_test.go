package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"growthdesk/internal/config"
	"growthdesk/internal/db"
	"growthdesk/internal/domain"
	"growthdesk/internal/engine"
	"growthdesk/internal/engine/access"
	"growthdesk/internal/migrate"
	"growthdesk/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

// Seeded identities: amy (agency_admin), mark (agency_member),
// cleo (client at acme), oscar (client at other-co).
// Event ev1 has acme attached as ec1 and other-co as ec2.
func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	now := "2026-03-01T00:00:00Z"
	acme := "acme"
	other := "other-co"
	seed := []error{
		eng.Repo.InsertCompany(ctx, domain.Company{ID: acme, Name: "Acme", CreatedAt: now}),
		eng.Repo.InsertCompany(ctx, domain.Company{ID: other, Name: "Other", CreatedAt: now}),
		eng.Repo.InsertUser(ctx, domain.User{ID: "amy", Email: "amy@agency.test", Name: "Amy", Role: domain.RoleAgencyAdmin, CreatedAt: now}),
		eng.Repo.InsertUser(ctx, domain.User{ID: "mark", Email: "mark@agency.test", Name: "Mark", Role: domain.RoleAgencyMember, CreatedAt: now}),
		eng.Repo.InsertUser(ctx, domain.User{ID: "cleo", Email: "cleo@acme.test", Name: "Cleo", Role: domain.RoleClient, CompanyID: &acme, CreatedAt: now}),
		eng.Repo.InsertUser(ctx, domain.User{ID: "oscar", Email: "oscar@other.test", Name: "Oscar", Role: domain.RoleClient, CompanyID: &other, CreatedAt: now}),
		eng.Repo.InsertEvent(ctx, domain.Event{ID: "ev1", Name: "Spring Launch", CreatedAt: now}),
		eng.Repo.InsertEventCompany(ctx, domain.EventCompany{ID: "ec1", EventID: "ev1", CompanyID: acme, CreatedAt: now}),
		eng.Repo.InsertEventCompany(ctx, domain.EventCompany{ID: "ec2", EventID: "ev1", CompanyID: other, CreatedAt: now}),
	}
	for _, err := range seed {
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return testEnv{Engine: eng, Ctx: ctx}
}

// submittedStrategy creates a strategy with n items and submits it.
func submittedStrategy(t *testing.T, env testEnv, n int) (domain.Strategy, []domain.StrategyItem) {
	t.Helper()
	s, err := env.Engine.CreateStrategy(env.Ctx, engine.StrategyCreateOptions{
		EventCompanyID: "ec1",
		Title:          "Q2 Plan",
		ActorID:        "mark",
	})
	if err != nil {
		t.Fatalf("create strategy: %v", err)
	}
	items := make([]domain.StrategyItem, 0, n)
	for i := 0; i < n; i++ {
		it, err := env.Engine.AddStrategyItem(env.Ctx, engine.ItemCreateOptions{
			StrategyID: s.ID,
			Title:      "Item",
			ActorID:    "mark",
		})
		if err != nil {
			t.Fatalf("add item: %v", err)
		}
		items = append(items, it)
	}
	s, err = env.Engine.SubmitStrategy(env.Ctx, s.ID, "mark")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return s, items
}

func activities(t *testing.T, env testEnv, activityType string) []domain.Activity {
	t.Helper()
	items, err := env.Engine.Repo.ListActivities(env.Ctx, repo.ActivityFilters{Type: activityType})
	if err != nil {
		t.Fatalf("list activities: %v", err)
	}
	return items
}

func notificationsFor(t *testing.T, env testEnv, userID string) []domain.Notification {
	t.Helper()
	items, err := env.Engine.Repo.ListNotifications(env.Ctx, repo.NotificationFilters{UserID: userID})
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	return items
}

func TestStrategyApprovalRollup(t *testing.T) {
	env := newTestEnv(t)
	s, items := submittedStrategy(t, env, 3)

	for i := 0; i < 2; i++ {
		decision, err := env.Engine.UpdateItemStatus(env.Ctx, items[i].ID, domain.ItemApproved, "cleo")
		if err != nil {
			t.Fatalf("approve item %d: %v", i, err)
		}
		if decision.StrategyChanged {
			t.Fatalf("strategy flipped before all items approved")
		}
		if decision.Strategy.Status != domain.StrategyPendingReview {
			t.Fatalf("status = %s, want pending_review", decision.Strategy.Status)
		}
	}

	decision, err := env.Engine.UpdateItemStatus(env.Ctx, items[2].ID, domain.ItemApproved, "cleo")
	if err != nil {
		t.Fatalf("approve last item: %v", err)
	}
	if !decision.StrategyChanged || decision.Strategy.Status != domain.StrategyApproved {
		t.Fatalf("strategy = %+v, want approved", decision.Strategy)
	}

	got, err := env.Engine.Repo.GetStrategy(env.Ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StrategyApproved {
		t.Fatalf("persisted status = %s, want approved", got.Status)
	}
	if got.Version != 1 {
		t.Fatalf("version = %d, want 1 (approval does not bump)", got.Version)
	}
	if n := len(activities(t, env, "strategy.approved")); n != 1 {
		t.Fatalf("strategy.approved activities = %d, want exactly 1", n)
	}
}

func TestItemRejectionRequestsChanges(t *testing.T) {
	env := newTestEnv(t)
	_, items := submittedStrategy(t, env, 3)

	if _, err := env.Engine.UpdateItemStatus(env.Ctx, items[0].ID, domain.ItemApproved, "cleo"); err != nil {
		t.Fatal(err)
	}
	decision, err := env.Engine.UpdateItemStatus(env.Ctx, items[1].ID, domain.ItemRejected, "cleo")
	if err != nil {
		t.Fatalf("reject item: %v", err)
	}
	if decision.Strategy.Status != domain.StrategyChangesRequested {
		t.Fatalf("status = %s, want changes_requested", decision.Strategy.Status)
	}
	if n := len(activities(t, env, "strategy.changes_requested")); n != 1 {
		t.Fatalf("changes_requested activities = %d, want 1", n)
	}

	// a modified decision on the remaining item leaves the rollup alone
	decision, err = env.Engine.UpdateItemStatus(env.Ctx, items[2].ID, domain.ItemModified, "cleo")
	if err != nil {
		t.Fatal(err)
	}
	if decision.Strategy.Status != domain.StrategyChangesRequested {
		t.Fatalf("status after modified = %s, want changes_requested", decision.Strategy.Status)
	}
}

func TestResubmitResetsItemsAndBumpsVersion(t *testing.T) {
	env := newTestEnv(t)
	s, items := submittedStrategy(t, env, 3)

	if _, err := env.Engine.UpdateItemStatus(env.Ctx, items[0].ID, domain.ItemApproved, "cleo"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.UpdateItemStatus(env.Ctx, items[1].ID, domain.ItemRejected, "cleo"); err != nil {
		t.Fatal(err)
	}

	s2, err := env.Engine.ResubmitStrategy(env.Ctx, s.ID, "mark")
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if s2.Status != domain.StrategyPendingReview || s2.Version != 2 {
		t.Fatalf("resubmitted = %s v%d, want pending_review v2", s2.Status, s2.Version)
	}

	fresh, err := env.Engine.Repo.ListStrategyItems(env.Ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, it := range fresh {
		if it.Status != domain.ItemPending {
			t.Fatalf("item %s status = %s, want pending after resubmit", it.ID, it.Status)
		}
	}
	if n := len(notificationsFor(t, env, "cleo")); n == 0 {
		t.Fatalf("expected client notification after resubmit")
	}
}

func TestSubmitRequiresItems(t *testing.T) {
	env := newTestEnv(t)
	s, err := env.Engine.CreateStrategy(env.Ctx, engine.StrategyCreateOptions{
		EventCompanyID: "ec1",
		Title:          "Empty",
		ActorID:        "mark",
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = env.Engine.SubmitStrategy(env.Ctx, s.ID, "mark")
	var ve engine.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("submit with no items: err = %v, want ValidationError", err)
	}
	got, _ := env.Engine.Repo.GetStrategy(env.Ctx, s.ID)
	if got.Status != domain.StrategyDraft {
		t.Fatalf("status = %s, want draft untouched", got.Status)
	}
}

func TestInvalidStrategyTransitions(t *testing.T) {
	env := newTestEnv(t)
	s, _ := submittedStrategy(t, env, 1)

	var te engine.InvalidTransitionError
	if _, err := env.Engine.SubmitStrategy(env.Ctx, s.ID, "mark"); !errors.As(err, &te) {
		t.Fatalf("double submit: err = %v, want InvalidTransitionError", err)
	}
	if _, err := env.Engine.ResubmitStrategy(env.Ctx, s.ID, "mark"); !errors.As(err, &te) {
		t.Fatalf("resubmit from pending_review: err = %v, want InvalidTransitionError", err)
	}

	got, _ := env.Engine.Repo.GetStrategy(env.Ctx, s.ID)
	if got.Status != domain.StrategyPendingReview || got.Version != 1 {
		t.Fatalf("state changed by rejected transitions: %s v%d", got.Status, got.Version)
	}
}

func TestItemReviewAccessScoping(t *testing.T) {
	env := newTestEnv(t)
	s, items := submittedStrategy(t, env, 1)

	// oscar belongs to a different company on the same event
	_, err := env.Engine.UpdateItemStatus(env.Ctx, items[0].ID, domain.ItemApproved, "oscar")
	var de access.DeniedError
	if !errors.As(err, &de) {
		t.Fatalf("cross-company review: err = %v, want DeniedError", err)
	}

	it, _ := env.Engine.Repo.GetStrategyItem(env.Ctx, items[0].ID)
	if it.Status != domain.ItemPending {
		t.Fatalf("item status = %s, want pending after denied call", it.Status)
	}
	got, _ := env.Engine.Repo.GetStrategy(env.Ctx, s.ID)
	if got.Status != domain.StrategyPendingReview {
		t.Fatalf("strategy status = %s, want pending_review after denied call", got.Status)
	}
}

func TestClientDecisionNotifiesAgencyAdmins(t *testing.T) {
	env := newTestEnv(t)
	_, items := submittedStrategy(t, env, 2)

	if _, err := env.Engine.UpdateItemStatus(env.Ctx, items[0].ID, domain.ItemRejected, "cleo"); err != nil {
		t.Fatal(err)
	}
	if n := len(notificationsFor(t, env, "amy")); n == 0 {
		t.Fatalf("agency admin got no notification for client rejection")
	}
	if n := len(notificationsFor(t, env, "mark")); n != 0 {
		t.Fatalf("agency member notified = %d, want 0 (admins only)", n)
	}

	// a modified decision does not page the agency
	before := len(notificationsFor(t, env, "amy"))
	if _, err := env.Engine.UpdateItemStatus(env.Ctx, items[1].ID, domain.ItemModified, "cleo"); err != nil {
		t.Fatal(err)
	}
	if after := len(notificationsFor(t, env, "amy")); after != before {
		t.Fatalf("modified decision produced notifications: %d -> %d", before, after)
	}
}

func TestDeliverableLifecycle(t *testing.T) {
	env := newTestEnv(t)
	d, err := env.Engine.CreateDeliverable(env.Ctx, engine.DeliverableCreateOptions{
		EventCompanyID: "ec1",
		Title:          "Welcome email",
		Type:           "email_template",
		ActorID:        "mark",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.Status != domain.DeliverableDraft || d.Version != 1 {
		t.Fatalf("new deliverable = %s v%d", d.Status, d.Version)
	}

	if d, err = env.Engine.SubmitDeliverable(env.Ctx, d.ID, "mark"); err != nil || d.Status != domain.DeliverableInReview {
		t.Fatalf("submit: %v (%s)", err, d.Status)
	}
	if d, err = env.Engine.RequestDeliverableChanges(env.Ctx, d.ID, "cleo"); err != nil || d.Status != domain.DeliverableChangesRequested {
		t.Fatalf("request changes: %v (%s)", err, d.Status)
	}
	if d, err = env.Engine.ResubmitDeliverable(env.Ctx, d.ID, "mark"); err != nil || d.Status != domain.DeliverableInReview || d.Version != 2 {
		t.Fatalf("resubmit: %v (%s v%d)", err, d.Status, d.Version)
	}
	if d, err = env.Engine.ApproveDeliverable(env.Ctx, d.ID, "cleo"); err != nil || d.Status != domain.DeliverableApproved {
		t.Fatalf("approve: %v (%s)", err, d.Status)
	}
	if d, err = env.Engine.MarkDelivered(env.Ctx, d.ID, "mark"); err != nil || d.Status != domain.DeliverableDelivered {
		t.Fatalf("deliver: %v (%s)", err, d.Status)
	}

	// delivered is terminal
	var te engine.InvalidTransitionError
	if _, err := env.Engine.ApproveDeliverable(env.Ctx, d.ID, "cleo"); !errors.As(err, &te) {
		t.Fatalf("approve after delivered: err = %v, want InvalidTransitionError", err)
	}
	if _, err := env.Engine.MarkDelivered(env.Ctx, d.ID, "mark"); !errors.As(err, &te) {
		t.Fatalf("double deliver: err = %v, want InvalidTransitionError", err)
	}
}

func TestApproveAllowedAfterChangesRequested(t *testing.T) {
	env := newTestEnv(t)
	d, err := env.Engine.CreateDeliverable(env.Ctx, engine.DeliverableCreateOptions{
		EventCompanyID: "ec1",
		Title:          "Landing page",
		Type:           "landing_page",
		ActorID:        "mark",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SubmitDeliverable(env.Ctx, d.ID, "mark"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.RequestDeliverableChanges(env.Ctx, d.ID, "cleo"); err != nil {
		t.Fatal(err)
	}

	// client can reverse a change request without a resubmission round
	d2, err := env.Engine.ApproveDeliverable(env.Ctx, d.ID, "cleo")
	if err != nil || d2.Status != domain.DeliverableApproved {
		t.Fatalf("approve from changes_requested: %v (%s)", err, d2.Status)
	}
	if d2.Version != 1 {
		t.Fatalf("version = %d, want 1 (no resubmission happened)", d2.Version)
	}

	// but request-changes has no such shortcut
	var te engine.InvalidTransitionError
	if _, err := env.Engine.RequestDeliverableChanges(env.Ctx, d.ID, "cleo"); !errors.As(err, &te) {
		t.Fatalf("request changes from approved: err = %v, want InvalidTransitionError", err)
	}
}

func TestRequestChangesOnlyFromInReview(t *testing.T) {
	env := newTestEnv(t)
	d, err := env.Engine.CreateDeliverable(env.Ctx, engine.DeliverableCreateOptions{
		EventCompanyID: "ec1",
		Title:          "Spot",
		Type:           "ad_creative",
		ActorID:        "mark",
	})
	if err != nil {
		t.Fatal(err)
	}
	var te engine.InvalidTransitionError
	if _, err := env.Engine.RequestDeliverableChanges(env.Ctx, d.ID, "cleo"); !errors.As(err, &te) {
		t.Fatalf("request changes on draft: err = %v, want InvalidTransitionError", err)
	}
	if _, err := env.Engine.SubmitDeliverable(env.Ctx, d.ID, "mark"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.RequestDeliverableChanges(env.Ctx, d.ID, "cleo"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.RequestDeliverableChanges(env.Ctx, d.ID, "cleo"); !errors.As(err, &te) {
		t.Fatalf("double request changes: err = %v, want InvalidTransitionError", err)
	}
}

func TestCreateDeliverableValidatesType(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateDeliverable(env.Ctx, engine.DeliverableCreateOptions{
		EventCompanyID: "ec1",
		Title:          "Mystery",
		Type:           "hologram",
		ActorID:        "mark",
	})
	var ve engine.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("unknown type: err = %v, want ValidationError", err)
	}
}

func TestClientCannotSubmitStrategy(t *testing.T) {
	env := newTestEnv(t)
	s, err := env.Engine.CreateStrategy(env.Ctx, engine.StrategyCreateOptions{
		EventCompanyID: "ec1",
		Title:          "Plan",
		ActorID:        "mark",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.AddStrategyItem(env.Ctx, engine.ItemCreateOptions{StrategyID: s.ID, Title: "a", ActorID: "mark"}); err != nil {
		t.Fatal(err)
	}
	var de access.DeniedError
	if _, err := env.Engine.SubmitStrategy(env.Ctx, s.ID, "cleo"); !errors.As(err, &de) {
		t.Fatalf("client submit: err = %v, want DeniedError", err)
	}
	var ace access.DeniedError
	if _, err := env.Engine.AddStrategyItem(env.Ctx, engine.ItemCreateOptions{StrategyID: s.ID, Title: "b", ActorID: "cleo"}); !errors.As(err, &ace) {
		t.Fatalf("client add item: err = %v, want DeniedError", err)
	}
}

func TestPendingForCompany(t *testing.T) {
	env := newTestEnv(t)
	submittedStrategy(t, env, 1)
	d, err := env.Engine.CreateDeliverable(env.Ctx, engine.DeliverableCreateOptions{
		EventCompanyID: "ec1",
		Title:          "Doc",
		Type:           "document",
		ActorID:        "mark",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SubmitDeliverable(env.Ctx, d.ID, "mark"); err != nil {
		t.Fatal(err)
	}

	pending, err := env.Engine.ListPendingForCompany(env.Ctx, "acme", "cleo")
	if err != nil {
		t.Fatal(err)
	}
	if len(pending.Strategies) != 1 || len(pending.Deliverables) != 1 {
		t.Fatalf("pending = %d strategies / %d deliverables, want 1/1", len(pending.Strategies), len(pending.Deliverables))
	}

	// nothing pending for the other company
	other, err := env.Engine.ListPendingForCompany(env.Ctx, "other-co", "oscar")
	if err != nil {
		t.Fatal(err)
	}
	if len(other.Strategies) != 0 || len(other.Deliverables) != 0 {
		t.Fatalf("other-co sees someone else's pending work")
	}

	// a client cannot read another company's queue
	var de access.DeniedError
	if _, err := env.Engine.ListPendingForCompany(env.Ctx, "acme", "oscar"); !errors.As(err, &de) {
		t.Fatalf("cross-company pending: err = %v, want DeniedError", err)
	}
}

func TestRollupProgressCounts(t *testing.T) {
	env := newTestEnv(t)
	s, items := submittedStrategy(t, env, 3)
	if _, err := env.Engine.UpdateItemStatus(env.Ctx, items[0].ID, domain.ItemApproved, "cleo"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.UpdateItemStatus(env.Ctx, items[1].ID, domain.ItemModified, "cleo"); err != nil {
		t.Fatal(err)
	}
	p, err := env.Engine.StrategyProgress(env.Ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if p.Total != 3 {
		t.Fatalf("total = %d, want 3", p.Total)
	}
	if p.ByStatus[domain.ItemApproved] != 1 || p.ByStatus[domain.ItemModified] != 1 || p.ByStatus[domain.ItemPending] != 1 {
		t.Fatalf("by_status = %v", p.ByStatus)
	}
}

func TestCommentNotifiesCounterparty(t *testing.T) {
	env := newTestEnv(t)
	s, _ := submittedStrategy(t, env, 1)

	// client comment lands in agency admin inboxes
	if _, err := env.Engine.AddComment(env.Ctx, engine.CommentCreateOptions{StrategyID: s.ID, Body: "why this channel?", AuthorID: "cleo"}); err != nil {
		t.Fatal(err)
	}
	if n := len(notificationsFor(t, env, "amy")); n == 0 {
		t.Fatalf("agency admin not notified of client comment")
	}

	// agency comment lands in client inboxes
	before := len(notificationsFor(t, env, "cleo"))
	if _, err := env.Engine.AddComment(env.Ctx, engine.CommentCreateOptions{StrategyID: s.ID, Body: "it converts", AuthorID: "mark"}); err != nil {
		t.Fatal(err)
	}
	if after := len(notificationsFor(t, env, "cleo")); after <= before {
		t.Fatalf("client not notified of agency comment")
	}
}

func TestQuestionAskAndAnswer(t *testing.T) {
	env := newTestEnv(t)
	q, err := env.Engine.AddQuestion(env.Ctx, engine.QuestionCreateOptions{
		EventCompanyID: "ec1",
		Body:           "When does the campaign start?",
		AuthorID:       "cleo",
	})
	if err != nil {
		t.Fatal(err)
	}
	if n := len(notificationsFor(t, env, "amy")); n == 0 {
		t.Fatalf("agency admin not notified of question")
	}

	q2, err := env.Engine.AnswerQuestion(env.Ctx, q.ID, "April 6", "amy")
	if err != nil {
		t.Fatal(err)
	}
	if q2.AnswerBody == nil || *q2.AnswerBody != "April 6" {
		t.Fatalf("answer not recorded: %+v", q2)
	}
	found := false
	for _, n := range notificationsFor(t, env, "cleo") {
		if n.Title == "Question answered" {
			found = true
		}
	}
	if !found {
		t.Fatalf("client not notified of answer")
	}
}

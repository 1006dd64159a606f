package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"

	"growthdesk/internal/config"
	"growthdesk/internal/db"
	"growthdesk/internal/domain"
	"growthdesk/internal/engine"
	"growthdesk/internal/migrate"
)

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default())

	ctx := context.Background()
	now := "2026-03-01T00:00:00Z"
	acme := "acme"
	seed := []error{
		e.Repo.InsertCompany(ctx, domain.Company{ID: acme, Name: "Acme", CreatedAt: now}),
		e.Repo.InsertUser(ctx, domain.User{ID: "amy", Email: "amy@agency.test", Role: domain.RoleAgencyAdmin, CreatedAt: now}),
		e.Repo.InsertUser(ctx, domain.User{ID: "mark", Email: "mark@agency.test", Role: domain.RoleAgencyMember, CreatedAt: now}),
		e.Repo.InsertUser(ctx, domain.User{ID: "cleo", Email: "cleo@acme.test", Role: domain.RoleClient, CompanyID: &acme, CreatedAt: now}),
		e.Repo.InsertEvent(ctx, domain.Event{ID: "ev1", Name: "Launch", CreatedAt: now}),
		e.Repo.InsertEventCompany(ctx, domain.EventCompany{ID: "ec1", EventID: "ev1", CompanyID: acme, CreatedAt: now}),
	}
	for _, err := range seed {
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v1",
		Auth:     AuthConfig{JWTSecret: "test-secret", AllowLegacyActorHeader: true},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	ts := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(ts.close)
	return ts
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func asAgency() map[string]string { return map[string]string{"X-Actor-Id": "mark"} }
func asClient() map[string]string { return map[string]string{"X-Actor-Id": "cleo"} }

func TestStrategyReviewOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/strategies", map[string]any{
		"event_company_id": "ec1",
		"title":            "Q2 Plan",
	}, asAgency())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create strategy status %d: %s", res.StatusCode, string(data))
	}
	var s domain.Strategy
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("unmarshal strategy: %v", err)
	}
	if s.Status != domain.StrategyDraft || s.Version != 1 {
		t.Fatalf("new strategy = %s v%d", s.Status, s.Version)
	}

	var items []domain.StrategyItem
	for i := 0; i < 2; i++ {
		res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/strategies/"+s.ID+"/items", map[string]any{
			"title": "Item",
		}, asAgency())
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("add item status %d: %s", res.StatusCode, string(data))
		}
		var it domain.StrategyItem
		if err := json.Unmarshal(data, &it); err != nil {
			t.Fatal(err)
		}
		items = append(items, it)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/strategies/"+s.ID+"/submit", nil, asAgency())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("submit status %d: %s", res.StatusCode, string(data))
	}

	// client approves both items; second decision flips the strategy
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/items/"+items[0].ID+"/status", map[string]any{
		"status": "approved",
	}, asClient())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("review status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/items/"+items[1].ID+"/status", map[string]any{
		"status": "approved",
	}, asClient())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("review status %d: %s", res.StatusCode, string(data))
	}
	var decision engine.ItemDecision
	if err := json.Unmarshal(data, &decision); err != nil {
		t.Fatal(err)
	}
	if !decision.StrategyChanged || decision.Strategy.Status != domain.StrategyApproved {
		t.Fatalf("final decision = %+v, want approved strategy", decision)
	}

	// approved strategies cannot be submitted again
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/strategies/"+s.ID+"/submit", nil, asAgency())
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("double submit status %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatal(err)
	}
	if envelope.Error.Code != "invalid_transition" {
		t.Fatalf("error code = %q, want invalid_transition", envelope.Error.Code)
	}
}

func TestErrorEnvelopeAndAuth(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	// missing credentials
	res, _ := doJSON(t, client, http.MethodGet, srv.URL+"/v1/strategies", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status %d, want 401", res.StatusCode)
	}

	// unknown strategy
	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/strategies/nope", nil, asAgency())
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("missing strategy status %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatal(err)
	}
	if envelope.Error.Code != "not_found" {
		t.Fatalf("error code = %q, want not_found", envelope.Error.Code)
	}

	// client creating a strategy is denied
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/strategies", map[string]any{
		"event_company_id": "ec1",
		"title":            "Sneaky",
	}, asClient())
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("client create status %d: %s", res.StatusCode, string(data))
	}
}

func TestDeliverableActionsOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/deliverables", map[string]any{
		"event_company_id": "ec1",
		"title":            "Welcome email",
		"type":             "email_template",
	}, asAgency())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d: %s", res.StatusCode, string(data))
	}
	var d domain.Deliverable
	if err := json.Unmarshal(data, &d); err != nil {
		t.Fatal(err)
	}

	steps := []struct {
		action  string
		headers map[string]string
		status  string
	}{
		{"submit", asAgency(), domain.DeliverableInReview},
		{"request-changes", asClient(), domain.DeliverableChangesRequested},
		{"resubmit", asAgency(), domain.DeliverableInReview},
		{"approve", asClient(), domain.DeliverableApproved},
		{"deliver", asAgency(), domain.DeliverableDelivered},
	}
	for _, step := range steps {
		res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/deliverables/"+d.ID+"/"+step.action, nil, step.headers)
		if res.StatusCode != http.StatusOK {
			t.Fatalf("%s status %d: %s", step.action, res.StatusCode, string(data))
		}
		if err := json.Unmarshal(data, &d); err != nil {
			t.Fatal(err)
		}
		if d.Status != step.status {
			t.Fatalf("after %s: status = %s, want %s", step.action, d.Status, step.status)
		}
	}
	if d.Version != 2 {
		t.Fatalf("version = %d, want 2 after one resubmission", d.Version)
	}
}

func TestDevLoginMintsUsableToken(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/auth/dev/login", map[string]any{
		"user_id": "amy",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dev login status %d: %s", res.StatusCode, string(data))
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &login); err != nil {
		t.Fatal(err)
	}
	if login.Token == "" {
		t.Fatalf("empty token")
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/me", nil, map[string]string{
		"Authorization": "Bearer " + login.Token,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me status %d: %s", res.StatusCode, string(data))
	}
	var me struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := json.Unmarshal(data, &me); err != nil {
		t.Fatal(err)
	}
	if me.UserID != "amy" || me.Role != domain.RoleAgencyAdmin {
		t.Fatalf("me = %+v", me)
	}
}

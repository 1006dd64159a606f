package engine

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"growthdesk/internal/activity"
	"growthdesk/internal/config"
	"growthdesk/internal/engine/access"
	"growthdesk/internal/notify"
	"growthdesk/internal/repo"
)

type Engine struct {
	DB         *sql.DB
	Repo       repo.Repo
	Access     access.Service
	Notify     notify.Dispatcher
	Activities activity.Recorder
	Config     *config.Config
	Log        *log.Logger
	Now        func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	return Engine{
		DB:         db,
		Repo:       repo.Repo{DB: db},
		Access:     access.Service{DB: db},
		Notify:     notify.New(db),
		Activities: activity.New(db),
		Config:     cfg,
		Log:        logger,
		Now:        time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) stamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

// link builds an absolute URL for notification payloads when a base URL
// is configured, otherwise returns the bare path.
func (e Engine) link(path string) string {
	if e.Config == nil || e.Config.Links.BaseURL == "" {
		return path
	}
	return strings.TrimRight(e.Config.Links.BaseURL, "/") + path
}

// resolveFor resolves the caller and checks company-scoped access in one go.
func (e Engine) resolveFor(ctx context.Context, callerID, companyID string) (access.Principal, error) {
	p, err := e.Access.Resolve(ctx, callerID)
	if err != nil {
		return access.Principal{}, err
	}
	if err := e.Access.RequireCompanyOrAgency(p, companyID); err != nil {
		return access.Principal{}, err
	}
	return p, nil
}

func (e Engine) resolveAgency(ctx context.Context, callerID string) (access.Principal, error) {
	p, err := e.Access.Resolve(ctx, callerID)
	if err != nil {
		return access.Principal{}, err
	}
	if err := e.Access.RequireAgency(p); err != nil {
		return access.Principal{}, err
	}
	return p, nil
}

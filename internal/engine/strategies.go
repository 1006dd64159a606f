package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"growthdesk/internal/activity"
	"growthdesk/internal/domain"
)

// StrategyCreateOptions are parameters for creating a strategy.
type StrategyCreateOptions struct {
	ID             string
	EventCompanyID string
	Title          string
	Description    string
	ContentJSON    string
	ActorID        string
}

func (e Engine) CreateStrategy(ctx context.Context, opts StrategyCreateOptions) (domain.Strategy, error) {
	if opts.Title == "" {
		return domain.Strategy{}, ValidationError{Field: "title", Reason: "required"}
	}
	if _, err := e.resolveAgency(ctx, opts.ActorID); err != nil {
		return domain.Strategy{}, err
	}
	if _, err := e.Repo.GetEventCompany(ctx, opts.EventCompanyID); err != nil {
		return domain.Strategy{}, err
	}
	s := domain.Strategy{
		ID:             opts.ID,
		EventCompanyID: opts.EventCompanyID,
		Title:          opts.Title,
		Description:    opts.Description,
		Status:         domain.StrategyDraft,
		Version:        1,
		CreatedAt:      e.stamp(),
		UpdatedAt:      e.stamp(),
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if opts.ContentJSON != "" {
		s.ContentJSON = &opts.ContentJSON
	}
	if err := e.Repo.InsertStrategy(ctx, s); err != nil {
		return domain.Strategy{}, fmt.Errorf("insert strategy: %w", err)
	}
	e.Activities.Record(ctx, "strategy.created", fmt.Sprintf("strategy %q created", s.Title), opts.ActorID, activity.Refs{StrategyID: s.ID})
	return s, nil
}

// ItemCreateOptions are parameters for adding an item to a strategy.
type ItemCreateOptions struct {
	ID          string
	StrategyID  string
	Title       string
	Description string
	ContentJSON string
	SortOrder   int
	ActorID     string
}

func (e Engine) AddStrategyItem(ctx context.Context, opts ItemCreateOptions) (domain.StrategyItem, error) {
	if opts.Title == "" {
		return domain.StrategyItem{}, ValidationError{Field: "title", Reason: "required"}
	}
	if _, err := e.resolveAgency(ctx, opts.ActorID); err != nil {
		return domain.StrategyItem{}, err
	}
	s, err := e.Repo.GetStrategy(ctx, opts.StrategyID)
	if err != nil {
		return domain.StrategyItem{}, err
	}
	it := domain.StrategyItem{
		ID:          opts.ID,
		StrategyID:  s.ID,
		Title:       opts.Title,
		Description: opts.Description,
		SortOrder:   opts.SortOrder,
		Status:      domain.ItemPending,
	}
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if opts.ContentJSON != "" {
		it.ContentJSON = &opts.ContentJSON
	}
	if it.SortOrder <= 0 {
		existing, err := e.Repo.ListStrategyItems(ctx, s.ID)
		if err != nil {
			return domain.StrategyItem{}, err
		}
		for _, prev := range existing {
			if prev.SortOrder >= it.SortOrder {
				it.SortOrder = prev.SortOrder + 1
			}
		}
		if it.SortOrder <= 0 {
			it.SortOrder = 1
		}
	}
	if err := e.Repo.InsertStrategyItem(ctx, it); err != nil {
		return domain.StrategyItem{}, fmt.Errorf("insert strategy item: %w", err)
	}
	e.Activities.Record(ctx, "strategy.item_added", fmt.Sprintf("item %q added", it.Title), opts.ActorID, activity.Refs{StrategyID: s.ID})
	return it, nil
}

// SubmitStrategy moves a draft strategy into client review.
func (e Engine) SubmitStrategy(ctx context.Context, strategyID, callerID string) (domain.Strategy, error) {
	if _, err := e.resolveAgency(ctx, callerID); err != nil {
		return domain.Strategy{}, err
	}
	s, err := e.Repo.GetStrategy(ctx, strategyID)
	if err != nil {
		return domain.Strategy{}, err
	}
	if s.Status != domain.StrategyDraft {
		return domain.Strategy{}, InvalidTransitionError{Entity: "strategy", From: s.Status, Action: "submit"}
	}
	items, err := e.Repo.ListStrategyItems(ctx, s.ID)
	if err != nil {
		return domain.Strategy{}, err
	}
	if len(items) == 0 {
		return domain.Strategy{}, ValidationError{Field: "items", Reason: "strategy has no items"}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Strategy{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateStrategyStatusTx(ctx, tx, s.ID, domain.StrategyPendingReview, s.Version, e.stamp()); err != nil {
		return domain.Strategy{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Strategy{}, err
	}
	s.Status = domain.StrategyPendingReview
	s.UpdatedAt = e.stamp()

	e.Activities.Record(ctx, "strategy.submitted", fmt.Sprintf("strategy %q submitted for review", s.Title), callerID, activity.Refs{StrategyID: s.ID})
	e.Notify.Dispatch(ctx, func(ctx context.Context) error {
		return e.Notify.NotifyClient(ctx, s.EventCompanyID, "Strategy ready for review",
			fmt.Sprintf("%q is waiting for your review", s.Title), e.link("/strategies/"+s.ID))
	})
	return s, nil
}

// ItemDecision is the result of a review decision on one item.
type ItemDecision struct {
	Item            domain.StrategyItem `json:"item"`
	Strategy        domain.Strategy     `json:"strategy"`
	StrategyChanged bool                `json:"strategy_changed"`
}

// UpdateItemStatus records a review decision on one item and recomputes the
// owning strategy's status from all item statuses in the same transaction.
func (e Engine) UpdateItemStatus(ctx context.Context, itemID, status, callerID string) (ItemDecision, error) {
	switch status {
	case domain.ItemApproved, domain.ItemRejected, domain.ItemModified:
	default:
		return ItemDecision{}, ValidationError{Field: "status", Reason: "must be approved, rejected or modified"}
	}
	it, err := e.Repo.GetStrategyItem(ctx, itemID)
	if err != nil {
		return ItemDecision{}, err
	}
	s, err := e.Repo.GetStrategy(ctx, it.StrategyID)
	if err != nil {
		return ItemDecision{}, err
	}
	ec, err := e.Repo.GetEventCompany(ctx, s.EventCompanyID)
	if err != nil {
		return ItemDecision{}, err
	}
	p, err := e.resolveFor(ctx, callerID, ec.CompanyID)
	if err != nil {
		return ItemDecision{}, err
	}
	if s.Status != domain.StrategyPendingReview && s.Status != domain.StrategyChangesRequested {
		return ItemDecision{}, InvalidTransitionError{Entity: "strategy item", From: s.Status, Action: "review"}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return ItemDecision{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateItemStatusTx(ctx, tx, it.ID, status); err != nil {
		return ItemDecision{}, err
	}
	statuses, err := e.Repo.ListItemStatusesTx(ctx, tx, s.ID)
	if err != nil {
		return ItemDecision{}, err
	}
	next := rollup(statuses, s.Status)
	changed := next != s.Status
	if changed {
		if err := e.Repo.UpdateStrategyStatusTx(ctx, tx, s.ID, next, s.Version, e.stamp()); err != nil {
			return ItemDecision{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return ItemDecision{}, err
	}
	it.Status = status
	s.Status = next

	if changed {
		switch next {
		case domain.StrategyApproved:
			e.Activities.Record(ctx, "strategy.approved", fmt.Sprintf("strategy %q approved", s.Title), callerID, activity.Refs{StrategyID: s.ID})
		case domain.StrategyChangesRequested:
			e.Activities.Record(ctx, "strategy.changes_requested", fmt.Sprintf("changes requested on strategy %q", s.Title), callerID, activity.Refs{StrategyID: s.ID})
		}
	}
	if !p.IsAgency() && (status == domain.ItemApproved || status == domain.ItemRejected) {
		e.Notify.Dispatch(ctx, func(ctx context.Context) error {
			return e.Notify.NotifyAgency(ctx, s.EventCompanyID, "Strategy item reviewed",
				fmt.Sprintf("item %q was %s on strategy %q", it.Title, status, s.Title), e.link("/strategies/"+s.ID))
		})
	}
	return ItemDecision{Item: it, Strategy: s, StrategyChanged: changed}, nil
}

// rollup derives a strategy status from its item statuses. It is computed
// from scratch on every decision rather than kept as a counter.
func rollup(statuses []string, current string) string {
	if len(statuses) == 0 {
		return current
	}
	allApproved := true
	for _, st := range statuses {
		if st == domain.ItemRejected {
			return domain.StrategyChangesRequested
		}
		if st != domain.ItemApproved {
			allApproved = false
		}
	}
	if allApproved {
		return domain.StrategyApproved
	}
	return current
}

// ResubmitStrategy starts a new review round after changes were requested.
// Item statuses reset to pending and the version increments, both in the
// same transaction as the status change.
func (e Engine) ResubmitStrategy(ctx context.Context, strategyID, callerID string) (domain.Strategy, error) {
	if _, err := e.resolveAgency(ctx, callerID); err != nil {
		return domain.Strategy{}, err
	}
	s, err := e.Repo.GetStrategy(ctx, strategyID)
	if err != nil {
		return domain.Strategy{}, err
	}
	if s.Status != domain.StrategyChangesRequested {
		return domain.Strategy{}, InvalidTransitionError{Entity: "strategy", From: s.Status, Action: "resubmit"}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Strategy{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.ResetItemsTx(ctx, tx, s.ID); err != nil {
		return domain.Strategy{}, err
	}
	if err := e.Repo.UpdateStrategyStatusTx(ctx, tx, s.ID, domain.StrategyPendingReview, s.Version+1, e.stamp()); err != nil {
		return domain.Strategy{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Strategy{}, err
	}
	s.Status = domain.StrategyPendingReview
	s.Version++

	e.Activities.Record(ctx, "strategy.resubmitted", fmt.Sprintf("strategy %q resubmitted (v%d)", s.Title, s.Version), callerID, activity.Refs{StrategyID: s.ID})
	e.Notify.Dispatch(ctx, func(ctx context.Context) error {
		return e.Notify.NotifyClient(ctx, s.EventCompanyID, "Strategy updated",
			fmt.Sprintf("%q was revised and is ready for another review (v%d)", s.Title, s.Version), e.link("/strategies/"+s.ID))
	})
	return s, nil
}

// StrategyUpdateOptions encapsulates allowed content edits.
type StrategyUpdateOptions struct {
	ID          string
	Title       *string
	Description *string
	ContentJSON *string
	ActorID     string
}

// EditStrategy updates content fields without touching status or version.
func (e Engine) EditStrategy(ctx context.Context, opts StrategyUpdateOptions) (domain.Strategy, error) {
	if _, err := e.resolveAgency(ctx, opts.ActorID); err != nil {
		return domain.Strategy{}, err
	}
	s, err := e.Repo.GetStrategy(ctx, opts.ID)
	if err != nil {
		return domain.Strategy{}, err
	}
	if opts.Title != nil {
		if *opts.Title == "" {
			return domain.Strategy{}, ValidationError{Field: "title", Reason: "required"}
		}
		s.Title = *opts.Title
	}
	if opts.Description != nil {
		s.Description = *opts.Description
	}
	if opts.ContentJSON != nil {
		s.ContentJSON = opts.ContentJSON
	}
	s.UpdatedAt = e.stamp()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Strategy{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateStrategyContent(ctx, tx, s); err != nil {
		return domain.Strategy{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Strategy{}, err
	}
	e.Activities.Record(ctx, "strategy.edited", fmt.Sprintf("strategy %q edited", s.Title), opts.ActorID, activity.Refs{StrategyID: s.ID})
	return s, nil
}

// ItemUpdateOptions encapsulates allowed item content edits.
type ItemUpdateOptions struct {
	ID          string
	Title       *string
	Description *string
	ContentJSON *string
	ActorID     string
}

// EditStrategyItem updates item content without touching its review status.
func (e Engine) EditStrategyItem(ctx context.Context, opts ItemUpdateOptions) (domain.StrategyItem, error) {
	if _, err := e.resolveAgency(ctx, opts.ActorID); err != nil {
		return domain.StrategyItem{}, err
	}
	it, err := e.Repo.GetStrategyItem(ctx, opts.ID)
	if err != nil {
		return domain.StrategyItem{}, err
	}
	if opts.Title != nil {
		if *opts.Title == "" {
			return domain.StrategyItem{}, ValidationError{Field: "title", Reason: "required"}
		}
		it.Title = *opts.Title
	}
	if opts.Description != nil {
		it.Description = *opts.Description
	}
	if opts.ContentJSON != nil {
		it.ContentJSON = opts.ContentJSON
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.StrategyItem{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateStrategyItemContent(ctx, tx, it); err != nil {
		return domain.StrategyItem{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.StrategyItem{}, err
	}
	e.Activities.Record(ctx, "strategy.item_edited", fmt.Sprintf("item %q edited", it.Title), opts.ActorID, activity.Refs{StrategyID: it.StrategyID})
	return it, nil
}

package engine

import (
	"context"

	"growthdesk/internal/domain"
)

// RollupProgress summarizes the review state of a strategy's items.
type RollupProgress struct {
	StrategyID string         `json:"strategy_id"`
	Status     string         `json:"status"`
	Version    int            `json:"version"`
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
}

func (e Engine) StrategyProgress(ctx context.Context, strategyID string) (RollupProgress, error) {
	s, err := e.Repo.GetStrategy(ctx, strategyID)
	if err != nil {
		return RollupProgress{}, err
	}
	counts, err := e.Repo.CountItemsByStatus(ctx, s.ID)
	if err != nil {
		return RollupProgress{}, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return RollupProgress{
		StrategyID: s.ID,
		Status:     s.Status,
		Version:    s.Version,
		Total:      total,
		ByStatus:   counts,
	}, nil
}

// PendingReview bundles everything waiting on a company's decision.
type PendingReview struct {
	Strategies   []domain.Strategy    `json:"strategies"`
	Deliverables []domain.Deliverable `json:"deliverables"`
}

// ListPendingForCompany returns the strategies and deliverables currently
// awaiting review by the given company. Access is limited to that company's
// own users and agency staff.
func (e Engine) ListPendingForCompany(ctx context.Context, companyID, callerID string) (PendingReview, error) {
	if _, err := e.resolveFor(ctx, callerID, companyID); err != nil {
		return PendingReview{}, err
	}
	if _, err := e.Repo.GetCompany(ctx, companyID); err != nil {
		return PendingReview{}, err
	}
	strategies, deliverables, err := e.Repo.ListPendingForCompany(ctx, companyID)
	if err != nil {
		return PendingReview{}, err
	}
	return PendingReview{Strategies: strategies, Deliverables: deliverables}, nil
}

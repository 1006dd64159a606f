package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"growthdesk/internal/activity"
	"growthdesk/internal/domain"
	"growthdesk/internal/engine/access"
)

// DeliverableCreateOptions are parameters for creating a deliverable.
type DeliverableCreateOptions struct {
	ID             string
	EventCompanyID string
	Title          string
	Description    string
	Type           string
	ContentJSON    string
	FileRef        string
	ActorID        string
}

func (e Engine) CreateDeliverable(ctx context.Context, opts DeliverableCreateOptions) (domain.Deliverable, error) {
	if opts.Title == "" {
		return domain.Deliverable{}, ValidationError{Field: "title", Reason: "required"}
	}
	if !e.Config.KnownDeliverableType(opts.Type) {
		return domain.Deliverable{}, ValidationError{Field: "type", Reason: fmt.Sprintf("unknown deliverable type %q", opts.Type)}
	}
	if _, err := e.resolveAgency(ctx, opts.ActorID); err != nil {
		return domain.Deliverable{}, err
	}
	if _, err := e.Repo.GetEventCompany(ctx, opts.EventCompanyID); err != nil {
		return domain.Deliverable{}, err
	}
	d := domain.Deliverable{
		ID:             opts.ID,
		EventCompanyID: opts.EventCompanyID,
		Title:          opts.Title,
		Description:    opts.Description,
		Type:           opts.Type,
		Status:         domain.DeliverableDraft,
		Version:        1,
		CreatedAt:      e.stamp(),
		UpdatedAt:      e.stamp(),
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if opts.ContentJSON != "" {
		d.ContentJSON = &opts.ContentJSON
	}
	if opts.FileRef != "" {
		d.FileRef = &opts.FileRef
	}
	if err := e.Repo.InsertDeliverable(ctx, d); err != nil {
		return domain.Deliverable{}, fmt.Errorf("insert deliverable: %w", err)
	}
	e.Activities.Record(ctx, "deliverable.created", fmt.Sprintf("deliverable %q created", d.Title), opts.ActorID, activity.Refs{DeliverableID: d.ID})
	return d, nil
}

// SubmitDeliverable moves a draft deliverable into client review.
func (e Engine) SubmitDeliverable(ctx context.Context, deliverableID, callerID string) (domain.Deliverable, error) {
	if _, err := e.resolveAgency(ctx, callerID); err != nil {
		return domain.Deliverable{}, err
	}
	d, err := e.Repo.GetDeliverable(ctx, deliverableID)
	if err != nil {
		return domain.Deliverable{}, err
	}
	if d.Status != domain.DeliverableDraft {
		return domain.Deliverable{}, InvalidTransitionError{Entity: "deliverable", From: d.Status, Action: "submit"}
	}
	if err := e.setDeliverableStatus(ctx, &d, domain.DeliverableInReview, d.Version); err != nil {
		return domain.Deliverable{}, err
	}
	e.Activities.Record(ctx, "deliverable.submitted", fmt.Sprintf("deliverable %q submitted for review", d.Title), callerID, activity.Refs{DeliverableID: d.ID})
	e.Notify.Dispatch(ctx, func(ctx context.Context) error {
		return e.Notify.NotifyClient(ctx, d.EventCompanyID, "Deliverable ready for review",
			fmt.Sprintf("%q is waiting for your review", d.Title), e.link("/deliverables/"+d.ID))
	})
	return d, nil
}

// ApproveDeliverable approves a deliverable under client review. A client
// can also approve after having requested changes, without a resubmission.
func (e Engine) ApproveDeliverable(ctx context.Context, deliverableID, callerID string) (domain.Deliverable, error) {
	d, p, err := e.resolveDeliverable(ctx, deliverableID, callerID)
	if err != nil {
		return domain.Deliverable{}, err
	}
	if d.Status != domain.DeliverableInReview && d.Status != domain.DeliverableChangesRequested {
		return domain.Deliverable{}, InvalidTransitionError{Entity: "deliverable", From: d.Status, Action: "approve"}
	}
	if err := e.setDeliverableStatus(ctx, &d, domain.DeliverableApproved, d.Version); err != nil {
		return domain.Deliverable{}, err
	}
	e.Activities.Record(ctx, "deliverable.approved", fmt.Sprintf("deliverable %q approved", d.Title), callerID, activity.Refs{DeliverableID: d.ID})
	if !p.IsAgency() {
		e.Notify.Dispatch(ctx, func(ctx context.Context) error {
			return e.Notify.NotifyAgency(ctx, d.EventCompanyID, "Deliverable approved",
				fmt.Sprintf("%q was approved", d.Title), e.link("/deliverables/"+d.ID))
		})
	}
	return d, nil
}

// RequestDeliverableChanges sends a deliverable back to the agency. Unlike
// approve, it is only allowed while the deliverable is in review.
func (e Engine) RequestDeliverableChanges(ctx context.Context, deliverableID, callerID string) (domain.Deliverable, error) {
	d, p, err := e.resolveDeliverable(ctx, deliverableID, callerID)
	if err != nil {
		return domain.Deliverable{}, err
	}
	if d.Status != domain.DeliverableInReview {
		return domain.Deliverable{}, InvalidTransitionError{Entity: "deliverable", From: d.Status, Action: "request changes on"}
	}
	if err := e.setDeliverableStatus(ctx, &d, domain.DeliverableChangesRequested, d.Version); err != nil {
		return domain.Deliverable{}, err
	}
	e.Activities.Record(ctx, "deliverable.changes_requested", fmt.Sprintf("changes requested on deliverable %q", d.Title), callerID, activity.Refs{DeliverableID: d.ID})
	if !p.IsAgency() {
		e.Notify.Dispatch(ctx, func(ctx context.Context) error {
			return e.Notify.NotifyAgency(ctx, d.EventCompanyID, "Changes requested",
				fmt.Sprintf("changes were requested on %q", d.Title), e.link("/deliverables/"+d.ID))
		})
	}
	return d, nil
}

// ResubmitDeliverable starts a new review round with an incremented version.
func (e Engine) ResubmitDeliverable(ctx context.Context, deliverableID, callerID string) (domain.Deliverable, error) {
	if _, err := e.resolveAgency(ctx, callerID); err != nil {
		return domain.Deliverable{}, err
	}
	d, err := e.Repo.GetDeliverable(ctx, deliverableID)
	if err != nil {
		return domain.Deliverable{}, err
	}
	if d.Status != domain.DeliverableChangesRequested {
		return domain.Deliverable{}, InvalidTransitionError{Entity: "deliverable", From: d.Status, Action: "resubmit"}
	}
	if err := e.setDeliverableStatus(ctx, &d, domain.DeliverableInReview, d.Version+1); err != nil {
		return domain.Deliverable{}, err
	}
	e.Activities.Record(ctx, "deliverable.resubmitted", fmt.Sprintf("deliverable %q resubmitted (v%d)", d.Title, d.Version), callerID, activity.Refs{DeliverableID: d.ID})
	e.Notify.Dispatch(ctx, func(ctx context.Context) error {
		return e.Notify.NotifyClient(ctx, d.EventCompanyID, "Deliverable updated",
			fmt.Sprintf("%q was revised and is ready for another review (v%d)", d.Title, d.Version), e.link("/deliverables/"+d.ID))
	})
	return d, nil
}

// MarkDelivered records final handoff of an approved deliverable.
// Delivered is terminal.
func (e Engine) MarkDelivered(ctx context.Context, deliverableID, callerID string) (domain.Deliverable, error) {
	if _, err := e.resolveAgency(ctx, callerID); err != nil {
		return domain.Deliverable{}, err
	}
	d, err := e.Repo.GetDeliverable(ctx, deliverableID)
	if err != nil {
		return domain.Deliverable{}, err
	}
	if d.Status != domain.DeliverableApproved {
		return domain.Deliverable{}, InvalidTransitionError{Entity: "deliverable", From: d.Status, Action: "deliver"}
	}
	if err := e.setDeliverableStatus(ctx, &d, domain.DeliverableDelivered, d.Version); err != nil {
		return domain.Deliverable{}, err
	}
	e.Activities.Record(ctx, "deliverable.delivered", fmt.Sprintf("deliverable %q delivered", d.Title), callerID, activity.Refs{DeliverableID: d.ID})
	e.Notify.Dispatch(ctx, func(ctx context.Context) error {
		return e.Notify.NotifyClient(ctx, d.EventCompanyID, "Deliverable delivered",
			fmt.Sprintf("%q has been delivered", d.Title), e.link("/deliverables/"+d.ID))
	})
	return d, nil
}

// DeliverableUpdateOptions encapsulates allowed content edits.
type DeliverableUpdateOptions struct {
	ID          string
	Title       *string
	Description *string
	Type        *string
	ContentJSON *string
	FileRef     *string
	ActorID     string
}

// EditDeliverable updates content fields without touching status or version.
func (e Engine) EditDeliverable(ctx context.Context, opts DeliverableUpdateOptions) (domain.Deliverable, error) {
	if _, err := e.resolveAgency(ctx, opts.ActorID); err != nil {
		return domain.Deliverable{}, err
	}
	d, err := e.Repo.GetDeliverable(ctx, opts.ID)
	if err != nil {
		return domain.Deliverable{}, err
	}
	if opts.Title != nil {
		if *opts.Title == "" {
			return domain.Deliverable{}, ValidationError{Field: "title", Reason: "required"}
		}
		d.Title = *opts.Title
	}
	if opts.Description != nil {
		d.Description = *opts.Description
	}
	if opts.Type != nil {
		if !e.Config.KnownDeliverableType(*opts.Type) {
			return domain.Deliverable{}, ValidationError{Field: "type", Reason: fmt.Sprintf("unknown deliverable type %q", *opts.Type)}
		}
		d.Type = *opts.Type
	}
	if opts.ContentJSON != nil {
		d.ContentJSON = opts.ContentJSON
	}
	if opts.FileRef != nil {
		d.FileRef = opts.FileRef
	}
	d.UpdatedAt = e.stamp()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Deliverable{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateDeliverableContent(ctx, tx, d); err != nil {
		return domain.Deliverable{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Deliverable{}, err
	}
	e.Activities.Record(ctx, "deliverable.edited", fmt.Sprintf("deliverable %q edited", d.Title), opts.ActorID, activity.Refs{DeliverableID: d.ID})
	return d, nil
}

func (e Engine) setDeliverableStatus(ctx context.Context, d *domain.Deliverable, status string, version int) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateDeliverableStatusTx(ctx, tx, d.ID, status, version, e.stamp()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	d.Status = status
	d.Version = version
	d.UpdatedAt = e.stamp()
	return nil
}

func (e Engine) resolveDeliverable(ctx context.Context, deliverableID, callerID string) (domain.Deliverable, access.Principal, error) {
	d, err := e.Repo.GetDeliverable(ctx, deliverableID)
	if err != nil {
		return domain.Deliverable{}, access.Principal{}, err
	}
	ec, err := e.Repo.GetEventCompany(ctx, d.EventCompanyID)
	if err != nil {
		return domain.Deliverable{}, access.Principal{}, err
	}
	p, err := e.resolveFor(ctx, callerID, ec.CompanyID)
	if err != nil {
		return domain.Deliverable{}, access.Principal{}, err
	}
	return d, p, nil
}

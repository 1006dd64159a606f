package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"growthdesk/internal/activity"
	"growthdesk/internal/domain"
)

// CommentCreateOptions posts a comment on a strategy or a deliverable.
// Exactly one of StrategyID and DeliverableID must be set.
type CommentCreateOptions struct {
	ID            string
	StrategyID    string
	DeliverableID string
	Body          string
	AuthorID      string
}

func (e Engine) AddComment(ctx context.Context, opts CommentCreateOptions) (domain.Comment, error) {
	if opts.Body == "" {
		return domain.Comment{}, ValidationError{Field: "body", Reason: "required"}
	}
	if (opts.StrategyID == "") == (opts.DeliverableID == "") {
		return domain.Comment{}, ValidationError{Field: "target", Reason: "exactly one of strategy_id and deliverable_id is required"}
	}

	var eventCompanyID, title, link string
	refs := activity.Refs{}
	if opts.StrategyID != "" {
		s, err := e.Repo.GetStrategy(ctx, opts.StrategyID)
		if err != nil {
			return domain.Comment{}, err
		}
		eventCompanyID, title = s.EventCompanyID, s.Title
		link = e.link("/strategies/" + s.ID)
		refs.StrategyID = s.ID
	} else {
		d, err := e.Repo.GetDeliverable(ctx, opts.DeliverableID)
		if err != nil {
			return domain.Comment{}, err
		}
		eventCompanyID, title = d.EventCompanyID, d.Title
		link = e.link("/deliverables/" + d.ID)
		refs.DeliverableID = d.ID
	}
	ec, err := e.Repo.GetEventCompany(ctx, eventCompanyID)
	if err != nil {
		return domain.Comment{}, err
	}
	if _, err := e.resolveFor(ctx, opts.AuthorID, ec.CompanyID); err != nil {
		return domain.Comment{}, err
	}

	c := domain.Comment{
		ID:        opts.ID,
		AuthorID:  opts.AuthorID,
		Body:      opts.Body,
		CreatedAt: e.stamp(),
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if opts.StrategyID != "" {
		c.StrategyID = &opts.StrategyID
	} else {
		c.DeliverableID = &opts.DeliverableID
	}
	if err := e.Repo.InsertComment(ctx, c); err != nil {
		return domain.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	e.Activities.Record(ctx, "comment.added", fmt.Sprintf("comment on %q", title), opts.AuthorID, refs)
	e.Notify.Dispatch(ctx, func(ctx context.Context) error {
		return e.Notify.NotifyCounterparty(ctx, opts.AuthorID, eventCompanyID, "New comment",
			fmt.Sprintf("new comment on %q", title), link)
	})
	return c, nil
}

// QuestionCreateOptions posts a client question scoped to an event company.
type QuestionCreateOptions struct {
	ID             string
	EventCompanyID string
	Body           string
	AuthorID       string
}

func (e Engine) AddQuestion(ctx context.Context, opts QuestionCreateOptions) (domain.Question, error) {
	if opts.Body == "" {
		return domain.Question{}, ValidationError{Field: "body", Reason: "required"}
	}
	ec, err := e.Repo.GetEventCompany(ctx, opts.EventCompanyID)
	if err != nil {
		return domain.Question{}, err
	}
	if _, err := e.resolveFor(ctx, opts.AuthorID, ec.CompanyID); err != nil {
		return domain.Question{}, err
	}
	q := domain.Question{
		ID:             opts.ID,
		EventCompanyID: opts.EventCompanyID,
		AuthorID:       opts.AuthorID,
		Body:           opts.Body,
		CreatedAt:      e.stamp(),
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if err := e.Repo.InsertQuestion(ctx, q); err != nil {
		return domain.Question{}, fmt.Errorf("insert question: %w", err)
	}
	e.Activities.Record(ctx, "question.asked", "question asked", opts.AuthorID, activity.Refs{})
	e.Notify.Dispatch(ctx, func(ctx context.Context) error {
		return e.Notify.NotifyCounterparty(ctx, opts.AuthorID, opts.EventCompanyID, "New question",
			"a question is waiting for an answer", e.link("/questions/"+q.ID))
	})
	return q, nil
}

// AnswerQuestion records an agency answer and notifies the asking side.
func (e Engine) AnswerQuestion(ctx context.Context, questionID, answer, callerID string) (domain.Question, error) {
	if answer == "" {
		return domain.Question{}, ValidationError{Field: "answer", Reason: "required"}
	}
	if _, err := e.resolveAgency(ctx, callerID); err != nil {
		return domain.Question{}, err
	}
	q, err := e.Repo.GetQuestion(ctx, questionID)
	if err != nil {
		return domain.Question{}, err
	}
	if err := e.Repo.AnswerQuestion(ctx, q.ID, answer); err != nil {
		return domain.Question{}, err
	}
	q.AnswerBody = &answer
	e.Activities.Record(ctx, "question.answered", "question answered", callerID, activity.Refs{})
	e.Notify.Dispatch(ctx, func(ctx context.Context) error {
		return e.Notify.NotifyClient(ctx, q.EventCompanyID, "Question answered",
			"your question was answered", e.link("/questions/"+q.ID))
	})
	return q, nil
}

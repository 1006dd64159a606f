package server

// Request payloads. Responses reuse the domain types, which carry the
// schema tags huma needs.

type CreateCompanyRequest struct {
	ID      *string `json:"id,omitempty"`
	Name    string  `json:"name"`
	Website *string `json:"website,omitempty"`
}

type CreateUserRequest struct {
	ID        *string `json:"id,omitempty"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	Role      string  `json:"role" enum:"agency_admin,agency_member,client"`
	CompanyID *string `json:"company_id,omitempty"`
}

type CreateEventRequest struct {
	ID          *string `json:"id,omitempty"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	StartsAt    *string `json:"starts_at,omitempty" format:"date-time"`
	EndsAt      *string `json:"ends_at,omitempty" format:"date-time"`
}

type LinkCompanyRequest struct {
	CompanyID string `json:"company_id"`
}

type CreateStrategyRequest struct {
	ID             *string `json:"id,omitempty"`
	EventCompanyID string  `json:"event_company_id"`
	Title          string  `json:"title"`
	Description    *string `json:"description,omitempty"`
	ContentJSON    *string `json:"content_json,omitempty"`
}

type UpdateStrategyRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	ContentJSON *string `json:"content_json,omitempty"`
}

type CreateStrategyItemRequest struct {
	ID          *string `json:"id,omitempty"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	ContentJSON *string `json:"content_json,omitempty"`
	SortOrder   *int    `json:"sort_order,omitempty"`
}

type UpdateStrategyItemRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	ContentJSON *string `json:"content_json,omitempty"`
}

type ItemDecisionRequest struct {
	Status string `json:"status" enum:"approved,rejected,modified"`
}

type CreateDeliverableRequest struct {
	ID             *string `json:"id,omitempty"`
	EventCompanyID string  `json:"event_company_id"`
	Title          string  `json:"title"`
	Description    *string `json:"description,omitempty"`
	Type           string  `json:"type"`
	ContentJSON    *string `json:"content_json,omitempty"`
	FileRef        *string `json:"file_ref,omitempty"`
}

type UpdateDeliverableRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Type        *string `json:"type,omitempty"`
	ContentJSON *string `json:"content_json,omitempty"`
	FileRef     *string `json:"file_ref,omitempty"`
}

type CreateCommentRequest struct {
	ID            *string `json:"id,omitempty"`
	StrategyID    *string `json:"strategy_id,omitempty"`
	DeliverableID *string `json:"deliverable_id,omitempty"`
	Body          string  `json:"body"`
}

type CreateQuestionRequest struct {
	ID             *string `json:"id,omitempty"`
	EventCompanyID string  `json:"event_company_id"`
	Body           string  `json:"body"`
}

type AnswerQuestionRequest struct {
	Answer string `json:"answer"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}

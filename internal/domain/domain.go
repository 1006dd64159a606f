package domain

// Strategy statuses.
const (
	StrategyDraft            = "draft"
	StrategyPendingReview    = "pending_review"
	StrategyApproved         = "approved"
	StrategyChangesRequested = "changes_requested"
)

// StrategyItem statuses.
const (
	ItemPending  = "pending"
	ItemApproved = "approved"
	ItemRejected = "rejected"
	ItemModified = "modified"
)

// Deliverable statuses.
const (
	DeliverableDraft            = "draft"
	DeliverableInReview         = "in_review"
	DeliverableApproved         = "approved"
	DeliverableChangesRequested = "changes_requested"
	DeliverableDelivered        = "delivered"
)

// User roles.
const (
	RoleAgencyAdmin  = "agency_admin"
	RoleAgencyMember = "agency_member"
	RoleClient       = "client"
)

type Company struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Website   string `json:"website,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type User struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	Role      string  `json:"role" enum:"agency_admin,agency_member,client"`
	CompanyID *string `json:"company_id,omitempty"`
	CreatedAt string  `json:"created_at" format:"date-time"`
}

type Event struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	StartsAt    string `json:"starts_at,omitempty" format:"date-time"`
	EndsAt      string `json:"ends_at,omitempty" format:"date-time"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

// EventCompany binds one client company to one event. It is the anchor for
// strategy/deliverable ownership and for notification audience resolution.
type EventCompany struct {
	ID        string `json:"id"`
	EventID   string `json:"event_id"`
	CompanyID string `json:"company_id"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Strategy struct {
	ID             string  `json:"id"`
	EventCompanyID string  `json:"event_company_id"`
	Title          string  `json:"title"`
	Description    string  `json:"description,omitempty"`
	ContentJSON    *string `json:"content_json,omitempty"`
	Status         string  `json:"status" enum:"draft,pending_review,approved,changes_requested"`
	Version        int     `json:"version"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
	UpdatedAt      string  `json:"updated_at" format:"date-time"`
}

type StrategyItem struct {
	ID          string  `json:"id"`
	StrategyID  string  `json:"strategy_id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	ContentJSON *string `json:"content_json,omitempty"`
	SortOrder   int     `json:"sort_order"`
	Status      string  `json:"status" enum:"pending,approved,rejected,modified"`
}

type Deliverable struct {
	ID             string  `json:"id"`
	EventCompanyID string  `json:"event_company_id"`
	Title          string  `json:"title"`
	Description    string  `json:"description,omitempty"`
	Type           string  `json:"type"`
	Status         string  `json:"status" enum:"draft,in_review,approved,changes_requested,delivered"`
	Version        int     `json:"version"`
	ContentJSON    *string `json:"content_json,omitempty"`
	FileRef        *string `json:"file_ref,omitempty"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
	UpdatedAt      string  `json:"updated_at" format:"date-time"`
}

type Comment struct {
	ID            string  `json:"id"`
	StrategyID    *string `json:"strategy_id,omitempty"`
	DeliverableID *string `json:"deliverable_id,omitempty"`
	AuthorID      string  `json:"author_id"`
	Body          string  `json:"body"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
}

type Question struct {
	ID             string  `json:"id"`
	EventCompanyID string  `json:"event_company_id"`
	AuthorID       string  `json:"author_id"`
	Body           string  `json:"body"`
	AnswerBody     *string `json:"answer_body,omitempty"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
}

// Activity is one append-only audit row. The core never mutates or deletes it.
type Activity struct {
	ID            int64   `json:"id"`
	Type          string  `json:"type"`
	Message       string  `json:"message"`
	ActorID       string  `json:"actor_id"`
	StrategyID    *string `json:"strategy_id,omitempty"`
	DeliverableID *string `json:"deliverable_id,omitempty"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
}

type Notification struct {
	ID        int64   `json:"id"`
	UserID    string  `json:"user_id"`
	Title     string  `json:"title"`
	Message   string  `json:"message"`
	Link      *string `json:"link,omitempty"`
	Read      bool    `json:"read"`
	CreatedAt string  `json:"created_at" format:"date-time"`
}

type APIKey struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"growthdesk/internal/domain"
)

// DeniedError indicates the caller's role or company does not authorize the
// operation.
type DeniedError struct {
	Reason string
}

func (e DeniedError) Error() string {
	return fmt.Sprintf("access denied: %s", e.Reason)
}

// Principal is the resolved identity the workflow engine authorizes against.
type Principal struct {
	UserID    string
	Role      string
	CompanyID string
}

func (p Principal) IsAgency() bool {
	return strings.HasPrefix(p.Role, "agency_")
}

func (p Principal) IsAgencyAdmin() bool {
	return p.Role == domain.RoleAgencyAdmin
}

// Service resolves caller roles and company affiliations from the users table.
type Service struct {
	DB *sql.DB
}

// Resolve looks up the caller. The engine consults the result as a predicate
// only; the caller id is always passed explicitly, never taken from ambient
// request state.
func (s Service) Resolve(ctx context.Context, userID string) (Principal, error) {
	if strings.TrimSpace(userID) == "" {
		return Principal{}, errors.New("caller id required")
	}
	var p Principal
	var companyID sql.NullString
	err := s.DB.QueryRowContext(ctx, `SELECT id, role, company_id FROM users WHERE id=?`, userID).
		Scan(&p.UserID, &p.Role, &companyID)
	if err == sql.ErrNoRows {
		return Principal{}, DeniedError{Reason: fmt.Sprintf("unknown caller %s", userID)}
	}
	if err != nil {
		return Principal{}, err
	}
	if companyID.Valid {
		p.CompanyID = companyID.String
	}
	return p, nil
}

// RequireAgency passes only for agency callers.
func (s Service) RequireAgency(p Principal) error {
	if !p.IsAgency() {
		return DeniedError{Reason: "agency role required"}
	}
	return nil
}

// RequireCompanyOrAgency passes for agency callers, and for client callers
// whose company matches the entity's owning company.
func (s Service) RequireCompanyOrAgency(p Principal, companyID string) error {
	if p.IsAgency() {
		return nil
	}
	if p.CompanyID == "" || p.CompanyID != companyID {
		return DeniedError{Reason: "caller company does not own this entity"}
	}
	return nil
}

package members

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

var (
	// ErrGroupNotFound indicates the group does not exist.
	ErrGroupNotFound = errors.New("members: group not found")
	// ErrDuplicateMember indicates the national id is already registered.
	ErrDuplicateMember = errors.New("members: national id already registered")
	// ErrDuplicateName indicates a group, employer or occupation name clash.
	ErrDuplicateName = errors.New("members: name already registered")
	// ErrMemberInactive blocks ledger writes for deactivated members.
	ErrMemberInactive = errors.New("members: member is deactivated")
	// ErrEmploymentTarget indicates an unknown employer or occupation.
	ErrEmploymentTarget = errors.New("members: employer or occupation not found")
)

// FeeLimitError reports a registration fee above the per-member maximum.
type FeeLimitError struct {
	Paid      decimal.Decimal
	Attempted decimal.Decimal
	Cap       decimal.Decimal
}

func (e *FeeLimitError) Error() string {
	return fmt.Sprintf("members: registration fee %s exceeds allowance %s (cap %s)",
		e.Attempted.StringFixed(2), e.Cap.Sub(e.Paid).StringFixed(2), e.Cap.StringFixed(2))
}

func (e *FeeLimitError) StatusCode() int { return http.StatusUnprocessableEntity }

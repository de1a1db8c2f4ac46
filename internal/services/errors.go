// internal/services/errors.go
package services

import (
	"errors"
	"fmt"

	"github.com/javajoker/estate-backend/internal/models"
	"github.com/javajoker/estate-backend/internal/templates"
)

var (
	ErrTemplateNotFound = templates.ErrTemplateNotFound

	ErrRecordNotFound   = errors.New("record not found")
	ErrAlreadySigned    = errors.New("section already signed")
	ErrAlreadyProcessed = errors.New("application already processed")
	ErrRoleMismatch     = errors.New("role does not match section")
	ErrInvalidSignature = errors.New("signature must be a non-empty base64 image")
	ErrNotContractOwner = errors.New("only the contract author may manage it")

	ErrTokenInvalid = errors.New("signing token is invalid")
	// ErrTokenExpired and ErrTokenRoleMismatch also match their parent kind
	// under errors.Is.
	ErrTokenExpired      = fmt.Errorf("%w: expired", ErrTokenInvalid)
	ErrTokenRoleMismatch = fmt.Errorf("%w: token is not valid for this section", ErrRoleMismatch)

	ErrNotEarlyAccess     = errors.New("profile is not an early-access application")
	ErrAlreadyApplied     = errors.New("early-access application already submitted")
	ErrQuotaExceeded      = errors.New("early-access quota exceeded")
	ErrQuotaNotConfigured = errors.New("no early-access quota configured for role")
	ErrInvalidAction      = errors.New("action must be approve or reject")
	ErrInvalidQuota       = errors.New("invalid quota update")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrAccountSuspended   = errors.New("account is suspended")
	ErrStorageUnavailable = errors.New("document storage not configured")
)

// ExternalServiceError reports a failed call to a third party that happened
// after the primary state change committed.
type ExternalServiceError struct {
	Service string `json:"service"`
	Op      string `json:"op"`
	Err     error  `json:"-"`
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Service, e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// QuotaError ties a quota failure to the role it concerns. It matches
// ErrQuotaExceeded or ErrQuotaNotConfigured under errors.Is.
type QuotaError struct {
	Role models.UserRole
	Err  error
}

func (e *QuotaError) Error() string { return fmt.Sprintf("%v: %s", e.Err, e.Role) }

func (e *QuotaError) Unwrap() error { return e.Err }

// notFound wraps ErrRecordNotFound with the kind of record that was missing.
func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, ErrRecordNotFound)
}

// internal/models/signing.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// SigningToken lets an external party sign the sections of one contract role.
// Only the SHA-256 of the bearer token is stored.
type SigningToken struct {
	BaseModel
	ContractID  uuid.UUID    `json:"contract_id" gorm:"type:uuid;not null;index"`
	Role        ContractRole `json:"role" gorm:"type:varchar(20);not null"`
	SignerName  string       `json:"signer_name" gorm:"size:255;not null"`
	SignerEmail string       `json:"signer_email" gorm:"size:255;not null;index"`
	TokenHash   string       `json:"-" gorm:"size:64;not null;uniqueIndex"`
	ExpiresAt   time.Time    `json:"expires_at" gorm:"index"`
	RevokedAt   *time.Time   `json:"revoked_at"`
	ConsumedAt  *time.Time   `json:"consumed_at"`
	IssuedBy    *uuid.UUID   `json:"issued_by" gorm:"type:uuid"`

	// Relationships
	Contract Contract `json:"-" gorm:"foreignKey:ContractID"`
}

func (t *SigningToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t *SigningToken) Revoked() bool {
	return t.RevokedAt != nil
}

// Consumed reports whether the token's role had nothing left to sign when it
// was last used. A consumed token still resolves but signs nothing new.
func (t *SigningToken) Consumed() bool {
	return t.ConsumedAt != nil
}

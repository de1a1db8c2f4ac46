// internal/models/contract.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Contract struct {
	BaseModel
	Title       string         `json:"title" gorm:"size:255;not null"`
	Description string         `json:"description" gorm:"type:text"`
	DocumentURL string         `json:"document_url" gorm:"size:1024"`
	DocumentKey string         `json:"-" gorm:"size:512"`
	CreatedBy   uuid.UUID      `json:"created_by" gorm:"type:uuid;not null;index"`
	CCEmails    pq.StringArray `json:"cc_emails" gorm:"type:text"`

	// Status is derived from Sections and never persisted.
	Status ContractStatus `json:"status" gorm:"-"`

	// Relationships
	Sections []ContractSection `json:"sections,omitempty" gorm:"foreignKey:ContractID"`
	Creator  *User             `json:"creator,omitempty" gorm:"foreignKey:CreatedBy"`
}

type ContractSection struct {
	BaseModel
	ContractID  uuid.UUID        `json:"contract_id" gorm:"type:uuid;not null;index"`
	Title       string           `json:"title" gorm:"size:255;not null"`
	Description string           `json:"description" gorm:"type:text"`
	PageNumber  int              `json:"page_number" gorm:"default:1"`
	Role        ContractRole     `json:"role" gorm:"type:varchar(20);not null;index"`
	Required    bool             `json:"required" gorm:"not null"`
	Status      SectionStatus    `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index"`
	Signature   *SignatureRecord `json:"signature,omitempty" gorm:"type:jsonb"`
}

// SignatureRecord is stored alongside a section once it has been signed.
type SignatureRecord struct {
	SignerName    string       `json:"signer_name"`
	SignerEmail   string       `json:"signer_email"`
	SignerRole    ContractRole `json:"signer_role"`
	SignatureData string       `json:"signature_data"`
	SignedAt      time.Time    `json:"signed_at"`
}

func (s SignatureRecord) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *SignatureRecord) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	}
	return errors.New("unsupported signature record type")
}

// AggregateStatus derives a contract status from its sections.
// Optional sections never affect the result.
func AggregateStatus(sections []ContractSection) ContractStatus {
	required, signed := 0, 0
	for _, s := range sections {
		if !s.Required {
			continue
		}
		required++
		if s.Status == SectionStatusSigned {
			signed++
		}
	}

	switch {
	case required > 0 && signed == required:
		return ContractStatusFullyExecuted
	case signed > 0:
		return ContractStatusInProgress
	default:
		return ContractStatusPending
	}
}

// RefreshStatus recomputes Status from the loaded sections.
func (c *Contract) RefreshStatus() ContractStatus {
	c.Status = AggregateStatus(c.Sections)
	return c.Status
}

// SectionsForRole returns the sections assigned to role, in page order as loaded.
func (c *Contract) SectionsForRole(role ContractRole) []ContractSection {
	var out []ContractSection
	for _, s := range c.Sections {
		if s.Role == role {
			out = append(out, s)
		}
	}
	return out
}

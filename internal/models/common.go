// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// BeforeCreate assigns the primary key in Go so the schema works on both
// postgres and sqlite.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	}
	return nil
}

// Enums
type UserRole string

const (
	UserRoleMember     UserRole = "member"
	UserRoleAgent      UserRole = "agent"
	UserRoleContractor UserRole = "contractor"
	UserRoleAdmin      UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleMember, UserRoleAgent, UserRoleContractor, UserRoleAdmin:
		return true
	}
	return false
}

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

type ContractStatus string

const (
	ContractStatusPending       ContractStatus = "PENDING"
	ContractStatusInProgress    ContractStatus = "IN_PROGRESS"
	ContractStatusFullyExecuted ContractStatus = "FULLY_EXECUTED"
)

type SectionStatus string

const (
	SectionStatusPending SectionStatus = "PENDING"
	SectionStatusSigned  SectionStatus = "SIGNED"
)

type ContractRole string

const (
	ContractRoleBuyer      ContractRole = "BUYER"
	ContractRoleSeller     ContractRole = "SELLER"
	ContractRoleContractor ContractRole = "CONTRACTOR"
	ContractRoleAgent      ContractRole = "AGENT"
)

func (r ContractRole) Valid() bool {
	switch r {
	case ContractRoleBuyer, ContractRoleSeller, ContractRoleContractor, ContractRoleAgent:
		return true
	}
	return false
}

type MembershipStatus string

const (
	MembershipStatusPending  MembershipStatus = "pending"
	MembershipStatusActive   MembershipStatus = "active"
	MembershipStatusRejected MembershipStatus = "rejected"
)

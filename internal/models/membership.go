// internal/models/membership.go
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type MemberProfile struct {
	BaseModel
	UserID               uuid.UUID        `json:"user_id" gorm:"type:uuid;not null;uniqueIndex"`
	IsEarlyAccess        bool             `json:"is_early_access" gorm:"default:false"`
	Status               MembershipStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	Plan                 string           `json:"plan" gorm:"size:100"`
	RequestedRole        UserRole         `json:"requested_role,omitempty" gorm:"type:varchar(20)"`
	StripeSubscriptionID *string          `json:"stripe_subscription_id,omitempty" gorm:"size:255"`
	AdminFeedback        *string          `json:"admin_feedback,omitempty" gorm:"type:text"`
	ReviewedBy           *uuid.UUID       `json:"reviewed_by,omitempty" gorm:"type:uuid"`
	ReviewedAt           *time.Time       `json:"reviewed_at,omitempty"`

	// Relationships
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// TargetRole is the role granted on approval. Profiles created before
// RequestedRole existed fall back to matching the free-text plan.
func (p *MemberProfile) TargetRole() UserRole {
	if p.RequestedRole == UserRoleAgent || p.RequestedRole == UserRoleContractor {
		return p.RequestedRole
	}
	return RoleFromPlan(p.Plan)
}

// RoleFromPlan infers a role from a legacy plan string.
func RoleFromPlan(plan string) UserRole {
	if strings.Contains(strings.ToLower(plan), "contractor") {
		return UserRoleContractor
	}
	return UserRoleAgent
}

type EarlyAccessQuota struct {
	BaseModel
	Role         UserRole `json:"role" gorm:"type:varchar(20);not null;uniqueIndex"`
	CurrentCount int      `json:"current_count" gorm:"not null;default:0"`
	MaxCount     int      `json:"max_count" gorm:"not null;default:0"`
	IsActive     bool     `json:"is_active" gorm:"not null"`
}

func (q *EarlyAccessQuota) Remaining() int {
	if q.CurrentCount >= q.MaxCount {
		return 0
	}
	return q.MaxCount - q.CurrentCount
}

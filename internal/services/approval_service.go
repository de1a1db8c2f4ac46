// internal/services/approval_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/estate-backend/internal/config"
	"github.com/javajoker/estate-backend/internal/database"
	"github.com/javajoker/estate-backend/internal/models"
	"github.com/javajoker/estate-backend/internal/utils"
)

const (
	ReviewActionApprove = "approve"
	ReviewActionReject  = "reject"
)

// ApprovalService moves early-access applications from pending to active or
// rejected and keeps the per-role quota counters in step.
type ApprovalService struct {
	db                  *gorm.DB
	config              *config.Config
	canceler            SubscriptionCanceler
	notificationService *NotificationService
	now                 func() time.Time
}

type ApplyRequest struct {
	Plan                 string          `json:"plan" validate:"required,max=100"`
	RequestedRole        models.UserRole `json:"requested_role,omitempty" validate:"omitempty,oneof=agent contractor"`
	StripeSubscriptionID *string         `json:"stripe_subscription_id,omitempty" validate:"omitempty,max=255"`
}

type ReviewRequest struct {
	UserID   string  `json:"userId" validate:"required,uuid"`
	Action   string  `json:"action" validate:"required,oneof=approve reject"`
	Feedback *string `json:"feedback,omitempty" validate:"omitempty,max=2000"`
}

type UpdateQuotaRequest struct {
	MaxCount *int  `json:"max_count,omitempty" validate:"omitempty,min=0"`
	IsActive *bool `json:"is_active,omitempty"`
}

// ReviewResult is the outcome of a committed review. ExternalErrors lists
// follow-up calls that failed after the commit.
type ReviewResult struct {
	UserID         uuid.UUID               `json:"user_id"`
	Status         models.MembershipStatus `json:"status"`
	Role           models.UserRole         `json:"role"`
	ExternalErrors []*ExternalServiceError `json:"-"`
}

func NewApprovalService(db *gorm.DB, cfg *config.Config, canceler SubscriptionCanceler, notificationService *NotificationService) *ApprovalService {
	return &ApprovalService{
		db:                  db,
		config:              cfg,
		canceler:            canceler,
		notificationService: notificationService,
		now:                 time.Now,
	}
}

// Apply records a pending early-access application for userID.
func (s *ApprovalService) Apply(ctx context.Context, userID uuid.UUID, req *ApplyRequest) (*models.MemberProfile, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	profile := &models.MemberProfile{
		UserID:               userID,
		IsEarlyAccess:        true,
		Status:               models.MembershipStatusPending,
		Plan:                 strings.TrimSpace(req.Plan),
		RequestedRole:        req.RequestedRole,
		StripeSubscriptionID: req.StripeSubscriptionID,
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("user")
			}
			return fmt.Errorf("database error: %w", err)
		}

		var count int64
		if err := tx.Model(&models.MemberProfile{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return fmt.Errorf("database error: %w", err)
		}
		if count > 0 {
			return ErrAlreadyApplied
		}

		if err := tx.Create(profile).Error; err != nil {
			return fmt.Errorf("failed to create application: %w", err)
		}

		return writeAuditLog(tx, &userID, "APPLY_EARLY_ACCESS", "member_profile", &profile.ID, nil,
			map[string]interface{}{"plan": profile.Plan, "target_role": profile.TargetRole()})
	})
	if err != nil {
		return nil, err
	}

	if s.notificationService != nil {
		go func() {
			if err := s.notificationService.NotifyAdmins("early_access_application", "New early-access application",
				fmt.Sprintf("A member applied for %s access (plan %q).", profile.TargetRole(), profile.Plan),
				"member_profile", &profile.ID); err != nil {
				logrus.WithError(err).Warn("Failed to notify admins of application")
			}
		}()
	}

	return profile, nil
}

func (s *ApprovalService) GetApplication(ctx context.Context, userID uuid.UUID) (*models.MemberProfile, error) {
	var profile models.MemberProfile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("membership profile")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &profile, nil
}

// Review dispatches on action.
func (s *ApprovalService) Review(ctx context.Context, userID uuid.UUID, action string, feedback *string, adminID uuid.UUID) (*ReviewResult, error) {
	switch action {
	case ReviewActionApprove:
		return s.Approve(ctx, userID, feedback, adminID)
	case ReviewActionReject:
		return s.Reject(ctx, userID, feedback, adminID)
	default:
		return nil, ErrInvalidAction
	}
}

// loadPending checks the review preconditions in order so callers can tell
// which one failed.
func loadPending(tx *gorm.DB, userID uuid.UUID) (*models.MemberProfile, error) {
	var profile models.MemberProfile
	if err := tx.Preload("User").Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("membership profile")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !profile.IsEarlyAccess {
		return nil, ErrNotEarlyAccess
	}
	if profile.Status != models.MembershipStatusPending {
		return nil, ErrAlreadyProcessed
	}
	return &profile, nil
}

// transition moves the profile out of pending. Zero rows means a concurrent
// review got there first.
func (s *ApprovalService) transition(tx *gorm.DB, profile *models.MemberProfile, to models.MembershipStatus, feedback *string, adminID uuid.UUID) error {
	now := s.now().UTC()
	res := tx.Model(&models.MemberProfile{}).
		Where("id = ? AND status = ?", profile.ID, models.MembershipStatusPending).
		Updates(map[string]interface{}{
			"status":         to,
			"admin_feedback": feedback,
			"reviewed_by":    adminID,
			"reviewed_at":    now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update application: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyProcessed
	}

	profile.Status = to
	profile.AdminFeedback = feedback
	profile.ReviewedBy = &adminID
	profile.ReviewedAt = &now
	return nil
}

func setUserRole(tx *gorm.DB, userID uuid.UUID, role models.UserRole) error {
	if err := tx.Model(&models.User{}).Where("id = ?", userID).Update("role", role).Error; err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}
	return nil
}

func (s *ApprovalService) Approve(ctx context.Context, userID uuid.UUID, feedback *string, adminID uuid.UUID) (*ReviewResult, error) {
	var profile *models.MemberProfile
	var role models.UserRole

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var err error
		if profile, err = loadPending(tx, userID); err != nil {
			return err
		}
		role = profile.TargetRole()

		var quota models.EarlyAccessQuota
		if err := tx.Where("role = ?", role).First(&quota).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &QuotaError{Role: role, Err: ErrQuotaNotConfigured}
			}
			return fmt.Errorf("database error: %w", err)
		}

		increment := tx.Model(&models.EarlyAccessQuota{}).Where("id = ?", quota.ID)
		if s.config.EarlyAccess.EnforceQuotaCap {
			if !quota.IsActive || quota.CurrentCount+1 > quota.MaxCount {
				return &QuotaError{Role: role, Err: ErrQuotaExceeded}
			}
			increment = increment.Where("is_active = ? AND current_count < max_count", true)
		}
		res := increment.Update("current_count", gorm.Expr("current_count + ?", 1))
		if res.Error != nil {
			return fmt.Errorf("failed to update quota: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return &QuotaError{Role: role, Err: ErrQuotaExceeded}
		}

		if err := s.transition(tx, profile, models.MembershipStatusActive, feedback, adminID); err != nil {
			return err
		}
		if err := setUserRole(tx, userID, role); err != nil {
			return err
		}

		return writeAuditLog(tx, &adminID, "APPROVE_EARLY_ACCESS", "member_profile", &profile.ID,
			map[string]interface{}{"status": models.MembershipStatusPending},
			map[string]interface{}{"status": models.MembershipStatusActive, "role": role, "feedback": deref(feedback)})
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  userID,
		"role":     role,
		"admin_id": adminID,
	}).Info("Early-access application approved")

	if s.notificationService != nil && profile.User != nil {
		user := *profile.User
		go func() {
			if err := s.notificationService.SendEarlyAccessApproved(&user, role, feedback); err != nil {
				logrus.WithError(err).WithField("user_id", userID).Warn("Failed to send approval email")
			}
		}()
	}

	return &ReviewResult{UserID: userID, Status: models.MembershipStatusActive, Role: role}, nil
}

// Reject closes the application and resets the user to member. The
// subscription is cancelled after commit; a failed cancellation is reported
// in the result and does not undo the rejection.
func (s *ApprovalService) Reject(ctx context.Context, userID uuid.UUID, feedback *string, adminID uuid.UUID) (*ReviewResult, error) {
	var profile *models.MemberProfile

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var err error
		if profile, err = loadPending(tx, userID); err != nil {
			return err
		}
		role := profile.TargetRole()

		res := tx.Model(&models.EarlyAccessQuota{}).
			Where("role = ? AND current_count > 0", role).
			Update("current_count", gorm.Expr("current_count - ?", 1))
		if res.Error != nil {
			return fmt.Errorf("failed to update quota: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			logrus.WithField("role", role).Warn("Quota already at zero or not configured, counter left unchanged")
		}

		if err := s.transition(tx, profile, models.MembershipStatusRejected, feedback, adminID); err != nil {
			return err
		}
		if err := setUserRole(tx, userID, models.UserRoleMember); err != nil {
			return err
		}

		return writeAuditLog(tx, &adminID, "REJECT_EARLY_ACCESS", "member_profile", &profile.ID,
			map[string]interface{}{"status": models.MembershipStatusPending},
			map[string]interface{}{"status": models.MembershipStatusRejected, "feedback": deref(feedback)})
	})
	if err != nil {
		return nil, err
	}

	result := &ReviewResult{UserID: userID, Status: models.MembershipStatusRejected, Role: models.UserRoleMember}

	if subID := deref(profile.StripeSubscriptionID); subID != "" && s.canceler != nil {
		if err := s.canceler.CancelSubscription(ctx, subID); err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id":         userID,
				"subscription_id": subID,
				"error":           err,
			}).Error("Failed to cancel subscription for rejected application")
			result.ExternalErrors = append(result.ExternalErrors, &ExternalServiceError{
				Service: "stripe",
				Op:      "cancel_subscription",
				Err:     err,
			})
		}
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  userID,
		"admin_id": adminID,
	}).Info("Early-access application rejected")

	if s.notificationService != nil && profile.User != nil {
		user := *profile.User
		go func() {
			if err := s.notificationService.SendEarlyAccessRejected(&user, feedback); err != nil {
				logrus.WithError(err).WithField("user_id", userID).Warn("Failed to send rejection email")
			}
		}()
	}

	return result, nil
}

func (s *ApprovalService) ListApplications(ctx context.Context, params utils.PaginationParams) ([]models.MemberProfile, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.MemberProfile{}).Where("is_early_access = ?", true)

	if params.Status != "" {
		query = query.Where("status = ?", strings.ToLower(params.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count applications: %w", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "updated_at", "reviewed_at", "status"})
	query = utils.ApplyPagination(query, params)

	var profiles []models.MemberProfile
	if err := query.Preload("User").Find(&profiles).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch applications: %w", err)
	}

	return profiles, total, nil
}

func (s *ApprovalService) ListQuotas(ctx context.Context) ([]models.EarlyAccessQuota, error) {
	var quotas []models.EarlyAccessQuota
	if err := s.db.WithContext(ctx).Order("role ASC").Find(&quotas).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch quotas: %w", err)
	}
	return quotas, nil
}

// UpdateQuota changes a role's capacity, creating the row when missing.
// MaxCount may not drop below the number already approved.
func (s *ApprovalService) UpdateQuota(ctx context.Context, role models.UserRole, req *UpdateQuotaRequest, adminID uuid.UUID) (*models.EarlyAccessQuota, error) {
	if role != models.UserRoleAgent && role != models.UserRoleContractor {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidQuota, role)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var quota models.EarlyAccessQuota
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		err := tx.Where("role = ?", role).First(&quota).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if req.MaxCount == nil {
				return fmt.Errorf("%w: max_count is required for a new quota", ErrInvalidQuota)
			}
			quota = models.EarlyAccessQuota{Role: role, MaxCount: *req.MaxCount, IsActive: true}
			if req.IsActive != nil {
				quota.IsActive = *req.IsActive
			}
			if err := tx.Create(&quota).Error; err != nil {
				return fmt.Errorf("failed to create quota: %w", err)
			}
		case err != nil:
			return fmt.Errorf("database error: %w", err)
		default:
			old := map[string]interface{}{"max_count": quota.MaxCount, "is_active": quota.IsActive}
			if req.MaxCount != nil {
				if *req.MaxCount < quota.CurrentCount {
					return fmt.Errorf("%w: max_count %d is below current count %d", ErrInvalidQuota, *req.MaxCount, quota.CurrentCount)
				}
				quota.MaxCount = *req.MaxCount
			}
			if req.IsActive != nil {
				quota.IsActive = *req.IsActive
			}
			if err := tx.Model(&models.EarlyAccessQuota{}).Where("id = ?", quota.ID).Updates(map[string]interface{}{
				"max_count": quota.MaxCount,
				"is_active": quota.IsActive,
			}).Error; err != nil {
				return fmt.Errorf("failed to update quota: %w", err)
			}
			return writeAuditLog(tx, &adminID, "UPDATE_QUOTA", "early_access_quota", &quota.ID, old,
				map[string]interface{}{"max_count": quota.MaxCount, "is_active": quota.IsActive})
		}

		return writeAuditLog(tx, &adminID, "CREATE_QUOTA", "early_access_quota", &quota.ID, nil,
			map[string]interface{}{"max_count": quota.MaxCount, "is_active": quota.IsActive})
	})
	if err != nil {
		return nil, err
	}

	return &quota, nil
}

// SeedQuotas inserts missing quota rows and leaves existing counts alone.
func (s *ApprovalService) SeedQuotas(ctx context.Context, seeds []config.QuotaSeed) (int, error) {
	return database.SeedQuotas(s.db.WithContext(ctx), seeds)
}

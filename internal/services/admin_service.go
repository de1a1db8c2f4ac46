// internal/services/admin_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/javajoker/estate-backend/internal/database"
	"github.com/javajoker/estate-backend/internal/models"
	"github.com/javajoker/estate-backend/internal/utils"
)

type AdminService struct {
	db *gorm.DB
}

type QuotaUsage struct {
	Role      models.UserRole `json:"role"`
	Current   int             `json:"current_count"`
	Max       int             `json:"max_count"`
	Remaining int             `json:"remaining"`
	IsActive  bool            `json:"is_active"`
}

type AdminDashboardStats struct {
	TotalUsers          int64                           `json:"total_users"`
	UsersByRole         map[models.UserRole]int64       `json:"users_by_role"`
	NewUsersThisMonth   int64                           `json:"new_users_this_month"`
	TotalContracts      int64                           `json:"total_contracts"`
	ContractsByStatus   map[models.ContractStatus]int64 `json:"contracts_by_status"`
	ActiveSigningLinks  int64                           `json:"active_signing_links"`
	PendingApplications int64                           `json:"pending_applications"`
	UnreadNotifications int64                           `json:"unread_notifications"`
	QuotaUsage          []QuotaUsage                    `json:"quota_usage"`
}

type AdminUserFilter struct {
	utils.PaginationParams
	Role *models.UserRole `json:"role,omitempty"`
}

type AuditLogFilter struct {
	utils.PaginationParams
	ResourceType string     `json:"resource_type,omitempty"`
	UserID       *uuid.UUID `json:"user_id,omitempty"`
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

// GetDashboardStats runs the independent counts concurrently.
func (s *AdminService) GetDashboardStats(ctx context.Context) (*AdminDashboardStats, error) {
	stats := &AdminDashboardStats{
		UsersByRole:       map[models.UserRole]int64{},
		ContractsByStatus: map[models.ContractStatus]int64{},
	}
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	g, ctx := errgroup.WithContext(ctx)
	db := func() *gorm.DB { return s.db.WithContext(ctx) }

	g.Go(func() error {
		return db().Model(&models.User{}).Count(&stats.TotalUsers).Error
	})
	g.Go(func() error {
		return db().Model(&models.User{}).Where("created_at >= ?", monthStart).Count(&stats.NewUsersThisMonth).Error
	})

	var roleCounts []struct {
		Role  models.UserRole
		Count int64
	}
	g.Go(func() error {
		return db().Model(&models.User{}).Select("role, COUNT(*) AS count").Group("role").Scan(&roleCounts).Error
	})

	g.Go(func() error {
		return db().Model(&models.Contract{}).Count(&stats.TotalContracts).Error
	})

	statuses := []models.ContractStatus{
		models.ContractStatusPending,
		models.ContractStatusInProgress,
		models.ContractStatusFullyExecuted,
	}
	statusCounts := make([]int64, len(statuses))
	for i, status := range statuses {
		i, status := i, status
		g.Go(func() error {
			return whereContractStatus(db().Model(&models.Contract{}), status).Count(&statusCounts[i]).Error
		})
	}

	g.Go(func() error {
		return db().Model(&models.SigningToken{}).
			Where("revoked_at IS NULL AND consumed_at IS NULL AND expires_at > ?", now).
			Count(&stats.ActiveSigningLinks).Error
	})
	g.Go(func() error {
		return db().Model(&models.MemberProfile{}).
			Where("is_early_access = ? AND status = ?", true, models.MembershipStatusPending).
			Count(&stats.PendingApplications).Error
	})
	g.Go(func() error {
		return db().Model(&models.AdminNotification{}).Where("status = ?", "unread").Count(&stats.UnreadNotifications).Error
	})

	var quotas []models.EarlyAccessQuota
	g.Go(func() error {
		return db().Order("role ASC").Find(&quotas).Error
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to compute dashboard stats: %w", err)
	}

	for _, rc := range roleCounts {
		stats.UsersByRole[rc.Role] = rc.Count
	}
	for i, status := range statuses {
		stats.ContractsByStatus[status] = statusCounts[i]
	}
	for _, q := range quotas {
		stats.QuotaUsage = append(stats.QuotaUsage, QuotaUsage{
			Role:      q.Role,
			Current:   q.CurrentCount,
			Max:       q.MaxCount,
			Remaining: q.Remaining(),
			IsActive:  q.IsActive,
		})
	}

	return stats, nil
}

// User Management
func (s *AdminService) GetUsers(ctx context.Context, filter AdminUserFilter) ([]models.User, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.User{})

	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		searchTerm := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", searchTerm, searchTerm)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "username", "email", "role", "status"}
	query = utils.ApplySort(query, filter.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}

	return users, total, nil
}

func (s *AdminService) UpdateUserStatus(ctx context.Context, userID uuid.UUID, status models.UserStatus, adminID uuid.UUID, reason string) error {
	if status != models.UserStatusActive && status != models.UserStatusSuspended {
		return fmt.Errorf("invalid user status %q", status)
	}

	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("user")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if err := tx.Model(&models.User{}).Where("id = ?", userID).Update("status", status).Error; err != nil {
			return fmt.Errorf("failed to update user status: %w", err)
		}

		return writeAuditLog(tx, &adminID, "UPDATE_USER_STATUS", "user", &userID,
			map[string]interface{}{"status": user.Status},
			map[string]interface{}{"status": status, "reason": reason})
	})
}

func (s *AdminService) GetAuditLogs(ctx context.Context, filter AuditLogFilter) ([]models.AuditLog, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.AuditLog{})

	if filter.ResourceType != "" {
		query = query.Where("resource_type = ?", filter.ResourceType)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	query = utils.ApplySort(query, filter.PaginationParams, []string{"created_at", "action"})
	query = utils.ApplyPagination(query, filter.PaginationParams)

	var logs []models.AuditLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}
	return logs, total, nil
}

func (s *AdminService) GetNotifications(ctx context.Context, params utils.PaginationParams) ([]models.AdminNotification, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.AdminNotification{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "priority"})
	query = utils.ApplyPagination(query, params)

	var notifications []models.AdminNotification
	if err := query.Find(&notifications).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	return notifications, total, nil
}

func (s *AdminService) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.AdminNotification{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": "read", "read_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("failed to update notification: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("notification")
	}
	return nil
}

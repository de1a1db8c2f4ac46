package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/estate-backend/internal/config"
	"github.com/javajoker/estate-backend/internal/models"
	"github.com/javajoker/estate-backend/internal/utils"
)

type approvalFixture struct {
	db       *gorm.DB
	svc      *ApprovalService
	canceler *fakeCanceler
	admin    *models.User
}

func newApprovalFixture(t *testing.T) *approvalFixture {
	t.Helper()
	db := newTestDB(t)
	canceler := &fakeCanceler{}
	return &approvalFixture{
		db:       db,
		svc:      NewApprovalService(db, testConfig(), canceler, nil),
		canceler: canceler,
		admin:    createUser(t, db, models.UserRoleAdmin),
	}
}

func (f *approvalFixture) applicant(t *testing.T, plan string, requested models.UserRole, subscription string) *models.User {
	t.Helper()
	user := createUser(t, f.db, models.UserRoleMember)
	req := &ApplyRequest{Plan: plan, RequestedRole: requested}
	if subscription != "" {
		req.StripeSubscriptionID = &subscription
	}
	_, err := f.svc.Apply(context.Background(), user.ID, req)
	require.NoError(t, err)
	return user
}

func (f *approvalFixture) userRole(t *testing.T, id uuid.UUID) models.UserRole {
	t.Helper()
	var user models.User
	require.NoError(t, f.db.Where("id = ?", id).First(&user).Error)
	return user.Role
}

func (f *approvalFixture) profileStatus(t *testing.T, userID uuid.UUID) models.MembershipStatus {
	t.Helper()
	profile, err := f.svc.GetApplication(context.Background(), userID)
	require.NoError(t, err)
	return profile.Status
}

func TestApproveInfersRoleFromPlan(t *testing.T) {
	f := newApprovalFixture(t)
	seedQuota(t, f.db, models.UserRoleContractor, 0, 5)
	seedQuota(t, f.db, models.UserRoleAgent, 0, 5)

	user := f.applicant(t, "Contractor Pro Plan", "", "")
	feedback := "Welcome"

	res, err := f.svc.Approve(context.Background(), user.ID, &feedback, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusActive, res.Status)
	assert.Equal(t, models.UserRoleContractor, res.Role)

	assert.Equal(t, 1, quotaCount(t, f.db, models.UserRoleContractor))
	assert.Equal(t, 0, quotaCount(t, f.db, models.UserRoleAgent))
	assert.Equal(t, models.UserRoleContractor, f.userRole(t, user.ID))

	profile, err := f.svc.GetApplication(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.AdminFeedback)
	assert.Equal(t, "Welcome", *profile.AdminFeedback)
	require.NotNil(t, profile.ReviewedBy)
	assert.Equal(t, f.admin.ID, *profile.ReviewedBy)

	var logs int64
	require.NoError(t, f.db.Model(&models.AuditLog{}).Where("action = ?", "APPROVE_EARLY_ACCESS").Count(&logs).Error)
	assert.Equal(t, int64(1), logs)
}

func TestApproveUsesRequestedRole(t *testing.T) {
	f := newApprovalFixture(t)
	seedQuota(t, f.db, models.UserRoleAgent, 0, 5)

	user := f.applicant(t, "contractor bundle", models.UserRoleAgent, "")
	res, err := f.svc.Approve(context.Background(), user.ID, nil, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleAgent, res.Role)
	assert.Equal(t, 1, quotaCount(t, f.db, models.UserRoleAgent))
}

func TestReviewPreconditions(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()
	seedQuota(t, f.db, models.UserRoleAgent, 0, 5)

	t.Run("no profile", func(t *testing.T) {
		_, err := f.svc.Approve(ctx, uuid.New(), nil, f.admin.ID)
		assert.ErrorIs(t, err, ErrRecordNotFound)
		_, err = f.svc.Reject(ctx, uuid.New(), nil, f.admin.ID)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("not early access", func(t *testing.T) {
		user := createUser(t, f.db, models.UserRoleMember)
		require.NoError(t, f.db.Create(&models.MemberProfile{
			UserID: user.ID,
			Status: models.MembershipStatusPending,
			Plan:   "Agent",
		}).Error)

		_, err := f.svc.Approve(ctx, user.ID, nil, f.admin.ID)
		assert.ErrorIs(t, err, ErrNotEarlyAccess)
		_, err = f.svc.Reject(ctx, user.ID, nil, f.admin.ID)
		assert.ErrorIs(t, err, ErrNotEarlyAccess)
	})

	t.Run("already processed", func(t *testing.T) {
		user := f.applicant(t, "Agent", "", "")
		_, err := f.svc.Approve(ctx, user.ID, nil, f.admin.ID)
		require.NoError(t, err)

		_, err = f.svc.Approve(ctx, user.ID, nil, f.admin.ID)
		assert.ErrorIs(t, err, ErrAlreadyProcessed)
		_, err = f.svc.Reject(ctx, user.ID, nil, f.admin.ID)
		assert.ErrorIs(t, err, ErrAlreadyProcessed)
		assert.Equal(t, 1, quotaCount(t, f.db, models.UserRoleAgent))
	})

	t.Run("invalid action", func(t *testing.T) {
		_, err := f.svc.Review(ctx, uuid.New(), "escalate", nil, f.admin.ID)
		assert.ErrorIs(t, err, ErrInvalidAction)
	})
}

func TestApproveWithoutQuota(t *testing.T) {
	f := newApprovalFixture(t)
	user := f.applicant(t, "Agent", "", "")

	_, err := f.svc.Approve(context.Background(), user.ID, nil, f.admin.ID)
	assert.ErrorIs(t, err, ErrQuotaNotConfigured)
	assert.Equal(t, models.MembershipStatusPending, f.profileStatus(t, user.ID))
}

func TestApproveEnforcesCap(t *testing.T) {
	f := newApprovalFixture(t)
	seedQuota(t, f.db, models.UserRoleAgent, 2, 2)
	user := f.applicant(t, "Agent", "", "")

	_, err := f.svc.Approve(context.Background(), user.ID, nil, f.admin.ID)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, 2, quotaCount(t, f.db, models.UserRoleAgent))
	assert.Equal(t, models.MembershipStatusPending, f.profileStatus(t, user.ID))
	assert.Equal(t, models.UserRoleMember, f.userRole(t, user.ID))
}

func TestApproveInactiveQuota(t *testing.T) {
	f := newApprovalFixture(t)
	seedQuota(t, f.db, models.UserRoleAgent, 0, 10)
	require.NoError(t, f.db.Model(&models.EarlyAccessQuota{}).Where("role = ?", models.UserRoleAgent).Update("is_active", false).Error)
	user := f.applicant(t, "Agent", "", "")

	_, err := f.svc.Approve(context.Background(), user.ID, nil, f.admin.ID)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestApproveCapDisabled(t *testing.T) {
	f := newApprovalFixture(t)
	f.svc.config.EarlyAccess.EnforceQuotaCap = false
	seedQuota(t, f.db, models.UserRoleAgent, 2, 2)
	user := f.applicant(t, "Agent", "", "")

	_, err := f.svc.Approve(context.Background(), user.ID, nil, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, quotaCount(t, f.db, models.UserRoleAgent))
}

func TestRejectNeverGoesNegative(t *testing.T) {
	f := newApprovalFixture(t)
	seedQuota(t, f.db, models.UserRoleAgent, 0, 5)
	user := f.applicant(t, "Agent", "", "")
	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", user.ID).Update("role", models.UserRoleAgent).Error)

	res, err := f.svc.Reject(context.Background(), user.ID, nil, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusRejected, res.Status)
	assert.Empty(t, res.ExternalErrors)

	assert.Equal(t, 0, quotaCount(t, f.db, models.UserRoleAgent))
	assert.Equal(t, models.UserRoleMember, f.userRole(t, user.ID))
	assert.Equal(t, models.MembershipStatusRejected, f.profileStatus(t, user.ID))
}

func TestRejectDecrementsAndCancelsSubscription(t *testing.T) {
	f := newApprovalFixture(t)
	seedQuota(t, f.db, models.UserRoleContractor, 3, 5)
	user := f.applicant(t, "Contractor", "", "sub_123")

	_, err := f.svc.Reject(context.Background(), user.ID, nil, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, quotaCount(t, f.db, models.UserRoleContractor))
	assert.Equal(t, []string{"sub_123"}, f.canceler.cancelled)
}

func TestRejectReportsCancellationFailure(t *testing.T) {
	f := newApprovalFixture(t)
	f.canceler.err = errStripeDown
	seedQuota(t, f.db, models.UserRoleAgent, 1, 5)
	user := f.applicant(t, "Agent", "", "sub_456")

	res, err := f.svc.Review(context.Background(), user.ID, ReviewActionReject, nil, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusRejected, res.Status)
	require.Len(t, res.ExternalErrors, 1)
	assert.Equal(t, "stripe", res.ExternalErrors[0].Service)
	assert.ErrorIs(t, res.ExternalErrors[0], errStripeDown)

	// The rejection itself stays committed.
	assert.Equal(t, models.MembershipStatusRejected, f.profileStatus(t, user.ID))
	assert.Equal(t, 0, quotaCount(t, f.db, models.UserRoleAgent))
}

func TestConcurrentApproveHasOneWinner(t *testing.T) {
	f := newApprovalFixture(t)
	seedQuota(t, f.db, models.UserRoleAgent, 0, 10)
	user := f.applicant(t, "Agent", "", "")

	const admins = 6
	var wg sync.WaitGroup
	errs := make([]error, admins)
	for i := 0; i < admins; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Approve(context.Background(), user.ID, nil, f.admin.ID)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyProcessed)
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, quotaCount(t, f.db, models.UserRoleAgent))
}

func TestApplyOncePerUser(t *testing.T) {
	f := newApprovalFixture(t)
	user := f.applicant(t, "Agent", "", "")

	_, err := f.svc.Apply(context.Background(), user.ID, &ApplyRequest{Plan: "Agent"})
	assert.ErrorIs(t, err, ErrAlreadyApplied)

	_, err = f.svc.Apply(context.Background(), uuid.New(), &ApplyRequest{Plan: "Agent"})
	assert.ErrorIs(t, err, ErrRecordNotFound)

	_, err = f.svc.Apply(context.Background(), user.ID, &ApplyRequest{Plan: "Agent", RequestedRole: models.UserRoleAdmin})
	assert.Error(t, err)
}

func TestListApplications(t *testing.T) {
	f := newApprovalFixture(t)
	seedQuota(t, f.db, models.UserRoleAgent, 0, 10)
	approved := f.applicant(t, "Agent", "", "")
	f.applicant(t, "Agent", "", "")
	_, err := f.svc.Approve(context.Background(), approved.ID, nil, f.admin.ID)
	require.NoError(t, err)

	params := utils.PaginationParams{Page: 1, Limit: 20, Order: "asc", Status: "pending"}
	profiles, total, err := f.svc.ListApplications(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, profiles, 1)
	require.NotNil(t, profiles[0].User)
	assert.NotEqual(t, approved.ID, profiles[0].UserID)
}

func TestUpdateQuota(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()
	seedQuota(t, f.db, models.UserRoleAgent, 3, 5)

	low := 2
	_, err := f.svc.UpdateQuota(ctx, models.UserRoleAgent, &UpdateQuotaRequest{MaxCount: &low}, f.admin.ID)
	assert.ErrorIs(t, err, ErrInvalidQuota)

	high := 20
	inactive := false
	quota, err := f.svc.UpdateQuota(ctx, models.UserRoleAgent, &UpdateQuotaRequest{MaxCount: &high, IsActive: &inactive}, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, quota.MaxCount)
	assert.False(t, quota.IsActive)
	assert.Equal(t, 3, quota.CurrentCount)

	created, err := f.svc.UpdateQuota(ctx, models.UserRoleContractor, &UpdateQuotaRequest{MaxCount: &high}, f.admin.ID)
	require.NoError(t, err)
	assert.True(t, created.IsActive)

	_, err = f.svc.UpdateQuota(ctx, models.UserRoleAdmin, &UpdateQuotaRequest{MaxCount: &high}, f.admin.ID)
	assert.ErrorIs(t, err, ErrInvalidQuota)
}

func TestSeedQuotasKeepsExistingCounts(t *testing.T) {
	f := newApprovalFixture(t)
	seedQuota(t, f.db, models.UserRoleAgent, 4, 5)

	created, err := f.svc.SeedQuotas(context.Background(), config.DefaultQuotaSeeds())
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, 4, quotaCount(t, f.db, models.UserRoleAgent))

	quotas, err := f.svc.ListQuotas(context.Background())
	require.NoError(t, err)
	require.Len(t, quotas, 2)
	assert.Equal(t, models.UserRoleAgent, quotas[0].Role)
	assert.Equal(t, 5, quotas[0].MaxCount)
}

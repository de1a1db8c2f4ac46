// internal/tests/early_access_test.go
package tests

import (
	"net/http"

	"github.com/javajoker/estate-backend/internal/models"
)

type reviewBody struct {
	Status   models.MembershipStatus `json:"status"`
	Role     models.UserRole         `json:"role"`
	Warnings []struct {
		Service string `json:"service"`
		Op      string `json:"op"`
	} `json:"warnings"`
}

func (s *APISuite) apply(token, plan string, subscription string) {
	body := map[string]interface{}{"plan": plan}
	if subscription != "" {
		body["stripe_subscription_id"] = subscription
	}
	code, env := s.do(http.MethodPost, "/v1/early-access/apply", token, body)
	s.Require().Equal(http.StatusCreated, code, s.errorCode(env))
}

func (s *APISuite) review(adminToken string, user *models.User, action string) (int, envelope) {
	return s.do(http.MethodPost, "/v1/admin/early-access/review", adminToken, map[string]interface{}{
		"userId":   user.ID.String(),
		"action":   action,
		"feedback": "thanks for applying",
	})
}

func (s *APISuite) TestApproveUntilQuotaIsFull() {
	s.seedQuota(models.UserRoleAgent, 0, 1)
	_, adminToken := s.createUser(models.UserRoleAdmin)
	first, firstToken := s.createUser(models.UserRoleMember)
	second, secondToken := s.createUser(models.UserRoleMember)

	s.apply(firstToken, "Agent Pro", "")
	s.apply(secondToken, "agent starter", "")

	code, env := s.do(http.MethodPost, "/v1/early-access/apply", firstToken, map[string]interface{}{"plan": "Agent Pro"})
	s.Equal(http.StatusConflict, code)
	s.Equal("ALREADY_APPLIED", s.errorCode(env))

	code, env = s.review(adminToken, first, "approve")
	s.Require().Equal(http.StatusOK, code, s.errorCode(env))
	var result reviewBody
	s.decode(env, &result)
	s.Equal(models.MembershipStatusActive, result.Status)
	s.Equal(models.UserRoleAgent, result.Role)

	code, env = s.review(adminToken, second, "approve")
	s.Equal(http.StatusConflict, code)
	s.Equal("QUOTA_EXCEEDED", s.errorCode(env))

	var quota models.EarlyAccessQuota
	s.Require().NoError(s.db.Where("role = ?", models.UserRoleAgent).First(&quota).Error)
	s.Equal(1, quota.CurrentCount)

	code, env = s.review(adminToken, first, "reject")
	s.Equal(http.StatusConflict, code)
	s.Equal("ALREADY_PROCESSED", s.errorCode(env))

	code, env = s.do(http.MethodGet, "/v1/early-access/me", firstToken, nil)
	s.Require().Equal(http.StatusOK, code)
	var mine struct {
		Profile models.MemberProfile `json:"profile"`
	}
	s.decode(env, &mine)
	s.Equal(models.MembershipStatusActive, mine.Profile.Status)
}

func (s *APISuite) TestRejectReportsCancellationFailure() {
	s.seedQuota(models.UserRoleContractor, 1, 5)
	s.canceler.err = errUpstream
	_, adminToken := s.createUser(models.UserRoleAdmin)
	applicant, token := s.createUser(models.UserRoleMember)

	s.apply(token, "Contractor Plus", "sub_123")

	code, env := s.review(adminToken, applicant, "reject")
	s.Require().Equal(http.StatusOK, code, s.errorCode(env))
	var result reviewBody
	s.decode(env, &result)
	s.Equal(models.MembershipStatusRejected, result.Status)
	s.Equal(models.UserRoleMember, result.Role)
	s.Require().Len(result.Warnings, 1)
	s.Equal("stripe", result.Warnings[0].Service)

	var quota models.EarlyAccessQuota
	s.Require().NoError(s.db.Where("role = ?", models.UserRoleContractor).First(&quota).Error)
	s.Equal(0, quota.CurrentCount)
}

func (s *APISuite) TestReviewWithoutQuotaOrApplication() {
	_, adminToken := s.createUser(models.UserRoleAdmin)
	applicant, token := s.createUser(models.UserRoleMember)
	stranger, _ := s.createUser(models.UserRoleMember)

	code, env := s.review(adminToken, stranger, "approve")
	s.Equal(http.StatusNotFound, code)

	s.apply(token, "agent", "")
	code, env = s.review(adminToken, applicant, "approve")
	s.Equal(http.StatusConflict, code)
	s.Equal("QUOTA_NOT_CONFIGURED", s.errorCode(env))

	code, env = s.review(adminToken, applicant, "escalate")
	s.Equal(http.StatusBadRequest, code)
	s.Equal("VALIDATION_ERROR", s.errorCode(env))
}

func (s *APISuite) TestQuotaAdministration() {
	_, adminToken := s.createUser(models.UserRoleAdmin)

	code, env := s.do(http.MethodPut, "/v1/admin/early-access/quotas/agent", adminToken, map[string]interface{}{"max_count": 3})
	s.Require().Equal(http.StatusOK, code, s.errorCode(env))

	code, env = s.do(http.MethodGet, "/v1/admin/early-access/quotas", adminToken, nil)
	s.Require().Equal(http.StatusOK, code)
	var body struct {
		Quotas []models.EarlyAccessQuota `json:"quotas"`
	}
	s.decode(env, &body)
	s.Require().Len(body.Quotas, 1)
	s.Equal(3, body.Quotas[0].MaxCount)

	code, _ = s.do(http.MethodPut, "/v1/admin/early-access/quotas/admin", adminToken, map[string]interface{}{"max_count": 3})
	s.Equal(http.StatusBadRequest, code)
}

// internal/tests/auth_test.go
package tests

import (
	"net/http"

	"github.com/javajoker/estate-backend/internal/models"
)

func (s *APISuite) TestRegisterLoginAndMe() {
	code, env := s.do(http.MethodPost, "/v1/auth/register", "", map[string]interface{}{
		"username": "buyer_one",
		"email":    "Buyer.One@example.test",
		"password": "TestPass123!",
	})
	s.Require().Equal(http.StatusCreated, code)
	s.True(env.Success)

	var registered struct {
		User  models.User `json:"user"`
		Token string      `json:"token"`
	}
	s.decode(env, &registered)
	s.Equal(models.UserRoleMember, registered.User.Role)
	s.Equal("buyer.one@example.test", registered.User.Email)
	s.NotEmpty(registered.Token)

	code, env = s.do(http.MethodPost, "/v1/auth/register", "", map[string]interface{}{
		"username": "buyer_two",
		"email":    "buyer.one@example.test",
		"password": "TestPass123!",
	})
	s.Equal(http.StatusConflict, code)
	s.Equal("USER_EXISTS", s.errorCode(env))

	code, env = s.do(http.MethodPost, "/v1/auth/login", "", map[string]interface{}{
		"email":    "buyer.one@example.test",
		"password": "TestPass123!",
	})
	s.Require().Equal(http.StatusOK, code)
	var login struct {
		Token string `json:"token"`
	}
	s.decode(env, &login)

	code, env = s.do(http.MethodGet, "/v1/auth/me", login.Token, nil)
	s.Require().Equal(http.StatusOK, code)
	var me struct {
		User models.User `json:"user"`
	}
	s.decode(env, &me)
	s.Equal("buyer_one", me.User.Username)
}

func (s *APISuite) TestLoginRejectsBadPassword() {
	user, _ := s.createUser(models.UserRoleMember)

	code, env := s.do(http.MethodPost, "/v1/auth/login", "", map[string]interface{}{
		"email":    user.Email,
		"password": "WrongPass123!",
	})
	s.Equal(http.StatusUnauthorized, code)
	s.False(env.Success)
}

func (s *APISuite) TestRegisterValidatesInput() {
	code, env := s.do(http.MethodPost, "/v1/auth/register", "", map[string]interface{}{
		"username": "x",
		"email":    "not-an-email",
		"password": "weak",
	})
	s.Equal(http.StatusBadRequest, code)
	s.Equal("VALIDATION_ERROR", s.errorCode(env))
}

func (s *APISuite) TestAdminRoutesRequireAdmin() {
	_, memberToken := s.createUser(models.UserRoleMember)
	_, adminToken := s.createUser(models.UserRoleAdmin)

	code, _ := s.do(http.MethodGet, "/v1/admin/dashboard/stats", "", nil)
	s.Equal(http.StatusUnauthorized, code)

	code, _ = s.do(http.MethodGet, "/v1/admin/dashboard/stats", memberToken, nil)
	s.Equal(http.StatusForbidden, code)

	code, env := s.do(http.MethodGet, "/v1/admin/dashboard/stats", adminToken, nil)
	s.Require().Equal(http.StatusOK, code)
	var body struct {
		Stats struct {
			TotalUsers int64 `json:"total_users"`
		} `json:"stats"`
	}
	s.decode(env, &body)
	s.EqualValues(2, body.Stats.TotalUsers)
}

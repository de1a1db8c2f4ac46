// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/estate-backend/internal/i18n"
	"github.com/javajoker/estate-backend/internal/middleware"
	"github.com/javajoker/estate-backend/internal/models"
	"github.com/javajoker/estate-backend/internal/services"
	"github.com/javajoker/estate-backend/internal/termsheet"
	"github.com/javajoker/estate-backend/internal/utils"
)

// respondError maps a service error onto the response envelope. notFoundKey
// is the message used when the error is a missing record.
func respondError(c *gin.Context, err error, notFoundKey string) {
	lang := utils.GetLangFromContext(c)

	var validationErrs validator.ValidationErrors
	var quotaErr *services.QuotaError

	switch {
	case errors.As(err, &validationErrs):
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(validationErrs))

	case errors.Is(err, services.ErrRecordNotFound):
		utils.NotFoundResponse(c, notFoundKey)
	case errors.Is(err, services.ErrTemplateNotFound):
		utils.NotFoundResponse(c, i18n.KeyTemplateNotFound)
	case errors.Is(err, termsheet.ErrNotFound):
		utils.NotFoundResponse(c, i18n.KeyTermSheetNotFound)

	case errors.Is(err, services.ErrAlreadySigned):
		utils.ConflictResponse(c, "ALREADY_SIGNED", i18n.T(lang, i18n.KeySectionAlreadySigned))
	case errors.Is(err, services.ErrAlreadyProcessed):
		utils.ConflictResponse(c, "ALREADY_PROCESSED", i18n.T(lang, i18n.KeyEarlyAccessProcessed))
	case errors.Is(err, services.ErrAlreadyApplied):
		utils.ConflictResponse(c, "ALREADY_APPLIED", i18n.T(lang, i18n.KeyEarlyAccessApplyTwice))
	case errors.As(err, &quotaErr) && errors.Is(err, services.ErrQuotaNotConfigured):
		utils.ConflictResponse(c, "QUOTA_NOT_CONFIGURED", i18n.T(lang, i18n.KeyEarlyAccessNoQuota, quotaErr.Role))
	case errors.As(err, &quotaErr):
		utils.ConflictResponse(c, "QUOTA_EXCEEDED", i18n.T(lang, i18n.KeyEarlyAccessQuotaFull, quotaErr.Role))
	case errors.Is(err, services.ErrUserExists):
		utils.ConflictResponse(c, "USER_EXISTS", i18n.T(lang, i18n.KeyAuthUserExists))

	// Expired is a kind of invalid, so it is checked first.
	case errors.Is(err, services.ErrTokenExpired):
		utils.GoneResponse(c, "TOKEN_EXPIRED", i18n.T(lang, i18n.KeySigningTokenExpired))
	case errors.Is(err, services.ErrTokenInvalid):
		utils.ErrorResponse(c, http.StatusUnauthorized, "TOKEN_INVALID", i18n.T(lang, i18n.KeySigningTokenInvalid), nil)
	case errors.Is(err, services.ErrTokenRoleMismatch):
		utils.ErrorResponse(c, http.StatusForbidden, "TOKEN_ROLE_MISMATCH", i18n.T(lang, i18n.KeySigningTokenWrongRole), nil)
	case errors.Is(err, services.ErrRoleMismatch):
		utils.ErrorResponse(c, http.StatusForbidden, "ROLE_MISMATCH", i18n.T(lang, i18n.KeyRoleMismatch), nil)
	case errors.Is(err, services.ErrNotContractOwner):
		utils.ForbiddenResponse(c, i18n.T(lang, i18n.KeyContractNotOwner))

	case errors.Is(err, services.ErrInvalidSignature):
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_SIGNATURE", i18n.T(lang, i18n.KeyInvalidSignature), nil)
	case errors.Is(err, services.ErrNotEarlyAccess):
		utils.ErrorResponse(c, http.StatusBadRequest, "NOT_EARLY_ACCESS", i18n.T(lang, i18n.KeyEarlyAccessNotEligible), nil)
	case errors.Is(err, services.ErrInvalidAction):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "action"), nil)
	case errors.Is(err, services.ErrInvalidQuota):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "quota"), err.Error())

	case errors.Is(err, services.ErrInvalidCredentials):
		utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidCredentials))
	case errors.Is(err, services.ErrAccountSuspended):
		utils.ForbiddenResponse(c, i18n.T(lang, i18n.KeyUserSuspended))
	case errors.Is(err, services.ErrStorageUnavailable):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", i18n.T(lang, i18n.KeyStorageUnavailable), nil)

	default:
		logrus.WithFields(logrus.Fields{
			"error":      err,
			"route":      c.FullPath(),
			"request_id": middleware.GetRequestID(c),
		}).Error("Unhandled service error")
		utils.InternalErrorResponse(c, "")
	}
}

// bindJSON binds and validates the body, writing the error response itself.
func bindJSON(c *gin.Context, req interface{}) bool {
	lang := utils.GetLangFromContext(c)

	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return false
	}
	return true
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, name), nil)
		return uuid.Nil, false
	}
	return id, true
}

// currentActor is the authenticated caller as the contract services see it.
func currentActor(c *gin.Context) (services.Actor, bool) {
	id, ok := currentUserID(c)
	if !ok {
		return services.Actor{}, false
	}
	role, _ := utils.GetUserRoleFromContext(c)
	return services.Actor{UserID: id, Role: models.UserRole(role)}, true
}

// currentUserID reads the authenticated user set by AuthRequired.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	idStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}
	return id, true
}

// internal/handlers/early_access.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/estate-backend/internal/i18n"
	"github.com/javajoker/estate-backend/internal/models"
	"github.com/javajoker/estate-backend/internal/services"
	"github.com/javajoker/estate-backend/internal/utils"
)

type EarlyAccessHandler struct {
	approvalService *services.ApprovalService
}

func NewEarlyAccessHandler(approvalService *services.ApprovalService) *EarlyAccessHandler {
	return &EarlyAccessHandler{
		approvalService: approvalService,
	}
}

// POST /early-access/apply
func (h *EarlyAccessHandler) Apply(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.ApplyRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.approvalService.Apply(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err, i18n.KeyUserNotFound)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyEarlyAccessApplied),
		"profile": profile,
	})
}

// GET /early-access/me
func (h *EarlyAccessHandler) GetMine(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	profile, err := h.approvalService.GetApplication(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, i18n.KeyEarlyAccessNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{"profile": profile})
}

// POST /admin/early-access/review
func (h *EarlyAccessHandler) Review(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.ReviewRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "userId"), nil)
		return
	}

	result, err := h.approvalService.Review(c.Request.Context(), userID, req.Action, req.Feedback, adminID)
	if err != nil {
		respondError(c, err, i18n.KeyEarlyAccessNotFound)
		return
	}

	message := i18n.T(lang, i18n.KeyEarlyAccessApproved)
	if result.Status == models.MembershipStatusRejected {
		message = i18n.T(lang, i18n.KeyEarlyAccessRejected)
	}

	payload := gin.H{
		"message": message,
		"status":  result.Status,
		"role":    result.Role,
	}

	// The review itself committed; failed follow-up calls are reported, not raised.
	if len(result.ExternalErrors) > 0 {
		warnings := make([]gin.H, 0, len(result.ExternalErrors))
		for _, extErr := range result.ExternalErrors {
			warnings = append(warnings, gin.H{
				"service": extErr.Service,
				"op":      extErr.Op,
				"message": i18n.T(lang, i18n.KeyEarlyAccessCancelFailed),
			})
		}
		payload["warnings"] = warnings
	}

	utils.SuccessResponse(c, payload)
}

// GET /admin/early-access/applications
func (h *EarlyAccessHandler) ListApplications(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	profiles, total, err := h.approvalService.ListApplications(c.Request.Context(), params)
	if err != nil {
		respondError(c, err, i18n.KeyEarlyAccessNotFound)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(profiles, total, params))
}

// GET /admin/early-access/quotas
func (h *EarlyAccessHandler) ListQuotas(c *gin.Context) {
	quotas, err := h.approvalService.ListQuotas(c.Request.Context())
	if err != nil {
		respondError(c, err, i18n.KeyEarlyAccessNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{"quotas": quotas})
}

// PUT /admin/early-access/quotas/:role
func (h *EarlyAccessHandler) UpdateQuota(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.UpdateQuotaRequest
	if !bindJSON(c, &req) {
		return
	}

	quota, err := h.approvalService.UpdateQuota(c.Request.Context(), models.UserRole(c.Param("role")), &req, adminID)
	if err != nil {
		respondError(c, err, i18n.KeyEarlyAccessNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyEarlyAccessQuotaUpdated),
		"quota":   quota,
	})
}

// internal/handlers/contract.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/estate-backend/internal/i18n"
	"github.com/javajoker/estate-backend/internal/models"
	"github.com/javajoker/estate-backend/internal/services"
	"github.com/javajoker/estate-backend/internal/utils"
)

type ContractHandler struct {
	contractService *services.ContractService
	signingService  *services.SigningService
}

func NewContractHandler(contractService *services.ContractService, signingService *services.SigningService) *ContractHandler {
	return &ContractHandler{
		contractService: contractService,
		signingService:  signingService,
	}
}

// contractRolesFor lists the contract roles an account may sign as.
func contractRolesFor(role models.UserRole) []models.ContractRole {
	switch role {
	case models.UserRoleAdmin:
		return []models.ContractRole{
			models.ContractRoleBuyer, models.ContractRoleSeller,
			models.ContractRoleContractor, models.ContractRoleAgent,
		}
	case models.UserRoleAgent:
		return []models.ContractRole{models.ContractRoleAgent}
	case models.UserRoleContractor:
		return []models.ContractRole{models.ContractRoleContractor}
	default:
		return []models.ContractRole{models.ContractRoleBuyer, models.ContractRoleSeller}
	}
}

func mayActAs(c *gin.Context, role models.ContractRole) bool {
	userRole, _ := utils.GetUserRoleFromContext(c)
	for _, allowed := range contractRolesFor(models.UserRole(userRole)) {
		if allowed == role {
			return true
		}
	}
	return false
}

// POST /contracts
func (h *ContractHandler) CreateContract(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateContractRequest
	if !bindJSON(c, &req) {
		return
	}

	contract, err := h.contractService.CreateContract(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err, i18n.KeyContractNotFound)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyContractCreated),
		"contract": contract,
	})
}

// GET /contracts
func (h *ContractHandler) ListContracts(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	filter := services.ContractFilter{PaginationParams: params}

	// Only admins see every contract.
	if role, _ := utils.GetUserRoleFromContext(c); role != string(models.UserRoleAdmin) {
		filter.CreatedBy = &userID
	}

	contracts, total, err := h.contractService.ListContracts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, i18n.KeyContractNotFound)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(contracts, total, params))
}

// GET /contracts/:id
func (h *ContractHandler) GetContract(c *gin.Context) {
	contractID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	contract, err := h.contractService.GetContractFor(c.Request.Context(), contractID, actor)
	if err != nil {
		respondError(c, err, i18n.KeyContractNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"contract":     contract,
		"document_url": h.contractService.DocumentURL(c.Request.Context(), contract),
	})
}

// POST /contracts/:id/document
func (h *ContractHandler) AttachDocument(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	contractID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileRequired), nil)
		return
	}
	defer file.Close()

	contract, err := h.contractService.AttachDocument(c.Request.Context(), contractID, actor, file, header)
	if err != nil {
		respondError(c, err, i18n.KeyContractNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyFileUploadSuccess),
		"contract": contract,
	})
}

// POST /contracts/:id/sections/:sectionId/sign
func (h *ContractHandler) SignSection(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	contractID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	sectionID, ok := parseIDParam(c, "sectionId")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.SignSectionRequest
	if !bindJSON(c, &req) {
		return
	}

	if !mayActAs(c, req.Role) {
		respondError(c, services.ErrRoleMismatch, i18n.KeyContractNotFound)
		return
	}

	result, err := h.contractService.SignSection(c.Request.Context(), contractID, sectionID, &req, &actor)
	if err != nil {
		respondError(c, err, i18n.KeyContractNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":         i18n.T(lang, i18n.KeySectionSigned),
		"section":         result.Section,
		"contract_status": result.ContractStatus,
	})
}

// POST /contracts/:id/signing-links
func (h *ContractHandler) IssueSigningLink(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	contractID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.IssueSigningLinkRequest
	if !bindJSON(c, &req) {
		return
	}

	link, err := h.signingService.IssueSigningLink(c.Request.Context(), contractID, &req, actor)
	if err != nil {
		respondError(c, err, i18n.KeyContractNotFound)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeySigningLinkIssued),
		"id":         link.ID,
		"token":      link.Token,
		"url":        link.URL,
		"expires_at": link.ExpiresAt,
	})
}

// GET /contracts/:id/signing-links
func (h *ContractHandler) ListSigningLinks(c *gin.Context) {
	contractID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	links, err := h.signingService.ListSigningLinks(c.Request.Context(), contractID, actor)
	if err != nil {
		respondError(c, err, i18n.KeyContractNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{"signing_links": links})
}

// DELETE /signing-links/:id
func (h *ContractHandler) RevokeSigningLink(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	linkID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if err := h.signingService.RevokeSigningLink(c.Request.Context(), linkID, actor); err != nil {
		respondError(c, err, i18n.KeySigningLinkNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeySigningLinkRevoked)})
}

// SigningHandler serves the public, token-authorized signing endpoints.
type SigningHandler struct {
	signingService *services.SigningService
}

func NewSigningHandler(signingService *services.SigningService) *SigningHandler {
	return &SigningHandler{signingService: signingService}
}

type tokenSignRequest struct {
	SignatureImage string `json:"signature_image" validate:"required"`
}

// GET /sign/:token
func (h *SigningHandler) Resolve(c *gin.Context) {
	view, err := h.signingService.ResolveSigningLink(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err, i18n.KeyContractNotFound)
		return
	}

	utils.SuccessResponse(c, view)
}

// POST /sign/:token/sections/:sectionId
func (h *SigningHandler) Sign(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	sectionID, err := uuid.Parse(c.Param("sectionId"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "sectionId"), nil)
		return
	}

	var req tokenSignRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.signingService.SignViaToken(c.Request.Context(), c.Param("token"), sectionID, req.SignatureImage)
	if err != nil {
		respondError(c, err, i18n.KeyContractNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":         i18n.T(lang, i18n.KeySectionSigned),
		"section":         result.Section,
		"contract_status": result.ContractStatus,
	})
}

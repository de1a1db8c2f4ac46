// internal/handlers/termsheet.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/estate-backend/internal/i18n"
	"github.com/javajoker/estate-backend/internal/templates"
	"github.com/javajoker/estate-backend/internal/termsheet"
	"github.com/javajoker/estate-backend/internal/utils"
)

type TermSheetHandler struct {
	termSheets *termsheet.Service
}

func NewTermSheetHandler(termSheets *termsheet.Service) *TermSheetHandler {
	return &TermSheetHandler{termSheets: termSheets}
}

type previewRequest struct {
	Fields map[string]string `json:"fields"`
}

// store returns the caller's term sheets, or false after writing a 401.
func (h *TermSheetHandler) store(c *gin.Context) (*termsheet.Store, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return nil, false
	}
	return h.termSheets.ForOwner(userID.String()), true
}

// GET /templates
func (h *TermSheetHandler) ListTemplates(c *gin.Context) {
	utils.SuccessResponse(c, gin.H{"templates": templates.List()})
}

// POST /templates/:id/preview
func (h *TermSheetHandler) PreviewTemplate(c *gin.Context) {
	var req previewRequest
	// An empty body previews the bare template with placeholders.
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	body, err := templates.Render(templates.TemplateID(c.Param("id")), req.Fields)
	if err != nil {
		respondError(c, err, i18n.KeyTemplateNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"template_id": c.Param("id"),
		"document":    body,
	})
}

// GET /term-sheets
func (h *TermSheetHandler) List(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}

	sheets, err := store.List(c.Request.Context())
	if err != nil {
		respondError(c, err, i18n.KeyTermSheetNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{"term_sheets": sheets})
}

// POST /term-sheets
func (h *TermSheetHandler) Create(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	store, ok := h.store(c)
	if !ok {
		return
	}

	var draft termsheet.Draft
	if !bindJSON(c, &draft) {
		return
	}

	sheet, err := store.Create(c.Request.Context(), draft)
	if err != nil {
		respondError(c, err, i18n.KeyTermSheetNotFound)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyTermSheetCreated),
		"term_sheet": sheet,
	})
}

// GET /term-sheets/:id
func (h *TermSheetHandler) Get(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}

	sheet, err := store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, i18n.KeyTermSheetNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{"term_sheet": sheet})
}

// PATCH /term-sheets/:id
func (h *TermSheetHandler) Update(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	store, ok := h.store(c)
	if !ok {
		return
	}

	var patch termsheet.Patch
	if !bindJSON(c, &patch) {
		return
	}

	sheet, err := store.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, err, i18n.KeyTermSheetNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyTermSheetUpdated),
		"term_sheet": sheet,
	})
}

// DELETE /term-sheets/:id
func (h *TermSheetHandler) Delete(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	store, ok := h.store(c)
	if !ok {
		return
	}

	removed, err := store.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, i18n.KeyTermSheetNotFound)
		return
	}
	if !removed {
		utils.NotFoundResponse(c, i18n.KeyTermSheetNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyTermSheetDeleted)})
}

// GET /term-sheets/:id/document
func (h *TermSheetHandler) Document(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}

	sheet, err := store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, i18n.KeyTermSheetNotFound)
		return
	}

	body, err := termsheet.RenderDocument(sheet)
	if err != nil {
		respondError(c, err, i18n.KeyTemplateNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"term_sheet_id": sheet.ID,
		"template_id":   sheet.TemplateID,
		"document":      body,
	})
}

package controllers

import (
	"net/http"
	"strconv"

	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/app/services"
	"github.com/ai2c/amap/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const combinedArchiveName = "combined_documents.zip"

// DocumentController handles counselings and supporting documents
type DocumentController struct {
	documentService services.DocumentService
	logger          zerolog.Logger
}

// NewDocumentController creates a new DocumentController
func NewDocumentController(documentService services.DocumentService, logger zerolog.Logger) *DocumentController {
	return &DocumentController{
		documentService: documentService,
		logger:          logger,
	}
}

// DocumentTypes lists supporting document types
// @Summary Supporting document types
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.SupportingDocumentType}
// @Router /forms/documents/types [get]
func (c *DocumentController) DocumentTypes(ctx *gin.Context) {
	types, err := c.documentService.DocumentTypes(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, types, "")
}

// AddCounseling uploads a DA 4856 for a soldier
// @Summary Upload counseling
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param soldier_id path string true "Soldier EDIPI"
// @Param date formData string true "Counseling date" example(2024-01-31)
// @Param title formData string true "Title"
// @Param file formData file true "Signed counseling"
// @Success 201 {object} dto.APIResponse{data=dto.MessageResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /forms/counselings/soldier/{soldier_id} [post]
func (c *DocumentController) AddCounseling(ctx *gin.Context) {
	var form dto.AddCounselingForm
	if !middleware.BindForm(ctx, &form) {
		return
	}
	file, err := ctx.FormFile("file")
	if err != nil {
		badRequest(ctx, "A file is required.")
		return
	}

	message, err := c.documentService.AddCounseling(ctx.Request.Context(), middleware.UserID(ctx), ctx.Param("soldier_id"), &form, file)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, dto.MessageResponse{Message: message}, message)
}

// ListCounselings lists a soldier's counselings
// @Summary Counselings of a soldier
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param soldier_id path string true "Soldier EDIPI"
// @Success 200 {object} dto.APIResponse{data=[]dto.CounselingView}
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /forms/counselings/soldier/{soldier_id} [get]
func (c *DocumentController) ListCounselings(ctx *gin.Context) {
	counselings, err := c.documentService.ListCounselings(ctx.Request.Context(), middleware.UserID(ctx), ctx.Param("soldier_id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, counselings, "")
}

// GetCounseling returns a counseling
// @Summary Get counseling
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param id path int true "Counseling ID"
// @Success 200 {object} dto.APIResponse{data=dto.CounselingView}
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /forms/counselings/{id} [get]
func (c *DocumentController) GetCounseling(ctx *gin.Context) {
	id, ok := paramInt64(ctx, "id", "Counseling")
	if !ok {
		return
	}

	counseling, err := c.documentService.GetCounseling(ctx.Request.Context(), middleware.UserID(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, counseling, "")
}

// DeleteCounseling soft deletes a counseling
// @Summary Delete counseling
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param id path int true "Counseling ID"
// @Success 200 {object} dto.APIResponse{data=dto.MessageResponse}
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /forms/counselings/{id} [delete]
func (c *DocumentController) DeleteCounseling(ctx *gin.Context) {
	id, ok := paramInt64(ctx, "id", "Counseling")
	if !ok {
		return
	}

	message, err := c.documentService.DeleteCounseling(ctx.Request.Context(), middleware.UserID(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, dto.MessageResponse{Message: message}, message)
}

// AddSupportingDocument uploads a supporting document for a soldier
// @Summary Upload supporting document
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param soldier_id path string true "Soldier EDIPI"
// @Param document_date formData string true "Document date" example(2024-01-31)
// @Param document_title formData string true "Title"
// @Param document_type formData string false "Document type"
// @Param related_event formData int false "Event of the same soldier"
// @Param visible_to_user formData bool false "Visible to the soldier"
// @Param file formData file true "Document"
// @Success 201 {object} dto.APIResponse{data=dto.MessageResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /forms/documents/soldier/{soldier_id} [post]
func (c *DocumentController) AddSupportingDocument(ctx *gin.Context) {
	var form dto.AddSupportingDocumentForm
	if !middleware.BindForm(ctx, &form) {
		return
	}
	file, err := ctx.FormFile("file")
	if err != nil {
		badRequest(ctx, "A file is required.")
		return
	}

	message, err := c.documentService.AddSupportingDocument(ctx.Request.Context(), middleware.UserID(ctx), ctx.Param("soldier_id"), &form, file)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, dto.MessageResponse{Message: message}, message)
}

// ListSupportingDocuments lists a soldier's supporting documents
// @Summary Supporting documents of a soldier
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param soldier_id path string true "Soldier EDIPI"
// @Param visible_only query bool false "Only documents visible to the soldier"
// @Success 200 {object} dto.APIResponse{data=[]dto.SupportingDocumentView}
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /forms/documents/soldier/{soldier_id} [get]
func (c *DocumentController) ListSupportingDocuments(ctx *gin.Context) {
	visibleOnly, _ := strconv.ParseBool(ctx.Query("visible_only"))

	docs, err := c.documentService.ListSupportingDocuments(ctx.Request.Context(), middleware.UserID(ctx), ctx.Param("soldier_id"), visibleOnly)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, docs, "")
}

// GetSupportingDocument returns a supporting document
// @Summary Get supporting document
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} dto.APIResponse{data=dto.SupportingDocumentView}
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /forms/documents/{id} [get]
func (c *DocumentController) GetSupportingDocument(ctx *gin.Context) {
	id, ok := paramInt64(ctx, "id", "Document")
	if !ok {
		return
	}

	doc, err := c.documentService.GetSupportingDocument(ctx.Request.Context(), middleware.UserID(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, doc, "")
}

// UpdateSupportingDocument changes document metadata
// @Summary Update supporting document
// @Tags documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Param request body dto.UpdateSupportingDocumentRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.MessageResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /forms/documents/{id} [put]
func (c *DocumentController) UpdateSupportingDocument(ctx *gin.Context) {
	id, ok := paramInt64(ctx, "id", "Document")
	if !ok {
		return
	}
	var req dto.UpdateSupportingDocumentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	message, err := c.documentService.UpdateSupportingDocument(ctx.Request.Context(), middleware.UserID(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, dto.MessageResponse{Message: message}, message)
}

// DeleteSupportingDocument soft deletes a supporting document
// @Summary Delete supporting document
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} dto.APIResponse{data=dto.MessageResponse}
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /forms/documents/{id} [delete]
func (c *DocumentController) DeleteSupportingDocument(ctx *gin.Context) {
	id, ok := paramInt64(ctx, "id", "Document")
	if !ok {
		return
	}

	message, err := c.documentService.DeleteSupportingDocument(ctx.Request.Context(), middleware.UserID(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, dto.MessageResponse{Message: message}, message)
}

// CombinedDocuments downloads the selected documents as one zip
// @Summary Download documents as zip
// @Description Documents of soldiers the requester cannot read are left out
// @Tags documents
// @Accept json
// @Produce application/zip
// @Security BearerAuth
// @Param request body dto.CombinedDocumentsRequest true "Selected documents"
// @Success 200 {file} file
// @Failure 400 {object} dto.ErrorResponse "No documents selected."
// @Failure 404 {object} dto.ErrorResponse "No documents found with provided IDs"
// @Router /forms/documents/combined [post]
func (c *DocumentController) CombinedDocuments(ctx *gin.Context) {
	var req dto.CombinedDocumentsRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	entries, err := c.documentService.CombinedDocuments(ctx.Request.Context(), middleware.UserID(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Header("Content-Type", "application/zip")
	ctx.Header("Content-Disposition", `attachment; filename="`+combinedArchiveName+`"`)
	ctx.Status(http.StatusOK)
	if err := c.documentService.WriteArchive(ctx.Writer, entries); err != nil {
		// headers are already sent
		c.logger.Error().Err(err).Int("entries", len(entries)).Msg("Failed to stream document archive")
		_ = ctx.Error(err)
	}
}

package handler

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enroll-portal-api/internal/models"
	"github.com/noah-isme/enroll-portal-api/internal/service"
	appErrors "github.com/noah-isme/enroll-portal-api/pkg/errors"
	"github.com/noah-isme/enroll-portal-api/pkg/response"
)

// ExportHandler serves applicant-list exports and the printable form.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler creates a new handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// PrintForm godoc
// @Summary Print a registration form
// @Description Render the submitted registration as a PDF
// @Tags Exports
// @Produce application/pdf
// @Param enrollmentId path string true "Enrollment ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /registrations/{enrollmentId}/form [get]
func (h *ExportHandler) PrintForm(c *gin.Context) {
	enrollmentID := c.Param("enrollmentId")
	payload, err := h.service.RenderRegistrationForm(c.Request.Context(), enrollmentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=registration_%s.pdf", enrollmentID))
	c.Data(http.StatusOK, "application/pdf", payload)
}

// Enqueue godoc
// @Summary Request an applicant-list export
// @Description Queue a CSV or PDF export of the applicant list
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body service.ExportRequest true "Export request"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /export [post]
func (h *ExportHandler) Enqueue(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req struct {
		Format     string `json:"format" binding:"required"`
		Status     string `json:"status"`
		GradeLevel string `json:"grade_level"`
		Search     string `json:"search"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export request"))
		return
	}

	jobID, err := h.service.Enqueue(c.Request.Context(), service.ExportRequest{
		Format: service.ExportFormat(req.Format),
		Filter: models.RegistrationFilter{
			Status:     models.RegistrationStatus(req.Status),
			GradeLevel: req.GradeLevel,
			Search:     req.Search,
		},
		RequestedBy: claims.UserID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"job_id": jobID}, nil)
}

// Status godoc
// @Summary Poll an export job
// @Tags Exports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /export/jobs/{id} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download a finished export
// @Description Stream the export file through its signed token
// @Tags Exports
// @Param token path string true "Download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /export/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	_, relPath, _, err := h.service.ParseToken(c.Param("token"), false)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "download link is invalid or expired"))
		return
	}

	file, err := h.service.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available"))
		return
	}
	defer file.Close() //nolint:errcheck

	contentType := "application/octet-stream"
	switch filepath.Ext(relPath) {
	case ".csv":
		contentType = "text/csv"
	case ".pdf":
		contentType = "application/pdf"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filepath.Base(relPath)))
	c.File(file.Name())
}

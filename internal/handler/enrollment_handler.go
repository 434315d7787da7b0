package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enroll-portal-api/internal/dto"
	"github.com/noah-isme/enroll-portal-api/internal/models"
	"github.com/noah-isme/enroll-portal-api/internal/service"
	appErrors "github.com/noah-isme/enroll-portal-api/pkg/errors"
	"github.com/noah-isme/enroll-portal-api/pkg/response"
)

// EnrollmentHandler wires the wizard endpoints: terms, step saves, document
// uploads, submission and staff review.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
	documents   *service.DocumentService
	cookieTTL   int
}

// NewEnrollmentHandler creates a new handler. cookieTTL is in seconds.
func NewEnrollmentHandler(enrollments *service.EnrollmentService, documents *service.DocumentService, cookieTTL int) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, documents: documents, cookieTTL: cookieTTL}
}

// AcceptTerms godoc
// @Summary Accept terms and conditions
// @Description Gate the wizard behind the terms dialog; creates the enrollment session
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param payload body dto.AcceptTermsRequest true "Terms payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /enrollment/terms [post]
func (h *EnrollmentHandler) AcceptTerms(c *gin.Context) {
	var req dto.AcceptTermsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid terms payload"))
		return
	}

	session, err := h.enrollments.AcceptTerms(c.Request.Context(), enrollmentID(c), req.Accepted)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.SetCookie(enrollmentCookie, session.EnrollmentID, h.cookieTTL, "/", "", false, true)
	response.JSON(c, http.StatusOK, gin.H{"enrollment_id": session.EnrollmentID, "terms_accepted": true}, nil)
}

// Draft godoc
// @Summary Resume an in-progress enrollment
// @Description Return the saved draft and step flags for the current session
// @Tags Enrollment
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollment [get]
func (h *EnrollmentHandler) Draft(c *gin.Context) {
	id := enrollmentID(c)
	if id == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "no enrollment in progress"))
		return
	}

	draft, err := h.enrollments.Session(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// SaveStep godoc
// @Summary Save one wizard step
// @Description Persist step 1 or step 2; identical re-submissions are acknowledged as resumes
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param payload body dto.SaveStepRequest true "Step payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /enrollment [post]
func (h *EnrollmentHandler) SaveStep(c *gin.Context) {
	var req dto.SaveStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid step payload"))
		return
	}
	if req.EnrollmentID == "" {
		req.EnrollmentID = enrollmentID(c)
	}

	var actor *models.JWTClaims
	if claims, ok := currentClaims(c); ok {
		actor = claims
	}

	res, err := h.enrollments.SaveStep(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// UploadDocument godoc
// @Summary Upload a certification document
// @Description Store one step-3 document; images are compressed server-side
// @Tags Enrollment
// @Accept multipart/form-data
// @Produce json
// @Param kind path string true "Document kind"
// @Param file formData file true "Document file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /enrollment/documents/{kind} [post]
func (h *EnrollmentHandler) UploadDocument(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}

	kind := models.DocumentKind(c.Param("kind"))
	res, err := h.documents.Store(c.Request.Context(), enrollmentID(c), kind, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// RemoveDocument godoc
// @Summary Remove an uploaded document
// @Tags Enrollment
// @Produce json
// @Param kind path string true "Document kind"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollment/documents/{kind} [delete]
func (h *EnrollmentHandler) RemoveDocument(c *gin.Context) {
	kind := models.DocumentKind(c.Param("kind"))
	if err := h.documents.Remove(c.Request.Context(), enrollmentID(c), kind); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Submit godoc
// @Summary Submit the enrollment
// @Description Finalize the wizard after the required documents are uploaded
// @Tags Enrollment
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /enrollment/submit [post]
func (h *EnrollmentHandler) Submit(c *gin.Context) {
	var userID *string
	if claims, ok := currentClaims(c); ok {
		userID = &claims.UserID
	}

	res, err := h.enrollments.Submit(c.Request.Context(), enrollmentID(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.SetCookie(enrollmentCookie, "", -1, "/", "", false, true)
	response.Created(c, res)
}

// Preview godoc
// @Summary Preview an uploaded document
// @Description Stream a stored document through its signed preview token
// @Tags Enrollment
// @Param token path string true "Preview token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /enrollment/preview/{token} [get]
func (h *EnrollmentHandler) Preview(c *gin.Context) {
	path, mime, err := h.documents.ResolvePreview(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Type", mime)
	c.Header("Cache-Control", "private, max-age=60")
	c.File(path)
}

// Approve godoc
// @Summary Approve a pending applicant
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param payload body dto.ApproveApplicantRequest true "Approval payload"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /approveApplicant [patch]
func (h *EnrollmentHandler) Approve(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ApproveApplicantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid approval payload"))
		return
	}

	if err := h.enrollments.Approve(c.Request.Context(), req.EnrollmentID, claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Reject godoc
// @Summary Reject a pending applicant
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param payload body dto.ApproveApplicantRequest true "Rejection payload"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /rejectApplicant [patch]
func (h *EnrollmentHandler) Reject(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ApproveApplicantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rejection payload"))
		return
	}

	if err := h.enrollments.Reject(c.Request.Context(), req.EnrollmentID, claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// PendingCount godoc
// @Summary Count pending applicants
// @Description Badge counter for the staff review queue
// @Tags Enrollment
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /applicants/pendingCount [get]
func (h *EnrollmentHandler) PendingCount(c *gin.Context) {
	count, err := h.enrollments.PendingCount(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"pending": count}, nil)
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enroll-portal-api/internal/models"
	"github.com/noah-isme/enroll-portal-api/internal/service"
	appErrors "github.com/noah-isme/enroll-portal-api/pkg/errors"
	"github.com/noah-isme/enroll-portal-api/pkg/response"
)

// StudentHandler serves the staff and student read/update views.
type StudentHandler struct {
	service *service.StudentService
}

// NewStudentHandler creates a new handler.
func NewStudentHandler(svc *service.StudentService) *StudentHandler {
	return &StudentHandler{service: svc}
}

// Profile godoc
// @Summary Get the signed-in student's profile
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /getStudentProfile [get]
func (h *StudentHandler) Profile(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	profile, err := h.service.Profile(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// List godoc
// @Summary List enrolled students
// @Tags Students
// @Produce json
// @Param grade_level query string false "Grade level"
// @Param section query string false "Section"
// @Param search query string false "Name or LRN search"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /getStudents [get]
func (h *StudentHandler) List(c *gin.Context) {
	filter := models.StudentFilter{
		GradeLevel: c.Query("grade_level"),
		Section:    c.Query("section"),
		Search:     c.Query("search"),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "page_size", 20),
		SortBy:     c.Query("sort_by"),
		SortOrder:  c.Query("sort_order"),
	}
	if raw := c.Query("active"); raw != "" {
		active := raw == "true"
		filter.Active = &active
	}

	students, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Applicants godoc
// @Summary List submitted registrations
// @Tags Students
// @Produce json
// @Param status query string false "Registration status"
// @Param grade_level query string false "Grade level"
// @Param search query string false "Name or LRN search"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /getApplicants [get]
func (h *StudentHandler) Applicants(c *gin.Context) {
	filter := models.RegistrationFilter{
		Status:     models.RegistrationStatus(c.Query("status")),
		GradeLevel: c.Query("grade_level"),
		Search:     c.Query("search"),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "page_size", 20),
		SortBy:     c.Query("sort_by"),
		SortOrder:  c.Query("sort_order"),
	}

	registrations, pagination, err := h.service.Applicants(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registrations, pagination)
}

// Emails godoc
// @Summary List all account emails
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /getAllEmails [get]
func (h *StudentHandler) Emails(c *gin.Context) {
	emails, err := h.service.Emails(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, emails, nil)
}

// Update godoc
// @Summary Update a student record
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body models.StudentUpdate true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /student_update/{id} [patch]
func (h *StudentHandler) Update(c *gin.Context) {
	var update models.StudentUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student update"))
		return
	}

	student, err := h.service.Update(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

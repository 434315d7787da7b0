package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enroll-portal-api/internal/service"
	"github.com/noah-isme/enroll-portal-api/pkg/response"
)

// PortalHandler serves the public dashboard reads.
type PortalHandler struct {
	service *service.PortalService
}

// NewPortalHandler creates a new handler.
func NewPortalHandler(svc *service.PortalService) *PortalHandler {
	return &PortalHandler{service: svc}
}

// Classrooms godoc
// @Summary List classrooms
// @Tags Portal
// @Produce json
// @Param grade_level query string false "Grade level"
// @Success 200 {object} response.Envelope
// @Router /getClassrooms [get]
func (h *PortalHandler) Classrooms(c *gin.Context) {
	classrooms, err := h.service.Classrooms(c.Request.Context(), c.Query("grade_level"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classrooms, nil)
}

// Announcements godoc
// @Summary List home-page announcements
// @Tags Portal
// @Produce json
// @Param audience query string false "Audience"
// @Success 200 {object} response.Envelope
// @Router /getHomeAnnouncement [get]
func (h *PortalHandler) Announcements(c *gin.Context) {
	audience := c.Query("audience")
	if audience == "" {
		audience = "all"
	}

	announcements, err := h.service.Announcements(c.Request.Context(), audience)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, announcements, nil)
}

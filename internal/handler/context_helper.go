package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enroll-portal-api/internal/middleware"
	"github.com/noah-isme/enroll-portal-api/internal/models"
)

// enrollmentCookie tracks the anonymous wizard session across requests.
const enrollmentCookie = "enrollment_id"

func currentClaims(c *gin.Context) (*models.JWTClaims, bool) {
	value, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	return claims, ok
}

// enrollmentID resolves the wizard session: the cookie first, then an
// explicit header for clients that do not send cookies.
func enrollmentID(c *gin.Context) string {
	if cookie, err := c.Cookie(enrollmentCookie); err == nil && cookie != "" {
		return cookie
	}
	return c.GetHeader("X-Enrollment-ID")
}

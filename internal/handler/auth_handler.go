package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enroll-portal-api/internal/models"
	"github.com/noah-isme/enroll-portal-api/internal/service"
	appErrors "github.com/noah-isme/enroll-portal-api/pkg/errors"
	"github.com/noah-isme/enroll-portal-api/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service    *service.AuthService
	cookieName string
	cookieTTL  int
}

// NewAuthHandler creates a new handler. cookieTTL is in seconds.
func NewAuthHandler(svc *service.AuthService, cookieName string, cookieTTL int) *AuthHandler {
	return &AuthHandler{service: svc, cookieName: cookieName, cookieTTL: cookieTTL}
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate by email or LRN and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.SetCookie(h.cookieName, res.AccessToken, h.cookieTTL, "/", "", false, true)
	response.JSON(c, http.StatusOK, res, nil)
}

// Probe godoc
// @Summary Probe current session
// @Description Resolve the role behind the session cookie so the client can route on startup
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /urlAuthentication [get]
func (h *AuthHandler) Probe(c *gin.Context) {
	claims, _ := currentClaims(c)
	response.JSON(c, http.StatusOK, h.service.Probe(c.Request.Context(), claims), nil)
}

// Logout godoc
// @Summary Logout current session
// @Description Clear the session cookie
// @Tags Authentication
// @Success 204 {object} response.Envelope
// @Router /logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(h.cookieName, "", -1, "/", "", false, true)
	response.NoContent(c)
}

// ChangePassword godoc
// @Summary Change password
// @Description Change password for the signed-in user
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ChangePasswordRequest true "Change password payload"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /change_password [patch]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid change password payload"))
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), claims.UserID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RequestCode godoc
// @Summary Request password reset code
// @Description Send a 6-digit reset code to the account email
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RequestCodeRequest true "Email payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /requestCode [post]
func (h *AuthHandler) RequestCode(c *gin.Context) {
	var req models.RequestCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reset request"))
		return
	}

	if err := h.service.RequestResetCode(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "if the email exists, a code was sent"}, nil)
}

// VerifyCode godoc
// @Summary Verify password reset code
// @Description Check a reset code without consuming it
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.VerifyCodeRequest true "Verification payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /verifyCode [post]
func (h *AuthHandler) VerifyCode(c *gin.Context) {
	var req models.VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid verification payload"))
		return
	}

	if err := h.service.VerifyResetCode(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"verified": true}, nil)
}

// ResetPassword godoc
// @Summary Reset password with a verified code
// @Description Complete the password reset flow
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ResetPasswordRequest true "Reset payload"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /changePassword [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reset payload"))
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enroll-portal-api/internal/service"
	appErrors "github.com/noah-isme/enroll-portal-api/pkg/errors"
	"github.com/noah-isme/enroll-portal-api/pkg/response"
)

// AddressHandler serves the cascading PSGC dropdowns and ZIP inference.
type AddressHandler struct {
	service *service.AddressService
}

// NewAddressHandler creates a new handler.
func NewAddressHandler(svc *service.AddressService) *AddressHandler {
	return &AddressHandler{service: svc}
}

// Regions godoc
// @Summary List regions
// @Tags Address
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /address/regions [get]
func (h *AddressHandler) Regions(c *gin.Context) {
	options, err := h.service.Regions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}

// Provinces godoc
// @Summary List provinces of a region
// @Tags Address
// @Produce json
// @Param region query string true "Region code"
// @Success 200 {object} response.Envelope
// @Router /address/provinces [get]
func (h *AddressHandler) Provinces(c *gin.Context) {
	region := c.Query("region")
	if region == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "region code is required"))
		return
	}

	options, err := h.service.Provinces(c.Request.Context(), region)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}

// Municipalities godoc
// @Summary List cities/municipalities
// @Description For NCR pass only the region code; elsewhere the province code is required
// @Tags Address
// @Produce json
// @Param region query string true "Region code"
// @Param province query string false "Province code"
// @Success 200 {object} response.Envelope
// @Router /address/municipalities [get]
func (h *AddressHandler) Municipalities(c *gin.Context) {
	region := c.Query("region")
	if region == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "region code is required"))
		return
	}

	options, err := h.service.Municipalities(c.Request.Context(), region, c.Query("province"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}

// Barangays godoc
// @Summary List barangays of a city/municipality
// @Tags Address
// @Produce json
// @Param municipality query string true "City/municipality code"
// @Success 200 {object} response.Envelope
// @Router /address/barangays [get]
func (h *AddressHandler) Barangays(c *gin.Context) {
	municipality := c.Query("municipality")
	if municipality == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "municipality code is required"))
		return
	}

	options, err := h.service.Barangays(c.Request.Context(), municipality)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}

// Zip godoc
// @Summary Infer the ZIP code of a city/municipality
// @Description Returns an empty value when no ZIP can be inferred; the field stays editable
// @Tags Address
// @Produce json
// @Param municipality query string true "City/municipality code"
// @Success 200 {object} response.Envelope
// @Router /address/zip [get]
func (h *AddressHandler) Zip(c *gin.Context) {
	municipality := c.Query("municipality")
	if municipality == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "municipality code is required"))
		return
	}

	zip, err := h.service.ResolveZip(c.Request.Context(), municipality)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"zip_code": zip}, nil)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/model"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/response"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/service"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/validator"
)

type SettingHandler struct {
	settingService *service.SettingService
}

func NewSettingHandler(settingService *service.SettingService) *SettingHandler {
	return &SettingHandler{settingService: settingService}
}

// GetAll godoc
// GET /api/v1/admin/settings
func (h *SettingHandler) GetAll(c *gin.Context) {
	settings, err := h.settingService.GetAll(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"settings": settings})
}

// Update godoc
// PUT /api/v1/admin/settings
// Updates settings and invalidates their cache, so a portal toggle takes
// effect on the next request.
func (h *SettingHandler) Update(c *gin.Context) {
	var req model.UpdateSettingsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.settingService.Update(c.Request.Context(), req.Settings); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "settings updated successfully"})
}

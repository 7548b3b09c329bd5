package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/model"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/response"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/service"
)

// RequirePortalOpen blocks student exam traffic while the portal toggle is
// off. Staff routes are unaffected.
func RequirePortalOpen(settingService *service.SettingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || claims.Role != model.RoleStudent {
			c.Next()
			return
		}

		enabled, err := settingService.PortalEnabled(c.Request.Context())
		if err != nil {
			response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}
		if !enabled {
			response.AbortFail(c, http.StatusForbidden, response.ErrPortalClosed)
			return
		}
		c.Next()
	}
}

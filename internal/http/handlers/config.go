package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prepsutra/dpp-backend/internal/http/response"
	"github.com/prepsutra/dpp-backend/internal/pkg/ctxutil"
	"github.com/prepsutra/dpp-backend/internal/services"
)

type ConfigHandler struct {
	configService services.ConfigService
}

func NewConfigHandler(configService services.ConfigService) *ConfigHandler {
	return &ConfigHandler{configService: configService}
}

// GET /api/dpp/config
func (h *ConfigHandler) GetConfig(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	cfg, err := h.configService.GetOrCreate(c.Request.Context(), userID)
	if err != nil {
		response.RespondDPPError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"config": cfg})
}

// PATCH /api/dpp/config
func (h *ConfigHandler) UpdateConfig(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.ConfigUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	cfg, err := h.configService.Update(c.Request.Context(), userID, req)
	if err != nil {
		response.RespondDPPError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"config": cfg})
}

// currentUserID pulls the authenticated user out of the request context and
// answers 401 itself when the middleware did not run.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"message": "not authenticated", "code": "unauthorized"},
		})
		return uuid.Nil, false
	}
	return rd.UserID, true
}

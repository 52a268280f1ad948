package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/prepsutra/dpp-backend/internal/http/response"
	"github.com/prepsutra/dpp-backend/internal/services"
)

type StatsHandler struct {
	statsService services.StatsService
}

func NewStatsHandler(statsService services.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// GET /api/dpp/stats?predictions=false&recommendations=false
func (h *StatsHandler) GetStats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	report, err := h.statsService.Report(c.Request.Context(), userID)
	if err != nil {
		response.RespondDPPError(c, err)
		return
	}
	if c.Query("predictions") == "false" {
		report.Predictions = services.Predictions{}
	}
	if c.Query("recommendations") == "false" {
		report.Recommendations = nil
	}
	response.RespondOK(c, report)
}

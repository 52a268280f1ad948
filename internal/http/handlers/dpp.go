package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prepsutra/dpp-backend/internal/http/response"
	"github.com/prepsutra/dpp-backend/internal/services"
)

const defaultHistoryLimit = 30

type DPPHandler struct {
	dppService        services.DPPService
	submissionService services.SubmissionService
}

func NewDPPHandler(dppService services.DPPService, submissionService services.SubmissionService) *DPPHandler {
	return &DPPHandler{dppService: dppService, submissionService: submissionService}
}

// GET /api/dpp/today?include_completed=true
func (h *DPPHandler) GetToday(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	includeCompleted := c.Query("include_completed") == "true"
	out, err := h.dppService.GetTodaysDPP(c.Request.Context(), userID, includeCompleted)
	if err != nil {
		response.RespondDPPError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// POST /api/dpp/generate
// body (optional): { "count": 5 }
func (h *DPPHandler) Generate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Count int `json:"count"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}

	out, err := h.dppService.GenerateDPP(c.Request.Context(), userID, req.Count)
	if err != nil {
		response.RespondDPPError(c, err)
		return
	}
	status := http.StatusOK
	if out.Generated {
		status = http.StatusCreated
	}
	c.JSON(status, out)
}

// POST /api/dpp/assignments/:id/submit
// body: { "answer": "...", "time_spent_sec": 42 }
func (h *DPPHandler) Submit(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	assignmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	var req services.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	result, err := h.submissionService.Submit(c.Request.Context(), userID, assignmentID, req)
	if err != nil {
		response.RespondDPPError(c, err)
		return
	}
	response.RespondOK(c, result)
}

// POST /api/dpp/assignments/:id/skip
func (h *DPPHandler) Skip(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	assignmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	result, err := h.submissionService.Skip(c.Request.Context(), userID, assignmentID)
	if err != nil {
		response.RespondDPPError(c, err)
		return
	}
	response.RespondOK(c, result)
}

// GET /api/dpp/history?limit=30
func (h *DPPHandler) History(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		limit = n
	}

	history, err := h.dppService.History(c.Request.Context(), userID, limit)
	if err != nil {
		response.RespondDPPError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"history": history})
}

// POST /api/dpp/practice-test
// body: { "subject_ids": [...], "topic_ids": [...], "difficulty": [...], "count": 10 }
func (h *DPPHandler) PracticeTest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.PracticeTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	questions, err := h.dppService.GeneratePracticeTest(c.Request.Context(), userID, req)
	if err != nil {
		response.RespondDPPError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"questions": questions})
}

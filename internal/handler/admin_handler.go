package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/quizhall/quizhall-backend/internal/model"
	"github.com/quizhall/quizhall-backend/internal/repository"
	"github.com/quizhall/quizhall-backend/internal/response"
	"github.com/quizhall/quizhall-backend/internal/service"
)

// AdminHandler handles the results dashboard and operational endpoints.
type AdminHandler struct {
	results        *repository.ResultRepository
	attemptService *service.AttemptService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(results *repository.ResultRepository, attemptService *service.AttemptService) *AdminHandler {
	return &AdminHandler{results: results, attemptService: attemptService}
}

// ListResults godoc
// GET /api/v1/admin/results?quiz_id=...
// Returns finalized results, newest first, optionally filtered by quiz.
func (h *AdminHandler) ListResults(c *gin.Context) {
	var (
		rows []model.ResultRow
		err  error
	)
	if quizID := c.Query("quiz_id"); quizID != "" {
		rows, err = h.results.ListByQuiz(c.Request.Context(), quizID)
	} else {
		rows, err = h.results.ListAll(c.Request.Context())
	}
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if rows == nil {
		rows = []model.ResultRow{}
	}

	response.Success(c, http.StatusOK, gin.H{"results": rows})
}

// GetResult godoc
// GET /api/v1/admin/results/:result_id
// Returns one result with its per-question breakdown.
func (h *AdminHandler) GetResult(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("result_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.results.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// GetStats godoc
// GET /api/v1/admin/stats
// Returns per-quiz attempt counts and score averages.
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.results.Stats(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if stats == nil {
		stats = []model.QuizStats{}
	}

	response.Success(c, http.StatusOK, gin.H{"stats": stats})
}

// TriggerSweep godoc
// POST /api/v1/admin/sweep
// Runs one expiry sweep pass immediately.
func (h *AdminHandler) TriggerSweep(c *gin.Context) {
	finalized, err := h.attemptService.RunSweep(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"finalized": finalized})
}

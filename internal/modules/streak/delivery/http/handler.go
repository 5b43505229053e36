package handler

import (
	"net/http"

	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	streakDto "github.com/GalitskyKK/kirakira-sub003/internal/modules/streak/dto"
	streak "github.com/GalitskyKK/kirakira-sub003/internal/modules/streak/service"
	"github.com/GalitskyKK/kirakira-sub003/pkg/dto"
	"github.com/GalitskyKK/kirakira-sub003/pkg/response"
	"github.com/GalitskyKK/kirakira-sub003/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type StreakHandler struct {
	service streak.StreakService
	ledger  streak.FreezeLedger
}

func NewStreakHandler(service streak.StreakService, ledger streak.FreezeLedger) *StreakHandler {
	return &StreakHandler{service: service, ledger: ledger}
}

func (h *StreakHandler) GetStreak(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	status, err := h.service.CheckStreak(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, status.Response())
}

func (h *StreakHandler) UseFreeze(c *gin.Context) {
	var req streakDto.UseFreezeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	result, err := h.service.UseStreakFreeze(c.Request.Context(), userID, streak.FreezeRequest{
		Type:       entity.FreezeKind(req.FreezeType),
		MissedDays: req.MissedDays,
	})
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, result.Response())
}

func (h *StreakHandler) Reset(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	result, err := h.service.ResetStreak(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, result.Response())
}

func (h *StreakHandler) FreezeHistory(c *gin.Context) {
	var query dto.ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	txs, err := h.service.FreezeHistory(c.Request.Context(), userID, query.LimitOr(20))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListResponse(txs))
}

func (h *StreakHandler) Leaderboard(c *gin.Context) {
	var query dto.ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	entries, err := h.service.Leaderboard(c.Request.Context(), query.LimitOr(10))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListResponse(entries))
}

// GrantCredits is the admin route for topping up a user's freeze balance.
func (h *StreakHandler) GrantCredits(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req streakDto.GrantCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	result, err := h.ledger.Credit(c.Request.Context(), userID, entity.FreezeKind(req.Kind), req.Amount)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, streakDto.GrantCreditsResponse{
		Accepted:  result.Accepted,
		Discarded: result.Discarded,
		Balance:   streakDto.ToBalanceResponse(result.Balance),
	})
}

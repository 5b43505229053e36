package handler

import (
	"net/http"

	reward "github.com/GalitskyKK/kirakira-sub003/internal/modules/reward/service"
	"github.com/GalitskyKK/kirakira-sub003/pkg/dto"
	"github.com/GalitskyKK/kirakira-sub003/pkg/response"
	"github.com/GalitskyKK/kirakira-sub003/pkg/validator"
	"github.com/gin-gonic/gin"
)

type RewardHandler struct {
	service reward.RewardService
}

func NewRewardHandler(service reward.RewardService) *RewardHandler {
	return &RewardHandler{service: service}
}

func (h *RewardHandler) GetSummary(c *gin.Context) {
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

	summary, err := h.service.Summary(c.Request.Context(), userID, query.LimitOr(10))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *RewardHandler) GetMilestones(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": reward.Milestones()})
}

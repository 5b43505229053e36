package handler

import (
	"net/http"

	moodDto "github.com/GalitskyKK/kirakira-sub003/internal/modules/mood/dto"
	mood "github.com/GalitskyKK/kirakira-sub003/internal/modules/mood/service"
	"github.com/GalitskyKK/kirakira-sub003/pkg/dto"
	"github.com/GalitskyKK/kirakira-sub003/pkg/response"
	"github.com/GalitskyKK/kirakira-sub003/pkg/validator"
	"github.com/gin-gonic/gin"
)

type MoodHandler struct {
	service mood.MoodService
}

func NewMoodHandler(service mood.MoodService) *MoodHandler {
	return &MoodHandler{service: service}
}

func (h *MoodHandler) CreateMood(c *gin.Context) {
	var req moodDto.CreateMoodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	resp, err := h.service.CreateMood(c.Request.Context(), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *MoodHandler) ListMoods(c *gin.Context) {
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

	entries, err := h.service.ListMoods(c.Request.Context(), userID, query.LimitOr(30))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListResponse(entries))
}

package handler

import (
	"net/http"

	"github.com/GalitskyKK/kirakira-sub003/internal/modules/user/dto"
	user "github.com/GalitskyKK/kirakira-sub003/internal/modules/user/service"
	"github.com/GalitskyKK/kirakira-sub003/pkg/response"
	"github.com/GalitskyKK/kirakira-sub003/pkg/validator"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	service user.UserService
}

func NewUserHandler(service user.UserService) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) GetMe(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	me, err := h.service.GetMe(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, me)
}

func (h *UserHandler) UpdateTimezone(c *gin.Context) {
	var req dto.UpdateTimezoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.UpdateTimezone(c.Request.Context(), userID, req.Timezone); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"timezone": req.Timezone})
}

package me

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/identity-admin/internal/handler"
	"github.com/jwalitptl/identity-admin/internal/middleware"
	"github.com/jwalitptl/identity-admin/internal/model"
	"github.com/jwalitptl/identity-admin/internal/service/me"
	apperrors "github.com/jwalitptl/identity-admin/pkg/errors"
)

type Handler struct {
	service me.Servicer
}

func NewHandler(service me.Servicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.Get)
	r.POST("/changepassword", h.ChangePassword)
}

func (h *Handler) Get(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		handler.RespondError(c, apperrors.Unauthorized(nil))
		return
	}
	id, err := claims.UserID()
	if err != nil {
		handler.RespondError(c, apperrors.Unauthorized(err))
		return
	}

	user, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, user)
}

func (h *Handler) ChangePassword(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		handler.RespondError(c, apperrors.Unauthorized(nil))
		return
	}
	if _, err := claims.UserID(); err != nil {
		handler.RespondError(c, apperrors.Unauthorized(err))
		return
	}

	var req model.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, handler.BindingError(err))
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), middleware.Actor(c), claims, &req); err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, nil)
}

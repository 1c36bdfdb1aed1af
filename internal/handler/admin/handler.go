package admin

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/identity-admin/internal/handler"
	"github.com/jwalitptl/identity-admin/internal/middleware"
	"github.com/jwalitptl/identity-admin/internal/model"
	"github.com/jwalitptl/identity-admin/internal/service/admin"
	apperrors "github.com/jwalitptl/identity-admin/pkg/errors"
)

type Handler struct {
	service admin.Servicer
}

func NewHandler(service admin.Servicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/users", h.ListUsers)
	r.GET("/roles", h.ListRoles)
	r.POST("/role", h.CreateRole)
	r.DELETE("/role/:name", h.DeleteRole)

	user := r.Group("/user")
	{
		user.POST("", h.CreateUser)
		user.GET("/:id", h.GetUser)
		user.PUT("/:id", h.UpdateUser)
		user.POST("/:id/lock", h.LockUser)
		user.POST("/:id/unlock", h.UnlockUser)
		user.POST("/:id/reset", h.ResetPassword)
		user.GET("/:id/roles", h.UserRoles)
		user.PUT("/:id/role/:role", h.GrantRole)
		user.DELETE("/:id/role/:role", h.RevokeRole)
	}
}

// userID parses the :id parameter. Ids that cannot name a user are reported
// the same way as unknown ones.
func userID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondError(c, apperrors.NotFound(apperrors.MsgUserNotFound, err))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) ListUsers(c *gin.Context) {
	var q model.UserQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		handler.RespondError(c, handler.BindingError(err))
		return
	}

	users, err := h.service.ListUsers(c.Request.Context(), &q)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, users)
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req model.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, handler.BindingError(err))
		return
	}

	user, err := h.service.CreateUser(c.Request.Context(), middleware.Actor(c), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondCreated(c, user)
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, user)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	var req model.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, handler.BindingError(err))
		return
	}

	user, err := h.service.UpdateUser(c.Request.Context(), middleware.Actor(c), id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, user)
}

func (h *Handler) LockUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	user, err := h.service.LockUser(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, user)
}

func (h *Handler) UnlockUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	user, err := h.service.UnlockUser(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, user)
}

func (h *Handler) ResetPassword(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	resp, err := h.service.ResetPassword(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, resp)
}

func (h *Handler) UserRoles(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	roles, err := h.service.UserRoles(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, roles)
}

func (h *Handler) ListRoles(c *gin.Context) {
	roles, err := h.service.Roles(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, roles)
}

func (h *Handler) CreateRole(c *gin.Context) {
	var req model.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, handler.BindingError(err))
		return
	}

	role, err := h.service.CreateRole(c.Request.Context(), middleware.Actor(c), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondCreated(c, role)
}

func (h *Handler) DeleteRole(c *gin.Context) {
	if err := h.service.DeleteRole(c.Request.Context(), middleware.Actor(c), c.Param("name")); err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, nil)
}

func (h *Handler) GrantRole(c *gin.Context) {
	h.changeRole(c, h.service.GrantRole)
}

func (h *Handler) RevokeRole(c *gin.Context) {
	h.changeRole(c, h.service.RevokeRole)
}

type roleChange func(ctx context.Context, actor model.Actor, id uuid.UUID, role string) (*model.UserResponse, error)

func (h *Handler) changeRole(c *gin.Context, change roleChange) {
	id, ok := userID(c)
	if !ok {
		return
	}

	role := c.Param("role")
	if role == "" {
		handler.RespondError(c, handler.BindingError(errors.New("role is required")))
		return
	}

	user, err := change(c.Request.Context(), middleware.Actor(c), id, role)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, user)
}

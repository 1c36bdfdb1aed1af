package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/identity-admin/internal/identity"
	apperrors "github.com/jwalitptl/identity-admin/pkg/errors"
	"github.com/jwalitptl/identity-admin/pkg/password"
)

const MsgInvalidRequest = "invalid-request"

type Response struct {
	Status   string      `json:"status"`
	Message  string      `json:"message,omitempty"`
	Messages []string    `json:"messages,omitempty"`
	Data     interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// ToAppError maps domain errors onto API errors.
func ToAppError(err error) *apperrors.AppError {
	var (
		appErr *apperrors.AppError
		idErr  *identity.Error
	)
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.As(err, &idErr):
		return apperrors.Identity(idErr.Messages(), err)
	case errors.Is(err, identity.ErrUserNotFound):
		return apperrors.NotFound(apperrors.MsgUserNotFound, err)
	case errors.Is(err, identity.ErrRoleNotFound):
		return apperrors.NotFound(apperrors.MsgRoleNotFound, err)
	case errors.Is(err, password.ErrPolicyUnsatisfiable):
		internal := apperrors.Internal(err)
		internal.Message = apperrors.MsgPolicyUnsatisfiable
		return internal
	default:
		return apperrors.Internal(err)
	}
}

// RespondError writes err as an error envelope and aborts the chain.
func RespondError(c *gin.Context, err error) {
	appErr := ToAppError(err)
	status := appErr.StatusCode()

	if status >= http.StatusInternalServerError {
		log.Ctx(c.Request.Context()).Error().
			Err(err).
			Str("path", c.FullPath()).
			Msg("request failed")
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, &Response{
		Status:   "error",
		Message:  appErr.Message,
		Messages: appErr.Details,
	})
}

// BindingError reports a request that failed binding or validation.
func BindingError(err error) *apperrors.AppError {
	appErr := apperrors.BadRequest(MsgInvalidRequest, err)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			appErr.Details = append(appErr.Details, fmt.Sprintf("%s: failed on '%s'", fe.Field(), fe.Tag()))
		}
	} else {
		appErr.Details = []string{err.Error()}
	}
	return appErr
}

func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, NewSuccessResponse(data))
}

func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, NewSuccessResponse(data))
}

package me

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/identity-admin/internal/handler"
	"github.com/jwalitptl/identity-admin/internal/identity"
	"github.com/jwalitptl/identity-admin/internal/middleware"
	"github.com/jwalitptl/identity-admin/internal/model"
	"github.com/jwalitptl/identity-admin/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeService struct {
	err      error
	gotID    uuid.UUID
	gotActor model.Actor
}

func (f *fakeService) Get(_ context.Context, id uuid.UUID) (*model.UserResponse, error) {
	f.gotID = id
	if f.err != nil {
		return nil, f.err
	}
	return &model.UserResponse{ID: id, UserName: "bob", Roles: []string{}}, nil
}

func (f *fakeService) ChangePassword(_ context.Context, actor model.Actor, _ *auth.Claims, _ *model.ChangePasswordRequest) error {
	f.gotActor = actor
	return f.err
}

// newEngine stands in for the auth middleware by storing claims for subject.
func newEngine(svc *fakeService, subject string) *gin.Engine {
	engine := gin.New()
	group := engine.Group("/api/me", func(c *gin.Context) {
		c.Set(middleware.ContextClaims, &auth.Claims{
			Name:             "bob",
			RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
		})
	})
	NewHandler(svc).RegisterRoutes(group)
	return engine
}

func do(t *testing.T, engine *gin.Engine, method, path, body string) (int, handler.Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var resp handler.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

const changeBody = `{"old_password":"old","new_password":"N3w!password"}`

func TestHandler_Get(t *testing.T) {
	id := uuid.New()
	svc := &fakeService{}

	status, resp := do(t, newEngine(svc, id.String()), http.MethodGet, "/api/me", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, id, svc.gotID)

	svc.err = identity.ErrUserNotFound
	status, resp = do(t, newEngine(svc, id.String()), http.MethodGet, "/api/me", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "user-not-found", resp.Message)
}

func TestHandler_SubjectNotUserID(t *testing.T) {
	svc := &fakeService{}
	engine := newEngine(svc, "alice")

	status, resp := do(t, engine, http.MethodGet, "/api/me", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid-credential", resp.Message)

	status, resp = do(t, engine, http.MethodPost, "/api/me/changepassword", changeBody)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid-credential", resp.Message)
	assert.Equal(t, uuid.Nil, svc.gotID)
}

func TestHandler_ChangePassword(t *testing.T) {
	id := uuid.New()

	t.Run("success", func(t *testing.T) {
		svc := &fakeService{}
		status, resp := do(t, newEngine(svc, id.String()), http.MethodPost, "/api/me/changepassword", changeBody)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "success", resp.Status)
		assert.Equal(t, id, svc.gotActor.ID)
		assert.Equal(t, "bob", svc.gotActor.Name)
	})

	t.Run("password mismatch", func(t *testing.T) {
		svc := &fakeService{err: &identity.Error{Failures: []identity.Failure{
			{Code: identity.CodePasswordMismatch, Description: "Incorrect password."},
		}}}
		status, resp := do(t, newEngine(svc, id.String()), http.MethodPost, "/api/me/changepassword", changeBody)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "error", resp.Status)
		assert.Equal(t, "PasswordMismatch: Incorrect password.", resp.Message)
		assert.Equal(t, []string{"PasswordMismatch: Incorrect password."}, resp.Messages)
	})

	t.Run("missing fields", func(t *testing.T) {
		status, resp := do(t, newEngine(&fakeService{}, id.String()), http.MethodPost, "/api/me/changepassword", `{}`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, handler.MsgInvalidRequest, resp.Message)
	})
}

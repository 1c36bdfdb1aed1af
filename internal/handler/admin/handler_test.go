package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/identity-admin/internal/handler"
	"github.com/jwalitptl/identity-admin/internal/identity"
	"github.com/jwalitptl/identity-admin/internal/model"
	"github.com/jwalitptl/identity-admin/pkg/password"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeService answers every call with err, or with a fixed user when err is nil.
type fakeService struct {
	err       error
	lastQuery *model.UserQuery
	lastRole  string
	user      *model.UserResponse
}

func (f *fakeService) ListUsers(_ context.Context, q *model.UserQuery) (*model.ListResponse[*model.UserResponse], error) {
	f.lastQuery = q
	if f.err != nil {
		return nil, f.err
	}
	return &model.ListResponse[*model.UserResponse]{Items: []*model.UserResponse{f.user}, Total: 1, Page: 1, PageSize: 20}, nil
}

func (f *fakeService) CreateUser(context.Context, model.Actor, *model.CreateUserRequest) (*model.UserResponse, error) {
	return f.user, f.err
}

func (f *fakeService) GetUser(context.Context, uuid.UUID) (*model.UserResponse, error) {
	return f.user, f.err
}

func (f *fakeService) UpdateUser(context.Context, model.Actor, uuid.UUID, *model.UpdateUserRequest) (*model.UserResponse, error) {
	return f.user, f.err
}

func (f *fakeService) LockUser(context.Context, model.Actor, uuid.UUID) (*model.UserResponse, error) {
	return f.user, f.err
}

func (f *fakeService) UnlockUser(context.Context, model.Actor, uuid.UUID) (*model.UserResponse, error) {
	return f.user, f.err
}

func (f *fakeService) ResetPassword(context.Context, model.Actor, uuid.UUID) (*model.ResetPasswordResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.ResetPasswordResponse{Password: "Gen3rated!"}, nil
}

func (f *fakeService) UserRoles(context.Context, uuid.UUID) ([]*model.Role, error) {
	return []*model.Role{{Name: "admin"}}, f.err
}

func (f *fakeService) Roles(context.Context) ([]*model.Role, error) {
	return []*model.Role{{Name: "admin"}}, f.err
}

func (f *fakeService) CreateRole(_ context.Context, _ model.Actor, req *model.CreateRoleRequest) (*model.Role, error) {
	return &model.Role{Name: req.Name}, f.err
}

func (f *fakeService) DeleteRole(_ context.Context, _ model.Actor, name string) error {
	f.lastRole = name
	return f.err
}

func (f *fakeService) GrantRole(_ context.Context, _ model.Actor, _ uuid.UUID, role string) (*model.UserResponse, error) {
	f.lastRole = role
	return f.user, f.err
}

func (f *fakeService) RevokeRole(_ context.Context, _ model.Actor, _ uuid.UUID, role string) (*model.UserResponse, error) {
	f.lastRole = role
	return f.user, f.err
}

func newEngine(svc *fakeService) *gin.Engine {
	engine := gin.New()
	NewHandler(svc).RegisterRoutes(engine.Group("/api/admin"))
	return engine
}

func do(t *testing.T, engine *gin.Engine, method, path, body string) (int, handler.Response) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var resp handler.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestHandler_Success(t *testing.T) {
	id := uuid.New()
	svc := &fakeService{user: &model.UserResponse{ID: id, UserName: "bob", Roles: []string{}}}
	engine := newEngine(svc)
	userPath := "/api/admin/user/" + id.String()

	tests := []struct {
		method, path, body string
		status             int
	}{
		{http.MethodGet, "/api/admin/users", "", http.StatusOK},
		{http.MethodPost, "/api/admin/user", `{"username":"bob","email":"bob@example.com","password":"x"}`, http.StatusCreated},
		{http.MethodGet, userPath, "", http.StatusOK},
		{http.MethodPut, userPath, `{"fullname":"Bob"}`, http.StatusOK},
		{http.MethodPost, userPath + "/lock", "", http.StatusOK},
		{http.MethodPost, userPath + "/unlock", "", http.StatusOK},
		{http.MethodPost, userPath + "/reset", "", http.StatusOK},
		{http.MethodGet, userPath + "/roles", "", http.StatusOK},
		{http.MethodGet, "/api/admin/roles", "", http.StatusOK},
		{http.MethodPost, "/api/admin/role", `{"name":"ops"}`, http.StatusCreated},
		{http.MethodDelete, "/api/admin/role/ops", "", http.StatusOK},
		{http.MethodPut, userPath + "/role/ops", "", http.StatusOK},
		{http.MethodDelete, userPath + "/role/ops", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			status, resp := do(t, engine, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, "success", resp.Status)
		})
	}
	assert.Equal(t, "ops", svc.lastRole)
}

func TestHandler_ListUsersQuery(t *testing.T) {
	svc := &fakeService{user: &model.UserResponse{}}
	engine := newEngine(svc)

	status, _ := do(t, engine, http.MethodGet, "/api/admin/users?page=2&page_size=5&search=bo&sort=-email&locked=true", "")
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, svc.lastQuery)
	assert.Equal(t, 2, svc.lastQuery.Page)
	assert.Equal(t, 5, svc.lastQuery.PageSize)
	assert.Equal(t, "bo", svc.lastQuery.Search)
	assert.Equal(t, "-email", svc.lastQuery.Sort)
	require.NotNil(t, svc.lastQuery.Locked)
	assert.True(t, *svc.lastQuery.Locked)

	status, resp := do(t, engine, http.MethodGet, "/api/admin/users?sort=password", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, handler.MsgInvalidRequest, resp.Message)

	status, _ = do(t, engine, http.MethodGet, "/api/admin/users?page_size=-1", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHandler_Errors(t *testing.T) {
	id := uuid.NewString()

	t.Run("malformed id is not found", func(t *testing.T) {
		status, resp := do(t, newEngine(&fakeService{}), http.MethodGet, "/api/admin/user/not-a-uuid", "")
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "user-not-found", resp.Message)
	})

	t.Run("missing user", func(t *testing.T) {
		svc := &fakeService{err: identity.ErrUserNotFound}
		for _, path := range []string{"", "/roles"} {
			status, resp := do(t, newEngine(svc), http.MethodGet, "/api/admin/user/"+id+path, "")
			assert.Equal(t, http.StatusNotFound, status)
			assert.Equal(t, "user-not-found", resp.Message)
		}
		status, _ := do(t, newEngine(svc), http.MethodPost, "/api/admin/user/"+id+"/lock", "")
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("identity failures", func(t *testing.T) {
		svc := &fakeService{err: &identity.Error{Failures: []identity.Failure{
			{Code: "DuplicateUserName", Description: "User name 'bob' is already taken."},
			{Code: "PasswordTooShort", Description: "Passwords must be at least 8 characters."},
		}}}
		status, resp := do(t, newEngine(svc), http.MethodPost, "/api/admin/user",
			`{"username":"bob","email":"bob@example.com","password":"x"}`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "error", resp.Status)
		assert.Equal(t, "DuplicateUserName: User name 'bob' is already taken.", resp.Message)
		assert.Len(t, resp.Messages, 2)
	})

	t.Run("binding failure", func(t *testing.T) {
		status, resp := do(t, newEngine(&fakeService{}), http.MethodPost, "/api/admin/user", `{"username":"bob"}`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, handler.MsgInvalidRequest, resp.Message)
		assert.NotEmpty(t, resp.Messages)
	})

	t.Run("unsatisfiable policy", func(t *testing.T) {
		svc := &fakeService{err: password.ErrPolicyUnsatisfiable}
		status, resp := do(t, newEngine(svc), http.MethodPost, "/api/admin/user/"+id+"/reset", "")
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "password-policy-unsatisfiable", resp.Message)
	})

	t.Run("missing role", func(t *testing.T) {
		svc := &fakeService{err: identity.ErrRoleNotFound}
		status, resp := do(t, newEngine(svc), http.MethodDelete, "/api/admin/role/ghost", "")
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "role-not-found", resp.Message)
	})
}

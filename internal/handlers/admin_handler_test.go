package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/booklog/backend/internal/models"
	"github.com/booklog/backend/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// mockAdminService is a mock implementation of AdminService
type mockAdminService struct {
	dashboard  *models.DashboardResponse
	err        error
	gotPage    int
	gotRequest *models.RegisterRequest
	deleted    int
}

func (m *mockAdminService) Dashboard(ctx context.Context, viewer *models.Identity, page int) (*models.DashboardResponse, error) {
	m.gotPage = page
	if m.err != nil {
		return nil, m.err
	}
	return m.dashboard, nil
}

func (m *mockAdminService) CreateUser(ctx context.Context, viewer *models.Identity, req *models.RegisterRequest) (*models.User, error) {
	m.gotRequest = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.User{ID: 10, Username: req.Username}, nil
}

func (m *mockAdminService) DeleteUser(ctx context.Context, viewer *models.Identity, userID int) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = userID
	return nil
}

func newAdminHandler(t *testing.T, svc *mockAdminService) *AdminHandler {
	return NewAdminHandler(svc, false, zaptest.NewLogger(t))
}

func TestAdminHandler_Dashboard(t *testing.T) {
	t.Run("admin", func(t *testing.T) {
		svc := &mockAdminService{dashboard: &models.DashboardResponse{
			Users: []models.UserListItem{{ID: 1, Username: "alice"}, {ID: 9, Username: "root", IsAdmin: true}},
			Posts: models.PostPage{Page: 2, HasPrev: true},
		}}

		w := serve(t, newAdminHandler(t, svc), http.MethodGet, "/admin?page=2", nil, root)

		_, data := decodeView(t, w)
		var dashboard struct {
			Users   []models.UserListItem `json:"users"`
			PrevURL string                `json:"prevUrl"`
			NextURL string                `json:"nextUrl"`
		}
		require.NoError(t, json.Unmarshal(data, &dashboard))
		assert.Len(t, dashboard.Users, 2)
		assert.Equal(t, "/admin?page=1", dashboard.PrevURL)
		assert.Empty(t, dashboard.NextURL)
		assert.Equal(t, 2, svc.gotPage)
	})

	t.Run("regular user", func(t *testing.T) {
		w := serve(t, newAdminHandler(t, &mockAdminService{err: models.ErrForbidden}), http.MethodGet, "/admin", nil, alice)
		assertRedirect(t, w, "/home", msgPermissionDenied)
	})
}

func TestAdminHandler_AddUser(t *testing.T) {
	form := url.Values{"username": {"dave"}, "email": {"dave@example.com"}, "password": {"pw"}, "password2": {"pw"}}

	t.Run("form for admin", func(t *testing.T) {
		w := serve(t, newAdminHandler(t, &mockAdminService{}), http.MethodGet, "/add_user", nil, root)
		_, data := decodeView(t, w)
		assert.JSONEq(t, `{"title":"Register"}`, string(data))
	})

	t.Run("form for regular user", func(t *testing.T) {
		w := serve(t, newAdminHandler(t, &mockAdminService{}), http.MethodGet, "/add_user", nil, alice)
		assertRedirect(t, w, "/home", msgPermissionDenied)
	})

	t.Run("registered", func(t *testing.T) {
		svc := &mockAdminService{}
		w := serve(t, newAdminHandler(t, svc), http.MethodPost, "/add_user", form, root)

		assertRedirect(t, w, "/admin", "Congratulations, the user has been registered!")
		require.NotNil(t, svc.gotRequest)
		assert.Equal(t, "dave@example.com", svc.gotRequest.Email)
	})

	t.Run("email taken", func(t *testing.T) {
		svc := &mockAdminService{err: validation.Errors{"email": "Please use a different email address."}}
		w := serve(t, newAdminHandler(t, svc), http.MethodPost, "/add_user", form, root)

		assert.Equal(t, map[string]string{"email": "Please use a different email address."}, decodeFieldErrors(t, w))
	})
}

func TestAdminHandler_DeleteUser(t *testing.T) {
	tests := []struct {
		name             string
		svcErr           error
		expectedStatus   int
		expectedLocation string
		expectedFlash    string
	}{
		{"deleted", nil, http.StatusSeeOther, "/admin", "The user has been deleted!"},
		{"self", models.ErrSelfDelete, http.StatusSeeOther, "/admin", "You cannot delete yourself!"},
		{"not an admin", models.ErrForbidden, http.StatusSeeOther, "/home", msgPermissionDenied},
		{"missing", fmt.Errorf("user %w", models.ErrNotFound), http.StatusNotFound, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAdminService{err: tt.svcErr}
			w := serve(t, newAdminHandler(t, svc), http.MethodPost, "/delete_user/2", nil, root)

			if tt.expectedStatus != http.StatusSeeOther {
				assert.Equal(t, tt.expectedStatus, w.Code)
				return
			}
			assertRedirect(t, w, tt.expectedLocation, tt.expectedFlash)
			if tt.svcErr == nil {
				assert.Equal(t, 2, svc.deleted)
			}
		})
	}
}

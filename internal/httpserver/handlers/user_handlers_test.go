package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"kioskhub/internal/access"
	"kioskhub/internal/models"
)

func withRouteParam(r *http.Request, key, val string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, val)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func withAccess(r *http.Request, ac access.Context) *http.Request {
	return r.WithContext(access.WithContext(r.Context(), ac))
}

func userRow(id string, role models.Role) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "role", "is_active"}).
		AddRow(id, id+"@example.com", string(role), true)
}

func scopeCountRow(n int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count"}).AddRow(n)
}

func TestDeactivateUserOutOfScope(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(userRow("victim-id", models.RoleGymManager))
	mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(scopeCountRow(0))

	r := httptest.NewRequest("DELETE", "/v1/users/victim-id", nil)
	r = withRouteParam(r, "id", "victim-id")
	r = withAccess(r, access.Context{UserID: "caller", Role: models.RoleFranchiseAdmin})
	w := httptest.NewRecorder()
	DeactivateUser(db, zap.NewNop().Sugar())(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "out of scope")
	assert.NoError(t, mock.ExpectationsWereMet(), "no update may run for an out-of-scope target")
}

func TestDeactivateUserPeerRoleForbidden(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(userRow("admin-id", models.RoleSuperAdmin))

	r := httptest.NewRequest("DELETE", "/v1/users/admin-id", nil)
	r = withRouteParam(r, "id", "admin-id")
	r = withAccess(r, access.Context{
		UserID:       "caller",
		Role:         models.RoleFranchiseAdmin,
		FranchiseIDs: []string{"f1"},
		GymIDs:       []string{"g1"},
	})
	w := httptest.NewRecorder()
	DeactivateUser(db, zap.NewNop().Sugar())(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateUserInScope(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(userRow("mgr-id", models.RoleGymManager))
	mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(scopeCountRow(1))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	r := httptest.NewRequest("DELETE", "/v1/users/mgr-id", nil)
	r = withRouteParam(r, "id", "mgr-id")
	r = withAccess(r, access.Context{
		UserID: "caller",
		Role:   models.RoleFranchiseAdmin,
		GymIDs: []string{"g1"},
	})
	w := httptest.NewRecorder()
	DeactivateUser(db, zap.NewNop().Sugar())(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserOutOfScope(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(userRow("victim-id", models.RoleGymManager))
	mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(scopeCountRow(0))

	r := httptest.NewRequest("PATCH", "/v1/users/victim-id", strings.NewReader(`{"password":"hijacked-pass"}`))
	r = withRouteParam(r, "id", "victim-id")
	r = withAccess(r, access.Context{
		UserID:       "caller",
		Role:         models.RoleFranchiseAdmin,
		FranchiseIDs: []string{"f1"},
	})
	w := httptest.NewRecorder()
	UpdateUser(db, zap.NewNop().Sugar())(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "out of scope")
	assert.NoError(t, mock.ExpectationsWereMet(), "no save may run for an out-of-scope target")
}

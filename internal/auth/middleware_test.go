package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"kioskhub/internal/access"
	"kioskhub/internal/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	return db
}

func TestJWTAuthRejectsMissingToken(t *testing.T) {
	h := JWTAuth(testDB(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run")
	}))
	r := httptest.NewRequest("GET", "/v1/me", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"missing bearer token"}`, w.Body.String())
}

func TestJWTAuthRejectsInvalidToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	h := JWTAuth(testDB(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run")
	}))
	r := httptest.NewRequest("GET", "/v1/me", nil)
	r.Header.Set("Authorization", "Bearer bogus")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoleHierarchy(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := RequireRole(models.RoleFranchiseAdmin)(next)

	call := func(ac access.Context) *httptest.ResponseRecorder {
		r := httptest.NewRequest("GET", "/v1/franchises", nil)
		r = r.WithContext(access.WithContext(r.Context(), ac))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	assert.Equal(t, http.StatusOK, call(access.Context{Role: models.RoleSuperAdmin}).Code)
	assert.Equal(t, http.StatusOK, call(access.Context{Role: models.RoleFranchiseAdmin}).Code)

	w := call(access.Context{Role: models.RoleGymManager})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"redirect_to":"/gym"`)
}

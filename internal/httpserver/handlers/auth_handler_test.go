package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kioskhub/internal/auth"
	"kioskhub/internal/models"
)

func TestLoginResolveFailureCreatesNoSession(t *testing.T) {
	db, mock := newMockDB(t)

	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(
		sqlmock.NewRows([]string{"id", "email", "password_hash", "role", "is_active"}).
			AddRow("u1", "admin@example.com", hash, string(models.RoleFranchiseAdmin), true))
	// scope resolution blows up after the password already checked out
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnError(errors.New("connection reset"))

	r := httptest.NewRequest("POST", "/v1/auth/login",
		strings.NewReader(`{"email":"admin@example.com","password":"password123"}`))
	w := httptest.NewRecorder()
	Login(db, zap.NewNop().Sugar())(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet(), "no session row may be written when scope resolution fails")
}

package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"kioskhub/internal/models"
)

func invitationRow(token string, status models.InvitationStatus, expiresAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "role", "token", "status", "expires_at"}).
		AddRow("inv-1", "new@example.com", string(models.RoleGymManager), token, string(status), expiresAt)
}

func postAccept(t *testing.T, db *gorm.DB, token string) *httptest.ResponseRecorder {
	t.Helper()
	body := fmt.Sprintf(`{"token":%q,"password":"longenough1"}`, token)
	r := httptest.NewRequest("POST", "/v1/invitations/accept", strings.NewReader(body))
	w := httptest.NewRecorder()
	AcceptInvitation(db, zap.NewNop().Sugar())(w, r)
	return w
}

func TestAcceptInvitationReplayedCreatesNoUser(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "invitations"`).
		WillReturnRows(invitationRow("tok-used", models.InvitationAccepted, time.Now().Add(24*time.Hour)))
	mock.ExpectRollback()

	w := postAccept(t, db, "tok-used")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already accepted")
	assert.NoError(t, mock.ExpectationsWereMet(), "replay must roll back without inserting a user")
}

func TestAcceptInvitationExpired(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "invitations"`).
		WillReturnRows(invitationRow("tok-old", models.InvitationPending, time.Now().Add(-time.Hour)))
	mock.ExpectRollback()

	w := postAccept(t, db, "tok-old")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "expired")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptInvitationUnknownToken(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "invitations"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	w := postAccept(t, db, "tok-missing")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

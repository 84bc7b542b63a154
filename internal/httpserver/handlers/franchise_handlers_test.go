package handlers

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func TestLoadFranchiseStats(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT`).
		WithArgs("f-1", "f-1").
		WillReturnRows(sqlmock.NewRows([]string{"gym_count", "active_user_count"}).AddRow(4, 11))

	st, err := loadFranchiseStats(db, "f-1")
	require.NoError(t, err)
	assert.EqualValues(t, 4, st.GymCount)
	assert.EqualValues(t, 11, st.ActiveUserCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadFranchiseStatsError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT`).WillReturnError(assert.AnError)

	_, err := loadFranchiseStats(db, "f-2")
	assert.Error(t, err)
}

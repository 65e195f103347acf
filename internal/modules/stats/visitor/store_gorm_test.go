package visitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mx-space/footprint/internal/models"
)

func newMockGorm(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewGormStore(gdb), mock
}

func visitColumns() []string {
	return []string{"id", "created_at", "updated_at", "ip", "session_id", "page", "time_on_page", "is_bounce", "last_visit"}
}

func TestGormLatestBySessionPage(t *testing.T) {
	store, mock := newMockGorm(t)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT \\* FROM `visits` WHERE session_id = \\? AND page = \\? ORDER BY created_at DESC").
		WithArgs("s1", "/home", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(visitColumns()).
			AddRow("v1", at, at, "1.1.1.1", "s1", "/home", 4, true, at))

	v, err := store.LatestBySessionPage(context.Background(), "s1", "/home")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "v1", v.ID)
	assert.EqualValues(t, 4, v.TimeOnPage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormLatestBySessionPageMissing(t *testing.T) {
	store, mock := newMockGorm(t)
	mock.ExpectQuery("SELECT \\* FROM `visits` WHERE session_id = \\? AND page = \\?").
		WillReturnRows(sqlmock.NewRows(visitColumns()))

	v, err := store.LatestBySessionPage(context.Background(), "s1", "/none")
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCreate(t *testing.T) {
	store, mock := newMockGorm(t)
	mock.ExpectExec("INSERT INTO `visits`").WillReturnResult(sqlmock.NewResult(0, 1))

	v := &models.VisitModel{SessionID: "s1", Page: "/"}
	require.NoError(t, store.Create(context.Background(), v))
	assert.Len(t, v.ID, 36)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormMergeIsSingleAtomicUpdate(t *testing.T) {
	store, mock := newMockGorm(t)
	mock.ExpectExec("UPDATE `visits` SET .*`time_on_page`=time_on_page \\+ \\?.* WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Merge(context.Background(), "v1", 5, time.Now()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormMergeUnknownID(t *testing.T) {
	store, mock := newMockGorm(t)
	mock.ExpectExec("UPDATE `visits` SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `visits` WHERE id = \\?").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	err := store.Merge(context.Background(), "missing", 5, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormMergeUnchangedRowStillFound(t *testing.T) {
	store, mock := newMockGorm(t)
	mock.ExpectExec("UPDATE `visits` SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `visits` WHERE id = \\?").
		WithArgs("v1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	require.NoError(t, store.Merge(context.Background(), "v1", 0, time.Now()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormPatchUnchangedRowStillFound(t *testing.T) {
	store, mock := newMockGorm(t)
	mock.ExpectExec("UPDATE `visits` SET .* WHERE id = \\?").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `visits` WHERE id = \\?").
		WithArgs("v1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	require.NoError(t, store.Patch(context.Background(), "v1", VisitPatch{}, time.Now()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUpdateSessionTime(t *testing.T) {
	store, mock := newMockGorm(t)
	mock.ExpectExec("UPDATE `visits` SET .*`session_time`=\\?.* WHERE session_id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.UpdateSessionTime(context.Background(), "s1", 90, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDeleteAll(t *testing.T) {
	store, mock := newMockGorm(t)
	mock.ExpectExec("DELETE FROM `visits` WHERE 1 = 1").WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := store.DeleteAll(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDeleteCreatedBefore(t *testing.T) {
	store, mock := newMockGorm(t)
	cutoff := time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)
	mock.ExpectExec("DELETE FROM `visits` WHERE created_at < \\?").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 10))

	n, err := store.DeleteCreatedBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)
}

func TestGormDeleteIDsEmpty(t *testing.T) {
	store, mock := newMockGorm(t)
	n, err := store.DeleteIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormListSearch(t *testing.T) {
	store, mock := newMockGorm(t)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `visits` WHERE .*LOWER\\(ip\\) LIKE \\?").
		WithArgs("%50\\%%", "%50\\%%", "%50\\%%", "%50\\%%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT \\* FROM `visits` WHERE .*LOWER\\(city\\) LIKE \\?.* ORDER BY created_at DESC").
		WillReturnRows(sqlmock.NewRows(visitColumns()).
			AddRow("v1", at, at, "1.1.1.1", "s1", "/50%-off", 0, true, at))

	rows, total, err := store.List(context.Background(), ListQuery{Search: "50%", Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, "/50%-off", rows[0].Page)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormErrorsAreStoreUnavailable(t *testing.T) {
	store, mock := newMockGorm(t)
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `visits`").WillReturnError(errors.New("connection refused"))

	_, err := store.Count(context.Background())
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

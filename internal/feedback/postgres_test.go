package feedback

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmibc-risk-mcp/internal/domain"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	mock.ExpectPing()
	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	return store, mock
}

var columns = []string{"id", "signature", "suggested_category", "clinician_category", "agreed", "matched_rule", "created_at", "updated_at"}

func TestNewPostgresStore_NilDB(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}

func TestPostgresStore_Save(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO risk_feedback")).
		WithArgs("sig", "high", "veryHigh", false, "high_table", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), created))

	fb := sampleFeedback("sig", domain.RiskHigh, domain.RiskVeryHigh)
	err := store.Save(context.Background(), fb)

	require.NoError(t, err)
	assert.Equal(t, int64(7), fb.ID)
	assert.Equal(t, created, fb.CreatedAt)
	assert.False(t, fb.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO risk_feedback")).
		WillReturnError(errors.New("connection reset"))

	err := store.Save(context.Background(), sampleFeedback("sig", domain.RiskLow, domain.RiskLow))

	assert.ErrorContains(t, err, "failed to save feedback")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM risk_feedback WHERE signature = $1")).
		WithArgs("sig").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(1), "sig", "low", "low", true, "low_criteria", now, now))

	fb, err := store.Get(context.Background(), "sig")

	require.NoError(t, err)
	require.NotNil(t, fb)
	assert.Equal(t, domain.RiskLow, fb.SuggestedCategory)
	assert.True(t, fb.Agreed)
	assert.Equal(t, domain.RuleLowCriteria, fb.MatchedRule)

	mock.ExpectQuery(regexp.QuoteMeta("FROM risk_feedback WHERE signature = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(columns))

	fb, err = store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, fb)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2")).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(2), "b", "high", "high", true, "high_table", now, now).
			AddRow(int64(1), "a", "intermediate", "low", false, "default_intermediate", now, now))

	list, err := store.List(context.Background(), 10, 0)

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].Signature)
	assert.Equal(t, domain.RiskLow, list[1].ClinicianCategory)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountAndDelete(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM risk_feedback")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(5)))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM risk_feedback WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	require.NoError(t, store.Delete(context.Background(), 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Stats(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY suggested_category")).
		WillReturnRows(sqlmock.NewRows([]string{"suggested_category", "count", "agreed"}).
			AddRow("veryHigh", int64(2), int64(1)).
			AddRow("intermediate", int64(4), int64(4)))

	stats, err := store.Stats(context.Background())

	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, domain.RiskIntermediate, stats[0].Category)
	assert.Equal(t, 1.0, stats[0].AgreementRate)
	assert.Equal(t, 0.5, stats[1].AgreementRate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Close(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectClose()

	require.NoError(t, store.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

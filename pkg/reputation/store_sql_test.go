package reputation

import (
	"context"
	"math/big"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLStoreAppendFeedbackAssignsNextIndex(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewSQLStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(MAX(idx), 0) FROM feedback`)).
		WithArgs(int64(1), "client-1").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO feedback `)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO feedback_clients`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	index, err := store.AppendFeedback(context.Background(), 1, "client-1", FeedbackRecord{
		Value: big.NewInt(90),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), index)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreFeedbackMissingRowIsInvalidIndex(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewSQLStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value, decimals, tag1, tag2, endpoint, feedback_uri, feedback_hash, revoked`)).
		WithArgs(int64(1), "client-1", int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"value", "decimals", "tag1", "tag2", "endpoint", "feedback_uri", "feedback_hash", "revoked"}))

	_, err = store.Feedback(context.Background(), 1, "client-1", 9)
	assert.ErrorIs(t, err, ErrInvalidIndex)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreFeedbackZeroIndexShortCircuits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewSQLStore(db)

	_, err = store.Feedback(context.Background(), 1, "client-1", 0)
	assert.ErrorIs(t, err, ErrInvalidIndex)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreMarkRevokedUnknownIndex(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewSQLStore(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE feedback SET revoked = TRUE`)).
		WithArgs(int64(1), "client-1", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = store.MarkRevoked(context.Background(), 1, "client-1", 5)
	assert.ErrorIs(t, err, ErrInvalidIndex)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreLastIndex(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewSQLStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(MAX(idx), 0) FROM feedback`)).
		WithArgs(int64(1), "client-1").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(7))

	last, err := store.LastIndex(context.Background(), 1, "client-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), last)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreAppendResponseChecksRecordExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewSQLStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
		WithArgs(int64(1), "client-1", int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	err = store.AppendResponse(context.Background(), 1, "client-1", 3, ResponseEntry{Responder: "addr-agent"})
	assert.ErrorIs(t, err, ErrInvalidIndex)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreResponseCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewSQLStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM feedback_responses`)).
		WithArgs(int64(1), "client-1", int64(2), "addr-agent").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := store.ResponseCount(context.Background(), 1, "client-1", 2, "addr-agent")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

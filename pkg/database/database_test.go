package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/visaeval/visaeval-backend/pkg/errors"
)

func newMock(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	db := Wrap(sqlx.NewDb(raw, "postgres"), nil)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestHealth(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectPing()
	assert.Equal(t, "up", db.Health(context.Background())["status"])

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	status := db.Health(context.Background())
	assert.Equal(t, "down", status["status"])
	assert.Equal(t, "connection refused", status["error"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_Commit(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM evaluations").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := db.Transaction(context.Background(), func(tx *sqlx.Tx) error {
		_, err := tx.Exec("DELETE FROM evaluations WHERE id = $1", "x")
		return err
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_RollbackOnError(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := db.Transaction(context.Background(), func(tx *sqlx.Tx) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMapPQError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantNil  bool
		wantCode string
		wantKey  string
	}{
		{name: "not a pq error", err: errors.New("x"), wantNil: true},
		{name: "unmapped code", err: &pq.Error{Code: "40001"}, wantNil: true},
		{name: "duplicate primary key", err: &pq.Error{Code: "23505", Constraint: "evaluations_pkey"}, wantCode: "CONFLICT"},
		{name: "wrapped unique violation", err: fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), wantCode: "CONFLICT"},
		{name: "score check", err: &pq.Error{Code: "23514", Constraint: "evaluations_score_range"}, wantCode: "VALIDATION_ERROR", wantKey: "score"},
		{name: "unknown check", err: &pq.Error{Code: "23514", Constraint: "other"}, wantCode: "BAD_REQUEST"},
		{name: "not null", err: &pq.Error{Code: "23502", Column: "country"}, wantCode: "VALIDATION_ERROR", wantKey: "country"},
		{name: "bad uuid", err: &pq.Error{Code: "22P02"}, wantCode: "BAD_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapPQError(tt.err)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			if tt.wantKey != "" {
				assert.Contains(t, got.Details, tt.wantKey)
			}
			assert.False(t, apperrors.Is(got, apperrors.ErrInternal))
		})
	}
}

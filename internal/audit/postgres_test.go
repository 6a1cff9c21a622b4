// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zyric/identity/pkg/errutil"
)

func TestPostgresWriter_WriteBatch(t *testing.T) {
	uid := ulid.Make()
	attempts := []LoginAttempt{
		{ID: ulid.Make(), UserID: &uid, Email: "t@school.example", At: time.Now(), IPAddress: "10.0.0.1", Success: true},
		{ID: ulid.Make(), Email: "ghost@school.example", At: time.Now()},
	}

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantCode  string
	}{
		{
			name: "copies all rows",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectCopyFrom(pgx.Identifier{"login_history"}, loginHistoryColumns).WillReturnResult(2)
			},
		},
		{
			name: "short copy",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectCopyFrom(pgx.Identifier{"login_history"}, loginHistoryColumns).WillReturnResult(1)
			},
			wantCode: "AUDIT_WRITE_FAILED",
		},
		{
			name: "copy error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectCopyFrom(pgx.Identifier{"login_history"}, loginHistoryColumns).
					WillReturnError(errors.New("connection reset"))
			},
			wantCode: "AUDIT_WRITE_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()
			tt.setupMock(mock)

			err = NewPostgresWriter(mock).WriteBatch(context.Background(), attempts)
			if tt.wantCode != "" {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, tt.wantCode)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresWriter_WriteBatchEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	require.NoError(t, NewPostgresWriter(mock).WriteBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresWriter_History(t *testing.T) {
	uid := ulid.Make()
	newer, older := ulid.Make(), ulid.Make()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	uidStr := uid.String()
	ip := "192.0.2.7"

	t.Run("first page", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		rows := pgxmock.NewRows([]string{"id", "user_id", "email", "login_at", "ip_address", "user_agent", "success"}).
			AddRow(newer.String(), &uidStr, "t@school.example", at, &ip, nil, true).
			AddRow(older.String(), &uidStr, "t@school.example", at.Add(-time.Hour), nil, nil, false)
		mock.ExpectQuery(`FROM login_history\s+WHERE user_id = \$1\s+ORDER BY id DESC`).
			WithArgs(uid.String(), 50).
			WillReturnRows(rows)

		got, err := NewPostgresWriter(mock).History(context.Background(), uid, ulid.ULID{}, 50)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, newer, got[0].ID)
		assert.Equal(t, uid, *got[0].UserID)
		assert.Equal(t, ip, got[0].IPAddress)
		assert.True(t, got[0].Success)
		assert.Empty(t, got[1].IPAddress)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("next page caps limit", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`WHERE user_id = \$1 AND id < \$2`).
			WithArgs(uid.String(), newer.String(), MaxHistoryPage).
			WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "email", "login_at", "ip_address", "user_agent", "success"}))

		got, err := NewPostgresWriter(mock).History(context.Background(), uid, newer, 10_000)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`FROM login_history`).WillReturnError(errors.New("boom"))

		_, err = NewPostgresWriter(mock).History(context.Background(), uid, ulid.ULID{}, 10)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUDIT_HISTORY_FAILED")
	})
}

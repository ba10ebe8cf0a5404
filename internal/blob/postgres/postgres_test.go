package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/speakerpool/pkg/blob"
	"github.com/agentstation/speakerpool/pkg/errors"
)

func TestStoreGet(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		mock     func(mock sqlmock.Sqlmock)
		want     string
		notFound bool
		wantErr  bool
	}{
		{
			name: "found",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT body FROM "blobs" WHERE key = \$1`).
					WithArgs("conclusion-assets/Sprekerpool.json").
					WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow([]byte(`[]`)))
			},
			want: `[]`,
		},
		{
			name: "missing",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT body FROM "blobs"`).
					WithArgs("conclusion-assets/Sprekerpool.json").
					WillReturnError(sql.ErrNoRows)
			},
			notFound: true,
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT body FROM "blobs"`).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			got, err := New(db, "").Get(ctx, "conclusion-assets/Sprekerpool.json")
			switch {
			case tt.notFound:
				assert.True(t, errors.IsNotFound(err))
			case tt.wantErr:
				require.Error(t, err)
				assert.False(t, errors.IsNotFound(err))
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, string(got))
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStorePutUpserts(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "speaker_blobs" (key, body, updated_at)`) + `(?s).*ON CONFLICT \(key\) DO UPDATE`).
		WithArgs("conclusion-assets/deltas/a.json", []byte(`{}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, New(db, "speaker_blobs").Put(ctx, "conclusion-assets/deltas/a.json", []byte(`{}`)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStorePutMissingTable(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO "blobs"`).WillReturnError(&pq.Error{Code: "42P01"})

	err = New(db, "").PutAsset(ctx, "k", []byte(`[]`))
	var cfgErr *errors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreListEscapesPrefix(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT key FROM "blobs" WHERE key LIKE \$1 ESCAPE '\\' ORDER BY key`).
		WithArgs(`deltas/100\%\_done/%`).
		WillReturnRows(sqlmock.NewRows([]string{"key"}).
			AddRow("deltas/100%_done/a.json").
			AddRow("deltas/100%_done/b.json"))

	got, err := New(db, "").List(ctx, "deltas/100%_done/")
	require.NoError(t, err)
	assert.Equal(t, []blob.Object{{Name: "deltas/100%_done/a.json"}, {Name: "deltas/100%_done/b.json"}}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "blobs"`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, New(db, "").EnsureSchema(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), "", "")
	var cfgErr *errors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

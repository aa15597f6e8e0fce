package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtualboard/internal/apperr"
	"virtualboard/internal/store"
	"virtualboard/internal/store/storetest"
)

func TestMapErr(t *testing.T) {
	assert.ErrorIs(t, mapErr(sql.ErrNoRows), apperr.ErrNotFound)
	assert.ErrorIs(t, mapErr(&pgconn.PgError{Code: uniqueViolation}), apperr.ErrDuplicate)
	assert.ErrorIs(t, mapErr(&pgconn.PgError{Code: foreignKeyViolation}), apperr.ErrNotFound)
	other := errors.New("boom")
	assert.Equal(t, other, mapErr(other))
	assert.NoError(t, mapErr(nil))
}

func TestConformance(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := store.NewDB(context.Background(), url, store.PoolOptions{MaxOpen: 4})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(context.Background(), db.Client))
	// applying twice is a no-op
	require.NoError(t, Migrate(context.Background(), db.Client))

	s := New(db.Client)
	storetest.Run(t, storetest.Repos{
		Accounts:   s.Accounts(),
		Classrooms: s.Classrooms(),
		Lectures:   s.Lectures(),
		Recordings: s.Recordings(),
	})
}

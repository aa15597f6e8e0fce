package mongostore

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"virtualboard/internal/apperr"
	"virtualboard/internal/store"
	"virtualboard/internal/store/storetest"
)

func TestMapErr(t *testing.T) {
	assert.ErrorIs(t, mapErr(mongo.ErrNoDocuments), apperr.ErrNotFound)
	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.ErrorIs(t, mapErr(dup), apperr.ErrDuplicate)
	other := errors.New("boom")
	assert.Equal(t, other, mapErr(other))
}

func TestConformance(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	m, err := store.NewMongo(ctx, uri, "virtualboard_test_"+uuid.NewString()[:8])
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = m.DB.Drop(context.Background())
		_ = m.Close(context.Background())
	})

	s := New(m.DB)
	require.NoError(t, s.EnsureIndexes(ctx))
	storetest.Run(t, storetest.Repos{
		Accounts:   s.Accounts(),
		Classrooms: s.Classrooms(),
		Lectures:   s.Lectures(),
		Recordings: s.Recordings(),
	})
}

package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/automail/internal/model"
	"github.com/nhle/automail/internal/store"
)

// NewTestStore opens a migrated in-memory cache, optionally seeded with
// teachers, and closes it when the test ends.
func NewTestStore(t *testing.T, seed ...model.Teacher) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err, "open test store")
	t.Cleanup(func() {
		require.NoError(t, s.Close(), "close test store")
	})

	if len(seed) > 0 {
		_, err := s.UpsertTeachers(context.Background(), seed)
		require.NoError(t, err, "seed teachers")
	}
	return s
}

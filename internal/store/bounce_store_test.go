package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/automail/internal/model"
	"github.com/nhle/automail/internal/store"
	"github.com/nhle/automail/tests/testutil"
)

func TestAddBounces(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	now := time.Now()

	added, err := s.AddBounces(ctx, []model.Bounce{
		{Address: "Li@Example.edu", Reason: "550 mailbox unavailable", MessageID: "<a@mx>", DetectedAt: now.Add(-time.Hour)},
		{Address: "gone@example.edu", Reason: "user unknown", DetectedAt: now},
		{Address: "li@example.edu", Reason: "duplicate"},
		{Address: "   "},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	bounces, err := s.GetBounces(ctx)
	require.NoError(t, err)
	require.Len(t, bounces, 2)
	assert.Equal(t, "gone@example.edu", bounces[0].Address)
	assert.Equal(t, "li@example.edu", bounces[1].Address)
	assert.Equal(t, "550 mailbox unavailable", bounces[1].Reason, "first record wins")

	ok, err := s.IsBounced(ctx, "LI@example.edu")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.IsBounced(ctx, "fine@example.edu")
	require.NoError(t, err)
	assert.False(t, ok)

	set, err := s.BouncedAddresses(ctx)
	require.NoError(t, err)
	assert.True(t, store.IsBouncedAddress(set, "Gone@Example.edu"))
	assert.False(t, store.IsBouncedAddress(set, "fine@example.edu"))
}

func TestDeleteBounce(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	_, err := s.AddBounces(ctx, []model.Bounce{{Address: "x@example.edu"}})
	require.NoError(t, err)

	require.NoError(t, s.DeleteBounce(ctx, "X@example.edu"))
	assert.ErrorIs(t, s.DeleteBounce(ctx, "x@example.edu"), store.ErrNotFound)

	ok, err := s.IsBounced(ctx, "x@example.edu")
	require.NoError(t, err)
	assert.False(t, ok)
}

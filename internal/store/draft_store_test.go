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

func TestSaveDraft_CreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	created, err := s.SaveDraft(ctx, model.Draft{
		Subject:       "Admission inquiry",
		Body:          "# Hello",
		Format:        model.FormatMarkdown,
		AttachmentIDs: []string{"f1", "f2"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := s.GetDraft(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Admission inquiry", got.Subject)
	assert.Equal(t, []string{"f1", "f2"}, got.AttachmentIDs)

	time.Sleep(2 * time.Millisecond)
	got.Body = "# Hello again"
	got.AttachmentIDs = nil
	updated, err := s.SaveDraft(ctx, *got)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "# Hello again", updated.Body)
	assert.Nil(t, updated.AttachmentIDs)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
}

func TestSaveDraft_Validation(t *testing.T) {
	s := testutil.NewTestStore(t)

	_, err := s.SaveDraft(context.Background(), model.Draft{Subject: "  ", Body: ""})
	assert.Error(t, err)

	_, err = s.SaveDraft(context.Background(), model.Draft{Subject: "x", Format: "rtf"})
	assert.Error(t, err)

	d, err := s.SaveDraft(context.Background(), model.Draft{Subject: "x"})
	require.NoError(t, err)
	assert.Equal(t, model.FormatPlain, d.Format)
}

func TestSaveDraft_UnknownIDIsInserted(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	d, err := s.SaveDraft(ctx, model.Draft{ID: "fixed", Subject: "s"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", d.ID)

	_, err = s.GetDraft(ctx, "fixed")
	assert.NoError(t, err)
}

func TestGetDrafts_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	first, err := s.SaveDraft(ctx, model.Draft{Subject: "first"})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = s.SaveDraft(ctx, model.Draft{Subject: "second"})
	require.NoError(t, err)

	drafts, err := s.GetDrafts(ctx)
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, "second", drafts[0].Subject)

	require.NoError(t, s.DeleteDraft(ctx, first.ID))
	assert.ErrorIs(t, s.DeleteDraft(ctx, first.ID), store.ErrNotFound)

	_, err = s.GetDraft(ctx, first.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetDrafts_Empty(t *testing.T) {
	s := testutil.NewTestStore(t)
	drafts, err := s.GetDrafts(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, drafts)
	assert.Empty(t, drafts)
}

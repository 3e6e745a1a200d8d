package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/automail/internal/model"
	"github.com/nhle/automail/internal/store"
	"github.com/nhle/automail/tests/testutil"
)

func strPtr(s string) *string { return &s }

func teacher(id, name, email, college string) model.Teacher {
	return model.Teacher{
		ID:            id,
		Name:          name,
		Title:         "Professor",
		URL:           "https://example.edu/" + id,
		Email:         email,
		Research:      "distributed systems",
		SchoolCollege: college,
		SchoolLevel:   "985",
		School:        "Example University",
	}
}

func TestNewSQLiteStore_MigratesFileDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "automail.db")

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	require.NoError(t, s.Close())

	// reopening does not reapply migrations
	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()
	v, err = s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestUpsertTeachers(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	added, err := s.UpsertTeachers(ctx, []model.Teacher{
		teacher("1", "Li", "li@example.edu", "Computing"),
		teacher("2", "Wang", "wang@example.edu", "Law"),
		teacher("", "No Id", "x@example.edu", "Law"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	updated := teacher("1", "Li Ming", "li@example.edu", "Computing")
	added, err = s.UpsertTeachers(ctx, []model.Teacher{updated, teacher("3", "Zhao", "zhao@example.edu", "Law")})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	got, err := s.GetTeacherByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, updated, *got)

	n, err := s.CountTeachers(ctx, store.TeacherFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestUpsertTeachers_Empty(t *testing.T) {
	s := testutil.NewTestStore(t)
	added, err := s.UpsertTeachers(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, added)
}

func TestGetTeachers_Filter(t *testing.T) {
	ctx := context.Background()
	zhao := teacher("3", "Zhao", "zhao@example.edu", "Law")
	zhao.SchoolLevel = "211"
	zhao.Research = "contract law"
	s := testutil.NewTestStore(t,
		teacher("1", "Li", "li@example.edu", "Computing"),
		teacher("2", "Wang", "wang@example.edu", "Law"),
		zhao,
	)

	tests := []struct {
		name    string
		filter  store.TeacherFilter
		wantIDs []string
	}{
		{name: "all sorted by name", filter: store.TeacherFilter{}, wantIDs: []string{"1", "2", "3"}},
		{name: "desc", filter: store.TeacherFilter{SortDesc: true}, wantIDs: []string{"3", "2", "1"}},
		{name: "by college", filter: store.TeacherFilter{College: strPtr("Law")}, wantIDs: []string{"2", "3"}},
		{name: "by level", filter: store.TeacherFilter{SchoolLevel: strPtr("211")}, wantIDs: []string{"3"}},
		{name: "query matches research", filter: store.TeacherFilter{Query: strPtr("contract")}, wantIDs: []string{"3"}},
		{name: "query matches email", filter: store.TeacherFilter{Query: strPtr("wang@")}, wantIDs: []string{"2"}},
		{name: "limit", filter: store.TeacherFilter{Limit: 2}, wantIDs: []string{"1", "2"}},
		{name: "offset without limit", filter: store.TeacherFilter{Offset: 1}, wantIDs: []string{"2", "3"}},
		{name: "unknown sort falls back", filter: store.TeacherFilter{SortBy: "1; DROP TABLE teachers"}, wantIDs: []string{"1", "2", "3"}},
		{name: "no match", filter: store.TeacherFilter{College: strPtr("Medicine")}, wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.GetTeachers(ctx, tt.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, g := range got {
				ids = append(ids, g.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}

	n, err := s.CountTeachers(ctx, store.TeacherFilter{College: strPtr("Law"), Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, n, "count ignores paging")
}

func TestPruneTeachers(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	_, err := s.UpsertTeachers(ctx, []model.Teacher{teacher("old", "Old", "old@example.edu", "Law")})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	cutoff := time.Now()
	time.Sleep(5 * time.Millisecond)

	_, err = s.UpsertTeachers(ctx, []model.Teacher{teacher("new", "New", "new@example.edu", "Law")})
	require.NoError(t, err)

	pruned, err := s.PruneTeachers(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	_, err = s.GetTeacherByID(ctx, "old")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetTeacherByID(ctx, "new")
	assert.NoError(t, err)
}

func TestPruneTeachers_KeepsRowsFromTheSameRefresh(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	started := time.Now()
	_, err := s.UpsertTeachers(ctx, []model.Teacher{
		teacher("1", "Li", "li@example.edu", "Computing"),
		teacher("2", "Wang", "wang@example.edu", "Law"),
	})
	require.NoError(t, err)

	pruned, err := s.PruneTeachers(ctx, started)
	require.NoError(t, err)
	assert.Zero(t, pruned)

	// a cutoff later in the same second still prunes
	pruned, err = s.PruneTeachers(ctx, time.Now().Add(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 2, pruned)
}

func TestDeleteTeacher(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	_, err := s.UpsertTeachers(ctx, []model.Teacher{teacher("1", "Li", "li@example.edu", "Computing")})
	require.NoError(t, err)

	require.NoError(t, s.DeleteTeacher(ctx, "1"))
	assert.ErrorIs(t, s.DeleteTeacher(ctx, "1"), store.ErrNotFound)
}

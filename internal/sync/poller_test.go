package sync_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/automail/internal/api"
	"github.com/nhle/automail/internal/model"
	"github.com/nhle/automail/internal/store"
	"github.com/nhle/automail/internal/sync"
	"github.com/nhle/automail/tests/testutil"
)

func setup(t *testing.T) (*sync.Poller, *api.Services, *testutil.FakeBackend, store.Store) {
	t.Helper()
	b := testutil.NewFakeBackend(t)
	svc := api.New(&model.AppConfig{Services: b.Services()})
	s := testutil.NewTestStore(t)

	p := sync.New(s, time.Hour)
	p.RegisterDirectory(svc.Teachers)
	p.RegisterLogs(svc.SMTP, 10)
	t.Cleanup(p.Stop)
	return p, svc, b, s
}

func TestRunOnce_Directory(t *testing.T) {
	p, svc, b, s := setup(t)
	ctx := context.Background()

	stored := b.AddTeachers(
		model.Teacher{Name: "Li", Email: "li@example.edu"},
		model.Teacher{Name: "Wang", Email: "wang@example.edu"},
	)

	res := p.RunOnce(ctx, sync.KindDirectory)
	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, 2, res.NewCount)
	assert.Zero(t, res.Pruned)

	res = p.RunOnce(ctx, sync.KindDirectory)
	require.NoError(t, res.Err)
	assert.Zero(t, res.NewCount, "second refresh finds nothing new")

	require.NoError(t, svc.Teachers.Delete(ctx, stored[0].ID))
	res = p.RunOnce(ctx, sync.KindDirectory)
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, 1, res.Pruned)

	cached, err := s.GetTeachers(ctx, store.TeacherFilter{})
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, "wang@example.edu", cached[0].Email)
}

func TestRunOnce_DirectoryFailureKeepsCache(t *testing.T) {
	p, _, b, s := setup(t)
	ctx := context.Background()

	b.AddTeachers(model.Teacher{Name: "Li", Email: "li@example.edu"})
	require.NoError(t, p.RunOnce(ctx, sync.KindDirectory).Err)

	b.FailGroup(model.GroupTeacher, 500, "database unavailable")
	res := p.RunOnce(ctx, sync.KindDirectory)
	require.Error(t, res.Err)

	var apiErr *api.Error
	assert.ErrorAs(t, res.Err, &apiErr)

	n, err := s.CountTeachers(ctx, store.TeacherFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	statuses := p.GetStatuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, sync.KindDirectory, statuses[0].Kind)
	assert.Equal(t, sync.SyncError, statuses[0].State)
	assert.Equal(t, sync.SyncIdle, statuses[1].State)
}

func TestRunOnce_Logs(t *testing.T) {
	p, _, b, _ := setup(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	b.AddLog(model.EmailLog{To: []string{"a@example.edu"}, Subject: "one", Status: model.SendStatusSuccess,
		SendTime: model.Timestamp{Time: base}})
	b.AddLog(model.EmailLog{To: []string{"b@example.edu"}, Subject: "two", Status: model.SendStatusFailed,
		SendTime: model.Timestamp{Time: base.Add(time.Minute)}})

	res := p.RunOnce(ctx, sync.KindLogs)
	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.Count)
	assert.Zero(t, res.NewCount, "first refresh sets the baseline")
	require.Len(t, res.Logs, 2)
	assert.Equal(t, "two", res.Logs[0].Subject)

	b.AddLog(model.EmailLog{To: []string{"c@example.edu"}, Subject: "three", Status: model.SendStatusSuccess,
		SendTime: model.Timestamp{Time: base.Add(2 * time.Minute)}})

	res = p.RunOnce(ctx, sync.KindLogs)
	require.NoError(t, res.Err)
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, 1, res.NewCount)

	last := b.Requests()[len(b.Requests())-1]
	assert.Equal(t, "10", last.Query.Get("limit"))
}

func TestRunOnce_UnregisteredJob(t *testing.T) {
	s := testutil.NewTestStore(t)
	p := sync.New(s, 0)

	res := p.RunOnce(context.Background(), sync.KindLogs)
	assert.Error(t, res.Err)
	assert.Empty(t, p.GetStatuses())
}

func TestStart_DeliversInitialResults(t *testing.T) {
	p, _, b, _ := setup(t)
	b.AddTeachers(model.Teacher{Name: "Li", Email: "li@example.edu"})

	cmd := p.Start()
	require.NotNil(t, cmd)
	assert.Nil(t, p.Start(), "starting twice is a no-op")

	seen := map[sync.Kind]bool{}
	for range 2 {
		msg, ok := cmd().(sync.SyncResultMsg)
		require.True(t, ok)
		require.NoError(t, msg.Err)
		seen[msg.Kind] = true
		cmd = p.WaitForNextResult()
	}
	assert.True(t, seen[sync.KindDirectory])
	assert.True(t, seen[sync.KindLogs])

	p.RefreshAll()
	msg, ok := cmd().(sync.SyncResultMsg)
	require.True(t, ok)
	assert.NoError(t, msg.Err)
}

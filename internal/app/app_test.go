package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/99designs/keyring"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/automail/internal/api"
	"github.com/nhle/automail/internal/credential"
	"github.com/nhle/automail/internal/model"
	"github.com/nhle/automail/internal/store"
	"github.com/nhle/automail/internal/theme"
	"github.com/nhle/automail/internal/ui/command"
	composeview "github.com/nhle/automail/internal/ui/compose"
	"github.com/nhle/automail/tests/testutil"
)

type harness struct {
	backend *testutil.FakeBackend
	store   *store.SQLiteStore
	m       Model
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	b := testutil.NewFakeBackend(t)
	s := testutil.NewTestStore(t)
	cfg := &model.AppConfig{
		Services: b.Services(),
		Display:  model.DisplayConfig{PollIntervalSec: 3600},
	}
	m := New(Deps{
		Config:   cfg,
		Store:    s,
		Services: api.New(cfg),
		Secrets:  credential.NewStore(keyring.NewArrayKeyring(nil)),
	})
	t.Cleanup(m.poller.Stop)
	return &harness{backend: b, store: s, m: m}
}

func (h *harness) update(msg tea.Msg) tea.Cmd {
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	return cmd
}

// settle runs cmd and feeds the result back once.
func (h *harness) settle(cmd tea.Cmd) {
	if cmd != nil {
		h.update(cmd())
	}
}

func (h *harness) selectTeachers(ts ...model.Teacher) {
	for _, t := range ts {
		h.m.cart.Add(t)
	}
}

func paletteCommand(line string) tea.Msg {
	return command.CommandMsg(line)
}

func draft(subject, body string) model.Draft {
	return model.Draft{Subject: subject, Body: body, Format: model.FormatPlain}
}

func TestSessionsDoNotShareSelection(t *testing.T) {
	a := newHarness(t)
	b := newHarness(t)
	a.selectTeachers(model.Teacher{ID: "1", Email: "li@example.edu"})

	assert.Equal(t, 1, a.m.Cart().Count())
	assert.Equal(t, 0, b.m.Cart().Count())
}

func TestSubmitMailing(t *testing.T) {
	h := newHarness(t)
	h.backend.SetSMTPConfig(model.SMTPConfig{Server: "smtp.example.edu", Port: 465, Username: "u",
		Password: "p", SenderName: "Office", SenderEmail: "office@example.edu"})
	stored := h.backend.AddTeachers(
		model.Teacher{Name: "Li", Email: "li@example.edu"},
		model.Teacher{Name: "Wang", Email: "wang@example.edu"},
	)
	h.selectTeachers(stored...)

	cmd := h.update(composeview.SubmitMsg{Draft: draft("Seminar", "Join us"), Action: composeview.ActionMailing})
	require.NotNil(t, cmd)
	h.settle(cmd)

	assert.False(t, h.m.statusErr, h.m.statusMsg)
	assert.Contains(t, h.m.statusMsg, "2 teachers")
	require.NotNil(t, h.m.lastDraft)
	assert.Equal(t, "Seminar", h.m.lastDraft.Subject)

	// the service sends one message with every teacher in To
	logs := h.backend.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, []string{"li@example.edu", "wang@example.edu"}, logs[0].To)
}

func TestSubmitMailingWithEmptySelection(t *testing.T) {
	h := newHarness(t)
	h.settle(h.update(composeview.SubmitMsg{Draft: draft("Seminar", "Join us"), Action: composeview.ActionMailing}))

	assert.True(t, h.m.statusErr)
	assert.Equal(t, "no teachers selected", h.m.statusMsg)
	assert.Empty(t, h.backend.Requests(), "nothing sent")
}

func TestSubmitDirectReportsRejection(t *testing.T) {
	h := newHarness(t)
	h.backend.SetSMTPConfig(model.SMTPConfig{Server: "smtp.example.edu", Port: 465, Username: "u",
		Password: "p", SenderName: "Office", SenderEmail: "office@example.edu"})
	h.backend.RejectAddress("gone@example.edu")
	h.selectTeachers(model.Teacher{ID: "9", Name: "Gone", Email: "gone@example.edu"})

	h.settle(h.update(composeview.SubmitMsg{
		Draft:  draft("Hello", "Body"),
		Action: composeview.ActionDirect,
		Cc:     []string{"dean@example.edu"},
	}))

	assert.True(t, h.m.statusErr)
	logs := h.backend.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, []string{"dean@example.edu"}, logs[0].Cc)
	assert.Equal(t, model.SendStatusFailed, logs[0].Status)
}

func TestSaveThenExport(t *testing.T) {
	h := newHarness(t)
	h.selectTeachers(model.Teacher{ID: "1", Name: "Li", Email: "li@example.edu"})

	h.settle(h.update(composeview.SubmitMsg{Draft: draft("Invitation", "Dear colleague"), Action: composeview.ActionSave}))
	require.False(t, h.m.statusErr, h.m.statusMsg)
	require.NotNil(t, h.m.lastDraft)
	assert.NotEmpty(t, h.m.lastDraft.ID)

	saved, err := h.store.GetDrafts(context.Background())
	require.NoError(t, err)
	require.Len(t, saved, 1)

	path := filepath.Join(t.TempDir(), "invitation.eml")
	h.settle(h.update(paletteCommand("export " + path)))
	require.False(t, h.m.statusErr, h.m.statusMsg)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Subject: Invitation")
	assert.Contains(t, string(raw), "li@example.edu")
	assert.Contains(t, string(raw), "Dear colleague")
}

func TestExportWithoutDraft(t *testing.T) {
	h := newHarness(t)
	h.settle(h.update(paletteCommand("export /tmp/never.eml")))
	assert.True(t, h.m.statusErr)
	assert.Contains(t, h.m.statusMsg, "nothing to export")
}

func TestDropBounced(t *testing.T) {
	h := newHarness(t)
	_, err := h.store.AddBounces(context.Background(), []model.Bounce{
		{Address: "Gone@Example.edu", Reason: "550", DetectedAt: time.Now()},
	})
	require.NoError(t, err)
	h.settle(h.m.loadBounced())

	h.selectTeachers(
		model.Teacher{ID: "1", Email: "li@example.edu"},
		model.Teacher{ID: "2", Email: "gone@example.edu"},
	)
	h.update(paletteCommand("drop-bounced"))

	assert.Equal(t, []string{"1"}, h.m.cart.IDs())
	assert.Contains(t, h.m.statusMsg, "Removed 1")
}

func TestBadFilterExpression(t *testing.T) {
	h := newHarness(t)
	cmd := h.update(paletteCommand("filter contains(research,"))
	assert.Nil(t, cmd)
	assert.True(t, h.m.statusErr)
}

func TestScanBouncesNeedsMailbox(t *testing.T) {
	h := newHarness(t)
	h.settle(h.update(paletteCommand("scan-bounces")))
	assert.True(t, h.m.statusErr)
	assert.Contains(t, h.m.statusMsg, "mailbox not configured")
}

func TestGlobalKeys(t *testing.T) {
	h := newHarness(t)
	h.update(tea.WindowSizeMsg{Width: 120, Height: 40})

	h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	assert.Equal(t, ViewCart, h.m.currentView)
	assert.Contains(t, h.m.View(), "selected 0")

	h.settle(h.update(tea.KeyMsg{Type: tea.KeyEsc}))
	assert.Equal(t, ViewList, h.m.currentView)

	// q is typed into the search box rather than quitting
	h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	require.True(t, h.m.teacherList.Searching())
	h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.True(t, h.m.teacherList.Searching())

	h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	assert.Equal(t, ViewList, h.m.currentView)
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t)
	h.update(paletteCommand("frobnicate"))
	assert.True(t, h.m.statusErr)
	assert.Contains(t, h.m.statusMsg, "frobnicate")
}

func TestThemeCommand(t *testing.T) {
	h := newHarness(t)
	t.Cleanup(func() { _ = theme.Use("default") })

	h.update(paletteCommand("theme mono"))
	assert.False(t, h.m.statusErr, h.m.statusMsg)
	assert.Equal(t, "mono", theme.Current())

	h.update(paletteCommand("theme neon"))
	assert.True(t, h.m.statusErr)
	assert.Equal(t, "mono", theme.Current())
}

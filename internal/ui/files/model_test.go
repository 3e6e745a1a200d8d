package files

import (
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/automail/internal/api"
	"github.com/nhle/automail/internal/keys"
	"github.com/nhle/automail/tests/testutil"
)

func setup(t *testing.T) (*testutil.FakeBackend, Model) {
	t.Helper()
	b := testutil.NewFakeBackend(t)
	m := New(api.NewFileClient(b.Services().File), keys.DefaultKeyMap(), 100, 30)
	return b, m
}

// run executes cmd and feeds its message back until no command is left.
func run(m Model, cmd tea.Cmd) Model {
	for cmd != nil {
		msg := cmd()
		if _, ok := msg.(ChangedMsg); ok {
			return m
		}
		m, cmd = m.Update(msg)
	}
	return m
}

func typePath(m Model, path string) (Model, tea.Cmd) {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlU})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(path)})
	return m.Update(tea.KeyMsg{Type: tea.KeyEnter})
}

func TestUploadThenDownload(t *testing.T) {
	_, m := setup(t)
	m = run(m, m.Init())
	assert.Contains(t, m.View(), "No files uploaded")

	dir := t.TempDir()
	src := filepath.Join(dir, "brochure.pdf")
	require.NoError(t, os.WriteFile(src, []byte("%PDF-1.4 hello"), 0o600))

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("u")})
	require.Equal(t, modeUpload, m.mode)
	m, cmd := typePath(m, src)
	m = run(m, cmd)

	f, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "brochure.pdf", f.Filename)
	assert.Contains(t, m.View(), "Uploaded brochure.pdf")

	dst := filepath.Join(dir, "copy.pdf")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	require.Equal(t, modeDownload, m.mode)
	assert.Equal(t, "brochure.pdf", m.pathInput.Value())
	m, cmd = typePath(m, dst)
	m = run(m, cmd)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 hello", string(got))
	assert.Contains(t, m.View(), "Saved")
}

func TestUploadMissingFile(t *testing.T) {
	_, m := setup(t)
	m = run(m, m.Init())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("u")})
	m, cmd := typePath(m, filepath.Join(t.TempDir(), "missing.txt"))
	m = run(m, cmd)

	assert.True(t, m.statusErr)
	assert.Empty(t, m.Files())
}

func TestFailedDownloadLeavesNoFile(t *testing.T) {
	_, m := setup(t)
	dst := filepath.Join(t.TempDir(), "out.bin")

	_, err := saveFile(m.svc, "no-such-id", dst)
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRemoveRequiresConfirm(t *testing.T) {
	b, m := setup(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("a"), 0o600))

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("u")})
	m, cmd := typePath(m, src)
	m = run(m, cmd)
	require.Len(t, m.Files(), 1)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	assert.Equal(t, modeConfirmDelete, m.mode)
	_, ok := b.FileContent(m.files[0].ID)
	assert.True(t, ok, "nothing deleted before confirming")

	// confirmed
	m.mode = modeList
	m = run(m, m.remove(m.files[0]))
	assert.Empty(t, m.Files())
	assert.Contains(t, m.View(), "Deleted a.txt")
}

func TestEscCloses(t *testing.T) {
	_, m := setup(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, CloseMsg{}, cmd())
}

// Package files manages the attachments held by the file service.
package files

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/automail/internal/keys"
	"github.com/nhle/automail/internal/model"
	"github.com/nhle/automail/internal/theme"
	"github.com/nhle/automail/internal/ui"
)

// Service is the subset of the file client this view uses.
type Service interface {
	List(ctx context.Context) ([]model.FileInfo, error)
	Upload(ctx context.Context, name string, r io.Reader) (model.FileInfo, error)
	Delete(ctx context.Context, id string) error
	Download(ctx context.Context, id string, w io.Writer) (int64, error)
}

// CloseMsg signals the parent to close the files view.
type CloseMsg struct{}

// ChangedMsg reports the current file list after a load or change so
// the composer can offer it as attachments.
type ChangedMsg struct {
	Files []model.FileInfo
}

type loadedMsg struct {
	files []model.FileInfo
	err   error
}

type doneMsg struct {
	text string
	err  error
}

type mode int

const (
	modeList mode = iota
	modeUpload
	modeDownload
	modeConfirmDelete
)

type formBindings struct {
	confirm bool
}

// Model is the file list view.
type Model struct {
	mode        mode
	svc         Service
	keys        *keys.KeyMap
	files       []model.FileInfo
	selectedIdx int
	pathInput   textinput.Model
	confirmForm *huh.Form
	fb          *formBindings
	statusMsg   string
	statusErr   bool
	width       int
	height      int
}

// New creates a files view.
func New(svc Service, k *keys.KeyMap, width, height int) Model {
	ti := textinput.New()
	ti.Prompt = "path: "
	ti.CharLimit = 512

	return Model{
		svc:       svc,
		keys:      k,
		pathInput: ti,
		fb:        &formBindings{},
		width:     width,
		height:    height,
	}
}

// Init loads the file list.
func (m *Model) Init() tea.Cmd {
	m.mode = modeList
	m.statusMsg = ""
	return m.load()
}

// Files returns the last loaded list.
func (m Model) Files() []model.FileInfo {
	return m.files
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		if msg.err != nil {
			m.setStatus(msg.err.Error(), true)
			return m, nil
		}
		m.files = msg.files
		m.clampCursor()
		files := msg.files
		return m, func() tea.Msg { return ChangedMsg{Files: files} }

	case doneMsg:
		if msg.err != nil {
			m.setStatus(msg.err.Error(), true)
			return m, nil
		}
		m.setStatus(msg.text, false)
		return m, m.load()
	}

	switch m.mode {
	case modeUpload, modeDownload:
		return m.updatePath(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	}

	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(kmsg, m.keys.Back):
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(kmsg, m.keys.Down):
		if len(m.files) > 0 {
			m.selectedIdx = min(m.selectedIdx+1, len(m.files)-1)
		}

	case key.Matches(kmsg, m.keys.Up):
		if m.selectedIdx > 0 {
			m.selectedIdx--
		}

	case key.Matches(kmsg, m.keys.Refresh):
		return m, m.load()

	case key.Matches(kmsg, m.keys.Upload):
		m.mode = modeUpload
		m.pathInput.Placeholder = "file to upload"
		m.pathInput.SetValue("")
		return m, m.pathInput.Focus()

	case key.Matches(kmsg, m.keys.Download):
		f, ok := m.Selected()
		if !ok {
			return m, nil
		}
		m.mode = modeDownload
		m.pathInput.Placeholder = "save as"
		m.pathInput.SetValue(f.Filename)
		m.pathInput.CursorEnd()
		return m, m.pathInput.Focus()

	case key.Matches(kmsg, m.keys.Remove):
		f, ok := m.Selected()
		if !ok {
			return m, nil
		}
		m.fb.confirm = false
		m.confirmForm = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Delete %s from the file service?", f.Filename)).
					Affirmative("Delete").
					Negative("Cancel").
					Value(&m.fb.confirm),
			),
		).WithWidth(max(40, min(m.width-4, 100)))
		m.mode = modeConfirmDelete
		return m, m.confirmForm.Init()
	}
	return m, nil
}

func (m Model) updatePath(msg tea.Msg) (Model, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "esc":
			m.mode = modeList
			m.pathInput.Blur()
			return m, nil
		case "enter":
			path := strings.TrimSpace(m.pathInput.Value())
			if path == "" {
				return m, nil
			}
			upload := m.mode == modeUpload
			m.mode = modeList
			m.pathInput.Blur()
			if upload {
				m.setStatus("Uploading "+filepath.Base(path)+"...", false)
				return m, m.upload(path)
			}
			f, _ := m.Selected()
			m.setStatus("Downloading "+f.Filename+"...", false)
			return m, m.download(f, path)
		}
	}
	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.confirmForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirmForm = f
	}
	switch m.confirmForm.State {
	case huh.StateCompleted:
		m.mode = modeList
		f, ok := m.Selected()
		if !m.fb.confirm || !ok {
			return m, nil
		}
		return m, m.remove(f)
	case huh.StateAborted:
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

func (m Model) load() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		files, err := svc.List(context.Background())
		return loadedMsg{files: files, err: err}
	}
}

func (m Model) upload(path string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return doneMsg{err: err}
		}
		defer f.Close()

		info, err := svc.Upload(context.Background(), filepath.Base(path), f)
		if err != nil {
			return doneMsg{err: err}
		}
		return doneMsg{text: fmt.Sprintf("Uploaded %s (%s)", info.Filename, ui.HumanSize(info.Size))}
	}
}

func (m Model) download(info model.FileInfo, path string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		n, err := saveFile(svc, info.ID, path)
		if err != nil {
			return doneMsg{err: err}
		}
		return doneMsg{text: fmt.Sprintf("Saved %s to %s", ui.HumanSize(n), path)}
	}
}

// saveFile downloads id to path, removing a partial file on failure.
func saveFile(svc Service, id, path string) (int64, error) {
	out, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := svc.Download(context.Background(), id, out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, err
	}
	return n, nil
}

func (m Model) remove(info model.FileInfo) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		if err := svc.Delete(context.Background(), info.ID); err != nil {
			return doneMsg{err: err}
		}
		return doneMsg{text: "Deleted " + info.Filename}
	}
}

// Selected returns the file under the cursor.
func (m Model) Selected() (model.FileInfo, bool) {
	if m.selectedIdx < len(m.files) {
		return m.files[m.selectedIdx], true
	}
	return model.FileInfo{}, false
}

func (m *Model) clampCursor() {
	if m.selectedIdx >= len(m.files) {
		m.selectedIdx = max(0, len(m.files)-1)
	}
}

func (m *Model) setStatus(text string, isErr bool) {
	m.statusMsg = text
	m.statusErr = isErr
}

// View renders the file list.
func (m Model) View() string {
	if m.mode == modeConfirmDelete && m.confirmForm != nil {
		return lipgloss.NewStyle().Padding(1, 2).Render(m.confirmForm.View())
	}

	var b strings.Builder
	b.WriteString(theme.TitleStyle.Render(fmt.Sprintf("Files (%d)", len(m.files))))
	b.WriteString("\n\n")

	gray := lipgloss.NewStyle().Foreground(theme.ColorGray)
	if len(m.files) == 0 {
		b.WriteString(gray.Italic(true).Render("No files uploaded. Press u to upload one."))
		b.WriteString("\n")
	}
	for i, f := range m.files {
		line := fmt.Sprintf("%-32s %8s  %s  %s",
			ui.Truncate(f.Filename, 32),
			ui.HumanSize(f.Size),
			gray.Render(ui.RelativeTime(f.UploadTime.Time)),
			gray.Render(f.ID),
		)
		if i == m.selectedIdx {
			b.WriteString(theme.SelectedItemStyle.Render(line))
		} else {
			b.WriteString(theme.ListItemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	if m.mode == modeUpload || m.mode == modeDownload {
		b.WriteString("\n")
		b.WriteString(m.pathInput.View())
		b.WriteString("\n")
	}

	if m.statusMsg != "" {
		color := theme.ColorYellow
		if m.statusErr {
			color = theme.ColorRed
		}
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(color).Italic(true).Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(gray.Render("u upload | s save | d delete | r reload | esc back"))

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height).Render(b.String())
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.pathInput.Width = max(20, width-16)
}

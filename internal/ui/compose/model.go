package compose

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/emersion/go-message/mail"

	mailcompose "github.com/nhle/automail/internal/compose"
	"github.com/nhle/automail/internal/model"
	"github.com/nhle/automail/internal/theme"
	"github.com/nhle/automail/internal/ui"
)

// Action is what to do with the finished form.
type Action string

const (
	// ActionMailing sends one message to all selected teachers, whose
	// addresses the service looks up by id. Every recipient sees the others.
	ActionMailing Action = "mailing"
	// ActionDirect sends one message to the selected addresses as held
	// locally, with cc, bcc and attachments.
	ActionDirect Action = "direct"
	// ActionSave only stores the draft.
	ActionSave Action = "save"
)

// SubmitMsg is dispatched when the form is completed.
type SubmitMsg struct {
	Draft  model.Draft
	Action Action
	Cc     []string
	Bcc    []string
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	subject       string
	format        string
	body          string
	attachmentIDs []string
	action        string
	cc            string
	bcc           string
}

// Model is the Bubble Tea model for the compose form.
type Model struct {
	form       *huh.Form
	fb         *formBindings
	draft      model.Draft
	files      []model.FileInfo
	recipients string
	width      int
	height     int
}

// New creates a new compose form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{format: model.FormatPlain, action: string(ActionMailing)},
		width:  width,
		height: height,
	}
}

// SetRecipients sets the recipient summary shown above the form.
func (m *Model) SetRecipients(summary string) {
	m.recipients = summary
}

// SetFiles sets the uploaded files offered as attachments.
func (m *Model) SetFiles(files []model.FileInfo) {
	m.files = files
}

// Start initializes the form from d. A zero Draft starts a new message.
func (m *Model) Start(d model.Draft) tea.Cmd {
	m.draft = d
	m.fb.subject = d.Subject
	m.fb.body = d.Body
	m.fb.format = d.Format
	if m.fb.format == "" {
		m.fb.format = model.FormatPlain
	}
	m.fb.attachmentIDs = append([]string(nil), d.AttachmentIDs...)
	m.fb.action = string(ActionMailing)
	if len(d.AttachmentIDs) > 0 {
		m.fb.action = string(ActionDirect)
	}
	m.fb.cc = ""
	m.fb.bcc = ""
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the compose form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		submit := m.submission()
		m.form = nil
		return m, func() tea.Msg { return submit }
	}
	if m.form.State == huh.StateAborted {
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the compose form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New message"
	if m.draft.ID != "" {
		titleText = "Edit draft"
	}
	header := theme.TitleStyle.Render(titleText)
	if m.recipients != "" {
		header += "\n" + theme.HelpStyle.Render("To: "+m.recipients)
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(header + "\n" + m.form.View())
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	fields := []huh.Field{
		huh.NewInput().
			Title("Subject").
			Value(&m.fb.subject).
			Validate(validateRequired("Subject")),
		huh.NewSelect[string]().
			Title("Format").
			Options(
				huh.NewOption("Plain text", model.FormatPlain),
				huh.NewOption("Markdown", model.FormatMarkdown),
				huh.NewOption("HTML", model.FormatHTML),
			).
			Value(&m.fb.format),
		huh.NewText().
			Title("Body").
			Lines(10).
			Value(&m.fb.body).
			Validate(validateRequired("Body")),
	}
	if f := m.attachmentField(); f != nil {
		fields = append(fields, f)
	}
	fields = append(fields,
		huh.NewSelect[string]().
			Title("Send").
			Options(
				huh.NewOption("One message to all selected (service looks up addresses)", string(ActionMailing)),
				huh.NewOption("One message to all selected, with cc/bcc and attachments", string(ActionDirect)),
				huh.NewOption("Save as draft", string(ActionSave)),
			).
			Value(&m.fb.action).
			Validate(m.validateAction),
	)

	fb := m.fb
	return huh.NewForm(
		huh.NewGroup(fields...),
		huh.NewGroup(
			huh.NewInput().
				Title("Cc").
				Placeholder("comma separated, optional").
				Value(&m.fb.cc).
				Validate(validateAddresses),
			huh.NewInput().
				Title("Bcc").
				Placeholder("comma separated, optional").
				Value(&m.fb.bcc).
				Validate(validateAddresses),
		).WithHideFunc(func() bool { return fb.action != string(ActionDirect) }),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) attachmentField() huh.Field {
	if len(m.files) == 0 {
		return nil
	}
	opts := make([]huh.Option[string], len(m.files))
	for i, f := range m.files {
		label := fmt.Sprintf("%s (%s)", f.Filename, ui.HumanSize(f.Size))
		opts[i] = huh.NewOption(label, f.ID)
	}
	return huh.NewMultiSelect[string]().
		Title("Attachments").
		Options(opts...).
		Value(&m.fb.attachmentIDs)
}

func (m *Model) validateAction(action string) error {
	if Action(action) == ActionMailing && len(m.fb.attachmentIDs) > 0 {
		return mailcompose.ErrAttachmentsUnsupported
	}
	return nil
}

func (m Model) submission() SubmitMsg {
	d := m.draft
	d.Subject = strings.TrimSpace(m.fb.subject)
	d.Body = m.fb.body
	d.Format = m.fb.format
	d.AttachmentIDs = append([]string(nil), m.fb.attachmentIDs...)

	msg := SubmitMsg{Draft: d, Action: Action(m.fb.action)}
	if msg.Action == ActionDirect {
		msg.Cc = mailcompose.SplitAddresses(m.fb.cc)
		msg.Bcc = mailcompose.SplitAddresses(m.fb.bcc)
	}
	return msg
}

func (m Model) formWidth() int {
	return max(40, min(m.width-4, 100))
}

func (m Model) formHeight() int {
	return max(10, m.height-6)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateAddresses(s string) error {
	for _, addr := range mailcompose.SplitAddresses(s) {
		if _, err := mail.ParseAddress(addr); err != nil {
			return fmt.Errorf("invalid address %q", addr)
		}
	}
	return nil
}

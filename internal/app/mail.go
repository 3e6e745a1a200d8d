package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/automail/internal/cart"
	"github.com/nhle/automail/internal/compose"
	"github.com/nhle/automail/internal/model"
	"github.com/nhle/automail/internal/ui"
)

// composeReadyMsg opens the compose form once the attachment choices
// are known.
type composeReadyMsg struct {
	draft model.Draft
	files []model.FileInfo
	err   error
}

// draftSavedMsg is sent after a draft is persisted.
type draftSavedMsg struct {
	draft model.Draft
	err   error
}

// sentMsg reports the outcome of a send.
type sentMsg struct {
	text string
	err  error
}

// openCompose lists uploaded files and then opens d in the compose form.
// A failed listing still opens the form, without attachments.
func (m Model) openCompose(d model.Draft) tea.Cmd {
	svc := m.services.Files
	return func() tea.Msg {
		fs, err := svc.List(context.Background())
		return composeReadyMsg{draft: d, files: fs, err: err}
	}
}

// saveDraft persists d, assigning an id when it has none.
func (m Model) saveDraft(d model.Draft) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		saved, err := s.SaveDraft(context.Background(), d)
		return draftSavedMsg{draft: saved, err: err}
	}
}

// sendMailing asks the service to send one message to every selected
// teacher. The request is built before the command runs so it reflects
// the selection at submit time.
func (m Model) sendMailing(d model.Draft) tea.Cmd {
	mailing, err := compose.Mailing(d, m.cart)
	if err != nil {
		return failed(err)
	}
	svc := m.services.SMTP
	return func() tea.Msg {
		res, err := svc.SendToTeachers(context.Background(), mailing)
		if err != nil {
			return sentMsg{err: err}
		}
		return sentMsg{text: fmt.Sprintf("Sent %q to %d teachers", mailing.Subject, res.Count)}
	}
}

// sendDirect sends one message addressed to every selected teacher.
func (m Model) sendDirect(d model.Draft, cc, bcc []string) tea.Cmd {
	email, err := compose.Direct(d, m.cart, cc, bcc)
	if err != nil {
		return failed(err)
	}
	svc := m.services.SMTP
	return func() tea.Msg {
		res, err := svc.Send(context.Background(), email)
		if err != nil {
			return sentMsg{err: err}
		}
		if !res.Success {
			return sentMsg{err: errors.New(res.Message)}
		}
		return sentMsg{text: fmt.Sprintf("Sent %q to %d addresses", email.Subject, len(email.To))}
	}
}

func failed(err error) tea.Cmd {
	return func() tea.Msg { return sentMsg{err: err} }
}

func recipientSummary(c *cart.Store) string {
	return fmt.Sprintf("To %s: %s", compose.Summary(c), ui.Truncate(strings.Join(c.Emails(), ", "), 60))
}

package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/automail/internal/api"
	"github.com/nhle/automail/internal/bounce"
	"github.com/nhle/automail/internal/compose"
	"github.com/nhle/automail/internal/credential"
	"github.com/nhle/automail/internal/model"
	"github.com/nhle/automail/internal/store"
)

// ErrMailboxNotConfigured is returned by bounce scans without a mailbox.
var ErrMailboxNotConfigured = errors.New("mailbox not configured: set mailbox.host and mailbox.username")

// exportedMsg reports the outcome of writing a draft as a .eml file.
type exportedMsg struct {
	path string
	err  error
}

// bounceScanMsg reports how many bouncing addresses a scan recorded.
type bounceScanMsg struct {
	added int
	err   error
}

// ExportDraft writes d as an RFC 5322 message addressed to to. The
// sender comes from the SMTP service's active configuration, if any, and
// attachments are fetched from the file service.
func ExportDraft(ctx context.Context, svc *api.Services, d model.Draft, to []string, path string) error {
	body, err := compose.NewRenderer().Render(d)
	if err != nil {
		return err
	}

	msg := compose.Message{
		To:      to,
		Subject: d.Subject,
		Body:    body,
		Date:    time.Now(),
	}

	cfg, err := svc.SMTP.GetConfig(ctx)
	switch {
	case err == nil:
		msg.FromName = cfg.SenderName
		msg.FromAddress = cfg.SenderEmail
	case !api.IsNotFound(err):
		return err
	}

	for _, id := range d.AttachmentIDs {
		info, err := svc.Files.Info(ctx, id)
		if err != nil {
			return fmt.Errorf("attachment %s: %w", id, err)
		}
		var buf bytes.Buffer
		if _, err := svc.Files.Download(ctx, id, &buf); err != nil {
			return fmt.Errorf("attachment %s: %w", info.Filename, err)
		}
		msg.Attachments = append(msg.Attachments, compose.Attachment{
			Filename:    info.Filename,
			ContentType: info.ContentType,
			Content:     &buf,
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := compose.WriteMIME(f, msg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// exportDraft writes the last composed or saved draft to path.
func (m Model) exportDraft(path string) tea.Cmd {
	if m.lastDraft == nil {
		return func() tea.Msg {
			return exportedMsg{err: errors.New("nothing to export: compose or open a draft first")}
		}
	}
	d := *m.lastDraft
	to := m.cart.Emails()
	svc := m.services
	return func() tea.Msg {
		err := ExportDraft(context.Background(), svc, d, to, path)
		return exportedMsg{path: path, err: err}
	}
}

// MailboxPasswordEnv overrides the keyring copy of the IMAP password.
const MailboxPasswordEnv = model.EnvPrefix + "_IMAP_PASSWORD"

// MailboxPassword returns the IMAP password from the environment or,
// failing that, the keyring.
func MailboxPassword(secrets *credential.Store) (string, error) {
	if pw := os.Getenv(MailboxPasswordEnv); pw != "" {
		return pw, nil
	}
	pw, err := secrets.Get(credential.IMAPPasswordKey)
	if err != nil {
		return "", fmt.Errorf("mailbox password: %w", err)
	}
	return pw, nil
}

// ScanBounces looks for bounce reports received in the last
// cfg.BounceScanDays days and records the failing addresses.
func ScanBounces(ctx context.Context, cfg model.MailboxConfig, password string, rec bounce.Recorder) (int, error) {
	if !cfg.Enabled() {
		return 0, ErrMailboxNotConfigured
	}
	days := max(cfg.BounceScanDays, 1)
	since := time.Now().AddDate(0, 0, -days)
	return bounce.NewScanner(cfg, password).ScanAndRecord(ctx, since, rec)
}

func (m Model) scanBounces() tea.Cmd {
	cfg := m.cfg.Mailbox
	secrets := m.secrets
	s := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if !cfg.Enabled() {
			return bounceScanMsg{err: ErrMailboxNotConfigured}
		}
		password, err := MailboxPassword(secrets)
		if err != nil {
			return bounceScanMsg{err: err}
		}
		added, err := ScanBounces(ctx, cfg, password, s)
		return bounceScanMsg{added: added, err: err}
	}
}

// dropBounced removes selected teachers whose address is known to bounce.
func (m *Model) dropBounced() int {
	removed := 0
	for _, r := range m.cart.Items() {
		if store.IsBouncedAddress(m.bounced, r.Email) {
			if m.cart.Remove(r.ID) {
				removed++
			}
		}
	}
	return removed
}

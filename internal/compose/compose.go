package compose

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nhle/automail/internal/model"
)

var (
	// ErrEmptySelection is returned when a message would go to nobody.
	ErrEmptySelection = errors.New("no teachers selected")

	// ErrEmptyDraft is returned for drafts without a subject or body.
	ErrEmptyDraft = errors.New("draft needs a subject and a body")

	// ErrAttachmentsUnsupported is returned by Mailing for drafts with
	// attachments; the send-to-teachers endpoint cannot carry them.
	ErrAttachmentsUnsupported = errors.New("attachments require a direct send")
)

// Selection is the read side of a teacher selection.
type Selection interface {
	Count() int
	IDs() []string
	Emails() []string
}

func checkDraft(d model.Draft) error {
	if strings.TrimSpace(d.Subject) == "" || strings.TrimSpace(d.Body) == "" {
		return ErrEmptyDraft
	}
	return nil
}

// Mailing builds a mailing for the selected teachers. The service looks
// up their addresses and sends one message with all of them in To.
func (r *Renderer) Mailing(d model.Draft, sel Selection) (model.TeacherMailing, error) {
	if sel.Count() == 0 {
		return model.TeacherMailing{}, ErrEmptySelection
	}
	if err := checkDraft(d); err != nil {
		return model.TeacherMailing{}, err
	}
	if len(d.AttachmentIDs) > 0 {
		return model.TeacherMailing{}, ErrAttachmentsUnsupported
	}

	body, err := r.Render(d)
	if err != nil {
		return model.TeacherMailing{}, err
	}

	m := model.TeacherMailing{
		TeacherIDs: sel.IDs(),
		Subject:    strings.TrimSpace(d.Subject),
		Body:       body.Text,
	}
	if body.IsHTML() {
		m.Body = body.HTML
		m.IsHTML = true
	}
	return m, nil
}

// Direct builds a single message addressed to every selected email, in
// selection order with duplicates and blanks dropped.
func (r *Renderer) Direct(d model.Draft, sel Selection, cc, bcc []string) (model.Email, error) {
	to := uniqueAddresses(sel.Emails())
	if len(to) == 0 {
		return model.Email{}, ErrEmptySelection
	}
	if err := checkDraft(d); err != nil {
		return model.Email{}, err
	}

	body, err := r.Render(d)
	if err != nil {
		return model.Email{}, err
	}

	e := model.Email{
		To:          to,
		Cc:          uniqueAddresses(cc),
		Bcc:         uniqueAddresses(bcc),
		Subject:     strings.TrimSpace(d.Subject),
		Body:        body.Text,
		Attachments: d.AttachmentIDs,
	}
	if body.IsHTML() {
		e.Body = body.HTML
		e.IsHTML = true
	}
	return e, nil
}

// Mailing builds a teacher mailing with the default renderer.
func Mailing(d model.Draft, sel Selection) (model.TeacherMailing, error) {
	return defaultRenderer.Mailing(d, sel)
}

// Direct builds a single message with the default renderer.
func Direct(d model.Draft, sel Selection, cc, bcc []string) (model.Email, error) {
	return defaultRenderer.Direct(d, sel, cc, bcc)
}

func uniqueAddresses(addrs []string) []string {
	seen := make(map[string]bool, len(addrs))
	var out []string
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		key := strings.ToLower(a)
		if a == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}

// SplitAddresses parses a comma or semicolon separated address list as
// typed into a form field.
func SplitAddresses(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	return uniqueAddresses(fields)
}

// Summary describes who a draft will reach, for confirmation prompts.
func Summary(sel Selection) string {
	n := sel.Count()
	switch n {
	case 0:
		return "no recipients"
	case 1:
		return "1 teacher"
	}
	return fmt.Sprintf("%d teachers", n)
}

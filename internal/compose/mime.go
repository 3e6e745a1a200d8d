package compose

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message/mail"
)

// Attachment is a file included in an exported message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

// Message is a fully addressed message ready to be written as RFC 5322.
type Message struct {
	FromName    string
	FromAddress string
	To          []string
	Cc          []string
	Subject     string
	Body        Body
	Date        time.Time
	Attachments []Attachment
}

func addressList(addrs []string) []*mail.Address {
	out := make([]*mail.Address, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, &mail.Address{Address: a})
	}
	return out
}

// WriteMIME writes m to w. HTML bodies are sent as multipart/alternative
// with the text rendition first.
func WriteMIME(w io.Writer, m Message) error {
	var h mail.Header
	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}
	h.SetDate(date)
	if m.FromAddress != "" {
		h.SetAddressList("From", []*mail.Address{{Name: m.FromName, Address: m.FromAddress}})
	}
	h.SetAddressList("To", addressList(m.To))
	if len(m.Cc) > 0 {
		h.SetAddressList("Cc", addressList(m.Cc))
	}
	h.SetSubject(m.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return fmt.Errorf("generating message id: %w", err)
	}

	mw, err := mail.CreateWriter(w, h)
	if err != nil {
		return fmt.Errorf("creating message writer: %w", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return fmt.Errorf("creating inline part: %w", err)
	}
	if err := writeInline(tw, "text/plain", m.Body.Text); err != nil {
		return err
	}
	if m.Body.IsHTML() {
		if err := writeInline(tw, "text/html", m.Body.HTML); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("closing inline part: %w", err)
	}

	for _, a := range m.Attachments {
		var ah mail.AttachmentHeader
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		ah.Set("Content-Type", ct)
		ah.SetFilename(a.Filename)

		aw, err := mw.CreateAttachment(ah)
		if err != nil {
			return fmt.Errorf("creating attachment %s: %w", a.Filename, err)
		}
		if _, err := io.Copy(aw, a.Content); err != nil {
			return fmt.Errorf("writing attachment %s: %w", a.Filename, err)
		}
		if err := aw.Close(); err != nil {
			return fmt.Errorf("closing attachment %s: %w", a.Filename, err)
		}
	}

	return mw.Close()
}

func writeInline(tw *mail.InlineWriter, contentType, body string) error {
	var th mail.InlineHeader
	th.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	pw, err := tw.CreatePart(th)
	if err != nil {
		return fmt.Errorf("creating %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(pw, body); err != nil {
		return fmt.Errorf("writing %s part: %w", contentType, err)
	}
	return pw.Close()
}

// Package bounce finds recipients the sender mailbox reported as
// undeliverable, so they can be flagged in the directory and dropped
// from selections.
package bounce

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"

	"github.com/nhle/automail/internal/model"
)

// ParseBounce extracts the failed recipients from a raw delivery status
// notification. Standard multipart/report messages are read from their
// delivery-status part; otherwise the X-Failed-Recipients header is
// used. A message that is not a bounce yields no results.
func ParseBounce(raw []byte) ([]model.Bounce, error) {
	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return nil, fmt.Errorf("reading message: %w", err)
	}

	h := mail.Header{Header: entity.Header}
	messageID, _ := h.MessageID()
	detected, err := h.Date()
	if err != nil || detected.IsZero() {
		detected = time.Now()
	}

	var bounces []model.Bounce
	walkErr := entity.Walk(func(_ []int, part *message.Entity, err error) error {
		if err != nil {
			if message.IsUnknownCharset(err) || message.IsUnknownEncoding(err) {
				return nil
			}
			return err
		}
		ct, _, _ := part.Header.ContentType()
		if ct != "message/delivery-status" && ct != "message/global-delivery-status" {
			return nil
		}
		found, err := parseDeliveryStatus(part.Body)
		if err != nil {
			return err
		}
		bounces = append(bounces, found...)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("reading delivery status: %w", walkErr)
	}

	if len(bounces) == 0 {
		for _, addr := range strings.Split(entity.Header.Get("X-Failed-Recipients"), ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				bounces = append(bounces, model.Bounce{Address: addr, Reason: "delivery failed"})
			}
		}
	}

	for i := range bounces {
		bounces[i].MessageID = messageID
		bounces[i].DetectedAt = detected
	}
	return dedupe(bounces), nil
}

// parseDeliveryStatus reads the per-message block followed by one block
// per recipient, each a set of header-style fields separated by a blank
// line.
func parseDeliveryStatus(r io.Reader) ([]model.Bounce, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading status part: %w", err)
	}
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")

	var out []model.Bounce
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		fields, err := textproto.ReadHeader(bufio.NewReader(
			strings.NewReader(strings.ReplaceAll(block, "\n", "\r\n") + "\r\n\r\n"),
		))
		if err != nil {
			return nil, fmt.Errorf("parsing status fields: %w", err)
		}
		out = appendRecipient(out, fields)
	}
	return out, nil
}

func appendRecipient(out []model.Bounce, fields textproto.Header) []model.Bounce {
	recipient := fields.Get("Final-Recipient")
	if recipient == "" {
		recipient = fields.Get("Original-Recipient")
	}
	if recipient == "" {
		return out
	}
	if !strings.EqualFold(strings.TrimSpace(fields.Get("Action")), "failed") {
		return out
	}

	addr := recipient
	if i := strings.Index(addr, ";"); i >= 0 {
		addr = addr[i+1:]
	}
	addr = strings.Trim(strings.TrimSpace(addr), "<>")
	if addr == "" {
		return out
	}

	reason := strings.TrimSpace(fields.Get("Status"))
	if diag := strings.TrimSpace(fields.Get("Diagnostic-Code")); diag != "" {
		if i := strings.Index(diag, ";"); i >= 0 {
			diag = strings.TrimSpace(diag[i+1:])
		}
		if reason != "" {
			reason += " "
		}
		reason += diag
	}
	if reason == "" {
		reason = "delivery failed"
	}

	return append(out, model.Bounce{Address: addr, Reason: reason})
}

func dedupe(bounces []model.Bounce) []model.Bounce {
	seen := make(map[string]bool, len(bounces))
	out := bounces[:0]
	for _, b := range bounces {
		key := strings.ToLower(b.Address)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, b)
	}
	return out
}

// looksLikeBounce reports whether an envelope is worth fetching in full.
func looksLikeBounce(env Envelope) bool {
	from := strings.ToLower(env.From)
	if strings.HasPrefix(from, "mailer-daemon@") || strings.HasPrefix(from, "postmaster@") {
		return true
	}
	subject := strings.ToLower(env.Subject)
	for _, hint := range []string{
		"undeliver", "delivery status notification", "delivery failure",
		"returned mail", "mail delivery failed", "failure notice", "退信", "未送达",
	} {
		if strings.Contains(subject, hint) {
			return true
		}
	}
	return false
}

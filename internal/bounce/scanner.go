package bounce

import (
	"context"
	"fmt"
	"time"

	"github.com/emersion/go-imap/v2"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/automail/internal/model"
)

// Scanner looks for delivery failure reports in the sender mailbox.
type Scanner struct {
	cfg      model.MailboxConfig
	password string
}

// NewScanner creates a scanner for the configured mailbox.
func NewScanner(cfg model.MailboxConfig, password string) *Scanner {
	return &Scanner{cfg: cfg, password: password}
}

// Scan returns the failed recipients reported by messages received
// since the given time. Messages that cannot be parsed are skipped.
func (s *Scanner) Scan(ctx context.Context, since time.Time) ([]model.Bounce, error) {
	mbox, err := openSession(ctx, s.cfg, s.password)
	if err != nil {
		return nil, err
	}
	defer mbox.close()

	uids, err := mbox.since(since)
	if err != nil {
		return nil, err
	}
	if len(uids) == 0 {
		return nil, nil
	}

	envelopes, err := mbox.envelopes(uids)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var candidates []imap.UID
	for _, env := range envelopes {
		if looksLikeBounce(env) {
			candidates = append(candidates, env.UID)
		}
	}
	log.WithFields(log.Fields{
		"messages":   len(envelopes),
		"candidates": len(candidates),
	}).Debug("bounce scan")

	raws, err := mbox.sources(candidates)
	if err != nil {
		return nil, err
	}

	var out []model.Bounce
	for uid, raw := range raws {
		found, err := ParseBounce(raw)
		if err != nil {
			log.WithField("uid", uid).WithError(err).Warn("skipping unreadable bounce")
			continue
		}
		out = append(out, found...)
	}
	return dedupe(out), nil
}

// Recorder persists bounces.
type Recorder interface {
	AddBounces(ctx context.Context, bounces []model.Bounce) (int, error)
}

// ScanAndRecord scans the mailbox and stores what it finds, returning
// the number of newly recorded addresses.
func (s *Scanner) ScanAndRecord(ctx context.Context, since time.Time, rec Recorder) (int, error) {
	found, err := s.Scan(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("scanning for bounces: %w", err)
	}
	return rec.AddBounces(ctx, found)
}

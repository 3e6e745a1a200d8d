package bounce

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/automail/internal/model"
)

// ErrAuth is returned when the mailbox rejects the credentials.
var ErrAuth = errors.New("mailbox authentication failed")

// Envelope is the part of a message header used to pick bounce candidates.
type Envelope struct {
	UID     imap.UID
	From    string
	Subject string
	Date    time.Time
}

// session is an authenticated IMAP connection with INBOX selected,
// opened read-only so scanning never changes flags.
type session struct {
	client *imapclient.Client
	stop   func() bool
}

// openSession dials the mailbox. The connection is torn down as soon as
// ctx is cancelled, which unblocks any command in flight.
func openSession(ctx context.Context, cfg model.MailboxConfig, password string) (*session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	addr := net.JoinHostPort(cfg.Host, cfg.Port)

	dial := imapclient.DialStartTLS
	if cfg.TLS {
		dial = imapclient.DialTLS
	}
	client, err := dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}
	s := &session{
		client: client,
		stop:   context.AfterFunc(ctx, func() { _ = client.Close() }),
	}

	if err := client.Login(cfg.Username, password).Wait(); err != nil {
		s.close()
		return nil, fmt.Errorf("%w for %s: %v", ErrAuth, cfg.Username, err)
	}
	if _, err := client.Select("INBOX", &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		s.close()
		return nil, fmt.Errorf("selecting INBOX: %w", err)
	}
	return s, nil
}

func (s *session) close() {
	s.stop()
	_ = s.client.Logout().Wait()
}

// since returns the UIDs of messages received on or after t.
func (s *session) since(t time.Time) ([]imap.UID, error) {
	data, err := s.client.UIDSearch(&imap.SearchCriteria{Since: t}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching INBOX: %w", err)
	}
	return data.AllUIDs(), nil
}

// envelopes fetches the header summary of each message.
func (s *session) envelopes(uids []imap.UID) ([]Envelope, error) {
	var out []Envelope
	err := s.fetch(uids, &imap.FetchOptions{UID: true, Envelope: true}, func(buf *imapclient.FetchMessageBuffer) {
		env := Envelope{UID: buf.UID}
		if e := buf.Envelope; e != nil {
			env.Subject = e.Subject
			env.Date = e.Date
			if len(e.From) > 0 {
				env.From = e.From[0].Addr()
			}
		}
		out = append(out, env)
	})
	if err != nil {
		return out, fmt.Errorf("fetching envelopes: %w", err)
	}
	return out, nil
}

// sources fetches the full RFC 5322 text of each message, keyed by UID.
func (s *session) sources(uids []imap.UID) (map[imap.UID][]byte, error) {
	section := &imap.FetchItemBodySection{Peek: true}
	out := make(map[imap.UID][]byte, len(uids))
	err := s.fetch(uids, &imap.FetchOptions{UID: true, BodySection: []*imap.FetchItemBodySection{section}},
		func(buf *imapclient.FetchMessageBuffer) {
			if raw := buf.FindBodySection(section); raw != nil {
				out[buf.UID] = raw
			}
		})
	if err != nil {
		return out, fmt.Errorf("fetching message bodies: %w", err)
	}
	return out, nil
}

// fetch runs one UID FETCH and hands every collected message to fn.
// Messages that fail to collect are skipped.
func (s *session) fetch(uids []imap.UID, opts *imap.FetchOptions, fn func(*imapclient.FetchMessageBuffer)) error {
	if len(uids) == 0 {
		return nil
	}
	cmd := s.client.Fetch(imap.UIDSetNum(uids...), opts)
	for msg := cmd.Next(); msg != nil; msg = cmd.Next() {
		buf, err := msg.Collect()
		if err != nil {
			continue
		}
		fn(buf)
	}
	return cmd.Close()
}

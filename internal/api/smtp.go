package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/nhle/automail/internal/model"
)

// SMTPClient talks to the SMTP service group: sender configuration,
// sending and the send log.
type SMTPClient struct {
	client *Client
}

// NewSMTPClient creates a client for the smtp group.
func NewSMTPClient(svc model.ServiceConfig) *SMTPClient {
	return &SMTPClient{client: NewClient(model.GroupSMTP, svc)}
}

// GetConfig returns the active configuration. The password comes back
// masked. A missing configuration is reported as a not-found *Error.
func (s *SMTPClient) GetConfig(ctx context.Context) (model.SMTPConfig, error) {
	var cfg model.SMTPConfig
	err := s.client.Get(ctx, "/config", nil, &cfg)
	return cfg, err
}

// AddConfig stores cfg as the active configuration. The service tests
// the connection first and replaces any existing configuration.
func (s *SMTPClient) AddConfig(ctx context.Context, cfg model.SMTPConfig) (model.SMTPConfig, error) {
	var saved model.SMTPConfig
	err := s.client.Post(ctx, "/config", cfg, &saved)
	return saved, err
}

// UpdateConfig applies a partial update to the configuration with id.
func (s *SMTPClient) UpdateConfig(ctx context.Context, id string, patch model.SMTPConfigPatch) error {
	if err := requireID("smtp config", id); err != nil {
		return err
	}
	return s.client.Put(ctx, "/config"+segment(id), patch, nil)
}

// DeleteConfig removes the configuration with id.
func (s *SMTPClient) DeleteConfig(ctx context.Context, id string) error {
	if err := requireID("smtp config", id); err != nil {
		return err
	}
	return s.client.Delete(ctx, "/config"+segment(id), nil)
}

// TestConnection asks the service to log in with cfg without saving it.
func (s *SMTPClient) TestConnection(ctx context.Context, cfg model.SMTPConfig) (model.SendResult, error) {
	var res model.SendResult
	err := s.client.Post(ctx, "/test-connection", cfg, &res)
	return res, err
}

// Send delivers a single message through the active configuration.
func (s *SMTPClient) Send(ctx context.Context, e model.Email) (model.SendResult, error) {
	var res model.SendResult
	err := s.client.Post(ctx, "/send", e, &res)
	return res, err
}

// SendToTeachers sends a single message addressed to all the given
// teachers. The service resolves their addresses from the directory in
// id order; ids without an address are skipped. Delivery is all or
// nothing, and no resolvable address at all is a code 400 error.
func (s *SMTPClient) SendToTeachers(ctx context.Context, m model.TeacherMailing) (model.TeacherMailingResult, error) {
	var res model.TeacherMailingResult
	err := s.client.Post(ctx, "/send-to-teachers", m, &res)
	return res, err
}

// Logs returns send attempts, newest first, filtered by q.
func (s *SMTPClient) Logs(ctx context.Context, q model.LogQuery) ([]model.EmailLog, error) {
	query := url.Values{}
	if q.Status != "" {
		query.Set("status", q.Status)
	}
	if q.Email != "" {
		query.Set("email", q.Email)
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	return s.logs(ctx, "/logs", query)
}

// LogsByStatus returns the attempts recorded with the given status.
func (s *SMTPClient) LogsByStatus(ctx context.Context, status string, limit int) ([]model.EmailLog, error) {
	return s.logs(ctx, "/logs/status"+segment(status), limitQuery(limit))
}

// LogsByEmail returns the attempts addressed to email.
func (s *SMTPClient) LogsByEmail(ctx context.Context, email string, limit int) ([]model.EmailLog, error) {
	return s.logs(ctx, "/logs/email"+segment(email), limitQuery(limit))
}

func (s *SMTPClient) logs(ctx context.Context, path string, query url.Values) ([]model.EmailLog, error) {
	logs := []model.EmailLog{}
	if err := s.client.Get(ctx, path, query, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func limitQuery(limit int) url.Values {
	if limit <= 0 {
		limit = model.DefaultLogLimit
	}
	return url.Values{"limit": {strconv.Itoa(limit)}}
}

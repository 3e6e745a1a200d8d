package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/nhle/automail/internal/model"
)

// SaveDraft inserts a new draft or updates an existing one. A UUID is
// generated when ID is empty. The saved draft is returned with its
// timestamps set.
func (s *SQLiteStore) SaveDraft(ctx context.Context, draft model.Draft) (model.Draft, error) {
	if strings.TrimSpace(draft.Subject) == "" && strings.TrimSpace(draft.Body) == "" {
		return model.Draft{}, fmt.Errorf("draft must have a subject or a body")
	}
	if draft.Format == "" {
		draft.Format = model.FormatPlain
	}
	switch draft.Format {
	case model.FormatPlain, model.FormatMarkdown, model.FormatHTML:
	default:
		return model.Draft{}, fmt.Errorf("unknown draft format %q", draft.Format)
	}

	attachments, err := json.Marshal(nonNil(draft.AttachmentIDs))
	if err != nil {
		return model.Draft{}, fmt.Errorf("marshaling attachment ids: %w", err)
	}

	now := time.Now().UTC()
	draft.UpdatedAt = now

	if draft.ID != "" {
		result, err := s.db.ExecContext(ctx, `
			UPDATE drafts SET
				subject = ?, body = ?, format = ?, attachment_ids = ?, updated_at = ?
			WHERE id = ?`,
			draft.Subject, draft.Body, draft.Format, string(attachments), draft.UpdatedAt,
			draft.ID,
		)
		if err != nil {
			return model.Draft{}, fmt.Errorf("updating draft %s: %w", draft.ID, err)
		}
		if rows, _ := result.RowsAffected(); rows > 0 {
			saved, err := s.GetDraft(ctx, draft.ID)
			if err != nil {
				return model.Draft{}, err
			}
			return *saved, nil
		}
	} else {
		draft.ID = uuid.New().String()
	}

	draft.CreatedAt = now
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drafts (
			id, subject, body, format, attachment_ids, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		draft.ID, draft.Subject, draft.Body, draft.Format, string(attachments),
		draft.CreatedAt, draft.UpdatedAt,
	)
	if err != nil {
		return model.Draft{}, fmt.Errorf("creating draft: %w", err)
	}
	return draft, nil
}

// GetDrafts returns every draft, most recently edited first.
func (s *SQLiteStore) GetDrafts(ctx context.Context) ([]model.Draft, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT "+draftColumns+" FROM drafts ORDER BY updated_at DESC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("querying drafts: %w", err)
	}
	defer rows.Close()

	drafts := []model.Draft{}
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}

// GetDraft retrieves a single draft by ID.
func (s *SQLiteStore) GetDraft(ctx context.Context, id string) (*model.Draft, error) {
	row := s.db.QueryRowxContext(ctx, "SELECT "+draftColumns+" FROM drafts WHERE id = ?", id)
	d, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("draft %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting draft %s: %w", id, err)
	}
	return &d, nil
}

// DeleteDraft removes a draft by ID.
func (s *SQLiteStore) DeleteDraft(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM drafts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting draft %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("draft %s: %w", id, ErrNotFound)
	}
	return nil
}

const draftColumns = `id, subject, body, format, attachment_ids, created_at, updated_at`

// scanDraft scans a draft row from sqlx.Rows or sqlx.Row.
func scanDraft(row interface{ Scan(dest ...interface{}) error }) (model.Draft, error) {
	var (
		d           model.Draft
		attachments string
	)

	err := row.Scan(
		&d.ID, &d.Subject, &d.Body, &d.Format, &attachments,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return model.Draft{}, fmt.Errorf("scanning draft row: %w", err)
	}

	if attachments != "" {
		if err := json.Unmarshal([]byte(attachments), &d.AttachmentIDs); err != nil {
			return model.Draft{}, fmt.Errorf("unmarshaling attachment ids: %w", err)
		}
	}
	if len(d.AttachmentIDs) == 0 {
		d.AttachmentIDs = nil
	}
	return d, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

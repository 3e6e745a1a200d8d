package model

import "time"

// Body formats a draft can be written in.
const (
	FormatPlain    = "plain"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// Draft is a locally saved message that has not been sent yet.
type Draft struct {
	ID            string    `json:"id" db:"id"`
	Subject       string    `json:"subject" db:"subject"`
	Body          string    `json:"body" db:"body"`
	Format        string    `json:"format" db:"format"`
	AttachmentIDs []string  `json:"attachment_ids,omitempty" db:"-"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

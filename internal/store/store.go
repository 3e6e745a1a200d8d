package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/automail/internal/model"
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("not found")

// TeacherFilter controls filtering, sorting, and pagination for cached
// teacher queries.
type TeacherFilter struct {
	Query       *string // matches name, email, research, title
	College     *string
	SchoolLevel *string
	SortBy      string // "name", "email", "school_college", "title", "fetched_at"
	SortDesc    bool
	Limit       int
	Offset      int
}

// Store is the local cache behind the terminal UI: the last fetched
// teacher directory, unsent drafts, and addresses known to bounce.
// Selections are deliberately not persisted.
type Store interface {
	// === Teacher directory cache ===

	UpsertTeachers(ctx context.Context, teachers []model.Teacher) (int, error)
	PruneTeachers(ctx context.Context, fetchedBefore time.Time) (int, error)
	GetTeachers(ctx context.Context, filter TeacherFilter) ([]model.Teacher, error)
	CountTeachers(ctx context.Context, filter TeacherFilter) (int, error)
	GetTeacherByID(ctx context.Context, id string) (*model.Teacher, error)
	DeleteTeacher(ctx context.Context, id string) error

	// === Drafts ===

	SaveDraft(ctx context.Context, draft model.Draft) (model.Draft, error)
	GetDrafts(ctx context.Context) ([]model.Draft, error)
	GetDraft(ctx context.Context, id string) (*model.Draft, error)
	DeleteDraft(ctx context.Context, id string) error

	// === Bounces ===

	AddBounces(ctx context.Context, bounces []model.Bounce) (int, error)
	GetBounces(ctx context.Context) ([]model.Bounce, error)
	IsBounced(ctx context.Context, address string) (bool, error)
	BouncedAddresses(ctx context.Context) (map[string]bool, error)
	DeleteBounce(ctx context.Context, address string) error

	Close() error
}

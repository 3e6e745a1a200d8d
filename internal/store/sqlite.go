package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/automail/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SchemaVersion returns the highest applied migration.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.GetContext(ctx, &v, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

// UpsertTeachers inserts or replaces a batch of directory rows, stamping
// them with the current time. It returns how many ids were not cached
// before. Rows without an id cannot be cached and are skipped.
func (s *SQLiteStore) UpsertTeachers(ctx context.Context, teachers []model.Teacher) (int, error) {
	if len(teachers) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	exists, err := tx.PreparexContext(ctx, "SELECT COUNT(*) FROM teachers WHERE id = ?")
	if err != nil {
		return 0, fmt.Errorf("preparing lookup statement: %w", err)
	}
	defer exists.Close()

	const query = `
		INSERT OR REPLACE INTO teachers (
			id, name, title, url, email, research,
			school_college, school_level, school, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	now := fetchStamp(time.Now())
	added := 0
	for _, t := range teachers {
		if t.ID == "" {
			continue
		}

		var n int
		if err := exists.GetContext(ctx, &n, t.ID); err != nil {
			return 0, fmt.Errorf("looking up teacher %s: %w", t.ID, err)
		}
		if n == 0 {
			added++
		}

		_, err = stmt.ExecContext(ctx,
			t.ID, t.Name, t.Title, t.URL, t.Email, t.Research,
			t.SchoolCollege, t.SchoolLevel, t.School, now,
		)
		if err != nil {
			return 0, fmt.Errorf("upserting teacher %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing teachers: %w", err)
	}
	return added, nil
}

// fetchedAtLayout is fixed width and UTC, so fetched_at values compare
// correctly as text down to the nanosecond.
const fetchedAtLayout = "2006-01-02T15:04:05.000000000Z"

func fetchStamp(t time.Time) string {
	return t.UTC().Format(fetchedAtLayout)
}

// PruneTeachers removes rows not refreshed since fetchedBefore, i.e.
// teachers the directory no longer lists. Rows written at or after
// fetchedBefore, even within the same second, are kept.
func (s *SQLiteStore) PruneTeachers(ctx context.Context, fetchedBefore time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM teachers WHERE fetched_at < ?", fetchStamp(fetchedBefore),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning teachers: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

const teacherColumns = `id, name, title, url, email, research, school_college, school_level, school`

// GetTeachers retrieves cached teachers matching the filter.
func (s *SQLiteStore) GetTeachers(
	ctx context.Context,
	filter TeacherFilter,
) ([]model.Teacher, error) {
	query, args := buildTeacherQuery("SELECT "+teacherColumns, filter, true)

	teachers := []model.Teacher{}
	if err := s.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, fmt.Errorf("querying teachers: %w", err)
	}
	return teachers, nil
}

// CountTeachers returns the number of cached teachers matching the
// filter, ignoring its limit and offset.
func (s *SQLiteStore) CountTeachers(ctx context.Context, filter TeacherFilter) (int, error) {
	query, args := buildTeacherQuery("SELECT COUNT(*)", filter, false)

	var count int
	if err := s.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("counting teachers: %w", err)
	}
	return count, nil
}

// GetTeacherByID retrieves a single cached teacher.
func (s *SQLiteStore) GetTeacherByID(
	ctx context.Context,
	id string,
) (*model.Teacher, error) {
	var t model.Teacher
	err := s.db.GetContext(ctx, &t,
		"SELECT "+teacherColumns+" FROM teachers WHERE id = ?", id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("teacher %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting teacher %s: %w", id, err)
	}
	return &t, nil
}

// DeleteTeacher removes a cached teacher.
func (s *SQLiteStore) DeleteTeacher(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM teachers WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting teacher %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("teacher %s: %w", id, ErrNotFound)
	}
	return nil
}

// buildTeacherQuery constructs the SQL query and args for a TeacherFilter.
func buildTeacherQuery(selectClause string, filter TeacherFilter, paged bool) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.Query != nil && *filter.Query != "" {
		conditions = append(conditions,
			"(name LIKE ? OR email LIKE ? OR research LIKE ? OR title LIKE ?)")
		q := "%" + *filter.Query + "%"
		args = append(args, q, q, q, q)
	}
	if filter.College != nil {
		conditions = append(conditions, "school_college = ?")
		args = append(args, *filter.College)
	}
	if filter.SchoolLevel != nil {
		conditions = append(conditions, "school_level = ?")
		args = append(args, *filter.SchoolLevel)
	}

	query := selectClause + " FROM teachers"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	if !paged {
		return query, args
	}

	sortBy := "name"
	if filter.SortBy != "" {
		allowed := map[string]bool{
			"name":           true,
			"email":          true,
			"title":          true,
			"school_college": true,
			"fetched_at":     true,
		}
		if allowed[filter.SortBy] {
			sortBy = filter.SortBy
		}
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s, id ASC", sortBy, direction)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	return query, args
}

package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS teachers (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	title          TEXT NOT NULL DEFAULT '',
	url            TEXT NOT NULL DEFAULT '',
	email          TEXT NOT NULL DEFAULT '',
	research       TEXT NOT NULL DEFAULT '',
	school_college TEXT NOT NULL DEFAULT '',
	school_level   TEXT NOT NULL DEFAULT '',
	school         TEXT NOT NULL DEFAULT '',
	fetched_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_teachers_name ON teachers(name);
CREATE INDEX IF NOT EXISTS idx_teachers_school_college ON teachers(school_college);
CREATE INDEX IF NOT EXISTS idx_teachers_fetched_at ON teachers(fetched_at);

CREATE TABLE IF NOT EXISTS drafts (
	id             TEXT PRIMARY KEY,
	subject        TEXT NOT NULL DEFAULT '',
	body           TEXT NOT NULL DEFAULT '',
	format         TEXT NOT NULL DEFAULT 'plain' CHECK(format IN ('plain', 'markdown', 'html')),
	attachment_ids TEXT NOT NULL DEFAULT '[]',
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_drafts_updated_at ON drafts(updated_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS bounces (
	address     TEXT PRIMARY KEY,
	reason      TEXT NOT NULL DEFAULT '',
	message_id  TEXT NOT NULL DEFAULT '',
	detected_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_teachers_email ON teachers(email COLLATE NOCASE);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}

package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// EnsureSchema creates the tables used by the API when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sqlx.DB, driver string) error {
	replacer := postgresTypes
	if driver == DriverSQLite {
		replacer = sqliteTypes
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, replacer.Replace(stmt)); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

var (
	postgresTypes = strings.NewReplacer("{{ts}}", "TIMESTAMPTZ", "{{json}}", "JSONB", "{{float}}", "DOUBLE PRECISION")
	sqliteTypes   = strings.NewReplacer("{{ts}}", "TIMESTAMP", "{{json}}", "BLOB", "{{float}}", "REAL")
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL DEFAULT '',
  full_name TEXT NOT NULL,
  role TEXT NOT NULL,
  active BOOLEAN NOT NULL DEFAULT TRUE,
  last_login {{ts}},
  created_at {{ts}} NOT NULL,
  updated_at {{ts}} NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  token TEXT NOT NULL UNIQUE,
  expires_at {{ts}} NOT NULL,
  created_at {{ts}} NOT NULL,
  revoked BOOLEAN NOT NULL DEFAULT FALSE,
  revoked_at {{ts}},
  ip_address TEXT NOT NULL DEFAULT '',
  user_agent TEXT NOT NULL DEFAULT ''
)`,
	`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user ON refresh_tokens (user_id)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  action TEXT NOT NULL,
  resource TEXT NOT NULL,
  resource_id TEXT,
  old_values {{json}},
  new_values {{json}},
  ip_address TEXT NOT NULL DEFAULT '',
  user_agent TEXT NOT NULL DEFAULT '',
  created_at {{ts}} NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS students (
  id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  gender TEXT,
  created_at {{ts}} NOT NULL,
  updated_at {{ts}} NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS courses (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  professor_email TEXT,
  scheme_version INTEGER NOT NULL DEFAULT 1,
  created_at {{ts}} NOT NULL,
  updated_at {{ts}} NOT NULL,
  UNIQUE (student_id, name)
)`,
	`CREATE TABLE IF NOT EXISTS course_components (
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  component_type TEXT NOT NULL,
  weight INTEGER NOT NULL CHECK (weight BETWEEN 0 AND 100),
  expected_count INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (course_id, component_type)
)`,
	`CREATE TABLE IF NOT EXISTS grade_entries (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
  component_type TEXT NOT NULL,
  score {{float}} NOT NULL CHECK (score >= 0 AND score <= 100),
  created_at {{ts}} NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_grade_entries_course ON grade_entries (course_id, student_id)`,
}

func firstLine(stmt string) string {
	if idx := strings.IndexByte(stmt, '\n'); idx >= 0 {
		return stmt[:idx]
	}
	return stmt
}

package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		student_id TEXT PRIMARY KEY,
		theme      TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS student_lessons (
		student_id TEXT    NOT NULL,
		class_id   TEXT    NOT NULL,
		lesson_id  TEXT    NOT NULL,
		position   INTEGER NOT NULL,
		unlocked   BOOLEAN NOT NULL DEFAULT 0,
		completed  BOOLEAN NOT NULL DEFAULT 0,
		theme      TEXT    NOT NULL DEFAULT '',
		record     TEXT    NOT NULL,
		version    INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (student_id, class_id, lesson_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_student_lessons_class ON student_lessons (class_id, student_id, position)`,
	`CREATE TABLE IF NOT EXISTS llm_events (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at    TIMESTAMP NOT NULL,
		provider      TEXT    NOT NULL,
		model         TEXT    NOT NULL,
		purpose       TEXT    NOT NULL,
		input_tokens  INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms    INTEGER NOT NULL DEFAULT 0,
		success       BOOLEAN NOT NULL,
		error_message TEXT    NOT NULL DEFAULT '',
		request_body  TEXT    NOT NULL DEFAULT '',
		response_body TEXT    NOT NULL DEFAULT ''
	)`,
}

func migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/quizcraft/internal/lesson"
)

type profileRow struct {
	StudentID string    `db:"student_id"`
	Theme     string    `db:"theme"`
	UpdatedAt time.Time `db:"updated_at"`
}

// LoadProfile returns the profile of a student.
func (s *Store) LoadProfile(ctx context.Context, studentID string) (lesson.Profile, error) {
	var row profileRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM profiles WHERE student_id = ?", studentID)
	if errors.Is(err, sql.ErrNoRows) {
		return lesson.Profile{}, ErrNotFound
	}
	if err != nil {
		return lesson.Profile{}, fmt.Errorf("load profile %s: %w", studentID, err)
	}
	return lesson.Profile{StudentID: row.StudentID, Theme: row.Theme}, nil
}

// SaveTheme creates the profile if needed and sets its theme.
func (s *Store) SaveTheme(ctx context.Context, studentID, theme string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (student_id, theme, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (student_id) DO UPDATE SET theme = excluded.theme, updated_at = excluded.updated_at`,
		studentID, theme, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save theme for %s: %w", studentID, err)
	}
	return nil
}

// ListProfiles returns all profiles ordered by student id.
func (s *Store) ListProfiles(ctx context.Context) ([]lesson.Profile, error) {
	var rows []profileRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM profiles ORDER BY student_id"); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	out := make([]lesson.Profile, len(rows))
	for i, r := range rows {
		out[i] = lesson.Profile{StudentID: r.StudentID, Theme: r.Theme}
	}
	return out, nil
}

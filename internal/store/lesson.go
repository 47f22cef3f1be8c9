package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/abhisek/quizcraft/internal/lesson"
)

type lessonRow struct {
	StudentID string    `db:"student_id"`
	ClassID   string    `db:"class_id"`
	LessonID  string    `db:"lesson_id"`
	Position  int       `db:"position"`
	Unlocked  bool      `db:"unlocked"`
	Completed bool      `db:"completed"`
	Theme     string    `db:"theme"`
	Record    string    `db:"record"`
	Version   int64     `db:"version"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r lessonRow) decode() (lesson.LessonRecord, error) {
	var rec lesson.LessonRecord
	if err := json.Unmarshal([]byte(r.Record), &rec); err != nil {
		return rec, &lesson.DataIntegrityError{
			Op:     "decode lesson",
			Reason: fmt.Sprintf("stored record %s/%s/%s is malformed", r.StudentID, r.ClassID, r.LessonID),
			Err:    err,
		}
	}
	return rec, nil
}

// LoadLesson returns a student's lesson and its current version.
func (s *Store) LoadLesson(ctx context.Context, key lesson.Key) (lesson.LessonRecord, int64, error) {
	var row lessonRow
	err := s.db.GetContext(ctx, &row, `
		SELECT * FROM student_lessons
		WHERE student_id = ? AND class_id = ? AND lesson_id = ?`,
		key.StudentID, key.ClassID, key.LessonID)
	if errors.Is(err, sql.ErrNoRows) {
		return lesson.LessonRecord{}, 0, ErrNotFound
	}
	if err != nil {
		return lesson.LessonRecord{}, 0, fmt.Errorf("load lesson %s: %w", key, err)
	}
	rec, err := row.decode()
	if err != nil {
		return lesson.LessonRecord{}, 0, err
	}
	return rec, row.Version, nil
}

// SaveLesson replaces a stored lesson if it is still at expectedVersion and
// returns the new version.
func (s *Store) SaveLesson(ctx context.Context, key lesson.Key, rec lesson.LessonRecord, expectedVersion int64) (int64, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("encode lesson %s: %w", key, err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE student_lessons
		SET record = ?, unlocked = ?, completed = ?, theme = ?, version = version + 1, updated_at = ?
		WHERE student_id = ? AND class_id = ? AND lesson_id = ? AND version = ?`,
		string(data), rec.Unlocked, rec.Completed, rec.Theme, time.Now().UTC(),
		key.StudentID, key.ClassID, key.LessonID, expectedVersion)
	if err != nil {
		return 0, fmt.Errorf("save lesson %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("save lesson %s: %w", key, err)
	}
	if n == 1 {
		return expectedVersion + 1, nil
	}

	var exists int
	err = s.db.GetContext(ctx, &exists, `
		SELECT COUNT(*) FROM student_lessons
		WHERE student_id = ? AND class_id = ? AND lesson_id = ?`,
		key.StudentID, key.ClassID, key.LessonID)
	if err != nil {
		return 0, fmt.Errorf("save lesson %s: %w", key, err)
	}
	if exists == 0 {
		return 0, ErrNotFound
	}
	return 0, ErrVersionConflict
}

// SaveProgress stores a freshly seeded progress record, replacing whatever
// the student had for the class.
func (s *Store) SaveProgress(ctx context.Context, p lesson.ProgressRecord) error {
	order := progressOrder(p)
	now := time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM student_lessons WHERE student_id = ? AND class_id = ?",
		p.StudentID, p.ClassID); err != nil {
		return fmt.Errorf("clear progress: %w", err)
	}

	for pos, id := range order {
		rec := p.Lessons[id]
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode lesson %s: %w", id, err)
		}
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO student_lessons (
				student_id, class_id, lesson_id, position, unlocked, completed,
				theme, record, version, updated_at
			) VALUES (
				:student_id, :class_id, :lesson_id, :position, :unlocked, :completed,
				:theme, :record, :version, :updated_at
			)`, lessonRow{
			StudentID: p.StudentID,
			ClassID:   p.ClassID,
			LessonID:  id,
			Position:  pos,
			Unlocked:  rec.Unlocked,
			Completed: rec.Completed,
			Theme:     rec.Theme,
			Record:    string(data),
			Version:   1,
			UpdatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("insert lesson %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// LoadProgress returns everything a student has in a class.
func (s *Store) LoadProgress(ctx context.Context, studentID, classID string) (lesson.ProgressRecord, error) {
	var rows []lessonRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM student_lessons
		WHERE student_id = ? AND class_id = ?
		ORDER BY position`, studentID, classID)
	if err != nil {
		return lesson.ProgressRecord{}, fmt.Errorf("load progress %s/%s: %w", studentID, classID, err)
	}
	if len(rows) == 0 {
		return lesson.ProgressRecord{}, ErrNotFound
	}
	return assemble(rows)
}

// ListClassProgress returns the progress of every student in a class,
// ordered by student id. An empty classID lists every class.
func (s *Store) ListClassProgress(ctx context.Context, classID string) ([]lesson.ProgressRecord, error) {
	var rows []lessonRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM student_lessons
		WHERE ? = '' OR class_id = ?
		ORDER BY student_id, class_id, position`, classID, classID)
	if err != nil {
		return nil, fmt.Errorf("list class %s: %w", classID, err)
	}

	var out []lesson.ProgressRecord
	for start := 0; start < len(rows); {
		end := start
		for end < len(rows) && rows[end].StudentID == rows[start].StudentID && rows[end].ClassID == rows[start].ClassID {
			end++
		}
		p, err := assemble(rows[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
		start = end
	}
	return out, nil
}

// StaleLessons lists unlocked, unfinished lessons whose applied theme differs
// from the student's current theme.
func (s *Store) StaleLessons(ctx context.Context, limit int) ([]lesson.Key, error) {
	q := `
		SELECT l.student_id, l.class_id, l.lesson_id
		FROM student_lessons l
		JOIN profiles p ON p.student_id = l.student_id
		WHERE l.unlocked AND NOT l.completed AND p.theme <> '' AND l.theme <> p.theme
		ORDER BY l.updated_at, l.student_id, l.class_id, l.position`
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []struct {
		StudentID string `db:"student_id"`
		ClassID   string `db:"class_id"`
		LessonID  string `db:"lesson_id"`
	}
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("query stale lessons: %w", err)
	}
	keys := make([]lesson.Key, len(rows))
	for i, r := range rows {
		keys[i] = lesson.Key{StudentID: r.StudentID, ClassID: r.ClassID, LessonID: r.LessonID}
	}
	return keys, nil
}

func assemble(rows []lessonRow) (lesson.ProgressRecord, error) {
	p := lesson.ProgressRecord{
		StudentID: rows[0].StudentID,
		ClassID:   rows[0].ClassID,
		Lessons:   make(map[string]lesson.LessonRecord, len(rows)),
	}
	for _, r := range rows {
		rec, err := r.decode()
		if err != nil {
			return lesson.ProgressRecord{}, err
		}
		p.LessonOrder = append(p.LessonOrder, r.LessonID)
		p.Lessons[r.LessonID] = rec
	}
	return p, nil
}

// progressOrder returns the lesson ids of p in storage order: the declared
// order first, then any lessons it omits.
func progressOrder(p lesson.ProgressRecord) []string {
	seen := make(map[string]bool, len(p.Lessons))
	var order []string
	for _, id := range p.LessonOrder {
		if _, ok := p.Lessons[id]; ok && !seen[id] {
			order = append(order, id)
			seen[id] = true
		}
	}
	var rest []string
	for id := range p.Lessons {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	slices.Sort(rest)
	return append(order, rest...)
}

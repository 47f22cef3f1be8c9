package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/quizcraft/internal/lesson"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "quizcraft.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleProgress() lesson.ProgressRecord {
	mk := func(id string, unlocked bool, content string) lesson.LessonRecord {
		return lesson.LessonRecord{
			ID:       id,
			Title:    "Lesson " + id,
			Unlocked: unlocked,
			QuestionsByLevel: map[lesson.Level][]lesson.QuestionSpec{
				lesson.Easy: {{ID: id + "_easy_1", Level: lesson.Easy, Content: content, Solution: "5", Hints: []string{"count"}}},
			},
		}
	}
	return lesson.ProgressRecord{
		StudentID:   "stu-1",
		ClassID:     "class-a",
		LessonOrder: []string{"Adding", "Subtracting"},
		Lessons: map[string]lesson.LessonRecord{
			"Adding":      mk("Adding", true, "2 + 3 ="),
			"Subtracting": mk("Subtracting", false, "9 - 4 ="),
		},
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}
	for _, tt := range tests {
		var got string
		require.NoError(t, s.DB().QueryRow("PRAGMA "+tt.pragma).Scan(&got))
		assert.Equal(t, tt.want, got, "PRAGMA %s", tt.pragma)
	}
}

func TestProgress_SaveAndLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveProgress(ctx, sampleProgress()))

	p, err := s.LoadProgress(ctx, "stu-1", "class-a")
	require.NoError(t, err)
	assert.Equal(t, []string{"Adding", "Subtracting"}, p.LessonOrder)
	assert.True(t, p.Lessons["Adding"].Unlocked)
	assert.False(t, p.Lessons["Subtracting"].Unlocked)
	assert.Equal(t, "2 + 3 =", p.Lessons["Adding"].QuestionsByLevel[lesson.Easy][0].Content)

	_, err = s.LoadProgress(ctx, "stu-1", "class-b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProgress_ReseedReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveProgress(ctx, sampleProgress()))

	p := sampleProgress()
	p.LessonOrder = []string{"Adding"}
	delete(p.Lessons, "Subtracting")
	require.NoError(t, s.SaveProgress(ctx, p))

	got, err := s.LoadProgress(ctx, "stu-1", "class-a")
	require.NoError(t, err)
	assert.Equal(t, []string{"Adding"}, got.LessonOrder)
}

func TestLesson_OptimisticSave(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveProgress(ctx, sampleProgress()))

	key := lesson.Key{StudentID: "stu-1", ClassID: "class-a", LessonID: "Adding"}
	rec, v, err := s.LoadLesson(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	rec.Theme = "Pokemon"
	rec.QuestionsByLevel[lesson.Easy][0].Content = "Ash has 2 Poke Balls and finds 3 more."
	v2, err := s.SaveLesson(ctx, key, rec, v)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v2)

	// A writer holding the old version loses.
	_, err = s.SaveLesson(ctx, key, rec, v)
	assert.ErrorIs(t, err, ErrVersionConflict)

	got, v3, err := s.LoadLesson(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v3)
	assert.Equal(t, "Pokemon", got.Theme)
	assert.Equal(t, "Ash has 2 Poke Balls and finds 3 more.", got.QuestionsByLevel[lesson.Easy][0].Content)

	_, err = s.SaveLesson(ctx, lesson.Key{StudentID: "stu-1", ClassID: "class-a", LessonID: "Nope"}, rec, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = s.LoadLesson(ctx, lesson.Key{StudentID: "stu-9", ClassID: "class-a", LessonID: "Adding"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProfile_SaveThemeUpserts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.LoadProfile(ctx, "stu-1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SaveTheme(ctx, "stu-1", "Cars"))
	require.NoError(t, s.SaveTheme(ctx, "stu-1", "Horses"))

	p, err := s.LoadProfile(ctx, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, lesson.Profile{StudentID: "stu-1", Theme: "Horses"}, p)

	all, err := s.ListProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStaleLessons(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveProgress(ctx, sampleProgress()))

	// No profile yet: nothing to personalize.
	keys, err := s.StaleLessons(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, s.SaveTheme(ctx, "stu-1", "Pokemon"))
	keys, err = s.StaleLessons(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []lesson.Key{{StudentID: "stu-1", ClassID: "class-a", LessonID: "Adding"}}, keys)

	key := keys[0]
	rec, v, err := s.LoadLesson(ctx, key)
	require.NoError(t, err)
	rec.Theme = "Pokemon"
	_, err = s.SaveLesson(ctx, key, rec, v)
	require.NoError(t, err)

	keys, err = s.StaleLessons(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestListClassProgress(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p1 := sampleProgress()
	p2 := sampleProgress()
	p2.StudentID = "stu-0"
	require.NoError(t, s.SaveProgress(ctx, p1))
	require.NoError(t, s.SaveProgress(ctx, p2))

	all, err := s.ListClassProgress(ctx, "class-a")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "stu-0", all[0].StudentID)
	assert.Equal(t, "stu-1", all[1].StudentID)
	assert.Len(t, all[1].Lessons, 2)
}

func TestListClassProgress_AllClasses(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := sampleProgress()
	b := sampleProgress()
	b.ClassID = "class-b"
	require.NoError(t, s.SaveProgress(ctx, a))
	require.NoError(t, s.SaveProgress(ctx, b))

	only, err := s.ListClassProgress(ctx, "class-b")
	require.NoError(t, err)
	require.Len(t, only, 1)

	all, err := s.ListClassProgress(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "class-a", all[0].ClassID)
	assert.Equal(t, "class-b", all[1].ClassID)
	assert.Len(t, all[1].Lessons, 2)
}

func TestLLMEvents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendLLMRequest(ctx, LLMRequestEventData{
		Provider: "gemini", Model: "gemini-2.5-flash-lite", Purpose: "personalize",
		InputTokens: 100, OutputTokens: 40, Success: true,
		RequestBody: "[user]\nRewrite", ResponseBody: "Question: themed",
	}))
	require.NoError(t, s.AppendLLMRequest(ctx, LLMRequestEventData{
		Provider: "gemini", Model: "gemini-2.5-flash-lite", Purpose: "personalize",
		InputTokens: 90, Success: false, ErrorMessage: "rate limited",
	}))

	events, err := s.QueryLLMEvents(ctx, QueryOpts{Limit: 10})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Greater(t, events[0].ID, events[1].ID, "newest first")
	assert.False(t, events[0].Success)

	ev, err := s.GetLLMEvent(ctx, events[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "Question: themed", ev.ResponseBody)

	_, err = s.GetLLMEvent(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	filtered, err := s.QueryLLMEvents(ctx, QueryOpts{Purpose: "other"})
	require.NoError(t, err)
	assert.Empty(t, filtered)

	usage, err := s.LLMUsageByPurpose(ctx)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, 2, usage[0].Requests)
	assert.Equal(t, 1, usage[0].Failures)
	assert.Equal(t, 190, usage[0].InputTokens)
	assert.Equal(t, 40, usage[0].OutputTokens)
}

func TestDefaultDBPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("QUIZCRAFT_DB", "")
	t.Setenv("XDG_DATA_HOME", dir)

	p, err := DefaultDBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "quizcraft", "quizcraft.db"), p)
	assert.DirExists(t, filepath.Join(dir, "quizcraft"))
}

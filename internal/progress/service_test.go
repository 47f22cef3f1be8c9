package progress

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/quizcraft/internal/difficulty"
	"github.com/abhisek/quizcraft/internal/lesson"
	"github.com/abhisek/quizcraft/internal/store"
)

const classTemplate = `{
	"Adding": [
		{"level": "easy", "content": "2 + 3 =", "solution": "5"},
		{"level": "medium", "content": "14 + 8 =", "solution": "22"},
		{"level": "hard", "content": "67 + 48 =", "solution": "115"}
	],
	"Subtracting": [
		{"level": "easy", "content": "9 - 4 =", "solution": "5"}
	],
	"Multiplying": [
		{"level": "easy", "content": "3 * 4 =", "solution": "12"}
	]
}`

type recordingScheduler struct {
	mu   sync.Mutex
	keys []lesson.Key
}

func (r *recordingScheduler) Submit(key lesson.Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	return true
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "quizcraft.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seeded(t *testing.T) (*Service, *store.Store, *recordingScheduler) {
	t.Helper()
	st := openStore(t)
	ctx := context.Background()
	require.NoError(t, st.SaveTheme(ctx, "stu-1", "Soccer"))

	tmpl, err := lesson.ParseTemplate([]byte(classTemplate))
	require.NoError(t, err)

	sched := &recordingScheduler{}
	svc := NewService(st, sched, nil)
	_, err = svc.Seed(ctx, "stu-1", "class-a", tmpl)
	require.NoError(t, err)
	return svc, st, sched
}

func TestSeed_UnlocksFirstAndRates(t *testing.T) {
	_, st, _ := seeded(t)

	p, err := st.LoadProgress(context.Background(), "stu-1", "class-a")
	require.NoError(t, err)
	assert.Equal(t, []string{"Adding", "Subtracting", "Multiplying"}, p.LessonOrder)
	assert.True(t, p.Lessons["Adding"].Unlocked)
	assert.False(t, p.Lessons["Subtracting"].Unlocked)
	assert.False(t, p.Lessons["Multiplying"].Unlocked)

	adding := p.Lessons["Adding"]
	_ = adding.Each(func(lvl lesson.Level, _ int, q *lesson.QuestionSpec) error {
		require.NotNil(t, q.Rating, q.ID)
		assert.True(t, difficulty.BandFor(lvl).Contains(*q.Rating), "%s rated %v", q.ID, *q.Rating)
		require.NotNil(t, q.Correct)
		assert.False(t, *q.Correct)
		assert.Nil(t, q.TimeTaken)
		require.NotNil(t, q.Base)
		assert.Equal(t, q.Content, q.Base.Content)
		return nil
	})
}

func TestSeed_RequiresProfile(t *testing.T) {
	st := openStore(t)
	tmpl, err := lesson.ParseTemplate([]byte(classTemplate))
	require.NoError(t, err)

	_, err = NewService(st, nil, nil).Seed(context.Background(), "ghost", "class-a", tmpl)
	var die *lesson.DataIntegrityError
	require.ErrorAs(t, err, &die)

	_, err = st.LoadProgress(context.Background(), "ghost", "class-a")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSubmitAnswer(t *testing.T) {
	svc, st, _ := seeded(t)
	ctx := context.Background()
	key := lesson.Key{StudentID: "stu-1", ClassID: "class-a", LessonID: "Adding"}

	require.NoError(t, svc.SubmitAnswer(ctx, key, "Adding_easy_1", true, 14))
	require.NoError(t, svc.SubmitAnswer(ctx, key, "Adding_hard_1", false, -3))

	rec, _, err := st.LoadLesson(ctx, key)
	require.NoError(t, err)
	easy, _ := rec.Find("Adding_easy_1")
	assert.True(t, *easy.Correct)
	assert.Equal(t, 14, *easy.TimeTaken)
	hard, _ := rec.Find("Adding_hard_1")
	assert.False(t, *hard.Correct)
	assert.Equal(t, 0, *hard.TimeTaken)
}

func TestSubmitAnswer_Missing(t *testing.T) {
	svc, _, _ := seeded(t)
	ctx := context.Background()

	var die *lesson.DataIntegrityError
	err := svc.SubmitAnswer(ctx, lesson.Key{StudentID: "stu-1", ClassID: "class-a", LessonID: "Adding"}, "nope", true, 1)
	require.ErrorAs(t, err, &die)

	err = svc.SubmitAnswer(ctx, lesson.Key{StudentID: "stu-1", ClassID: "class-a", LessonID: "Dividing"}, "x", true, 1)
	require.ErrorAs(t, err, &die)
}

func TestCompleteLesson_UnlocksNextAndQueuesPersonalization(t *testing.T) {
	svc, st, sched := seeded(t)
	ctx := context.Background()

	next, err := svc.CompleteLesson(ctx, "stu-1", "class-a", "Adding")
	require.NoError(t, err)
	assert.Equal(t, "Subtracting", next)

	p, err := st.LoadProgress(ctx, "stu-1", "class-a")
	require.NoError(t, err)
	assert.True(t, p.Lessons["Adding"].Completed)
	assert.True(t, p.Lessons["Subtracting"].Unlocked)
	assert.False(t, p.Lessons["Multiplying"].Unlocked)
	assert.Equal(t, []lesson.Key{{StudentID: "stu-1", ClassID: "class-a", LessonID: "Subtracting"}}, sched.keys)
}

func TestCompleteLesson_Last(t *testing.T) {
	svc, _, sched := seeded(t)
	next, err := svc.CompleteLesson(context.Background(), "stu-1", "class-a", "Multiplying")
	require.NoError(t, err)
	assert.Empty(t, next)
	assert.Empty(t, sched.keys)
}

func TestCompleteLesson_UnknownLesson(t *testing.T) {
	svc, _, _ := seeded(t)
	_, err := svc.CompleteLesson(context.Background(), "stu-1", "class-a", "Dividing")
	var die *lesson.DataIntegrityError
	require.ErrorAs(t, err, &die)
}

func TestPoints(t *testing.T) {
	yes, no := true, false
	p := lesson.ProgressRecord{Lessons: map[string]lesson.LessonRecord{
		"a": {QuestionsByLevel: map[lesson.Level][]lesson.QuestionSpec{
			lesson.Easy:   {{ID: "1", Correct: &yes}, {ID: "2", Correct: &no}, {ID: "3"}},
			lesson.Medium: {{ID: "4", Correct: &yes}},
		}},
		"b": {QuestionsByLevel: map[lesson.Level][]lesson.QuestionSpec{
			lesson.Hard: {{ID: "5", Correct: &yes}, {ID: "6", Correct: &yes}},
		}},
	}}
	assert.Equal(t, 1+2+3+3, Points(p))
	assert.Zero(t, Points(lesson.ProgressRecord{}))
}

func TestLeaderboard(t *testing.T) {
	svc, st, _ := seeded(t)
	ctx := context.Background()
	tmpl, err := lesson.ParseTemplate([]byte(classTemplate))
	require.NoError(t, err)
	for _, id := range []string{"stu-2", "stu-0"} {
		require.NoError(t, st.SaveTheme(ctx, id, "Cars"))
		_, err := svc.Seed(ctx, id, "class-a", tmpl)
		require.NoError(t, err)
	}

	adding := func(id string) lesson.Key {
		return lesson.Key{StudentID: id, ClassID: "class-a", LessonID: "Adding"}
	}
	require.NoError(t, svc.SubmitAnswer(ctx, adding("stu-2"), "Adding_hard_1", true, 30))
	require.NoError(t, svc.SubmitAnswer(ctx, adding("stu-1"), "Adding_easy_1", true, 5))
	require.NoError(t, svc.SubmitAnswer(ctx, adding("stu-1"), "Adding_medium_1", true, 8))
	_, err = svc.CompleteLesson(ctx, "stu-1", "class-a", "Adding")
	require.NoError(t, err)

	rows, err := svc.Leaderboard(ctx, "class-a")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Standing{StudentID: "stu-1", Points: 3, Completed: 1}, rows[0])
	assert.Equal(t, Standing{StudentID: "stu-2", Points: 3}, rows[1])
	assert.Equal(t, Standing{StudentID: "stu-0", Points: 0}, rows[2])
}

func TestLeaderboard_AcrossClasses(t *testing.T) {
	svc, st, _ := seeded(t)
	ctx := context.Background()
	tmpl, err := lesson.ParseTemplate([]byte(classTemplate))
	require.NoError(t, err)
	require.NoError(t, st.SaveTheme(ctx, "stu-2", "Cars"))
	_, err = svc.Seed(ctx, "stu-1", "class-b", tmpl)
	require.NoError(t, err)
	_, err = svc.Seed(ctx, "stu-2", "class-b", tmpl)
	require.NoError(t, err)

	key := func(student, class string) lesson.Key {
		return lesson.Key{StudentID: student, ClassID: class, LessonID: "Adding"}
	}
	require.NoError(t, svc.SubmitAnswer(ctx, key("stu-1", "class-a"), "Adding_medium_1", true, 8))
	require.NoError(t, svc.SubmitAnswer(ctx, key("stu-1", "class-b"), "Adding_medium_1", true, 8))
	require.NoError(t, svc.SubmitAnswer(ctx, key("stu-2", "class-b"), "Adding_hard_1", true, 30))

	rows, err := svc.Leaderboard(ctx, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Standing{StudentID: "stu-1", Points: 4}, rows[0])
	assert.Equal(t, Standing{StudentID: "stu-2", Points: 3}, rows[1])

	rows, err = svc.Leaderboard(ctx, "class-b")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "stu-2", rows[0].StudentID)
}

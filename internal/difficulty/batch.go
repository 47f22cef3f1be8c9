package difficulty

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/quizcraft/internal/lesson"
)

// Apply stores the ratings of a freshly rated lesson on its questions.
func Apply(rec *lesson.LessonRecord) {
	ratings := AssignRatings(rec.QuestionsByLevel)
	_ = rec.Each(func(_ lesson.Level, _ int, q *lesson.QuestionSpec) error {
		if r, ok := ratings[q.ID]; ok {
			q.Rating = &r
		}
		return nil
	})
}

// RateLessons rates independent lessons in parallel. The result maps lesson
// id to question id to rating.
func RateLessons(ctx context.Context, lessons []lesson.LessonRecord) (map[string]map[string]float64, error) {
	var (
		mu  sync.Mutex
		out = make(map[string]map[string]float64, len(lessons))
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, rec := range lessons {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ratings := AssignRatings(rec.QuestionsByLevel)
			mu.Lock()
			out[rec.ID] = ratings
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

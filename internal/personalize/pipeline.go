package personalize

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/quizcraft/internal/lesson"
	"github.com/abhisek/quizcraft/internal/llm"
	"github.com/abhisek/quizcraft/internal/logger"
)

// Pipeline themes one lesson in memory. It never persists anything.
type Pipeline struct {
	provider llm.Provider
	cfg      Config
	log      *logger.Logger
	now      func() time.Time
}

// NewPipeline creates a pipeline around a generation provider.
func NewPipeline(provider llm.Provider, cfg Config, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeLines
	}
	return &Pipeline{provider: provider, cfg: cfg, log: log, now: time.Now}
}

// Result is the outcome of Apply.
type Result struct {
	Record    lesson.LessonRecord
	Attempts  int
	Decisions []Decision
}

// Apply returns a themed copy of rec. rec itself is never modified.
//
// Malformed responses are retried with backoff up to MaxAttempts within the
// configured deadline; exhaustion yields *ExternalFormatError. Service
// failures yield *ExternalServiceError. Missing preconditions yield
// *lesson.DataIntegrityError before any call is made.
func (p *Pipeline) Apply(ctx context.Context, rec lesson.LessonRecord, theme string) (Result, error) {
	if theme == "" {
		return Result{}, &lesson.DataIntegrityError{Op: "personalize", Reason: "missing theme"}
	}
	if err := rec.Validate(); err != nil {
		return Result{}, err
	}

	req := GenerationRequest{Theme: theme, BaseQuestions: baseQuestions(&rec)}
	if len(req.BaseQuestions) == 0 {
		out := rec.Clone()
		out.Theme = theme
		return Result{Record: out}, nil
	}

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	results, attempts, err := p.generate(ctx, req)
	if err != nil {
		return Result{Attempts: attempts}, err
	}

	out, decisions := Reconcile(rec, results)
	for _, d := range decisions {
		if !d.Accepted {
			p.log.Info("generated answer does not match stored solution; keeping template",
				"lesson", rec.ID,
				"question", d.QuestionID,
				"generated", d.Generated,
				"expected", d.Expected)
		}
	}
	now := p.now().UTC()
	out.Theme = theme
	out.PersonalizedAt = &now

	return Result{Record: out, Attempts: attempts, Decisions: decisions}, nil
}

func (p *Pipeline) generate(ctx context.Context, req GenerationRequest) ([]GenerationResult, int, error) {
	system, user := BuildPrompt(req, p.cfg.Mode)
	genReq := llm.Request{
		System:      system,
		Messages:    llm.UserPrompt(user),
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
	}
	if p.cfg.Mode == ModeStructured {
		genReq.Schema = ResponseSchema
	}
	backoff := llm.RetryConfig{
		InitialWait: p.cfg.InitialBackoff,
		MaxWait:     p.cfg.MaxBackoff,
		Multiplier:  p.cfg.Multiplier,
	}
	n := len(req.BaseQuestions)

	var lastFormatErr error
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, attempt - 1, &ExternalServiceError{Attempts: attempt - 1, Err: err}
		}

		resp, err := p.provider.Generate(ctx, genReq)
		if err == nil {
			var results []GenerationResult
			if p.cfg.Mode == ModeStructured {
				results, err = ParseStructured(resp.Text, n)
			} else {
				results, err = ParseLines(resp.Text, n)
			}
			if err == nil {
				return results, attempt, nil
			}
		}

		var fe *FormatValidationError
		var inv *llm.ErrInvalidResponse
		var trunc *llm.ErrMaxTokensExceeded
		switch {
		case errors.As(err, &fe):
			lastFormatErr = fe
		case errors.As(err, &inv), errors.As(err, &trunc):
			lastFormatErr = &FormatValidationError{Reason: err.Error()}
		default:
			return nil, attempt, &ExternalServiceError{Attempts: attempt, Err: err}
		}

		p.log.Warn("malformed generation response",
			"attempt", attempt,
			"max_attempts", p.cfg.MaxAttempts,
			"error", lastFormatErr)

		if attempt == p.cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, attempt, &ExternalServiceError{Attempts: attempt, Err: ctx.Err()}
		case <-time.After(llm.Backoff(backoff, attempt-1)):
		}
	}

	return nil, p.cfg.MaxAttempts, &ExternalFormatError{Attempts: p.cfg.MaxAttempts, Last: lastFormatErr}
}

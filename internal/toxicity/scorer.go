package toxicity

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dmi-tools/questmine/internal/model"
	"github.com/dmi-tools/questmine/internal/resilience"
	"github.com/dmi-tools/questmine/pkg/moderation"
	"github.com/dmi-tools/questmine/pkg/perspective"
)

// Scorer runs both toxicity backends concurrently over a question set.
// Each backend is paced by its own rate limiter so the two streams
// never block each other. A question whose scoring ultimately fails
// keeps a nil score map for that backend; scoring never fails the run.
type Scorer struct {
	perspective perspective.Client
	moderation  moderation.Client

	perspectiveLimiter *rate.Limiter
	moderationLimiter  *rate.Limiter

	retry  resilience.RetryConfig
	logger *zap.Logger
}

// Options configures the scorer pacing and rate-limit retry policy.
type Options struct {
	// PerspectiveInterval paces successive Perspective calls.
	PerspectiveInterval time.Duration
	// ModerationInterval paces successive moderation calls.
	ModerationInterval time.Duration
	// MaxRetries is the total number of attempts per Perspective call
	// after a rate-limit signal, including the first.
	MaxRetries int
	// BackoffStep is the linear backoff increment between rate-limited
	// Perspective attempts.
	BackoffStep time.Duration
}

// NewScorer creates a scorer over the two backends. Either client may
// be nil, in which case its stream is skipped entirely.
func NewScorer(p perspective.Client, m moderation.Client, opts Options) *Scorer {
	if opts.PerspectiveInterval <= 0 {
		opts.PerspectiveInterval = time.Second
	}
	if opts.ModerationInterval <= 0 {
		opts.ModerationInterval = time.Second
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 3
	}
	if opts.BackoffStep <= 0 {
		opts.BackoffStep = 10 * time.Second
	}

	return &Scorer{
		perspective:        p,
		moderation:         m,
		perspectiveLimiter: rate.NewLimiter(rate.Every(opts.PerspectiveInterval), 1),
		moderationLimiter:  rate.NewLimiter(rate.Every(opts.ModerationInterval), 1),
		retry: resilience.RetryConfig{
			MaxAttempts:    opts.MaxRetries,
			InitialBackoff: opts.BackoffStep,
			Linear:         true,
			ShouldRetry: func(err error) bool {
				return eris.Is(err, perspective.ErrRateLimited)
			},
		},
		logger: zap.L().Named("toxicity"),
	}
}

// Score annotates every question in place with Perspective and
// moderation scores. The two backends run as independent streams over
// the same slice; each stream writes only its own score map.
func (s *Scorer) Score(ctx context.Context, questions []model.Question) error {
	g, gctx := errgroup.WithContext(ctx)

	if s.perspective != nil {
		g.Go(func() error {
			return s.scorePerspective(gctx, questions)
		})
	}
	if s.moderation != nil {
		g.Go(func() error {
			return s.scoreModeration(gctx, questions)
		})
	}

	return g.Wait()
}

func (s *Scorer) scorePerspective(ctx context.Context, questions []model.Question) error {
	retry := s.retry
	retry.OnRetry = resilience.RetryLogger("perspective", "analyze")

	for i := range questions {
		if err := s.perspectiveLimiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "toxicity: perspective pacing")
		}

		text := questions[i].ScoreText()
		scores, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (map[string]float64, error) {
			return s.perspective.AnalyzeComment(ctx, text)
		})
		if err != nil {
			s.logger.Warn("perspective scoring failed",
				zap.Int64("op_id", questions[i].ID),
				zap.Error(err))
			continue
		}
		questions[i].Toxicity.Perspective = scores
	}
	return nil
}

func (s *Scorer) scoreModeration(ctx context.Context, questions []model.Question) error {
	for i := range questions {
		if err := s.moderationLimiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "toxicity: moderation pacing")
		}

		scores, err := s.moderation.Score(ctx, questions[i].ScoreText())
		if err != nil {
			s.logger.Warn("moderation scoring failed",
				zap.Int64("op_id", questions[i].ID),
				zap.Error(err))
			continue
		}
		questions[i].Toxicity.Moderation = scores
	}
	return nil
}

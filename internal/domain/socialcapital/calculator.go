package socialcapital

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/pkg/logger"
)

// Counter provides the aggregate counts behind a social-capital score.
type Counter interface {
	CountAcceptedMatches(ctx context.Context, userID string) (int, error)
	CountCompletedMeetings(ctx context.Context, userID string) (int, error)
	CountTotalMeetings(ctx context.Context, userID string) (int, error)
	CountMessages(ctx context.Context, userID string) (int, error)
	ListAcceptedMatchPartners(ctx context.Context, userID string) ([]model.Profile, error)
}

// Calculator fetches counts and computes scores.
type Calculator struct {
	counter Counter
	logger  logger.Logger
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Calculator) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCalculator creates a Calculator over counter.
func NewCalculator(counter Counter, opts ...Option) *Calculator {
	c := &Calculator{counter: counter}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("socialcapital")
	}
	return c
}

// Calculate fetches the five aggregates for userID concurrently and
// computes the score.
func (c *Calculator) Calculate(ctx context.Context, userID string) (model.SocialCapitalScore, error) {
	var (
		counts   Counts
		partners []model.Profile
	)

	g, gctx := errgroup.WithContext(ctx)
	count := func(name string, fn func(context.Context, string) (int, error), dst *int) {
		g.Go(func() error {
			n, err := fn(gctx, userID)
			if err != nil {
				return fmt.Errorf("%w: %s for %s: %w", ErrCountFailed, name, userID, err)
			}
			*dst = n
			return nil
		})
	}
	count("accepted matches", c.counter.CountAcceptedMatches, &counts.AcceptedMatches)
	count("completed meetings", c.counter.CountCompletedMeetings, &counts.CompletedMeetings)
	count("total meetings", c.counter.CountTotalMeetings, &counts.TotalMeetings)
	count("messages", c.counter.CountMessages, &counts.Messages)
	g.Go(func() error {
		var err error
		partners, err = c.counter.ListAcceptedMatchPartners(gctx, userID)
		if err != nil {
			return fmt.Errorf("%w: partners for %s: %w", ErrCountFailed, userID, err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		c.logger.Warn(ctx, "social capital counts unavailable", logger.String("user_id", userID), logger.Error(err))
		return model.SocialCapitalScore{}, err
	}

	counts.DistinctIndustries = DistinctIndustries(partners)
	return Compute(userID, counts), nil
}

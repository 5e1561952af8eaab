// Package retry wraps remote calls in a bounded exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	DefaultAttempts = 3
	DefaultInterval = 2 * time.Second
)

type Class int

const (
	// ClassRetryable marks transient faults worth another attempt.
	ClassRetryable Class = iota

	// ClassPermanent stops retrying immediately.
	ClassPermanent
)

// Classifier decides whether an error is worth retrying. A nil classifier
// treats every error as retryable.
type Classifier func(error) Class

type Runner struct {
	// Attempts bounds the total number of tries, including the first.
	Attempts int

	// Interval is the first backoff delay; each later delay doubles it.
	Interval time.Duration

	log *zap.Logger
}

func NewRunner(attempts int) *Runner {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	log := zap.L().With(
		zap.String("component", "retry"),
	)

	return &Runner{
		Attempts: attempts,
		Interval: DefaultInterval,
		log:      log,
	}
}

// Do runs op until it succeeds, is classified permanent, the attempt budget
// is spent, or ctx is done. On failure the zero value of T is returned with
// the last error; callers on read paths degrade that to an empty result.
func Do[T any](ctx context.Context, r *Runner, classify Classifier, op func() (T, error)) (T, error) {
	var result T

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.Interval
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = r.Interval << uint(r.Attempts)
	exp.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(r.Attempts-1)), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++

		out, err := op()
		if err == nil {
			result = out
			return nil
		}

		if classify != nil && classify(err) == ClassPermanent {
			return backoff.Permanent(err)
		}

		r.log.Warn("operation failed",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		return err
	}, policy)

	return result, err
}

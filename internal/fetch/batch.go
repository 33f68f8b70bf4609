package fetch

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/githubapi"
)

// defaultGroupSize is the number of units launched together per group.
const defaultGroupSize = 5

// Failure records one unit that did not complete. Failed units never poison
// the batch: their results are simply absent.
type Failure struct {
	Unit string
	Err  error
}

// Outcome carries whatever a batched run completed, in completion order,
// alongside the units that failed. Callers that need a stable order sort
// downstream.
type Outcome[R any] struct {
	Results  []R
	Failures []Failure
}

// RunBatched executes units in fixed-size groups. A group is launched
// concurrently and awaited fully before the next group starts, which
// paces request bursts against the GitHub rate limiter.
//
// Unit errors are best-effort: they are recorded as Failures and the run
// continues. Two exceptions end the run early with completed results
// preserved: an auth error is session-fatal (no later call with the same
// token can succeed), and a rate-limit error means further groups would
// only burn quota. Both are returned to the caller alongside the partial
// Outcome.
func RunBatched[T, R any](
	ctx context.Context,
	units []T,
	groupSize int,
	name func(unit T) string,
	run func(ctx context.Context, unit T) (R, error),
) (Outcome[R], error) {
	if groupSize <= 0 {
		groupSize = defaultGroupSize
	}

	var (
		outcome Outcome[R]
		mu      sync.Mutex
		stopErr error
	)

	for start := 0; start < len(units); start += groupSize {
		end := start + groupSize
		if end > len(units) {
			end = len(units)
		}

		group, groupCtx := errgroup.WithContext(ctx)
		for _, unit := range units[start:end] {
			group.Go(func() error {
				result, err := run(groupCtx, unit)
				if err != nil {
					if githubapi.IsAuth(err) {
						// Cancel the rest of the group: the token is dead.
						return err
					}
					mu.Lock()
					outcome.Failures = append(outcome.Failures, Failure{Unit: name(unit), Err: err})
					if githubapi.IsRateLimit(err) && stopErr == nil {
						stopErr = err
					}
					mu.Unlock()
					return nil
				}
				mu.Lock()
				outcome.Results = append(outcome.Results, result)
				mu.Unlock()
				return nil
			})
		}

		if err := group.Wait(); err != nil {
			return outcome, err
		}
		if stopErr != nil {
			return outcome, stopErr
		}
		if err := ctx.Err(); err != nil {
			return outcome, err
		}
	}

	return outcome, nil
}

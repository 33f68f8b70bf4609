package fetch

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/githubapi"
)

func identity(unit string) string { return unit }

func TestRunBatchedCollectsAllResults(t *testing.T) {
	t.Parallel()

	units := []string{"a", "b", "c", "d", "e", "f", "g"}
	outcome, err := RunBatched(context.Background(), units, 3, identity,
		func(_ context.Context, unit string) (string, error) {
			return unit + "-done", nil
		})
	if err != nil {
		t.Fatalf("RunBatched() unexpected error: %v", err)
	}
	if len(outcome.Results) != len(units) || len(outcome.Failures) != 0 {
		t.Fatalf("outcome = %d results / %d failures, want %d / 0",
			len(outcome.Results), len(outcome.Failures), len(units))
	}

	sort.Strings(outcome.Results)
	if outcome.Results[0] != "a-done" || outcome.Results[6] != "g-done" {
		t.Fatalf("results = %v, want one per unit", outcome.Results)
	}
}

func TestRunBatchedPacesGroups(t *testing.T) {
	t.Parallel()

	var (
		mu         sync.Mutex
		inFlight   int
		maxFlight  int
		groupGates []chan struct{}
	)
	for range 2 {
		groupGates = append(groupGates, make(chan struct{}))
	}

	var launched atomic.Int32
	units := []string{"a", "b", "c", "d"}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = RunBatched(context.Background(), units, 2, identity,
			func(_ context.Context, unit string) (string, error) {
				mu.Lock()
				inFlight++
				if inFlight > maxFlight {
					maxFlight = inFlight
				}
				gate := groupGates[int(launched.Load())/2]
				launched.Add(1)
				mu.Unlock()

				<-gate

				mu.Lock()
				inFlight--
				mu.Unlock()
				return unit, nil
			})
	}()

	// Release group one; group two must not have launched before that.
	for launched.Load() < 2 {
		time.Sleep(time.Millisecond)
	}
	if launched.Load() != 2 {
		t.Fatalf("launched = %d before first group finished, want 2", launched.Load())
	}
	close(groupGates[0])
	for launched.Load() < 4 {
		time.Sleep(time.Millisecond)
	}
	close(groupGates[1])
	<-done

	if maxFlight > 2 {
		t.Fatalf("max in-flight = %d, want group size 2", maxFlight)
	}
}

func TestRunBatchedRecordsBestEffortFailures(t *testing.T) {
	t.Parallel()

	boom := errors.New("repo fetch failed")
	units := []string{"good-1", "bad", "good-2"}
	outcome, err := RunBatched(context.Background(), units, 3, identity,
		func(_ context.Context, unit string) (string, error) {
			if unit == "bad" {
				return "", boom
			}
			return unit, nil
		})
	if err != nil {
		t.Fatalf("RunBatched() unexpected error: %v", err)
	}
	if len(outcome.Results) != 2 {
		t.Fatalf("len(Results) = %d, want 2", len(outcome.Results))
	}
	if len(outcome.Failures) != 1 || outcome.Failures[0].Unit != "bad" {
		t.Fatalf("Failures = %+v, want single recorded failure for bad", outcome.Failures)
	}
	if !errors.Is(outcome.Failures[0].Err, boom) {
		t.Fatalf("failure err = %v, want original error preserved", outcome.Failures[0].Err)
	}
}

func TestRunBatchedAuthErrorEndsRun(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	units := []string{"a", "b", "c", "d"}
	_, err := RunBatched(context.Background(), units, 2, identity,
		func(_ context.Context, unit string) (string, error) {
			calls.Add(1)
			if unit == "a" {
				return "", &githubapi.AuthError{Message: "bad credentials"}
			}
			return unit, nil
		})
	if !githubapi.IsAuth(err) {
		t.Fatalf("error = %v, want auth error surfaced", err)
	}
	if calls.Load() > 2 {
		t.Fatalf("calls = %d, want later groups never launched", calls.Load())
	}
}

func TestRunBatchedRateLimitStopsLaterGroupsKeepsResults(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	units := []string{"a", "b", "c", "d"}
	outcome, err := RunBatched(context.Background(), units, 2, identity,
		func(_ context.Context, unit string) (string, error) {
			calls.Add(1)
			if unit == "b" {
				return "", &githubapi.RateLimitError{}
			}
			return unit, nil
		})
	if !githubapi.IsRateLimit(err) {
		t.Fatalf("error = %v, want rate-limit error surfaced", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want only first group launched", calls.Load())
	}
	if len(outcome.Results) != 1 || outcome.Results[0] != "a" {
		t.Fatalf("Results = %v, want completed unit preserved", outcome.Results)
	}
	if len(outcome.Failures) != 1 {
		t.Fatalf("Failures = %+v, want rate-limited unit recorded", outcome.Failures)
	}
}

func TestRunBatchedHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	units := []string{"a", "b", "c", "d"}
	var calls atomic.Int32
	_, err := RunBatched(ctx, units, 2, identity,
		func(_ context.Context, unit string) (string, error) {
			calls.Add(1)
			cancel()
			return unit, nil
		})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want stop between groups", calls.Load())
	}
}

func TestRunBatchedEmptyUnits(t *testing.T) {
	t.Parallel()

	outcome, err := RunBatched(context.Background(), nil, 0, identity,
		func(_ context.Context, unit string) (string, error) {
			t.Fatalf("run called with no units")
			return "", nil
		})
	if err != nil {
		t.Fatalf("RunBatched() unexpected error: %v", err)
	}
	if len(outcome.Results) != 0 || len(outcome.Failures) != 0 {
		t.Fatalf("outcome = %+v, want empty", outcome)
	}
}

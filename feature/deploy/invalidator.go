package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bucket-deployer/core/cdn"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// pollInterval is the delay between invalidation status checks.
// Overridable in tests.
var pollInterval = time.Second

// invalidate fires all declared invalidation actions concurrently.
// A failure in one action does not cancel the others, but the step fails
// if any action failed. Each action that requests waiting is polled until
// the provider reports completion or the wait budget runs out.
func invalidate(ctx context.Context, client cdn.Client, actions []InvalidationAction, waitTimeout time.Duration, logger *zap.Logger) error {
	if len(actions) == 0 {
		return nil
	}

	// Plain errgroup: no shared context cancellation between actions.
	var g errgroup.Group
	for _, action := range actions {
		g.Go(func() error {
			return runAction(ctx, client, action, waitTimeout, logger)
		})
	}

	return g.Wait()
}

// runAction dispatches one invalidation action by kind.
func runAction(ctx context.Context, client cdn.Client, action InvalidationAction, waitTimeout time.Duration, logger *zap.Logger) error {
	switch action.kind() {
	case ActionInvalidateDistribution:
		return invalidateDistribution(ctx, client, action, waitTimeout, logger)
	default:
		return fmt.Errorf("%w: unsupported action kind %q", ErrInvalidation, action.Kind)
	}
}

func invalidateDistribution(ctx context.Context, client cdn.Client, action InvalidationAction, waitTimeout time.Duration, logger *zap.Logger) error {
	// Fresh caller reference per call so provider-side idempotency checks
	// never reject an immediate retry of the whole invocation.
	ref := fmt.Sprintf("%d-%s", time.Now().UnixNano(), uuid.NewString())

	invalidationID, err := client.CreateInvalidation(ctx, action.DistributionID, ref)
	if err != nil {
		return fmt.Errorf("%w: distribution %s: %v", ErrInvalidation, action.DistributionID, err)
	}

	logger.Info("Invalidation created",
		zap.String("distribution_id", action.DistributionID),
		zap.String("invalidation_id", invalidationID),
		zap.Bool("wait", action.WaitForCompletion))

	if !action.WaitForCompletion {
		return nil
	}

	return awaitInvalidation(ctx, client, action.DistributionID, invalidationID, waitTimeout, logger)
}

// awaitInvalidation polls the invalidation status until completion.
// A vanished invalidation record is a known transient provider condition
// and counts as still in progress; the wait budget keeps that leniency
// from turning into an infinite loop.
func awaitInvalidation(ctx context.Context, client cdn.Client, distributionID, invalidationID string, waitTimeout time.Duration, logger *zap.Logger) error {
	deadline := time.Now().Add(waitTimeout)

	for {
		status, err := client.GetInvalidation(ctx, distributionID, invalidationID)
		switch {
		case errors.Is(err, cdn.ErrInvalidationGone):
			logger.Debug("Invalidation record not found yet, still waiting",
				zap.String("distribution_id", distributionID),
				zap.String("invalidation_id", invalidationID))
		case err != nil:
			return fmt.Errorf("%w: polling distribution %s: %v", ErrInvalidation, distributionID, err)
		case status == cdn.StatusCompleted:
			logger.Info("Invalidation completed",
				zap.String("distribution_id", distributionID),
				zap.String("invalidation_id", invalidationID))
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: distribution %s invalidation %s not completed after %s",
				ErrInvalidationTimeout, distributionID, invalidationID, waitTimeout)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: distribution %s: %v", ErrInvalidation, distributionID, ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}

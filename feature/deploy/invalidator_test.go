package deploy

import (
	"context"
	"testing"
	"time"

	"bucket-deployer/core/cdn"
	"bucket-deployer/core/cdn/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fastPolling(t *testing.T) {
	t.Helper()
	old := pollInterval
	pollInterval = time.Millisecond
	t.Cleanup(func() { pollInterval = old })
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	t.Run("NoActions", func(t *testing.T) {
		client := new(mocks.Client)
		assert.NoError(t, invalidate(ctx, client, nil, time.Minute, logger))
	})

	t.Run("FireAndForget", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("CreateInvalidation", mock.Anything, "E2ABCDEF", mock.Anything).
			Return("INV1", nil)

		actions := []InvalidationAction{{DistributionID: "E2ABCDEF"}}
		require.NoError(t, invalidate(ctx, client, actions, time.Minute, logger))

		client.AssertExpectations(t)
		client.AssertNotCalled(t, "GetInvalidation", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("WaitsForCompletion", func(t *testing.T) {
		fastPolling(t)

		client := new(mocks.Client)
		client.On("CreateInvalidation", mock.Anything, "E2ABCDEF", mock.Anything).
			Return("INV1", nil)
		client.On("GetInvalidation", mock.Anything, "E2ABCDEF", "INV1").
			Return("InProgress", nil).Twice()
		client.On("GetInvalidation", mock.Anything, "E2ABCDEF", "INV1").
			Return(cdn.StatusCompleted, nil).Once()

		actions := []InvalidationAction{{DistributionID: "E2ABCDEF", WaitForCompletion: true}}
		require.NoError(t, invalidate(ctx, client, actions, time.Minute, logger))
		client.AssertExpectations(t)
	})

	t.Run("GoneRecordCountsAsPending", func(t *testing.T) {
		fastPolling(t)

		client := new(mocks.Client)
		client.On("CreateInvalidation", mock.Anything, "E2ABCDEF", mock.Anything).
			Return("INV1", nil)
		client.On("GetInvalidation", mock.Anything, "E2ABCDEF", "INV1").
			Return("", cdn.ErrInvalidationGone).Once()
		client.On("GetInvalidation", mock.Anything, "E2ABCDEF", "INV1").
			Return(cdn.StatusCompleted, nil).Once()

		actions := []InvalidationAction{{DistributionID: "E2ABCDEF", WaitForCompletion: true}}
		require.NoError(t, invalidate(ctx, client, actions, time.Minute, logger))
		client.AssertExpectations(t)
	})

	t.Run("WaitBudgetExhausted", func(t *testing.T) {
		fastPolling(t)

		client := new(mocks.Client)
		client.On("CreateInvalidation", mock.Anything, "E2ABCDEF", mock.Anything).
			Return("INV1", nil)
		client.On("GetInvalidation", mock.Anything, "E2ABCDEF", "INV1").
			Return("InProgress", nil)

		actions := []InvalidationAction{{DistributionID: "E2ABCDEF", WaitForCompletion: true}}
		err := invalidate(ctx, client, actions, 10*time.Millisecond, logger)
		assert.ErrorIs(t, err, ErrInvalidationTimeout)
	})

	t.Run("OneFailureDoesNotCancelOthers", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("CreateInvalidation", mock.Anything, "E2BROKEN", mock.Anything).
			Return("", assert.AnError)
		client.On("CreateInvalidation", mock.Anything, "E2HEALTHY", mock.Anything).
			Return("INV2", nil)

		actions := []InvalidationAction{
			{DistributionID: "E2BROKEN"},
			{DistributionID: "E2HEALTHY"},
		}
		err := invalidate(ctx, client, actions, time.Minute, logger)
		assert.ErrorIs(t, err, ErrInvalidation)

		// The healthy distribution was still invalidated.
		client.AssertCalled(t, "CreateInvalidation", mock.Anything, "E2HEALTHY", mock.Anything)
	})

	t.Run("UnsupportedKind", func(t *testing.T) {
		client := new(mocks.Client)
		actions := []InvalidationAction{{Kind: "purge-everything", DistributionID: "E2ABCDEF"}}
		err := invalidate(ctx, client, actions, time.Minute, logger)
		assert.ErrorIs(t, err, ErrInvalidation)
	})

	t.Run("FreshCallerReferencePerCall", func(t *testing.T) {
		var refs []string
		client := new(mocks.Client)
		client.On("CreateInvalidation", mock.Anything, "E2ABCDEF", mock.Anything).
			Run(func(args mock.Arguments) {
				refs = append(refs, args.String(2))
			}).
			Return("INV1", nil)

		actions := []InvalidationAction{{DistributionID: "E2ABCDEF"}}
		require.NoError(t, invalidate(ctx, client, actions, time.Minute, logger))
		require.NoError(t, invalidate(ctx, client, actions, time.Minute, logger))

		require.Len(t, refs, 2)
		assert.NotEqual(t, refs[0], refs[1])
	})
}

package cdn

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
)

// StatusCompleted is the provider status of a finished invalidation.
const StatusCompleted = "Completed"

// ErrInvalidationGone indicates the provider no longer knows the
// invalidation id. During polling this is usually a transient read-side
// condition, not a terminal failure.
var ErrInvalidationGone = errors.New("cdn: invalidation not found")

// Client defines the interface for CDN cache invalidation.
type Client interface {
	// CreateInvalidation submits a full wildcard invalidation against the
	// distribution and returns the provider-assigned invalidation id.
	// callerReference must be unique per call so immediate retries are not
	// rejected as duplicates.
	CreateInvalidation(ctx context.Context, distributionID, callerReference string) (string, error)
	// GetInvalidation returns the current status of an invalidation.
	// Returns ErrInvalidationGone if the provider has no record of it.
	GetInvalidation(ctx context.Context, distributionID, invalidationID string) (string, error)
}

// NewClient creates a new CloudFront-backed CDN client.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return &cloudfrontClient{api: cloudfront.NewFromConfig(awsCfg)}, nil
}

type cloudfrontClient struct {
	api *cloudfront.Client
}

func (c *cloudfrontClient) CreateInvalidation(ctx context.Context, distributionID, callerReference string) (string, error) {
	out, err := c.api.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(distributionID),
		InvalidationBatch: &types.InvalidationBatch{
			CallerReference: aws.String(callerReference),
			Paths: &types.Paths{
				Items:    []string{"/*"},
				Quantity: aws.Int32(1),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create invalidation for distribution %s: %w", distributionID, err)
	}

	return aws.ToString(out.Invalidation.Id), nil
}

func (c *cloudfrontClient) GetInvalidation(ctx context.Context, distributionID, invalidationID string) (string, error) {
	out, err := c.api.GetInvalidation(ctx, &cloudfront.GetInvalidationInput{
		DistributionId: aws.String(distributionID),
		Id:             aws.String(invalidationID),
	})
	if err != nil {
		var notFound *types.NoSuchInvalidation
		if errors.As(err, &notFound) {
			return "", ErrInvalidationGone
		}
		return "", fmt.Errorf("failed to get invalidation %s for distribution %s: %w", invalidationID, distributionID, err)
	}

	return aws.ToString(out.Invalidation.Status), nil
}

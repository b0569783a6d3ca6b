// Package cdn provides an abstraction layer for CDN cache invalidation.
//
// It wraps the CloudFront API behind a small Client interface so the
// deployment engine can fire invalidations and poll their status without
// binding to the AWS SDK directly, and so tests can substitute mocks
// (see core/cdn/mocks).
//
// # Operations
//
//   - CreateInvalidation: Submits a full wildcard ("/*") invalidation.
//     Partial path invalidation is intentionally not supported.
//   - GetInvalidation: Reads the invalidation status (InProgress/Completed).
//
// # Usage
//
//	client, err := cdn.NewClient(ctx, config)
//	id, err := client.CreateInvalidation(ctx, "E2ABCDEF", ref)
//	status, err := client.GetInvalidation(ctx, "E2ABCDEF", id)
package cdn

package deploy

import (
	"fmt"
	"net/url"
	"strings"
)

// RequestType is the lifecycle phase of a deployment request.
type RequestType string

const (
	// RequestCreate deploys the declared content for the first time.
	RequestCreate RequestType = "Create"
	// RequestUpdate re-deploys the declared content over existing state.
	RequestUpdate RequestType = "Update"
	// RequestDelete empties the target bucket.
	RequestDelete RequestType = "Delete"
)

// Request is one orchestrator invocation. It is constructed once per
// invocation and never mutated.
type Request struct {
	// RequestType is the lifecycle phase (Create, Update, Delete).
	RequestType RequestType `json:"requestType"`

	// RequestID is an opaque id scoping the staging area and idempotency.
	RequestID string `json:"requestId"`

	// ResponseURL is where the terminal status callback is PUT.
	ResponseURL string `json:"responseUrl"`

	// StackID identifies the orchestrator stack, echoed in the callback.
	StackID string `json:"stackId"`

	// LogicalResourceID identifies the resource within the stack.
	LogicalResourceID string `json:"logicalResourceId"`

	// ResourceType is the declared custom resource type.
	ResourceType string `json:"resourceType"`

	// PhysicalResourceID is set by the orchestrator on Update/Delete.
	PhysicalResourceID string `json:"physicalResourceId,omitempty"`

	// ResourceProperties carries the declared deployment props.
	ResourceProperties ResourceProperties `json:"resourceProperties"`
}

// ResourceProperties wraps the declared props as sent on the wire.
type ResourceProperties struct {
	Props Props `json:"props"`
}

// Props is the declared desired state for the target bucket.
type Props struct {
	// BucketURL locates the target bucket, e.g. "s3://site-assets".
	BucketURL string `json:"bucketUrl"`

	// Assets are zip archives to fetch, extract, and deploy.
	Assets []Asset `json:"assets"`

	// Objects are inline objects written verbatim.
	Objects []InlineObject `json:"objects"`

	// InvalidationActions are cache invalidations fired after mirroring.
	InvalidationActions []InvalidationAction `json:"invalidationActions"`
}

// Asset is one archive source. Hash names the per-asset staging
// subdirectory and is declared unique by the orchestrator.
type Asset struct {
	Hash         string `json:"hash"`
	SourceBucket string `json:"s3BucketName"`
	SourceKey    string `json:"s3ObjectKey"`
}

// InlineObject is one object declared directly in the request.
type InlineObject struct {
	// Key is the object's relative path in the bucket.
	Key string `json:"key"`
	// Body is the raw object content.
	Body string `json:"body"`
}

// ActionKind discriminates invalidation action variants.
type ActionKind string

// ActionInvalidateDistribution invalidates an entire CDN distribution.
// It is the only kind today; an empty kind on the wire means this one.
const ActionInvalidateDistribution ActionKind = "invalidate-distribution"

// InvalidationAction is one downstream cache to invalidate after the
// bucket has been mirrored.
type InvalidationAction struct {
	Kind              ActionKind `json:"kind,omitempty"`
	DistributionID    string     `json:"distributionId"`
	WaitForCompletion bool       `json:"waitForCompletion"`
}

// kind normalizes the wire value: absent means distribution invalidation.
func (a InvalidationAction) kind() ActionKind {
	if a.Kind == "" {
		return ActionInvalidateDistribution
	}
	return a.Kind
}

// BucketLocator is a parsed target bucket reference.
type BucketLocator struct {
	// Bucket is the bucket name.
	Bucket string
	// Prefix is the key prefix; empty, or ending with "/".
	Prefix string
}

// Key returns the full object key for a relative path under the locator.
func (l BucketLocator) Key(relPath string) string {
	return l.Prefix + relPath
}

// ParseBucketURL parses a target bucket reference of the form
// "s3://bucket", "s3://bucket/prefix", or a bare bucket name.
func ParseBucketURL(raw string) (BucketLocator, error) {
	if raw == "" {
		return BucketLocator{}, fmt.Errorf("bucket url is empty")
	}

	if !strings.Contains(raw, "://") {
		return BucketLocator{Bucket: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return BucketLocator{}, fmt.Errorf("invalid bucket url %q: %w", raw, err)
	}
	if u.Scheme != "s3" {
		return BucketLocator{}, fmt.Errorf("unsupported bucket url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return BucketLocator{}, fmt.Errorf("bucket url %q has no bucket name", raw)
	}

	prefix := strings.Trim(u.Path, "/")
	if prefix != "" {
		prefix += "/"
	}

	return BucketLocator{Bucket: u.Host, Prefix: prefix}, nil
}

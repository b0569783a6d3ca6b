package deploy

import "errors"

// Sentinel errors for the deployment pipeline, checked with errors.Is.
// Each stage tags its failures so the lifecycle controller can report a
// precise reason without inspecting stage internals.
var (
	// ErrFetch indicates a declared archive was unreachable or missing.
	ErrFetch = errors.New("deploy: archive fetch failed")

	// ErrDecode indicates an archive was corrupt or contained unsafe paths.
	ErrDecode = errors.New("deploy: archive decode failed")

	// ErrAssembly indicates a local filesystem failure while merging sources.
	ErrAssembly = errors.New("deploy: assembly failed")

	// ErrDuplicateKey indicates two or more sources declared the same path.
	ErrDuplicateKey = errors.New("deploy: duplicate object key")

	// ErrMirror indicates the bucket synchronization failed.
	ErrMirror = errors.New("deploy: bucket mirror failed")

	// ErrInvalidation indicates a cache invalidation request or poll failed.
	ErrInvalidation = errors.New("deploy: invalidation failed")

	// ErrInvalidationTimeout indicates an invalidation did not complete
	// within the configured wait budget.
	ErrInvalidationTimeout = errors.New("deploy: invalidation wait timed out")

	// ErrReport indicates the terminal callback could not be delivered.
	ErrReport = errors.New("deploy: callback delivery failed")
)

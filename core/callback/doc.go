// Package callback reports terminal deployment status to the orchestrator.
//
// The orchestrator learns the outcome of an invocation exclusively through
// one HTTP PUT to the request's response URL. The body carries the status
// (SUCCESS or FAILED), an optional human-readable reason, and the resource
// identifiers echoed from the request.
//
// A PUT answered with any HTTP status >= 400 counts as a delivery failure;
// the caller decides whether that failure is fatal (it is for success
// reports, and swallowed for failure reports so the original error wins).
//
// # Usage
//
//	reporter := callback.NewReporter(config)
//	err := reporter.Report(ctx, req.ResponseURL, &callback.Response{
//	    Status:             callback.StatusSuccess,
//	    PhysicalResourceID: physicalID,
//	    RequestID:          req.RequestID,
//	})
package callback

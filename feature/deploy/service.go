package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bucket-deployer/core/callback"
	"bucket-deployer/core/cdn"
	"bucket-deployer/core/logger"
	"bucket-deployer/core/storage"

	"go.uber.org/zap"
)

// Service is the deployment lifecycle controller. It owns the ordering of
// the pipeline stages and guarantees exactly one terminal callback per
// invocation.
type Service struct {
	storage  storage.Client
	cdn      cdn.Client
	reporter callback.Reporter
	cfg      Config
	logger   *zap.Logger
}

// NewService creates the deployment service with its collaborators.
func NewService(storageClient storage.Client, cdnClient cdn.Client, reporter callback.Reporter, cfg Config, l *zap.Logger) *Service {
	return &Service{
		storage:  storageClient,
		cdn:      cdnClient,
		reporter: reporter,
		cfg:      cfg,
		logger:   l,
	}
}

// Handle executes one deployment request end to end and reports the
// terminal status to the orchestrator. The returned error reflects the
// invocation's overall outcome: a reconciliation failure is returned even
// when its failure report was delivered, and a reconciliation success is
// still an overall failure if the success report could not be delivered.
func (s *Service) Handle(ctx context.Context, req *Request) error {
	l := logger.WithRequest(s.logger, req.RequestID, string(req.RequestType))
	start := time.Now()

	runErr := s.run(ctx, req, l)

	resp := &callback.Response{
		Status:             callback.StatusSuccess,
		PhysicalResourceID: physicalResourceID(req),
		StackID:            req.StackID,
		RequestID:          req.RequestID,
		ResourceType:       req.ResourceType,
		LogicalResourceID:  req.LogicalResourceID,
	}
	if runErr != nil {
		resp.Status = callback.StatusFailed
		resp.Reason = runErr.Error()
		l.Error("Deployment failed", zap.Error(runErr), zap.Duration("duration", time.Since(start)))
	} else {
		l.Info("Deployment succeeded", zap.Duration("duration", time.Since(start)))
	}

	if err := s.reporter.Report(ctx, req.ResponseURL, resp); err != nil {
		if runErr != nil {
			// The original error is what the orchestrator's retry machinery
			// must see; a failed failure-report only gets logged.
			l.Error("Failed to deliver failure report", zap.Error(err))
			return runErr
		}
		return fmt.Errorf("%w: %v", ErrReport, err)
	}

	return runErr
}

// run performs the reconciliation itself, without reporting.
func (s *Service) run(ctx context.Context, req *Request, l *zap.Logger) error {
	if s.cfg.Skip {
		l.Warn("Deployment skipped via escape hatch, reporting success without reconciling")
		return nil
	}

	loc, err := ParseBucketURL(req.ResourceProperties.Props.BucketURL)
	if err != nil {
		return err
	}

	staging := filepath.Join(s.cfg.StagingRoot, req.RequestID)
	finalDir := filepath.Join(staging, "final")

	// A previous failed attempt with the same request id may have left a
	// stale staging area behind; every invocation starts from scratch.
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("%w: resetting staging area: %v", ErrAssembly, err)
	}
	if err := os.MkdirAll(finalDir, 0o755); err != nil {
		return fmt.Errorf("%w: creating staging area: %v", ErrAssembly, err)
	}

	props := req.ResourceProperties.Props

	// Delete requests mirror an empty final tree, emptying the bucket.
	if req.RequestType != RequestDelete {
		stepStart := time.Now()
		l.Info("Assembling final tree",
			zap.Int("assets", len(props.Assets)),
			zap.Int("objects", len(props.Objects)))
		contribs, err := assemble(ctx, s.storage, props, staging, finalDir)
		if err != nil {
			return err
		}
		if err := findDuplicates(contribs); err != nil {
			return err
		}
		l.Info("Assembly completed", zap.Duration("duration", time.Since(stepStart)))
	}

	stepStart := time.Now()
	l.Info("Mirroring bucket", zap.String("bucket", loc.Bucket), zap.String("prefix", loc.Prefix))
	stats, err := mirror(ctx, s.storage, finalDir, loc)
	if err != nil {
		return err
	}
	l.Info("Mirror completed",
		zap.Duration("duration", time.Since(stepStart)),
		zap.Int("uploaded", stats.Uploaded),
		zap.Int("skipped", stats.Skipped),
		zap.Int("deleted", stats.Deleted))

	if len(props.InvalidationActions) > 0 {
		stepStart = time.Now()
		l.Info("Dispatching invalidations", zap.Int("actions", len(props.InvalidationActions)))
		if err := invalidate(ctx, s.cdn, props.InvalidationActions, s.cfg.InvalidationWaitTimeout(), l); err != nil {
			return err
		}
		l.Info("Invalidations completed", zap.Duration("duration", time.Since(stepStart)))
	}

	// Best-effort cleanup; a leftover staging area is not an error.
	if err := os.RemoveAll(staging); err != nil {
		l.Warn("Failed to clean up staging area", zap.String("path", staging), zap.Error(err))
	}

	return nil
}

// physicalResourceID keeps the resource's identity stable across retries:
// the orchestrator's id wins when it sent one (Update/Delete), otherwise
// the id is derived from the request id.
func physicalResourceID(req *Request) string {
	if req.PhysicalResourceID != "" {
		return req.PhysicalResourceID
	}
	return "deployment-" + req.RequestID
}

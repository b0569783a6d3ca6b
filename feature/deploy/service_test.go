package deploy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"bucket-deployer/core/callback"
	cdnmocks "bucket-deployer/core/cdn/mocks"
	storagemocks "bucket-deployer/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type reporterMock struct {
	mock.Mock
}

func (m *reporterMock) Report(ctx context.Context, url string, resp *callback.Response) error {
	args := m.Called(ctx, url, resp)
	return args.Error(0)
}

func newTestService(t *testing.T, storageClient *storagemocks.Client, cdnClient *cdnmocks.Client, reporter *reporterMock, cfg Config) *Service {
	t.Helper()
	if cfg.StagingRoot == "" {
		cfg.StagingRoot = t.TempDir()
	}
	return NewService(storageClient, cdnClient, reporter, cfg, zap.NewNop())
}

func baseRequest(reqType RequestType, props Props) *Request {
	return &Request{
		RequestType:       reqType,
		RequestID:         "req-1",
		ResponseURL:       "https://callback.example/req-1",
		StackID:           "stack-1",
		LogicalResourceID: "SiteDeployment",
		ResourceType:      "Custom::BucketDeployment",
		ResourceProperties: ResourceProperties{
			Props: props,
		},
	}
}

func TestServiceHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("CreateSuccess", func(t *testing.T) {
		storageClient := new(storagemocks.Client)
		storageClient.On("ListObjects", mock.Anything, "site-assets", mock.Anything).
			Return(objectChannel())
		storageClient.On("PutObject", mock.Anything, "site-assets", "index.html", mock.Anything, mock.Anything, mock.Anything).
			Return(minio.UploadInfo{}, nil)

		var reported *callback.Response
		reporter := new(reporterMock)
		reporter.On("Report", mock.Anything, "https://callback.example/req-1", mock.Anything).
			Run(func(args mock.Arguments) {
				reported = args.Get(2).(*callback.Response)
			}).
			Return(nil)

		stagingRoot := t.TempDir()
		svc := newTestService(t, storageClient, new(cdnmocks.Client), reporter, Config{StagingRoot: stagingRoot})

		req := baseRequest(RequestCreate, Props{
			BucketURL: "s3://site-assets",
			Objects:   []InlineObject{{Key: "index.html", Body: "<h1>hi</h1>"}},
		})

		require.NoError(t, svc.Handle(ctx, req))

		require.NotNil(t, reported)
		assert.Equal(t, callback.StatusSuccess, reported.Status)
		assert.Empty(t, reported.Reason)
		assert.Equal(t, "deployment-req-1", reported.PhysicalResourceID)
		assert.Equal(t, "stack-1", reported.StackID)
		assert.Equal(t, "SiteDeployment", reported.LogicalResourceID)

		// Staging area is cleaned up after success.
		_, statErr := os.Stat(filepath.Join(stagingRoot, "req-1"))
		assert.True(t, os.IsNotExist(statErr))

		storageClient.AssertExpectations(t)
		reporter.AssertExpectations(t)
	})

	t.Run("DuplicateKeyLeavesBucketUntouched", func(t *testing.T) {
		data := buildZip(t, map[string]string{"a.txt": "from archive"})

		storageClient := new(storagemocks.Client)
		storageClient.On("GetObject", mock.Anything, "staging", "assets/abc123.zip", mock.Anything).
			Return(archiveObject(data), nil)

		var reported *callback.Response
		reporter := new(reporterMock)
		reporter.On("Report", mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				reported = args.Get(2).(*callback.Response)
			}).
			Return(nil)

		svc := newTestService(t, storageClient, new(cdnmocks.Client), reporter, Config{})

		req := baseRequest(RequestUpdate, Props{
			BucketURL: "s3://site-assets",
			Assets:    []Asset{{Hash: "abc123", SourceBucket: "staging", SourceKey: "assets/abc123.zip"}},
			Objects:   []InlineObject{{Key: "a.txt", Body: "1"}},
		})

		err := svc.Handle(ctx, req)
		assert.ErrorIs(t, err, ErrDuplicateKey)

		require.NotNil(t, reported)
		assert.Equal(t, callback.StatusFailed, reported.Status)
		assert.Contains(t, reported.Reason, "a.txt")

		// No bucket mutation before validation passes.
		storageClient.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		storageClient.AssertNotCalled(t, "ListObjects", mock.Anything, mock.Anything, mock.Anything)
		storageClient.AssertNotCalled(t, "RemoveObjects", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("DeleteEmptiesBucket", func(t *testing.T) {
		storageClient := new(storagemocks.Client)
		storageClient.On("ListObjects", mock.Anything, "site-assets", mock.Anything).
			Return(objectChannel(
				minio.ObjectInfo{Key: "index.html"},
				minio.ObjectInfo{Key: "css/site.css"},
			))

		var deleted []string
		storageClient.On("RemoveObjects", mock.Anything, "site-assets", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				for obj := range args.Get(2).(<-chan minio.ObjectInfo) {
					deleted = append(deleted, obj.Key)
				}
			}).
			Return(removeErrChannel())

		reporter := new(reporterMock)
		reporter.On("Report", mock.Anything, mock.Anything, mock.MatchedBy(func(resp *callback.Response) bool {
			return resp.Status == callback.StatusSuccess
		})).Return(nil)

		svc := newTestService(t, storageClient, new(cdnmocks.Client), reporter, Config{})

		// Declared sources are irrelevant on delete; the bucket is emptied.
		req := baseRequest(RequestDelete, Props{
			BucketURL: "s3://site-assets",
			Objects:   []InlineObject{{Key: "index.html", Body: "<h1>hi</h1>"}},
		})
		req.PhysicalResourceID = "deployment-req-1"

		require.NoError(t, svc.Handle(ctx, req))
		assert.ElementsMatch(t, []string{"index.html", "css/site.css"}, deleted)

		storageClient.AssertNotCalled(t, "GetObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		storageClient.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("InvalidationsRunAfterMirror", func(t *testing.T) {
		storageClient := new(storagemocks.Client)
		storageClient.On("ListObjects", mock.Anything, "site-assets", mock.Anything).
			Return(objectChannel())
		storageClient.On("PutObject", mock.Anything, "site-assets", "index.html", mock.Anything, mock.Anything, mock.Anything).
			Return(minio.UploadInfo{}, nil)

		cdnClient := new(cdnmocks.Client)
		cdnClient.On("CreateInvalidation", mock.Anything, "E2ABCDEF", mock.Anything).
			Return("INV1", nil)

		reporter := new(reporterMock)
		reporter.On("Report", mock.Anything, mock.Anything, mock.MatchedBy(func(resp *callback.Response) bool {
			return resp.Status == callback.StatusSuccess
		})).Return(nil)

		svc := newTestService(t, storageClient, cdnClient, reporter, Config{})

		req := baseRequest(RequestUpdate, Props{
			BucketURL:           "s3://site-assets",
			Objects:             []InlineObject{{Key: "index.html", Body: "<h1>hi</h1>"}},
			InvalidationActions: []InvalidationAction{{DistributionID: "E2ABCDEF"}},
		})

		require.NoError(t, svc.Handle(ctx, req))
		cdnClient.AssertExpectations(t)
	})

	t.Run("SkipFlagReportsSuccessWithoutReconciling", func(t *testing.T) {
		storageClient := new(storagemocks.Client)
		cdnClient := new(cdnmocks.Client)

		reporter := new(reporterMock)
		reporter.On("Report", mock.Anything, mock.Anything, mock.MatchedBy(func(resp *callback.Response) bool {
			return resp.Status == callback.StatusSuccess
		})).Return(nil)

		svc := newTestService(t, storageClient, cdnClient, reporter, Config{Skip: true})

		req := baseRequest(RequestUpdate, Props{
			BucketURL: "s3://site-assets",
			Objects:   []InlineObject{{Key: "index.html", Body: "<h1>hi</h1>"}},
		})

		require.NoError(t, svc.Handle(ctx, req))
		storageClient.AssertNotCalled(t, "ListObjects", mock.Anything, mock.Anything, mock.Anything)
		reporter.AssertExpectations(t)
	})

	t.Run("SuccessReportFailureFailsInvocation", func(t *testing.T) {
		storageClient := new(storagemocks.Client)
		storageClient.On("ListObjects", mock.Anything, "site-assets", mock.Anything).
			Return(objectChannel())

		reporter := new(reporterMock)
		reporter.On("Report", mock.Anything, mock.Anything, mock.Anything).
			Return(assert.AnError)

		svc := newTestService(t, storageClient, new(cdnmocks.Client), reporter, Config{})

		req := baseRequest(RequestDelete, Props{BucketURL: "s3://site-assets"})

		err := svc.Handle(ctx, req)
		assert.ErrorIs(t, err, ErrReport)
	})

	t.Run("FailedReportFailureKeepsOriginalError", func(t *testing.T) {
		reporter := new(reporterMock)
		reporter.On("Report", mock.Anything, mock.Anything, mock.Anything).
			Return(assert.AnError)

		svc := newTestService(t, new(storagemocks.Client), new(cdnmocks.Client), reporter, Config{})

		req := baseRequest(RequestUpdate, Props{
			BucketURL: "s3://site-assets",
			Objects: []InlineObject{
				{Key: "a.txt", Body: "1"},
				{Key: "a.txt", Body: "2"},
			},
		})

		err := svc.Handle(ctx, req)
		assert.ErrorIs(t, err, ErrDuplicateKey)
		assert.NotErrorIs(t, err, ErrReport)
	})

	t.Run("StaleStagingAreaIsReset", func(t *testing.T) {
		stagingRoot := t.TempDir()

		// Leftovers from a previous failed attempt with the same id.
		stale := filepath.Join(stagingRoot, "req-1", "final", "leftover.txt")
		require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
		require.NoError(t, os.WriteFile(stale, []byte("stale"), 0o644))

		storageClient := new(storagemocks.Client)
		storageClient.On("ListObjects", mock.Anything, "site-assets", mock.Anything).
			Return(objectChannel())
		storageClient.On("PutObject", mock.Anything, "site-assets", "index.html", mock.Anything, mock.Anything, mock.Anything).
			Return(minio.UploadInfo{}, nil)

		reporter := new(reporterMock)
		reporter.On("Report", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		svc := newTestService(t, storageClient, new(cdnmocks.Client), reporter, Config{StagingRoot: stagingRoot})

		req := baseRequest(RequestCreate, Props{
			BucketURL: "s3://site-assets",
			Objects:   []InlineObject{{Key: "index.html", Body: "<h1>hi</h1>"}},
		})

		require.NoError(t, svc.Handle(ctx, req))
		// leftover.txt was never uploaded: only index.html was expected,
		// and AssertExpectations would fail on any extra PutObject call.
		storageClient.AssertExpectations(t)
	})

	t.Run("InvalidBucketURLFailsBeforeMutation", func(t *testing.T) {
		storageClient := new(storagemocks.Client)

		var reported *callback.Response
		reporter := new(reporterMock)
		reporter.On("Report", mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				reported = args.Get(2).(*callback.Response)
			}).
			Return(nil)

		svc := newTestService(t, storageClient, new(cdnmocks.Client), reporter, Config{})

		req := baseRequest(RequestCreate, Props{BucketURL: ""})

		err := svc.Handle(ctx, req)
		assert.Error(t, err)
		require.NotNil(t, reported)
		assert.Equal(t, callback.StatusFailed, reported.Status)
		storageClient.AssertNotCalled(t, "ListObjects", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPhysicalResourceID(t *testing.T) {
	req := baseRequest(RequestCreate, Props{})
	assert.Equal(t, "deployment-req-1", physicalResourceID(req))

	req.PhysicalResourceID = "deployment-original"
	assert.Equal(t, "deployment-original", physicalResourceID(req))
}

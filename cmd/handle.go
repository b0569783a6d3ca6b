package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"bucket-deployer/core/callback"
	"bucket-deployer/core/cdn"
	"bucket-deployer/core/config"
	"bucket-deployer/core/logger"
	"bucket-deployer/core/storage"
	"bucket-deployer/feature/deploy"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var requestPath string

// handleCmd runs one deployment request to completion.
var handleCmd = &cobra.Command{
	Use:   "handle",
	Short: "Handle one deployment request",
	Long: `Handle a single orchestrator request (Create, Update, or Delete):
stage declared archives, assemble the final tree, validate for duplicate
keys, mirror the tree to the target bucket, fire cache invalidations, and
report the terminal status to the request's response URL.

Examples:
  # Read the request from a file
  bucket-deployer handle --request event.json

  # Read the request from stdin (orchestrator pipe)
  cat event.json | bucket-deployer handle --request -`,
	RunE: runHandle,
}

func init() {
	handleCmd.Flags().StringVar(&requestPath, "request", "-", "Path to the request JSON ('-' for stdin)")
	RootCmd.AddCommand(handleCmd)
}

func runHandle(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	req, err := readRequest(requestPath)
	if err != nil {
		return err
	}

	l.Info("Handling deployment request",
		zap.String("request_id", req.RequestID),
		zap.String("request_type", string(req.RequestType)))

	// Connect to storage
	storageClient, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to connect to storage: %w", err)
	}

	// Connect to the CDN provider
	cdnClient, err := cdn.NewClient(ctx, cfg.CDN)
	if err != nil {
		return fmt.Errorf("failed to create cdn client: %w", err)
	}

	reporter := callback.NewReporter(cfg.Callback)

	svc := deploy.NewService(storageClient, cdnClient, reporter, cfg.Deploy, l)
	return svc.Handle(ctx, req)
}

// readRequest decodes the orchestrator request from a file or stdin.
func readRequest(path string) (*deploy.Request, error) {
	var data []byte
	var err error

	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read request: %w", err)
	}

	var req deploy.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	if req.RequestID == "" {
		return nil, fmt.Errorf("request is missing requestId")
	}

	return &req, nil
}

package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Status is the terminal result reported to the orchestrator.
type Status string

const (
	// StatusSuccess indicates the deployment completed fully.
	StatusSuccess Status = "SUCCESS"
	// StatusFailed indicates the deployment aborted with an error.
	StatusFailed Status = "FAILED"
)

// Response is the callback body expected by the orchestrator.
// Field names follow the orchestrator's wire protocol.
type Response struct {
	Status             Status `json:"Status"`
	Reason             string `json:"Reason,omitempty"`
	PhysicalResourceID string `json:"PhysicalResourceId"`
	StackID            string `json:"StackId"`
	RequestID          string `json:"RequestId"`
	ResourceType       string `json:"ResourceType"`
	LogicalResourceID  string `json:"LogicalResourceId"`
}

// Config holds configuration for callback delivery.
type Config struct {
	// TimeoutSeconds is the total timeout for one callback PUT.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

// Reporter delivers a terminal status to the orchestrator.
type Reporter interface {
	// Report sends the response to the given URL via HTTP PUT.
	// Any HTTP status >= 400 is a delivery failure.
	Report(ctx context.Context, url string, resp *Response) error
}

// NewReporter creates an HTTP reporter based on the configuration.
func NewReporter(cfg Config) Reporter {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	timeoutDuration := time.Duration(timeout) * time.Second

	// Same strict-timeout transport shape as the storage client
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeoutDuration,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   timeoutDuration,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeoutDuration,
	}

	return &httpReporter{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeoutDuration,
		},
	}
}

type httpReporter struct {
	client *http.Client
}

func (r *httpReporter) Report(ctx context.Context, url string, resp *Response) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode callback body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build callback request: %w", err)
	}
	req.ContentLength = int64(len(body))

	res, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver callback: %w", err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode >= 400 {
		return fmt.Errorf("callback rejected with status %d", res.StatusCode)
	}

	return nil
}

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Client is a mock implementation of cdn.Client
type Client struct {
	mock.Mock
}

func (m *Client) CreateInvalidation(ctx context.Context, distributionID, callerReference string) (string, error) {
	args := m.Called(ctx, distributionID, callerReference)
	return args.String(0), args.Error(1)
}

func (m *Client) GetInvalidation(ctx context.Context, distributionID, invalidationID string) (string, error) {
	args := m.Called(ctx, distributionID, invalidationID)
	return args.String(0), args.Error(1)
}

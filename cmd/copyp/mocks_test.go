package main

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/maynagashev/copypasta/internal/client/api"
	"github.com/maynagashev/copypasta/models"
)

type MockClient struct {
	mock.Mock
}

var _ api.Client = (*MockClient)(nil)

func (m *MockClient) Register(ctx context.Context, username, password string) error {
	return m.Called(ctx, username, password).Error(0)
}

func (m *MockClient) Login(ctx context.Context, username, password string) (string, error) {
	args := m.Called(ctx, username, password)
	return args.String(0), args.Error(1)
}

func (m *MockClient) Paste(ctx context.Context, req models.PasteRequest) (int64, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(int64), args.Error(1) //nolint:errcheck // Ошибки кастования в моках приемлемы
}

func (m *MockClient) Current(ctx context.Context) (*models.Entry, int64, error) {
	args := m.Called(ctx)
	entry, _ := args.Get(0).(*models.Entry)
	return entry, args.Get(1).(int64), args.Error(2) //nolint:errcheck // Ошибки кастования в моках приемлемы
}

func (m *MockClient) History(ctx context.Context, limit int) ([]models.Entry, error) {
	args := m.Called(ctx, limit)
	entries, _ := args.Get(0).([]models.Entry)
	return entries, args.Error(1)
}

func (m *MockClient) Poll(
	ctx context.Context,
	since int64,
	timeoutSeconds int,
	clientID string,
) (*models.PollResponse, error) {
	args := m.Called(ctx, since, timeoutSeconds, clientID)
	resp, _ := args.Get(0).(*models.PollResponse)
	return resp, args.Error(1)
}

func (m *MockClient) Watch(
	ctx context.Context,
	since int64,
	clientID string,
	handle func(models.PollResponse) error,
) error {
	return m.Called(ctx, since, clientID, handle).Error(0)
}

func (m *MockClient) SetAuthToken(token string) {
	m.Called(token)
}

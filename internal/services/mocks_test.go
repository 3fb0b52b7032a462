package services_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/maynagashev/copypasta/internal/clipboard"
	"github.com/maynagashev/copypasta/models"
)

// MockUserRepository - мок репозитория пользователей.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *models.User) (int64, error) {
	args := m.Called(ctx, user)
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.User), args.Error(1)
}

// MockStore - мок хранилища буфера обмена.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Commit(ctx context.Context, userID int64, req clipboard.CommitRequest) (int64, error) {
	args := m.Called(ctx, userID, req)
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) CurrentEntry(ctx context.Context, userID int64) (*models.Entry, error) {
	args := m.Called(ctx, userID)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.Entry), args.Error(1)
}

func (m *MockStore) History(ctx context.Context, userID int64, limit int) ([]models.Entry, error) {
	args := m.Called(ctx, userID, limit)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]models.Entry), args.Error(1)
}

func (m *MockStore) CurrentVersion(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return args.Get(0).(int64), args.Error(1)
}

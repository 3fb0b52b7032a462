package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/copypasta/internal/clipboard"
	"github.com/maynagashev/copypasta/internal/services"
	"github.com/maynagashev/copypasta/models"
)

func strPtr(s string) *string { return &s }

func TestClipboardService_Paste(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		req       models.PasteRequest
		mockSetup func(store *MockStore)
		want      int64
		wantErr   error
	}{
		{
			name: "Текст",
			req:  models.PasteRequest{ContentType: models.ContentTypeText, Content: "hi", ClientID: strPtr("cli")},
			mockSetup: func(store *MockStore) {
				store.On("Commit", ctx, int64(1), clipboard.CommitRequest{
					ContentType: models.ContentTypeText,
					Content:     "hi",
					ClientID:    strPtr("cli"),
				}).Return(int64(4), nil).Once()
			},
			want: 4,
		},
		{
			name: "Имя файла отбрасывается для не-файлов",
			req:  models.PasteRequest{ContentType: models.ContentTypeImage, Content: "data:image/png;base64,AA", Filename: strPtr("a.png")},
			mockSetup: func(store *MockStore) {
				store.On("Commit", ctx, int64(1), mock.MatchedBy(func(r clipboard.CommitRequest) bool {
					return r.Filename == nil && r.ClientID == nil
				})).Return(int64(1), nil).Once()
			},
			want: 1,
		},
		{
			name: "Имя файла сохраняется для файлов",
			req:  models.PasteRequest{ContentType: models.ContentTypeFile, Content: "AAAA", Filename: strPtr("a.bin"), ClientID: strPtr("")},
			mockSetup: func(store *MockStore) {
				store.On("Commit", ctx, int64(1), mock.MatchedBy(func(r clipboard.CommitRequest) bool {
					return r.Filename != nil && *r.Filename == "a.bin" && r.ClientID == nil
				})).Return(int64(2), nil).Once()
			},
			want: 2,
		},
		{
			name:      "Пустое содержимое",
			req:       models.PasteRequest{ContentType: models.ContentTypeText},
			mockSetup: func(_ *MockStore) {},
			wantErr:   clipboard.ErrInvalidInput,
		},
		{
			name:      "Неизвестный тип",
			req:       models.PasteRequest{ContentType: "video", Content: "x"},
			mockSetup: func(_ *MockStore) {},
			wantErr:   services.ErrInvalidInput,
		},
		{
			name:      "Слишком большое содержимое",
			req:       models.PasteRequest{ContentType: models.ContentTypeText, Content: strings.Repeat("x", 11)},
			mockSetup: func(_ *MockStore) {},
			wantErr:   services.ErrContentTooLarge,
		},
		{
			name: "Хранилище недоступно",
			req:  models.PasteRequest{ContentType: models.ContentTypeText, Content: "hi"},
			mockSetup: func(store *MockStore) {
				store.On("Commit", ctx, int64(1), mock.Anything).
					Return(int64(0), clipboard.ErrStorageUnavailable).Once()
			},
			wantErr: clipboard.ErrStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockStore)
			tt.mockSetup(store)
			svc := services.NewClipboardService(store, nil, 10)

			version, err := svc.Paste(ctx, 1, tt.req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, version)
			}
			store.AssertExpectations(t)
		})
	}
}

func TestClampHistoryLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "По умолчанию", limit: 0, want: 10},
		{name: "Отрицательный", limit: -3, want: 1},
		{name: "В диапазоне", limit: 5, want: 5},
		{name: "Больше максимума", limit: 500, want: 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, services.ClampHistoryLimit(tt.limit))
		})
	}
}

func TestClipboardService_History(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	store.On("History", ctx, int64(1), 50).Return([]models.Entry{{Content: "old"}}, nil).Once()

	entries, err := services.NewClipboardService(store, nil, 0).History(ctx, 1, 1000)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	store.AssertExpectations(t)
}

func TestClipboardService_Current(t *testing.T) {
	ctx := context.Background()

	t.Run("Пустой буфер", func(t *testing.T) {
		store := new(MockStore)
		store.On("CurrentVersion", ctx, int64(1)).Return(int64(0), nil).Once()
		store.On("CurrentEntry", ctx, int64(1)).Return(nil, nil).Once()

		entry, version, err := services.NewClipboardService(store, nil, 0).Current(ctx, 1)
		require.NoError(t, err)
		assert.Nil(t, entry)
		assert.Zero(t, version)
	})

	t.Run("Запись новее прочитанной версии", func(t *testing.T) {
		store := new(MockStore)
		store.On("CurrentVersion", ctx, int64(1)).Return(int64(3), nil).Once()
		store.On("CurrentEntry", ctx, int64(1)).Return(&models.Entry{Content: "x", Version: 4}, nil).Once()

		entry, version, err := services.NewClipboardService(store, nil, 0).Current(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "x", entry.Content)
		assert.Equal(t, int64(4), version)
	})

	t.Run("Ошибка хранилища", func(t *testing.T) {
		store := new(MockStore)
		store.On("CurrentVersion", ctx, int64(1)).Return(int64(0), errors.New("down")).Once()

		_, _, err := services.NewClipboardService(store, nil, 0).Current(ctx, 1)
		require.Error(t, err)
	})
}

func TestClipboardService_Poll(t *testing.T) {
	ctx := context.Background()
	notifier := clipboard.NewNotifier()
	store := clipboard.NewMemoryStore(notifier)
	svc := services.NewClipboardService(store, clipboard.NewLongPoller(store, notifier, 0), 0)

	_, err := svc.Poll(ctx, 1, -1, 1, "")
	require.ErrorIs(t, err, services.ErrInvalidInput)

	_, err = svc.Paste(ctx, 1, models.PasteRequest{ContentType: models.ContentTypeText, Content: "hello"})
	require.NoError(t, err)

	res, err := svc.Poll(ctx, 1, 0, services.DefaultPollTimeout, "")
	require.NoError(t, err)
	assert.False(t, res.TimedOut)
	assert.Equal(t, "hello", res.Entry.Content)

	version, err := svc.Version(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/copypasta/internal/clipboard"
	"github.com/maynagashev/copypasta/internal/handlers"
	"github.com/maynagashev/copypasta/internal/middleware"
	"github.com/maynagashev/copypasta/internal/services"
	"github.com/maynagashev/copypasta/models"
)

type MockClipboardService struct {
	mock.Mock
}

func (m *MockClipboardService) Paste(ctx context.Context, userID int64, req models.PasteRequest) (int64, error) {
	args := m.Called(ctx, userID, req)
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockClipboardService) Current(ctx context.Context, userID int64) (*models.Entry, int64, error) {
	args := m.Called(ctx, userID)
	entry, _ := args.Get(0).(*models.Entry)
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return entry, args.Get(1).(int64), args.Error(2)
}

func (m *MockClipboardService) History(ctx context.Context, userID int64, limit int) ([]models.Entry, error) {
	args := m.Called(ctx, userID, limit)
	entries, _ := args.Get(0).([]models.Entry)
	return entries, args.Error(1)
}

func (m *MockClipboardService) Version(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockClipboardService) Poll(
	ctx context.Context,
	userID, since int64,
	timeoutSeconds int,
	clientID string,
) (*clipboard.WaitResult, error) {
	args := m.Called(ctx, userID, since, timeoutSeconds, clientID)
	res, _ := args.Get(0).(*clipboard.WaitResult)
	return res, args.Error(1)
}

const testUserID int64 = 5

// withUser имитирует Authenticator.
func withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), middleware.UserIDKey, testUserID)))
	})
}

func setupClipboardRouter(svc services.ClipboardService, maxContent int) *chi.Mux {
	h := handlers.NewClipboardHandler(svc, maxContent)
	r := chi.NewRouter()
	r.Use(withUser)
	r.Post("/api/paste", h.Paste)
	r.Get("/api/clipboard", h.Current)
	r.Get("/api/history", h.History)
	r.Get("/api/version", h.Version)
	r.Get("/api/poll", h.Poll)
	return r
}

func serve(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rr
}

func TestClipboardHandler_Paste(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockSetup      func(svc *MockClipboardService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "Успешная запись",
			body: `{"content_type":"text","content":"hi","client_id":"cli"}`,
			mockSetup: func(svc *MockClipboardService) {
				svc.On("Paste", mock.Anything, testUserID, mock.MatchedBy(func(r models.PasteRequest) bool {
					return r.Content == "hi" && r.ClientID != nil && *r.ClientID == "cli"
				})).Return(int64(3), nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"success","version":3}`,
		},
		{
			name:           "Невалидный JSON",
			body:           `{"content_type":`,
			mockSetup:      func(_ *MockClipboardService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Неверный формат запроса",
		},
		{
			name: "Некорректные данные",
			body: `{"content_type":"video","content":"x"}`,
			mockSetup: func(svc *MockClipboardService) {
				svc.On("Paste", mock.Anything, testUserID, mock.Anything).
					Return(int64(0), fmt.Errorf("%w: тип", services.ErrInvalidInput)).Once()
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Содержимое больше предела сервиса",
			body: `{"content_type":"text","content":"xxxx"}`,
			mockSetup: func(svc *MockClipboardService) {
				svc.On("Paste", mock.Anything, testUserID, mock.Anything).
					Return(int64(0), services.ErrContentTooLarge).Once()
			},
			expectedStatus: http.StatusRequestEntityTooLarge,
		},
		{
			name:           "Тело больше предела запроса",
			body:           `{"content_type":"text","content":"` + strings.Repeat("x", 70<<10) + `"}`,
			mockSetup:      func(_ *MockClipboardService) {},
			expectedStatus: http.StatusRequestEntityTooLarge,
		},
		{
			name: "Хранилище недоступно",
			body: `{"content_type":"text","content":"hi"}`,
			mockSetup: func(svc *MockClipboardService) {
				svc.On("Paste", mock.Anything, testUserID, mock.Anything).
					Return(int64(0), fmt.Errorf("%w: refused", clipboard.ErrStorageUnavailable)).Once()
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name: "Нарушение порядка версий",
			body: `{"content_type":"text","content":"hi"}`,
			mockSetup: func(svc *MockClipboardService) {
				svc.On("Paste", mock.Anything, testUserID, mock.Anything).
					Return(int64(0), clipboard.ErrConcurrencyViolation).Once()
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockClipboardService)
			tt.mockSetup(svc)

			rr := serve(setupClipboardRouter(svc, 16), http.MethodPost, "/api/paste", tt.body)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, rr.Body.String(), tt.expectedBody)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestClipboardHandler_Current(t *testing.T) {
	t.Run("Есть запись", func(t *testing.T) {
		svc := new(MockClipboardService)
		svc.On("Current", mock.Anything, testUserID).
			Return(&models.Entry{ContentType: models.ContentTypeText, Content: "hi", Version: 2}, int64(2), nil).Once()

		rr := serve(setupClipboardRouter(svc, 0), http.MethodGet, "/api/clipboard", "")
		require.Equal(t, http.StatusOK, rr.Code)

		var resp models.ClipboardResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, models.StatusSuccess, resp.Status)
		assert.Equal(t, int64(2), resp.Version)
		require.NotNil(t, resp.Entry)
		assert.Equal(t, "hi", resp.Entry.Content)
	})

	t.Run("Пустой буфер", func(t *testing.T) {
		svc := new(MockClipboardService)
		svc.On("Current", mock.Anything, testUserID).Return(nil, int64(0), nil).Once()

		rr := serve(setupClipboardRouter(svc, 0), http.MethodGet, "/api/clipboard", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"success","entry":null,"version":0}`, rr.Body.String())
	})
}

func TestClipboardHandler_History(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		mockLimit      int
		expectedStatus int
	}{
		{name: "Лимит по умолчанию", query: "", mockLimit: 0, expectedStatus: http.StatusOK},
		{name: "Явный лимит", query: "?limit=3", mockLimit: 3, expectedStatus: http.StatusOK},
		{name: "Нечисловой лимит", query: "?limit=abc", mockLimit: -1, expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockClipboardService)
			if tt.mockLimit >= 0 {
				svc.On("History", mock.Anything, testUserID, tt.mockLimit).
					Return([]models.Entry{{Content: "old", Version: 1}}, nil).Once()
			}

			rr := serve(setupClipboardRouter(svc, 0), http.MethodGet, "/api/history"+tt.query, "")
			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedStatus == http.StatusOK {
				var resp models.HistoryResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
				assert.Len(t, resp.Entries, 1)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestClipboardHandler_Version(t *testing.T) {
	svc := new(MockClipboardService)
	svc.On("Version", mock.Anything, testUserID).Return(int64(9), nil).Once()

	rr := serve(setupClipboardRouter(svc, 0), http.MethodGet, "/api/version", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"success","version":9}`, rr.Body.String())
}

func TestClipboardHandler_Poll(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		mockSetup      func(svc *MockClipboardService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:  "Изменение доставлено",
			query: "?version=1&timeout=10&client_id=cli",
			mockSetup: func(svc *MockClipboardService) {
				svc.On("Poll", mock.Anything, testUserID, int64(1), 10, "cli").Return(&clipboard.WaitResult{
					Entry:   &models.Entry{ContentType: models.ContentTypeText, Content: "new", Version: 2},
					Version: 2,
				}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"success"`,
		},
		{
			name:  "Таймаут",
			query: "?version=4",
			mockSetup: func(svc *MockClipboardService) {
				svc.On("Poll", mock.Anything, testUserID, int64(4), services.DefaultPollTimeout, "").
					Return(&clipboard.WaitResult{Version: 6, TimedOut: true}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"timeout","version":6,"timed_out":true}`,
		},
		{
			name:           "Нечисловая версия",
			query:          "?version=x",
			mockSetup:      func(_ *MockClipboardService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:  "Отрицательная версия",
			query: "?version=-1",
			mockSetup: func(svc *MockClipboardService) {
				svc.On("Poll", mock.Anything, testUserID, int64(-1), services.DefaultPollTimeout, "").
					Return(nil, fmt.Errorf("%w: версия", services.ErrInvalidInput)).Once()
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:  "Слишком много ожидающих",
			query: "",
			mockSetup: func(svc *MockClipboardService) {
				svc.On("Poll", mock.Anything, testUserID, int64(0), services.DefaultPollTimeout, "").
					Return(nil, clipboard.ErrTooManyWaiters).Once()
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:  "Хранилище недоступно не выдается за таймаут",
			query: "",
			mockSetup: func(svc *MockClipboardService) {
				svc.On("Poll", mock.Anything, testUserID, int64(0), services.DefaultPollTimeout, "").
					Return(nil, errors.Join(clipboard.ErrStorageUnavailable, errors.New("down"))).Once()
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockClipboardService)
			tt.mockSetup(svc)

			rr := serve(setupClipboardRouter(svc, 0), http.MethodGet, "/api/poll"+tt.query, "")

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, rr.Body.String(), tt.expectedBody)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestClipboardHandler_MissingUser(t *testing.T) {
	h := handlers.NewClipboardHandler(new(MockClipboardService), 0)
	rr := httptest.NewRecorder()
	h.Current(rr, httptest.NewRequest(http.MethodGet, "/api/clipboard", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

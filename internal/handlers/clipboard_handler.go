package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/maynagashev/copypasta/internal/clipboard"
	"github.com/maynagashev/copypasta/internal/middleware"
	"github.com/maynagashev/copypasta/internal/services"
	"github.com/maynagashev/copypasta/models"
)

// Запас на JSON-обвязку поверх самого содержимого.
const pasteEnvelopeBytes = 64 << 10

// ClipboardHandler обслуживает чтение, запись и long-poll буфера обмена.
type ClipboardHandler struct {
	service      services.ClipboardService
	maxBodyBytes int64
}

// NewClipboardHandler создает обработчик. maxContentBytes <= 0 означает предел по умолчанию.
func NewClipboardHandler(s services.ClipboardService, maxContentBytes int) *ClipboardHandler {
	if maxContentBytes <= 0 {
		maxContentBytes = services.DefaultMaxContentBytes
	}
	return &ClipboardHandler{service: s, maxBodyBytes: int64(maxContentBytes) + pasteEnvelopeBytes}
}

// Paste записывает новое содержимое.
func (h *ClipboardHandler) Paste(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	var req models.PasteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Содержимое слишком большое", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Неверный формат запроса", http.StatusBadRequest)
		return
	}

	version, err := h.service.Paste(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.PasteResponse{Status: models.StatusSuccess, Version: version})
}

// Current возвращает текущую запись и версию.
func (h *ClipboardHandler) Current(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	entry, version, err := h.service.Current(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ClipboardResponse{Status: models.StatusSuccess, Entry: entry, Version: version})
}

// History возвращает историю без текущей записи.
func (h *ClipboardHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	limit, ok := intParam(w, r, "limit", 0)
	if !ok {
		return
	}

	entries, err := h.service.History(r.Context(), userID, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.HistoryResponse{Status: models.StatusSuccess, Entries: entries})
}

// Version возвращает текущую версию.
func (h *ClipboardHandler) Version(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	version, err := h.service.Version(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.VersionResponse{Status: models.StatusSuccess, Version: version})
}

// Poll держит запрос до появления версии новее ?version= или до таймаута.
func (h *ClipboardHandler) Poll(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	since, ok := intParam(w, r, "version", 0)
	if !ok {
		return
	}
	timeout, ok := intParam(w, r, "timeout", services.DefaultPollTimeout)
	if !ok {
		return
	}

	res, err := h.service.Poll(r.Context(), userID, int64(since), timeout, r.URL.Query().Get("client_id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pollResponse(res))
}

func pollResponse(res *clipboard.WaitResult) models.PollResponse {
	resp := models.PollResponse{Status: models.StatusSuccess, Entry: res.Entry, Version: res.Version}
	if res.TimedOut {
		resp.Status = models.StatusTimeout
		resp.TimedOut = true
	}
	return resp
}

func userFromRequest(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[ClipboardHandler] Не удалось получить userID из контекста (%s)", r.URL.Path)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
	}
	return userID, ok
}

func intParam(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		http.Error(w, "Некорректный параметр "+name, http.StatusBadRequest)
		return 0, false
	}
	return v, true
}

// writeServiceError переводит ошибки сервиса в HTTP-статусы.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Клиент ушел, отвечать некому
		return
	case errors.Is(err, services.ErrContentTooLarge):
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
	case errors.Is(err, clipboard.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, clipboard.ErrTooManyWaiters):
		w.Header().Set("Retry-After", "1")
		http.Error(w, "Слишком много ожидающих запросов", http.StatusServiceUnavailable)
	case errors.Is(err, clipboard.ErrStorageUnavailable):
		http.Error(w, "Хранилище временно недоступно", http.StatusServiceUnavailable)
	default:
		log.Printf("[ClipboardHandler] Внутренняя ошибка (%s): %v", r.URL.Path, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
	}
}

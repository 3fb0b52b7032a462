package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/maynagashev/copypasta/internal/clipboard"
	"github.com/maynagashev/copypasta/internal/services"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsReadLimit  = 512
)

// StreamHandler отдает изменения буфера обмена через websocket:
// каждое доставленное изменение - одно сообщение PollResponse.
type StreamHandler struct {
	service  services.ClipboardService
	upgrader websocket.Upgrader
}

// NewStreamHandler создает websocket-обработчик.
func NewStreamHandler(s services.ClipboardService) *StreamHandler {
	return &StreamHandler{
		service: s,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Доступ проверяется токеном, а не cookie, поэтому источник не важен
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Serve принимает ?version= и ?client_id= как и long-poll.
func (h *StreamHandler) Serve(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	since, ok := intParam(w, r, "version", 0)
	if !ok {
		return
	}
	if since < 0 {
		http.Error(w, "Некорректный параметр version", http.StatusBadRequest)
		return
	}
	clientID := r.URL.Query().Get("client_id")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[StreamHandler] Ошибка установки websocket для пользователя %d: %v", userID, err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go readLoop(conn, cancel)
	go pingLoop(ctx, conn)

	log.Printf("[StreamHandler] Пользователь %d подписан на изменения с версии %d", userID, since)
	version := int64(since)
	for {
		res, err := h.service.Poll(ctx, userID, version, clipboard.MaxTimeoutSeconds, clientID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			code := websocket.CloseInternalServerErr
			if errors.Is(err, clipboard.ErrTooManyWaiters) || errors.Is(err, clipboard.ErrStorageUnavailable) {
				code = websocket.CloseTryAgainLater
			}
			log.Printf("[StreamHandler] Ошибка ожидания изменений пользователя %d: %v", userID, err)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(code, "ошибка ожидания изменений"), time.Now().Add(wsWriteWait))
			return
		}

		version = res.Version
		if res.TimedOut {
			continue
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err = conn.WriteJSON(pollResponse(res)); err != nil {
			log.Printf("[StreamHandler] Ошибка отправки пользователю %d: %v", userID, err)
			return
		}
	}
}

// readLoop обрабатывает pong и закрытие; входящие сообщения игнорируются.
func readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

package repository

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/lib/pq"

	"github.com/maynagashev/copypasta/internal/clipboard"
)

const (
	listenerMinReconnect = 10 * time.Second
	listenerMaxReconnect = time.Minute
	listenerPingInterval = 90 * time.Second
)

// ChangeListener пересылает уведомления о коммитах других процессов в локальный Notifier.
type ChangeListener struct {
	dsn      string
	notifier *clipboard.Notifier
}

// NewChangeListener создает слушателя канала ChangesChannel.
func NewChangeListener(dsn string, notifier *clipboard.Notifier) *ChangeListener {
	return &ChangeListener{dsn: dsn, notifier: notifier}
}

// Run слушает канал до отмены ctx.
func (l *ChangeListener) Run(ctx context.Context) error {
	listener := pq.NewListener(l.dsn, listenerMinReconnect, listenerMaxReconnect, l.logEvent)
	defer func() {
		if err := listener.Close(); err != nil {
			log.Printf("[Listener] Ошибка закрытия слушателя: %v", err)
		}
	}()

	if err := listener.Listen(ChangesChannel); err != nil {
		return fmt.Errorf("ошибка подписки на канал %s: %w", ChangesChannel, err)
	}
	log.Printf("[Listener] Подписка на канал %s", ChangesChannel)

	ping := time.NewTicker(listenerPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			l.Dispatch(n)
		case <-ping.C:
			go func() {
				if err := listener.Ping(); err != nil {
					log.Printf("[Listener] Ошибка проверки соединения: %v", err)
				}
			}()
		}
	}
}

// Dispatch будит ожидающих пользователя из уведомления.
// nil приходит после переподключения: уведомления могли потеряться, будим всех.
func (l *ChangeListener) Dispatch(n *pq.Notification) {
	if n == nil {
		l.notifier.SignalAll()
		return
	}
	userID, err := strconv.ParseInt(n.Extra, 10, 64)
	if err != nil {
		log.Printf("[Listener] Некорректное уведомление %q: %v", n.Extra, err)
		return
	}
	l.notifier.Signal(userID)
}

func (l *ChangeListener) logEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnected:
		log.Println("[Listener] Соединение установлено")
	case pq.ListenerEventDisconnected:
		log.Printf("[Listener] Соединение потеряно: %v", err)
	case pq.ListenerEventReconnected:
		log.Println("[Listener] Соединение восстановлено")
	case pq.ListenerEventConnectionAttemptFailed:
		log.Printf("[Listener] Не удалось подключиться: %v", err)
	}
}

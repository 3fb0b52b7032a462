package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/maynagashev/copypasta/internal/clipboard"
)

const (
	// DefaultSnapshotKey - ключ объекта со снимком.
	DefaultSnapshotKey      = "clipboard/snapshot.json"
	DefaultSnapshotInterval = 30 * time.Second

	finalSnapshotTimeout = 10 * time.Second
)

// Snapshotter периодически сохраняет состояние MemoryStore в объектное хранилище
// и восстанавливает его при старте.
type Snapshotter struct {
	store     *clipboard.MemoryStore
	files     FileStorage
	key       string
	interval  time.Duration
	lastSaved int64
}

// NewSnapshotter создает снапшоттер. Пустой key и interval <= 0 заменяются значениями по умолчанию.
func NewSnapshotter(store *clipboard.MemoryStore, files FileStorage, key string, interval time.Duration) *Snapshotter {
	if key == "" {
		key = DefaultSnapshotKey
	}
	if interval <= 0 {
		interval = DefaultSnapshotInterval
	}
	return &Snapshotter{store: store, files: files, key: key, interval: interval}
}

// Load восстанавливает хранилище из снимка. Отсутствие снимка - не ошибка.
func (s *Snapshotter) Load(ctx context.Context) error {
	reader, err := s.files.DownloadFile(ctx, s.key)
	if errors.Is(err, ErrObjectNotFound) {
		log.Printf("[Snapshot] Снимок '%s' не найден, начинаем с пустого буфера", s.key)
		s.lastSaved = s.store.Generation()
		return nil
	}
	if err != nil {
		return fmt.Errorf("ошибка чтения снимка: %w", err)
	}
	defer reader.Close()

	var snap clipboard.Snapshot
	if err = json.NewDecoder(reader).Decode(&snap); err != nil {
		return fmt.Errorf("ошибка разбора снимка: %w", err)
	}

	s.store.Restore(&snap)
	s.lastSaved = s.store.Generation()
	log.Printf("[Snapshot] Восстановлено пользователей: %d (снимок от %s)", len(snap.Users), snap.TakenAt.Format(time.RFC3339))
	return nil
}

// Save сохраняет снимок, если с прошлого сохранения что-то изменилось.
func (s *Snapshotter) Save(ctx context.Context) (bool, error) {
	if s.store.Generation() == s.lastSaved {
		return false, nil
	}

	snap := s.store.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		return false, fmt.Errorf("ошибка сериализации снимка: %w", err)
	}
	if err = s.files.UploadFile(ctx, s.key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return false, err
	}

	// Коммиты во время снятия снимка попадут в следующий
	s.lastSaved = snap.Generation
	return true, nil
}

// Run сохраняет снимки с интервалом до отмены ctx, затем делает последний снимок.
func (s *Snapshotter) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			finalCtx, cancel := context.WithTimeout(context.Background(), finalSnapshotTimeout)
			defer cancel()
			if _, err := s.Save(finalCtx); err != nil {
				return fmt.Errorf("ошибка финального снимка: %w", err)
			}
			log.Println("[Snapshot] Финальный снимок сохранен")
			return nil
		case <-ticker.C:
			if _, err := s.Save(ctx); err != nil {
				log.Printf("[Snapshot] Ошибка сохранения снимка: %v", err)
			}
		}
	}
}

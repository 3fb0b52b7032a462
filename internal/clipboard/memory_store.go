package clipboard

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/maynagashev/copypasta/models"
)

// userState - кольцо и счетчик версий одного пользователя под одним мьютексом.
type userState struct {
	mu      sync.RWMutex
	version int64
	ring    []models.Entry // от новых к старым, ring[0] - текущая запись
}

// MemoryStore хранит буфер обмена в памяти процесса.
// Коммиты разных пользователей друг друга не блокируют.
type MemoryStore struct {
	users      *xsync.Map[int64, *userState]
	notifier   *Notifier
	generation atomic.Int64
	now        func() time.Time
}

var _ Store = (*MemoryStore)(nil) // Проверка соответствия интерфейсу

// NewMemoryStore создает хранилище, которое после каждого коммита будит notifier.
func NewMemoryStore(notifier *Notifier) *MemoryStore {
	return &MemoryStore{
		users:    xsync.NewMap[int64, *userState](),
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *MemoryStore) state(userID int64) *userState {
	st, _ := s.users.LoadOrCompute(userID, func() (*userState, bool) {
		return &userState{}, false
	})
	return st
}

// Commit атомарно применяет запись: дедупликация, новая версия, вставка в голову, обрезка кольца.
func (s *MemoryStore) Commit(_ context.Context, userID int64, req CommitRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	st := s.state(userID)
	st.mu.Lock()
	version, promoted, err := st.apply(req, s.now())
	st.mu.Unlock()
	if err != nil {
		return 0, err
	}

	s.generation.Add(1)
	observeCommit(promoted)
	// Сигнал только после снятия блокировки: ожидающие сразу увидят новую версию.
	s.notifier.Signal(userID)
	return version, nil
}

// apply вызывается под st.mu.
func (st *userState) apply(req CommitRequest, now time.Time) (int64, bool, error) {
	newVersion := st.version + 1
	if len(st.ring) > 0 && st.ring[0].Version >= newVersion {
		return 0, false, fmt.Errorf("%w: версия головы %d, новая версия %d",
			ErrConcurrencyViolation, st.ring[0].Version, newVersion)
	}

	match := -1
	for i := range st.ring {
		if sameContent(&st.ring[i], req) {
			match = i
			break
		}
	}

	// Совпавшая запись получает новые время, версию, метаданные, client_id и имя файла
	// и переезжает в голову; длина кольца при этом не растет.
	head := models.Entry{
		ContentType: req.ContentType,
		Content:     req.Content,
		Metadata:    req.Metadata,
		CreatedAt:   now,
		Version:     newVersion,
		ClientID:    cloneString(req.ClientID),
		Filename:    cloneString(req.Filename),
	}

	ring := make([]models.Entry, 0, RingSize)
	ring = append(ring, head)
	for i := range st.ring {
		if i == match {
			continue
		}
		ring = append(ring, st.ring[i])
	}
	if len(ring) > RingSize {
		ring = ring[:RingSize]
	}

	st.ring = ring
	st.version = newVersion
	return newVersion, match >= 0, nil
}

// CurrentEntry возвращает копию текущей записи или nil.
func (s *MemoryStore) CurrentEntry(_ context.Context, userID int64) (*models.Entry, error) {
	st, ok := s.users.Load(userID)
	if !ok {
		return nil, nil
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	if len(st.ring) == 0 {
		return nil, nil
	}
	e := copyEntry(st.ring[0])
	return &e, nil
}

// History возвращает копии записей кольца без текущей.
func (s *MemoryStore) History(_ context.Context, userID int64, limit int) ([]models.Entry, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: отрицательный лимит %d", ErrInvalidInput, limit)
	}
	st, ok := s.users.Load(userID)
	if !ok {
		return []models.Entry{}, nil
	}
	st.mu.RLock()
	defer st.mu.RUnlock()

	if len(st.ring) <= 1 {
		return []models.Entry{}, nil
	}
	older := st.ring[1:]
	if limit < len(older) {
		older = older[:limit]
	}
	out := make([]models.Entry, len(older))
	for i := range older {
		out[i] = copyEntry(older[i])
	}
	return out, nil
}

// CurrentVersion возвращает счетчик версий пользователя (0, если записей не было).
func (s *MemoryStore) CurrentVersion(_ context.Context, userID int64) (int64, error) {
	st, ok := s.users.Load(userID)
	if !ok {
		return 0, nil
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.version, nil
}

// Generation растет при каждом изменении содержимого хранилища.
func (s *MemoryStore) Generation() int64 {
	return s.generation.Load()
}

// UserSnapshot - состояние одного пользователя в снимке.
type UserSnapshot struct {
	Version int64          `json:"version"`
	Entries []models.Entry `json:"entries"`
}

// Snapshot - сериализуемое состояние всего хранилища.
type Snapshot struct {
	Generation int64                  `json:"generation"`
	TakenAt    time.Time              `json:"taken_at"`
	Users      map[int64]UserSnapshot `json:"users"`
}

// Snapshot снимает согласованное состояние каждого пользователя по отдельности.
func (s *MemoryStore) Snapshot() *Snapshot {
	snap := &Snapshot{
		Generation: s.generation.Load(),
		TakenAt:    s.now(),
		Users:      make(map[int64]UserSnapshot, s.users.Size()),
	}
	s.users.Range(func(userID int64, st *userState) bool {
		st.mu.RLock()
		entries := make([]models.Entry, len(st.ring))
		for i := range st.ring {
			entries[i] = copyEntry(st.ring[i])
		}
		snap.Users[userID] = UserSnapshot{Version: st.version, Entries: entries}
		st.mu.RUnlock()
		return true
	})
	return snap
}

// Restore заменяет содержимое хранилища снимком.
// Записи упорядочиваются по убыванию версии, кольцо обрезается до RingSize,
// счетчик не может оказаться меньше версии головы.
func (s *MemoryStore) Restore(snap *Snapshot) {
	if snap == nil {
		return
	}
	s.users.Clear()
	for userID, us := range snap.Users {
		entries := make([]models.Entry, len(us.Entries))
		for i := range us.Entries {
			entries[i] = copyEntry(us.Entries[i])
		}
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Version > entries[j].Version
		})
		if len(entries) > RingSize {
			entries = entries[:RingSize]
		}
		version := us.Version
		if len(entries) > 0 && entries[0].Version > version {
			version = entries[0].Version
		}
		s.users.Store(userID, &userState{version: version, ring: entries})
	}
	s.generation.Add(1)
	s.notifier.SignalAll()
}

func copyEntry(e models.Entry) models.Entry {
	e.ClientID = cloneString(e.ClientID)
	e.Filename = cloneString(e.Filename)
	return e
}

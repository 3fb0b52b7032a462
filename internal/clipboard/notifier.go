package clipboard

import "sync"

// Notifier будит ожидающих изменений конкретного пользователя.
// Каждый подписчик получает собственный канал, который закрывается при сигнале.
type Notifier struct {
	mu      sync.Mutex
	waiters map[int64]map[chan struct{}]struct{}
}

// NewNotifier создает пустой Notifier.
func NewNotifier() *Notifier {
	return &Notifier{waiters: make(map[int64]map[chan struct{}]struct{})}
}

// Subscribe регистрирует ожидание для пользователя.
// Подписываться нужно до проверки версии: тогда сигнал после подписки не теряется.
// cancel безопасно вызывать повторно и после срабатывания сигнала.
func (n *Notifier) Subscribe(userID int64) (<-chan struct{}, func()) {
	ch := make(chan struct{})

	n.mu.Lock()
	set, ok := n.waiters[userID]
	if !ok {
		set = make(map[chan struct{}]struct{})
		n.waiters[userID] = set
	}
	set[ch] = struct{}{}
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		set, ok := n.waiters[userID]
		if !ok {
			return
		}
		delete(set, ch)
		if len(set) == 0 {
			delete(n.waiters, userID)
		}
	}
	return ch, cancel
}

// Signal будит всех текущих подписчиков пользователя. Остальных пользователей не трогает.
func (n *Notifier) Signal(userID int64) {
	n.mu.Lock()
	set := n.waiters[userID]
	delete(n.waiters, userID)
	n.mu.Unlock()

	for ch := range set {
		close(ch)
	}
}

// SignalAll будит всех подписчиков (например, после переподключения к источнику событий,
// когда часть уведомлений могла быть потеряна).
func (n *Notifier) SignalAll() {
	n.mu.Lock()
	all := n.waiters
	n.waiters = make(map[int64]map[chan struct{}]struct{})
	n.mu.Unlock()

	for _, set := range all {
		for ch := range set {
			close(ch)
		}
	}
}

// Waiting возвращает число подписчиков пользователя.
func (n *Notifier) Waiting(userID int64) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.waiters[userID])
}

package clipboard

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/maynagashev/copypasta/models"
)

const (
	MinTimeoutSeconds = 1
	MaxTimeoutSeconds = 60
	// DefaultMaxWaiters - сколько запросов процесс держит в ожидании одновременно.
	DefaultMaxWaiters = 1024

	recheckInterval = time.Second
)

// WaitResult - итог ожидания изменений.
// При TimedOut Entry пуст, а Version - текущая версия на момент таймаута.
type WaitResult struct {
	Entry    *models.Entry
	Version  int64
	TimedOut bool
}

// LongPoller реализует ожидание следующей версии поверх Store и Notifier.
type LongPoller struct {
	store    Store
	notifier *Notifier
	sem      *semaphore.Weighted
	recheck  time.Duration
}

// NewLongPoller создает координатор ожиданий. maxWaiters <= 0 означает DefaultMaxWaiters.
func NewLongPoller(store Store, notifier *Notifier, maxWaiters int64) *LongPoller {
	if maxWaiters <= 0 {
		maxWaiters = DefaultMaxWaiters
	}
	return &LongPoller{
		store:    store,
		notifier: notifier,
		sem:      semaphore.NewWeighted(maxWaiters),
		recheck:  recheckInterval,
	}
}

// ClampTimeout приводит запрошенный таймаут к диапазону [1, 60] секунд.
func ClampTimeout(seconds int) time.Duration {
	if seconds < MinTimeoutSeconds {
		seconds = MinTimeoutSeconds
	}
	if seconds > MaxTimeoutSeconds {
		seconds = MaxTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}

// WaitForChange возвращает первую запись с версией больше since, которую не написал
// сам клиент clientID, либо TimedOut по истечении таймаута.
// Ошибки хранилища возвращаются как ошибки, а не как таймаут.
// Отмена ctx завершает ожидание с ctx.Err().
func (p *LongPoller) WaitForChange(
	ctx context.Context,
	userID, since int64,
	timeoutSeconds int,
	clientID string,
) (*WaitResult, error) {
	if since < 0 {
		return nil, fmt.Errorf("%w: отрицательная версия %d", ErrInvalidInput, since)
	}
	timeout := ClampTimeout(timeoutSeconds)
	started := time.Now()

	// Быстрый путь без подписки и без слота ожидания.
	entry, baseline, err := p.check(ctx, userID, since, clientID)
	if err != nil {
		return nil, p.fail(ctx, userID, started, err)
	}
	if entry != nil {
		observePoll(outcomeDelivered, started)
		return &WaitResult{Entry: entry, Version: entry.Version}, nil
	}

	if !p.sem.TryAcquire(1) {
		observePoll(outcomeRejected, time.Time{})
		return nil, ErrTooManyWaiters
	}
	defer p.sem.Release(1)
	longPollWaiters.Inc()
	defer longPollWaiters.Dec()

	res, err := p.park(ctx, userID, baseline, timeout, clientID)
	if err != nil {
		return nil, p.fail(ctx, userID, started, err)
	}
	if res.TimedOut {
		observePoll(outcomeTimeout, started)
	} else {
		observePoll(outcomeDelivered, started)
	}
	return res, nil
}

func (p *LongPoller) park(
	ctx context.Context,
	userID, baseline int64,
	timeout time.Duration,
	clientID string,
) (*WaitResult, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	ticker := time.NewTicker(p.recheck)
	defer ticker.Stop()

	for {
		// Сначала подписка, потом проверка: коммит до подписки увидит проверка,
		// коммит после нее закроет канал.
		wake, cancel := p.notifier.Subscribe(userID)

		entry, next, err := p.check(ctx, userID, baseline, clientID)
		if err != nil {
			cancel()
			return nil, err
		}
		if entry != nil {
			cancel()
			return &WaitResult{Entry: entry, Version: entry.Version}, nil
		}
		baseline = next

		select {
		case <-wake:
		case <-ticker.C:
		case <-timer.C:
			cancel()
			// Коммит мог прийти одновременно с таймером: select выбирает случайно.
			entry, next, err := p.check(ctx, userID, baseline, clientID)
			if err != nil {
				return nil, err
			}
			if entry != nil {
				return &WaitResult{Entry: entry, Version: entry.Version}, nil
			}
			return &WaitResult{Version: next, TimedOut: true}, nil
		case <-ctx.Done():
			cancel()
			return nil, ctx.Err()
		}
		cancel()
	}
}

// check возвращает подходящую запись или новую базовую версию.
// Подавленная запись поднимает базу до своей версии, чтобы ожидание не крутилось на ней.
func (p *LongPoller) check(ctx context.Context, userID, baseline int64, clientID string) (*models.Entry, int64, error) {
	version, err := p.store.CurrentVersion(ctx, userID)
	if err != nil {
		return nil, baseline, err
	}
	if version <= baseline {
		return nil, baseline, nil
	}

	entry, err := p.store.CurrentEntry(ctx, userID)
	if err != nil {
		return nil, baseline, err
	}
	if entry == nil || entry.Version <= baseline {
		return nil, baseline, nil
	}
	if Suppressed(entry, clientID) {
		return nil, entry.Version, nil
	}
	return entry, entry.Version, nil
}

func (p *LongPoller) fail(ctx context.Context, userID int64, started time.Time, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		observePoll(outcomeCancelled, started)
		return ctxErr
	}
	observePoll(outcomeError, started)
	log.Printf("[LongPoll] Ошибка хранилища при ожидании изменений пользователя %d: %v", userID, err)
	return err
}

package clipboard

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы long-poll ожидания.
const (
	outcomeDelivered = "delivered"
	outcomeTimeout   = "timeout"
	outcomeCancelled = "cancelled"
	outcomeError     = "error"
	outcomeRejected  = "rejected"
)

var (
	commitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "copypasta_commits_total",
		Help: "Количество успешных записей в буфер обмена",
	}, []string{"result"})

	longPollWaiters = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "copypasta_longpoll_waiters",
		Help: "Число запросов, ожидающих изменений",
	})

	longPollResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "copypasta_longpoll_results_total",
		Help: "Результаты long-poll ожиданий",
	}, []string{"outcome"})

	longPollWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "copypasta_longpoll_wait_seconds",
		Help:    "Длительность long-poll ожиданий",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60},
	})
)

// ObserveCommit учитывает коммит, выполненный любым хранилищем.
func ObserveCommit(promoted bool) {
	observeCommit(promoted)
}

func observeCommit(promoted bool) {
	if promoted {
		commitsTotal.WithLabelValues("promoted").Inc()
		return
	}
	commitsTotal.WithLabelValues("new").Inc()
}

func observePoll(outcome string, started time.Time) {
	longPollResults.WithLabelValues(outcome).Inc()
	if !started.IsZero() {
		longPollWait.Observe(time.Since(started).Seconds())
	}
}

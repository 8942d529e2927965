// Package metrics exposes Prometheus counters for the betting pipeline
// and a small HTTP server for /metrics and /healthz.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BetsPlaced counts opened bets by game.
	BetsPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "casino_bets_placed_total",
		Help: "Bets placed, by game.",
	}, []string{"game"})

	// BetsSettled counts settled bets by game and terminal status.
	BetsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "casino_bets_settled_total",
		Help: "Bets settled, by game and status.",
	}, []string{"game", "status"})

	// DepositsCredited counts invoices credited by the payment watcher.
	DepositsCredited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "casino_deposits_credited_total",
		Help: "Paid invoices credited to balances.",
	})

	// WithdrawRequests counts withdraw requests by decision.
	WithdrawRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "casino_withdraw_requests_total",
		Help: "Withdraw requests, by decision.",
	}, []string{"decision"})

	// CrashRoundsActive gauges live crash rounds under the scheduler.
	CrashRoundsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "casino_crash_rounds_active",
		Help: "Crash rounds currently running.",
	})

	// WatcherPolls counts payment watcher poll cycles by result.
	WatcherPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "casino_payment_watcher_polls_total",
		Help: "Payment watcher poll cycles, by result.",
	}, []string{"result"})
)

// HealthFunc reports process health for /healthz.
type HealthFunc func(ctx context.Context) error

// StartServer starts a lightweight HTTP server for /metrics and /healthz
// in a background goroutine and returns it for shutdown.
func StartServer(addr string, healthFn HealthFunc) *http.Server {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		if err := healthFn(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(fmt.Sprintf("unhealthy: %v", err)))
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		_ = srv.ListenAndServe()
	}()

	return srv
}

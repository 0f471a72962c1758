// Command tpstress drives every trigger kind against the default pool and an
// explicit pool at the same time and reports what it observed.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ygrebnov/tpool"
	"github.com/ygrebnov/tpool/metrics"
)

type config struct {
	Scenarios   []string      `env:"TPSTRESS_SCENARIOS" envDefault:"submit,post,timer,wait,io" envSeparator:","`
	TimerWindow time.Duration `env:"TPSTRESS_TIMER_OBSERVE" envDefault:"10s"`
	IoOps       int           `env:"TPSTRESS_IO_OPS" envDefault:"100"`
	IoSize      int           `env:"TPSTRESS_IO_SIZE" envDefault:"4194304"`
	MetricsAddr string        `env:"TPSTRESS_METRICS_ADDR"`
	LogLevel    string        `env:"TPSTRESS_LOG_LEVEL" envDefault:"info"`
	Dir         string        `env:"TPSTRESS_DIR"`
}

func main() {
	log := logrus.New()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Fatal("Failed to load .env")
	}
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.WithError(err).Fatal("Failed to parse configuration")
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	poolCfg, err := tpool.ConfigFromEnv()
	if err != nil {
		log.WithError(err).Fatal("Failed to parse pool configuration")
	}

	reg := prometheus.NewRegistry()
	tp, err := tpool.NewThreadPoolFromConfig(poolCfg,
		tpool.WithMetrics(metrics.NewPrometheusProvider(reg)),
		tpool.WithPanicHandler(func(err error) { log.WithError(err).Error("Callback panicked") }),
	)
	if err != nil {
		log.WithError(err).Fatal("Failed to create thread pool")
	}
	defer tp.Close()

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("Metrics server stopped")
			}
		}()
		defer srv.Close()
		log.Infof("Serving metrics on %s/metrics", cfg.MetricsAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pools := map[string]*tpool.ThreadPool{"default": tpool.DefaultPool(), "explicit": tp}
	g, ctx := errgroup.WithContext(ctx)
	for name, p := range pools {
		for _, sc := range cfg.Scenarios {
			run, ok := scenarios[strings.TrimSpace(sc)]
			if !ok {
				log.Fatalf("Unknown scenario %q", sc)
			}
			entry := log.WithFields(logrus.Fields{"pool": name, "scenario": sc})
			g.Go(func() error {
				start := time.Now()
				if err := run(ctx, p, cfg, entry); err != nil {
					entry.WithError(err).Error("Scenario failed")
					return err
				}
				entry.WithField("elapsed", time.Since(start)).Info("Scenario passed")
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("Stress run failed")
	}
	log.WithField("stats", tp.Stats()).Info("Stress run finished")
}

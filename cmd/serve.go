package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"presence-monitor/internal/alert"
	"presence-monitor/internal/api"
	"presence-monitor/internal/config"
	k "presence-monitor/internal/kafka"
	"presence-monitor/internal/metrics"
	"presence-monitor/internal/parser"
	"presence-monitor/internal/processors/ingest"
	"presence-monitor/internal/worker"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serviceAction string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingest consumer, the sweep scheduler and the HTTP API",
	Long: `Runs the service in the foreground until SIGINT/SIGTERM.

With --service the same process is managed by the OS service manager:
  presence-monitor serve --config /etc/presence.yaml --service install`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serviceAction != "" {
			return controlService(serviceAction)
		}
		if !service.Interactive() {
			return runAsService()
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serviceAction, "service", "", "Service action: install, uninstall, start, stop")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context, cfg config.Config) error {
	slog.InfoContext(ctx, "Starting service...", "backend", cfg.Store.Backend, "window", cfg.DebounceWindow.String())
	m := metrics.New()

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			slog.ErrorContext(ctx, "Closing store failed", "error", err)
		}
	}()

	publisher, closePublisher := newPublisher(cfg)
	defer closePublisher()
	dispatcher := alert.New(alert.Config{Publisher: publisher, Timeout: cfg.Notifier.Timeout})

	p := parser.New(parser.Config{Store: b.status, Log: b.log, Metrics: m})
	sw := newSweeper(cfg, b, dispatcher, m)
	scheduler := worker.NewScheduler(worker.SchedulerConfig{
		Name:     "sweeper",
		Interval: cfg.Sweep.Interval,
		Task:     sweepTask(sw, cfg.DebounceWindow),
	})

	handler := api.New(api.Config{
		Repo:      statusAndLog{b.status, b.log},
		Ingester:  p,
		Metrics:   m,
		JWTSecret: cfg.HTTP.JWTSecret,
		Health:    b.ping,
	})
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		scheduler.Run(gctx)
		return nil
	})
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.EventsTopic != "" {
		g.Go(func() error {
			if err := k.WaitForBroker(gctx, cfg.Kafka.Brokers[0], cfg.Kafka.BrokerWait); err != nil {
				return err
			}
			consumer := ingest.New(ingest.Config{
				Reader: ingest.NewReader(ingest.ReaderConfig{
					Brokers:         cfg.Kafka.Brokers,
					ConsumerGroupID: cfg.Kafka.ConsumerGroupID,
					Topic:           cfg.Kafka.EventsTopic,
				}),
				Ingester: p,
				Metrics:  m,
			})
			defer consumer.Close(context.WithoutCancel(gctx))
			consumer.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		slog.InfoContext(gctx, "HTTP server listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	slog.InfoContext(ctx, "Service stopped", "error", err)
	return err
}

// program runs runServe under the OS service manager.
type program struct {
	cfg    config.Config
	cancel context.CancelFunc
	done   chan error
}

func (p *program) Start(s service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() {
		p.done <- runServe(ctx, p.cfg)
	}()
	return nil
}

func (p *program) Stop(s service.Service) error {
	slog.Info("Stopping service...")
	p.cancel()
	select {
	case err := <-p.done:
		return err
	case <-time.After(15 * time.Second):
		return errors.New("service did not stop in time")
	}
}

func newService() (service.Service, error) {
	args := []string{"serve"}
	if cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}
	return service.New(&program{cfg: cfg}, &service.Config{
		Name:        "presence-monitor",
		DisplayName: "Presence Monitor",
		Description: "Debounced device disconnect alerting.",
		Arguments:   args,
	})
}

func runAsService() error {
	s, err := newService()
	if err != nil {
		return err
	}
	return s.Run()
}

func controlService(action string) error {
	s, err := newService()
	if err != nil {
		return err
	}
	if err := service.Control(s, action); err != nil {
		return fmt.Errorf("failed to %s service: %w", action, err)
	}
	fmt.Printf("Service action '%s' completed successfully.\n", action)
	return nil
}

package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kbukum/endpoints/component"
	"github.com/kbukum/endpoints/logger"
)

const defaultGracefulTimeout = 15 * time.Second

// App owns the component registry of one service and drives its lifecycle.
// C is the service config; any struct embedding config.ServiceConfig
// satisfies Config.
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger
	Summary    *Summary

	gracefulTimeout time.Duration
}

// NewApp applies config defaults, validates the config and builds the
// logger unless WithLogger supplied one.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	base := cfg.GetServiceConfig()
	o := resolveOptions(opts)

	app := &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		Components:      component.NewRegistry(),
		Logger:          o.logger,
		Summary:         NewSummary(base.Name, base.Version),
		gracefulTimeout: defaultGracefulTimeout,
	}
	if o.gracefulTimeout > 0 {
		app.gracefulTimeout = o.gracefulTimeout
	}
	if app.Logger == nil {
		base.Logging.ApplyDefaults()
		app.Logger = logger.New(&base.Logging, base.Name)
		logger.SetGlobalLogger(app.Logger)
	}
	if o.summaryOut != nil {
		app.Summary.SetOutput(o.summaryOut)
	}
	return app, nil
}

// RegisterComponent appends c to the start order.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// ReadyCheck fails when any component reports other than healthy.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var bad []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status == component.StatusHealthy {
			continue
		}
		detail := h.Name + "=" + string(h.Status)
		if h.Message != "" {
			detail += " (" + h.Message + ")"
		}
		bad = append(bad, detail)
	}
	if len(bad) > 0 {
		return fmt.Errorf("not ready: %s", strings.Join(bad, ", "))
	}
	return nil
}

// Run starts every component, blocks until SIGINT, SIGTERM or ctx is done,
// then stops them in reverse order.
func (a *App[C]) Run(ctx context.Context) error {
	if err := a.start(ctx); err != nil {
		return err
	}
	a.Logger.Info("application ready, waiting for shutdown signal")

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	<-sigCtx.Done()
	stop()
	a.Logger.Info("shutdown requested", logger.Fields("cause", context.Cause(sigCtx).Error()))

	return a.stop()
}

// RunTask starts every component, runs task and stops them once it
// returns. A signal cancels the task context. The task error wins over a
// shutdown error.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.start(ctx); err != nil {
		return err
	}
	taskCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	taskErr := task(taskCtx)
	stop()

	if err := a.stop(); err != nil && taskErr == nil {
		return err
	}
	return taskErr
}

func (a *App[C]) start(ctx context.Context) error {
	began := time.Now()
	a.Logger.Info("starting application", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start components: %w", err)
	}
	// Degraded backends still serve; only report them.
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}

	a.Summary.SetStartupDuration(time.Since(began))
	a.Summary.DisplaySummary(a.Components)
	return nil
}

// stop gives the registry the graceful timeout to stop everything.
// Dispatch loops drain their queues inside that window.
func (a *App[C]) stop() error {
	a.Logger.Info("shutting down application", logger.Fields("timeout", a.gracefulTimeout.String()))

	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("shutdown completed with errors", logger.Fields(logger.FieldError, err.Error()))
		return err
	}
	a.Logger.Info("application shutdown complete")
	return nil
}

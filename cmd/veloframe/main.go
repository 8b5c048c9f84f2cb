package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/genricoloni/veloframe/internal/config"
	"github.com/genricoloni/veloframe/internal/control"
	"github.com/genricoloni/veloframe/internal/domain"
	"github.com/genricoloni/veloframe/internal/engine"
	"github.com/genricoloni/veloframe/internal/layout"
	"github.com/genricoloni/veloframe/internal/photoset"
	"github.com/genricoloni/veloframe/internal/presenter"
	"github.com/genricoloni/veloframe/internal/processor"
	"github.com/genricoloni/veloframe/internal/screen"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	scanTimeout = 2 * time.Minute
	stopTimeout = 10 * time.Second
)

// AppOptions is the complete dependency graph of the slideshow
var AppOptions = fx.Options(
	// Logger configuration
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log}
	}),

	// Provide dependencies
	fx.Provide(
		newLogger,
		config.NewAppConfig,
		func(cfg *config.AppConfig) domain.Config { return cfg },
		screen.NewScreenResolution,
		newScanner,
		newCollection,
		fx.Annotate(photoset.NewFromConfig, fx.As(new(domain.Navigator))),
		fx.Annotate(layout.NewPreparationManager, fx.As(new(domain.Preparer))),
		fx.Annotate(processor.NewCompositor, fx.As(new(domain.Composer))),
		fx.Annotate(processor.NewFileWriter, fx.As(new(domain.FrameWriter))),
		presenter.New,
		newControllers,
		newCommandStream,
		engine.NewEngine,
	),

	// Lifecycle hooks
	fx.Invoke(registerHooks),
)

func main() {
	app := fx.New(AppOptions)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Start the application; an empty photo collection fails here
	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "veloframe: %v\n", err)
		os.Exit(1)
	}

	// Wait for an interrupt signal or a quit command
	select {
	case <-ctx.Done():
	case <-app.Done():
	}

	// Stop the application gracefully
	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "veloframe: %v\n", err)
		os.Exit(1)
	}
}

// newLogger creates a new zap logger instance
func newLogger() (*zap.Logger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return logger, nil
}

func newScanner(logger *zap.Logger, cfg *config.AppConfig) domain.Scanner {
	return photoset.NewDirScanner(logger, cfg.Recursive())
}

// newCollection scans the photos directory once at startup
func newCollection(logger *zap.Logger, cfg *config.AppConfig, scanner domain.Scanner) ([]domain.PhotoEntry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
	defer cancel()

	entries, err := scanner.Scan(ctx, cfg.GetPhotosDirectory())
	if err != nil {
		if photoset.IsEmpty(err) {
			logger.Error("Nothing to show", zap.String("dir", cfg.GetPhotosDirectory()), zap.Error(err))
		}
		return nil, err
	}
	return entries, nil
}

// newControllers builds the enabled input sources
func newControllers(logger *zap.Logger, cfg *config.AppConfig) []domain.Controller {
	var controllers []domain.Controller
	if cfg.KeyboardControl() {
		controllers = append(controllers, control.NewKeyboardController(logger, os.Stdin))
	}
	if cfg.DBusControl() {
		controllers = append(controllers, control.NewDBusController(logger))
	}
	return controllers
}

// newCommandStream merges every controller into the single channel the engine reads
func newCommandStream(lc fx.Lifecycle, controllers []domain.Controller) <-chan domain.Command {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})

	sources := make([]<-chan domain.Command, len(controllers))
	for i, c := range controllers {
		sources[i] = c.Commands()
	}
	return control.Merge(ctx, sources...)
}

// registerHooks sets up application lifecycle hooks
func registerHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	logger *zap.Logger,
	eng *engine.Engine,
	controllers []domain.Controller,
	display domain.Presenter,
) {
	eng.OnQuit(func() {
		if err := shutdowner.Shutdown(); err != nil {
			logger.Error("Shutdown request failed", zap.Error(err))
		}
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("VeloFrame Started")
			for _, c := range controllers {
				go func(c domain.Controller) {
					if err := c.Start(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
						logger.Warn("Controller stopped", zap.Error(err))
					}
				}(c)
			}
			return eng.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down")
			var err error
			for _, c := range controllers {
				err = multierr.Append(err, c.Stop(ctx))
			}
			err = multierr.Append(err, eng.Stop(ctx))
			// a persistent background command is stopped after the engine restored what it could
			if c, ok := display.(io.Closer); ok {
				err = multierr.Append(err, c.Close())
			}
			return err
		},
	})
}

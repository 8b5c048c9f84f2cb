package engine

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/genricoloni/veloframe/internal/domain"
	"go.uber.org/zap"
)

// maxConsecutiveFailures bounds how many broken slides are skipped in a row
// before the engine waits for the next tick
const maxConsecutiveFailures = 5

// Engine runs the slideshow.
// A single goroutine owns the navigator, the timers and the last shown frame.
type Engine struct {
	logger    *zap.Logger
	cfg       domain.Config
	nav       domain.Navigator
	scanner   domain.Scanner
	preparer  domain.Preparer
	composer  domain.Composer
	writer    domain.FrameWriter
	presenter domain.Presenter
	screen    domain.ScreenResolution
	commands  <-chan domain.Command
	quit      func()
	now       func() time.Time

	originalBackground string // captured at startup, restored on stop

	// loop state
	timer     *time.Timer
	lastFrame image.Image
	paused    bool
	failures  int

	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine creates a new slideshow engine
func NewEngine(
	logger *zap.Logger,
	cfg domain.Config,
	nav domain.Navigator,
	scanner domain.Scanner,
	preparer domain.Preparer,
	composer domain.Composer,
	writer domain.FrameWriter,
	presenter domain.Presenter,
	screen domain.ScreenResolution,
	commands <-chan domain.Command,
) *Engine {
	return &Engine{
		logger:    logger,
		cfg:       cfg,
		nav:       nav,
		scanner:   scanner,
		preparer:  preparer,
		composer:  composer,
		writer:    writer,
		presenter: presenter,
		screen:    screen,
		commands:  commands,
		quit:      func() {},
		now:       time.Now,
	}
}

// OnQuit sets what a quit command does (the application shuts down)
func (e *Engine) OnQuit(fn func()) {
	e.quit = fn
}

// Start captures the current background and launches the slideshow loop.
// It returns immediately (non-blocking).
func (e *Engine) Start(ctx context.Context) error {
	e.logger.Info("Engine starting...",
		zap.Int("photos", e.nav.Len()),
		zap.Int("width", e.screen.Width),
		zap.Int("height", e.screen.Height))

	// Try to capture current background before we start changing it
	if bg, err := e.presenter.Current(ctx); err == nil {
		e.originalBackground = bg
		e.logger.Info("Captured original background for restoration",
			zap.String("path", bg))
	} else {
		e.logger.Warn("Could not capture current background, restore on exit will be disabled",
			zap.Error(err))
	}

	// The loop outlives the start hook's context, so it gets its own
	loopCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})

	go e.runLoop(loopCtx)
	return nil
}

// runLoop is the main event loop
func (e *Engine) runLoop(ctx context.Context) {
	defer close(e.done)

	e.timer = time.NewTimer(e.cfg.GetDisplayTime())
	defer e.timer.Stop()

	// First slide goes up without a cross-fade
	e.step(ctx, e.nav.Current(), e.nav.Advance, true)
	e.restartTimer()

	// The clock overlay is redrawn on every minute boundary
	var clock *time.Timer
	var clockC <-chan time.Time
	if e.cfg.ShowClock() {
		clock = time.NewTimer(untilNextMinute(e.now()))
		defer clock.Stop()
		clockC = clock.C
	}

	var rescanC <-chan time.Time
	if interval := e.cfg.GetRescanInterval(); interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		rescanC = ticker.C
	}

	commands := e.commands
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Engine loop stopped")
			return

		case cmd, ok := <-commands:
			if !ok {
				e.logger.Info("Command channel closed")
				commands = nil
				continue
			}
			e.handleCommand(ctx, cmd)

		case <-e.timer.C:
			e.step(ctx, e.nav.Advance(), e.nav.Advance, false)
			e.restartTimer()

		case <-clockC:
			e.refresh(ctx)
			clock.Reset(untilNextMinute(e.now()))

		case <-rescanC:
			e.rescan(ctx)
		}
	}
}

// handleCommand applies one user command
func (e *Engine) handleCommand(ctx context.Context, cmd domain.Command) {
	e.logger.Info("Command received", zap.String("command", string(cmd)))

	switch cmd {
	case domain.CmdNext:
		e.step(ctx, e.nav.Advance(), e.nav.Advance, false)
		e.restartTimer()
	case domain.CmdNextImmediate:
		e.step(ctx, e.nav.Advance(), e.nav.Advance, true)
		e.restartTimer()
	case domain.CmdPrevious:
		e.step(ctx, e.nav.Retreat(), e.nav.Retreat, false)
		e.restartTimer()
	case domain.CmdPreviousImmediate:
		e.step(ctx, e.nav.Retreat(), e.nav.Retreat, true)
		e.restartTimer()
	case domain.CmdTogglePause:
		e.paused = !e.paused
		e.restartTimer()
		e.logger.Info("Slideshow pause toggled", zap.Bool("paused", e.paused))
	case domain.CmdRescan:
		e.rescan(ctx)
	case domain.CmdQuit:
		e.logger.Info("Quit requested")
		e.quit()
	default:
		e.logger.Warn("Unknown command", zap.String("command", string(cmd)))
	}
}

// restartTimer schedules the next automatic advance, unless paused
func (e *Engine) restartTimer() {
	if e.paused {
		e.timer.Stop()
		return
	}
	e.timer.Reset(e.cfg.GetDisplayTime())
}

// step shows sel. A slide that fails is skipped by calling move again, until
// more than maxConsecutiveFailures slides in a row have failed.
// It reports whether a slide made it to the screen.
func (e *Engine) step(ctx context.Context, sel domain.Selection, move func() domain.Selection, immediate bool) bool {
	for {
		err := e.show(ctx, sel, immediate)
		if err == nil {
			e.failures = 0
			return true
		}
		if ctx.Err() != nil {
			return false
		}

		e.failures++
		e.logger.Error("Failed to show slide",
			zap.Strings("photos", sel.Paths()),
			zap.Int("consecutiveFailures", e.failures),
			zap.Error(err))

		if e.failures > maxConsecutiveFailures {
			e.logger.Warn("Too many consecutive failures, waiting for the next tick")
			e.failures = 0
			return false
		}
		sel = move()
	}
}

// refresh redraws the current slide in place (clock update)
func (e *Engine) refresh(ctx context.Context) {
	if err := e.show(ctx, e.nav.Current(), true); err != nil {
		e.logger.Warn("Failed to refresh slide", zap.Error(err))
	}
}

// show renders sel and puts it on screen, cross-fading from the previous frame
// unless immediate is set
func (e *Engine) show(ctx context.Context, sel domain.Selection, immediate bool) error {
	frame := e.preparer.Prepare(sel, e.screen)

	img, err := e.composer.Compose(ctx, frame)
	if err != nil {
		return fmt.Errorf("compose: %w", err)
	}

	if !immediate && e.lastFrame != nil {
		e.transition(ctx, e.lastFrame, img)
	}

	path, err := e.writer.Write(img)
	if err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if err := e.presenter.Present(ctx, path); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	e.lastFrame = img

	e.logger.Info("Slide shown",
		zap.String("kind", string(sel.Kind())),
		zap.Strings("photos", sel.Paths()))
	return nil
}

// transition presents the intermediate cross-fade frames between from and to
func (e *Engine) transition(ctx context.Context, from, to image.Image) {
	frames := e.cfg.GetTransitionFrames()
	total := e.cfg.GetTransitionTime()
	if frames <= 0 || total <= 0 {
		return
	}

	interval := total / time.Duration(frames+1)
	for i := 1; i <= frames; i++ {
		blended := e.composer.Blend(from, to, float64(i)/float64(frames+1))

		path, err := e.writer.Write(blended)
		if err == nil {
			err = e.presenter.Present(ctx, path)
		}
		if err != nil {
			e.logger.Warn("Transition frame failed, skipping the cross-fade", zap.Error(err))
			return
		}

		if !sleep(ctx, interval) {
			return
		}
	}
}

// rescan reloads the photo directory; on failure the current collection stays
func (e *Engine) rescan(ctx context.Context) {
	entries, err := e.scanner.Scan(ctx, e.cfg.GetPhotosDirectory())
	if err != nil {
		e.logger.Warn("Rescan failed, keeping current collection", zap.Error(err))
		return
	}

	before := e.nav.Current()
	if err := e.nav.Replace(entries); err != nil {
		e.logger.Warn("Rescan produced an unusable collection", zap.Error(err))
		return
	}
	e.logger.Info("Collection rescanned", zap.Int("photos", e.nav.Len()))

	if !e.nav.Current().Equal(before) {
		e.step(ctx, e.nav.Current(), e.nav.Advance, true)
		e.restartTimer()
	}
}

// Stop ends the loop and restores the original background
func (e *Engine) Stop(ctx context.Context) error {
	e.logger.Info("Engine stopping...")

	if e.cancel != nil {
		e.cancel()
		select {
		case <-e.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// Restore original background if we captured one
	if e.originalBackground != "" {
		e.logger.Info("Restoring original background",
			zap.String("path", e.originalBackground))

		if err := e.presenter.Present(ctx, e.originalBackground); err != nil {
			e.logger.Error("Failed to restore original background", zap.Error(err))
			return err
		}

		e.logger.Info("Original background restored successfully")
	} else {
		e.logger.Info("No original background to restore")
	}

	return nil
}

func untilNextMinute(now time.Time) time.Duration {
	return now.Truncate(time.Minute).Add(time.Minute).Sub(now)
}

// sleep waits for d and reports false if ctx ended first
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

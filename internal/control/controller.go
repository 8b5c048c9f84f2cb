package control

import (
	"context"
	"sync"
	"time"

	"github.com/genricoloni/veloframe/internal/domain"
	"go.uber.org/zap"
)

const (
	commandBuffer = 10
	// max one "channel full" warning per interval
	dropWarningInterval = 5 * time.Second
)

// emitter owns a controller's command channel.
// Sends never block: when the engine is busy rendering, extra key presses are dropped.
type emitter struct {
	logger          *zap.Logger
	mu              sync.Mutex
	commands        chan domain.Command
	closed          bool
	lastDropWarning time.Time
}

func newEmitter(logger *zap.Logger) *emitter {
	return &emitter{
		logger:   logger,
		commands: make(chan domain.Command, commandBuffer),
	}
}

// emit queues cmd and reports whether it was accepted
func (e *emitter) emit(cmd domain.Command) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return false
	}

	select {
	case e.commands <- cmd:
		e.logger.Debug("Command received", zap.String("command", string(cmd)))
		return true
	default:
		now := time.Now()
		if now.Sub(e.lastDropWarning) >= dropWarningInterval {
			e.logger.Warn("Command channel full, dropping command",
				zap.String("command", string(cmd)))
			e.lastDropWarning = now
		}
		return false
	}
}

func (e *emitter) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *emitter) close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.commands)
	}
}

// Commands returns a read-only channel of user commands.
// It is closed once the controller has stopped.
func (e *emitter) Commands() <-chan domain.Command {
	return e.commands
}

// lifecycle tracks a blocking Start so that Stop can cancel it and wait
type lifecycle struct {
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// begin marks the controller running; ok is false if it already was
func (l *lifecycle) begin(ctx context.Context) (runCtx context.Context, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return nil, false
	}
	runCtx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})
	l.running = true
	return runCtx, true
}

// end is deferred by Start
func (l *lifecycle) end() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.running = false
	if l.cancel != nil {
		l.cancel()
	}
	close(l.done)
}

// stop cancels a running Start and waits for it to return
func (l *lifecycle) stop(ctx context.Context) error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	l.cancel()
	done := l.done
	l.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Merge forwards the commands of every source into one channel, which is
// closed when all sources are closed or ctx is cancelled
func Merge(ctx context.Context, sources ...<-chan domain.Command) <-chan domain.Command {
	out := make(chan domain.Command, commandBuffer)

	var wg sync.WaitGroup
	wg.Add(len(sources))
	for _, src := range sources {
		go func(src <-chan domain.Command) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case cmd, ok := <-src:
					if !ok {
						return
					}
					select {
					case out <- cmd:
					case <-ctx.Done():
						return
					}
				}
			}
		}(src)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

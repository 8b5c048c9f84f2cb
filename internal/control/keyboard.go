package control

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/genricoloni/veloframe/internal/domain"
	"go.uber.org/zap"
)

// terminal escape sequences as delivered by a line-buffered tty
const (
	seqRight      = "\x1b[C"
	seqLeft       = "\x1b[D"
	seqShiftRight = "\x1b[1;2C"
	seqShiftLeft  = "\x1b[1;2D"
	seqEscape     = "\x1b"
)

var keyCommands = map[string]domain.Command{
	"n":           domain.CmdNext,
	"space":       domain.CmdNext,
	"right":       domain.CmdNext,
	seqRight:      domain.CmdNext,
	"N":           domain.CmdNextImmediate,
	"shift+right": domain.CmdNextImmediate,
	seqShiftRight: domain.CmdNextImmediate,
	"p":           domain.CmdPrevious,
	"left":        domain.CmdPrevious,
	seqLeft:       domain.CmdPrevious,
	"P":           domain.CmdPreviousImmediate,
	"shift+left":  domain.CmdPreviousImmediate,
	seqShiftLeft:  domain.CmdPreviousImmediate,
	"s":           domain.CmdTogglePause,
	"r":           domain.CmdRescan,
	"q":           domain.CmdQuit,
	"esc":         domain.CmdQuit,
	seqEscape:     domain.CmdQuit,
}

// ParseKey maps one line of keyboard input to a command.
// A line holding a single space means the space bar.
func ParseKey(line string) (domain.Command, bool) {
	line = strings.TrimRight(line, "\r\n")
	if line == " " {
		return domain.CmdNext, true
	}
	cmd, ok := keyCommands[strings.TrimSpace(line)]
	return cmd, ok
}

// KeyboardController turns lines read from a terminal into commands
type KeyboardController struct {
	*emitter
	lc lifecycle
	in io.Reader
}

// NewKeyboardController reads commands from in (usually os.Stdin)
func NewKeyboardController(logger *zap.Logger, in io.Reader) *KeyboardController {
	return &KeyboardController{
		emitter: newEmitter(logger),
		in:      in,
	}
}

// Start reads input until ctx is cancelled or input ends
func (k *KeyboardController) Start(ctx context.Context) error {
	if k.isClosed() {
		return nil
	}
	runCtx, ok := k.lc.begin(ctx)
	if !ok {
		return nil
	}
	defer k.lc.end()

	k.logger.Info("Keyboard control enabled",
		zap.String("keys", "n/space/right next, N next now, p/left previous, P previous now, s pause, r rescan, q quit"))

	// the reader goroutine stays blocked on a terminal read after shutdown; it ends with the process
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(k.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-runCtx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			k.logger.Warn("Keyboard input failed", zap.Error(err))
		}
	}()

	for {
		select {
		case <-runCtx.Done():
			return runCtx.Err()
		case line, ok := <-lines:
			if !ok {
				k.logger.Info("Keyboard input closed")
				return nil
			}
			cmd, known := ParseKey(line)
			if !known {
				k.logger.Debug("Ignoring unknown key", zap.String("input", line))
				continue
			}
			k.emit(cmd)
		}
	}
}

// Stop gracefully stops the controller and closes its command channel
func (k *KeyboardController) Stop(ctx context.Context) error {
	err := k.lc.stop(ctx)
	k.close()
	return err
}

package presenter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// commandTimeout bounds every call to an external desktop command
const commandTimeout = 10 * time.Second

// DesktopCommand describes a program that puts an image on the desktop
type DesktopCommand struct {
	Name   string
	Binary string
	Args   []string // %s will be replaced with image path

	// Query prints the current background; nil when the tool cannot report it
	Query []string
	parse func(output string) (string, error)

	// Persistent tools keep running for as long as they hold the background.
	// They are started in the background and the previous instance is stopped
	// once its replacement is up.
	Persistent bool
}

// ExpandArgs substitutes imagePath into the argument template
func (c DesktopCommand) ExpandArgs(imagePath string) []string {
	args := make([]string, len(c.Args))
	for i, arg := range c.Args {
		args[i] = strings.ReplaceAll(arg, "%s", imagePath)
	}
	return args
}

// ParseCommand builds a command from a user supplied line such as "feh --bg-max %s".
// Arguments are split on whitespace; the frame path is appended when %s is absent.
func ParseCommand(line string) (DesktopCommand, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return DesktopCommand{}, fmt.Errorf("display command is empty")
	}

	args := fields[1:]
	hasPlaceholder := false
	for _, a := range args {
		if strings.Contains(a, "%s") {
			hasPlaceholder = true
			break
		}
	}
	if !hasPlaceholder {
		args = append(args, "%s")
	}

	return DesktopCommand{
		Name:   filepath.Base(fields[0]),
		Binary: fields[0],
		Args:   args,
	}, nil
}

// Runner executes a program and returns its combined output
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Starter launches a program without waiting for it to exit
type Starter func(name string, args ...string) (*exec.Cmd, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	// a forked helper may keep the output pipe open after the command is killed
	cmd.WaitDelay = time.Second
	return cmd.CombinedOutput()
}

func execStarter(name string, args ...string) (*exec.Cmd, error) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// backgroundProcess is a running persistent command and the result of its Wait
type backgroundProcess struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

// CommandPresenter shows frames by running an external desktop command
type CommandPresenter struct {
	logger  *zap.Logger
	command DesktopCommand
	run     Runner
	start   Starter
	timeout time.Duration

	mu      sync.Mutex
	running *backgroundProcess
}

// NewCommandPresenter creates a presenter around cmd
func NewCommandPresenter(logger *zap.Logger, cmd DesktopCommand) *CommandPresenter {
	return &CommandPresenter{
		logger:  logger,
		command: cmd,
		run:     execRunner,
		start:   execStarter,
		timeout: commandTimeout,
	}
}

// Command returns the command in use
func (p *CommandPresenter) Command() DesktopCommand {
	return p.command
}

// Present displays the image at imagePath
func (p *CommandPresenter) Present(ctx context.Context, imagePath string) error {
	args := p.command.ExpandArgs(imagePath)

	p.logger.Debug("Presenting frame",
		zap.String("command", p.command.Binary),
		zap.Strings("args", args),
		zap.Bool("persistent", p.command.Persistent))

	if p.command.Persistent {
		return p.replace(args)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	output, err := p.run(ctx, p.command.Binary, args...)
	if err != nil {
		return fmt.Errorf("failed to present frame with %s: %w (output: %s)",
			p.command.Name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// replace starts a new instance of a persistent command, then stops the one it replaces
func (p *CommandPresenter) replace(args []string) error {
	cmd, err := p.start(p.command.Binary, args...)
	if err != nil {
		return fmt.Errorf("failed to start %s: %w", p.command.Name, err)
	}

	proc := &backgroundProcess{cmd: cmd, done: make(chan struct{})}
	go func() {
		proc.err = cmd.Wait()
		close(proc.done)
	}()

	p.mu.Lock()
	prev := p.running
	p.running = proc
	p.mu.Unlock()

	if prev == nil {
		return nil
	}
	select {
	case <-prev.done:
		// it died on its own; the frame it held was already gone
		p.logger.Warn("Background command exited early",
			zap.String("command", p.command.Name),
			zap.Error(prev.err))
		return nil
	default:
	}
	return p.stop(prev)
}

func (p *CommandPresenter) stop(proc *backgroundProcess) error {
	if err := proc.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to stop %s: %w", p.command.Name, err)
	}
	select {
	case <-proc.done:
		return nil
	case <-time.After(p.timeout):
		return fmt.Errorf("%s did not exit after kill", p.command.Name)
	}
}

// Close stops the running persistent command, if any. What the session showed
// before the slideshow is visible again afterwards.
func (p *CommandPresenter) Close() error {
	p.mu.Lock()
	proc := p.running
	p.running = nil
	p.mu.Unlock()

	if proc == nil {
		return nil
	}
	return p.stop(proc)
}

// Current asks the desktop command what it shows right now
func (p *CommandPresenter) Current(ctx context.Context) (string, error) {
	if len(p.command.Query) == 0 || p.command.parse == nil {
		return "", fmt.Errorf("%s cannot report the current background", p.command.Name)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	output, err := p.run(ctx, p.command.Binary, p.command.Query...)
	if err != nil {
		return "", fmt.Errorf("failed to query background with %s: %w", p.command.Name, err)
	}

	path, err := p.command.parse(string(output))
	if err != nil {
		return "", fmt.Errorf("unexpected %s output: %w", p.command.Name, err)
	}
	return path, nil
}

// parseGSettingsURI reads "'file:///path'" as printed by gsettings get
func parseGSettingsURI(output string) (string, error) {
	v := strings.Trim(strings.TrimSpace(output), "'\"")
	if !strings.HasPrefix(v, "file://") {
		return "", fmt.Errorf("not a file uri: %q", v)
	}
	return strings.TrimPrefix(v, "file://"), nil
}

// parseSwwwQuery reads the first output of "swww query":
// "eDP-1: 1920x1080, scale: 1, currently displaying: image: /path/to/img.jpg"
func parseSwwwQuery(output string) (string, error) {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	_, path, ok := strings.Cut(line, "image: ")
	if !ok || strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("no image in %q", line)
	}
	return strings.TrimSpace(path), nil
}

// parseHyprpaperActive reads the first line of "hyprctl hyprpaper listactive": "eDP-1 = /path"
func parseHyprpaperActive(output string) (string, error) {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	_, path, ok := strings.Cut(line, " = ")
	if !ok || strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("no active wallpaper in %q", line)
	}
	return strings.TrimSpace(path), nil
}

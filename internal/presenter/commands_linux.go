//go:build linux

package presenter

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/genricoloni/veloframe/internal/config"
	"github.com/genricoloni/veloframe/internal/domain"
	"go.uber.org/zap"
)

// Ordered list of desktop commands to try (highest priority first)
var desktopCommands = []DesktopCommand{
	{Name: "swww", Binary: "swww", Args: []string{"img", "--transition-type", "none", "%s"},
		Query: []string{"query"}, parse: parseSwwwQuery},
	{Name: "hyprpaper", Binary: "hyprctl", Args: []string{"hyprpaper", "reload", ",%s"},
		Query: []string{"hyprpaper", "listactive"}, parse: parseHyprpaperActive},
	{Name: "swaybg", Binary: "swaybg", Args: []string{"-i", "%s", "-m", "fill"}, Persistent: true},
	{Name: "gnome", Binary: "gsettings", Args: []string{"set", "org.gnome.desktop.background", "picture-uri-dark", "file://%s"},
		Query: []string{"get", "org.gnome.desktop.background", "picture-uri-dark"}, parse: parseGSettingsURI},
	{Name: "feh", Binary: "feh", Args: []string{"--bg-fill", "%s"}},
	{Name: "nitrogen", Binary: "nitrogen", Args: []string{"--set-zoom-fill", "%s"}},
}

// New creates the presenter for this system: the configured display command if
// any, otherwise the best desktop command found on PATH
func New(logger *zap.Logger, cfg *config.AppConfig) (domain.Presenter, error) {
	if line := cfg.DisplayCommand(); line != "" {
		cmd, err := ParseCommand(line)
		if err != nil {
			return nil, err
		}
		logger.Info("Using configured display command",
			zap.String("binary", cmd.Binary),
			zap.Strings("args", cmd.Args))
		return NewCommandPresenter(logger, cmd), nil
	}

	cmd, ok := detectCommand(logger, os.Getenv, commandExists)
	if !ok {
		return nil, fmt.Errorf("%w (set display_command)", domain.ErrNoPresenter)
	}

	logger.Info("Display command detected",
		zap.String("name", cmd.Name),
		zap.String("binary", cmd.Binary))

	return NewCommandPresenter(logger, cmd), nil
}

// detectCommand analyzes the environment to choose the best desktop command
func detectCommand(logger *zap.Logger, getenv func(string) string, exists func(string) bool) (DesktopCommand, bool) {
	desktop := getenv("XDG_CURRENT_DESKTOP")
	session := getenv("XDG_SESSION_TYPE")
	wayland := getenv("WAYLAND_DISPLAY")
	hyprland := getenv("HYPRLAND_INSTANCE_SIGNATURE")

	logger.Debug("Detecting display command",
		zap.String("desktop", desktop),
		zap.String("session", session),
		zap.String("wayland", wayland),
		zap.String("hyprland", hyprland))

	pick := func(names ...string) (DesktopCommand, bool) {
		for _, cmd := range desktopCommands {
			for _, n := range names {
				if cmd.Name == n && exists(cmd.Binary) {
					return cmd, true
				}
			}
		}
		return DesktopCommand{}, false
	}

	if hyprland != "" {
		if cmd, ok := pick("swww", "hyprpaper"); ok {
			return cmd, true
		}
	}
	if strings.Contains(strings.ToLower(desktop), "gnome") {
		if cmd, ok := pick("gnome"); ok {
			return cmd, true
		}
	}
	if wayland != "" || session == "wayland" {
		if cmd, ok := pick("swww", "swaybg"); ok {
			return cmd, true
		}
	}

	for _, cmd := range desktopCommands {
		if exists(cmd.Binary) {
			logger.Info("Using fallback display command", zap.String("name", cmd.Name))
			return cmd, true
		}
	}
	return DesktopCommand{}, false
}

// commandExists checks if a binary exists in PATH
func commandExists(binary string) bool {
	_, err := exec.LookPath(binary)
	return err == nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	envPrefix     = "VELOFRAME"
	envConfigPath = "VELOFRAME_CONFIG"

	defaultOutputDir = "/tmp/veloframe"
)

// ReshufflePolicy controls when a random order is regenerated
type ReshufflePolicy string

const (
	// ReshuffleNever shuffles once at startup (and on rescan)
	ReshuffleNever ReshufflePolicy = "never"
	// ReshuffleOnWrap shuffles again every time the slideshow loops
	ReshuffleOnWrap ReshufflePolicy = "on_wrap"
)

// ClockPosition anchors the clock overlay on screen
type ClockPosition string

const (
	ClockTopLeft      ClockPosition = "top-left"
	ClockTopCenter    ClockPosition = "top-center"
	ClockTopRight     ClockPosition = "top-right"
	ClockBottomLeft   ClockPosition = "bottom-left"
	ClockBottomCenter ClockPosition = "bottom-center"
	ClockBottomRight  ClockPosition = "bottom-right"
)

// settings mirrors the YAML file layout
type settings struct {
	PhotosDirectory    string `mapstructure:"photos_directory"`
	Recursive          bool   `mapstructure:"recursive"`
	DisplayTime        string `mapstructure:"display_time"`
	TransitionTime     string `mapstructure:"transition_time"`
	TransitionFrames   int    `mapstructure:"transition_frames"`
	RandomOrder        bool   `mapstructure:"random_order"`
	Reshuffle          string `mapstructure:"reshuffle"`
	BlurZoomBackground bool   `mapstructure:"blur_zoom_background"`
	ShowMetadata       bool   `mapstructure:"show_metadata"`
	MetadataOpacity    int    `mapstructure:"metadata_opacity"`
	ShowClock          bool   `mapstructure:"show_clock"`
	ClockPosition      string `mapstructure:"clock_position"`
	ClockOpacity       int    `mapstructure:"clock_opacity"`
	ClockFormat        string `mapstructure:"clock_format"`
	OutputDir          string `mapstructure:"output_dir"`
	DisplayCommand     string `mapstructure:"display_command"`
	ScreenWidth        int    `mapstructure:"screen_width"`
	ScreenHeight       int    `mapstructure:"screen_height"`
	RescanInterval     string `mapstructure:"rescan_interval"`
	DBusControl        bool   `mapstructure:"dbus_control"`
	KeyboardControl    bool   `mapstructure:"keyboard_control"`
}

// AppConfig holds application configuration.
// It is built once at startup and handed to every component that needs it.
type AppConfig struct {
	photosDirectory    string
	recursive          bool
	displayTime        time.Duration
	transitionTime     time.Duration
	transitionFrames   int
	randomOrder        bool
	reshuffle          ReshufflePolicy
	blurZoomBackground bool
	showMetadata       bool
	metadataOpacity    int
	showClock          bool
	clockPosition      ClockPosition
	clockOpacity       int
	clockFormat        string
	outputDir          string
	displayCommand     string
	screenWidth        int
	screenHeight       int
	rescanInterval     time.Duration
	dbusControl        bool
	keyboardControl    bool
}

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()

	v.SetDefault("photos_directory", filepath.Join(home, "Pictures"))
	v.SetDefault("recursive", false)
	v.SetDefault("display_time", "10s")
	v.SetDefault("transition_time", "1s")
	v.SetDefault("transition_frames", 4)
	v.SetDefault("random_order", true)
	v.SetDefault("reshuffle", string(ReshuffleNever))
	v.SetDefault("blur_zoom_background", false)
	v.SetDefault("show_metadata", true)
	v.SetDefault("metadata_opacity", 70)
	v.SetDefault("show_clock", true)
	v.SetDefault("clock_position", string(ClockTopCenter))
	v.SetDefault("clock_opacity", 30)
	v.SetDefault("clock_format", "15:04")
	v.SetDefault("output_dir", defaultOutputDir)
	v.SetDefault("display_command", "")
	v.SetDefault("screen_width", 0)
	v.SetDefault("screen_height", 0)
	v.SetDefault("rescan_interval", "0s")
	v.SetDefault("dbus_control", true)
	v.SetDefault("keyboard_control", true)
}

// NewAppConfig loads configuration from the YAML file named by VELOFRAME_CONFIG
// (or ~/.config/veloframe/config.yaml) with VELOFRAME_* environment overrides.
func NewAppConfig(logger *zap.Logger) (*AppConfig, error) {
	cfg, err := Load(os.Getenv(envConfigPath))
	if err != nil {
		return nil, err
	}

	logger.Info("Configuration loaded",
		zap.String("photosDirectory", cfg.photosDirectory),
		zap.Bool("randomOrder", cfg.randomOrder),
		zap.String("reshuffle", string(cfg.reshuffle)),
		zap.Duration("displayTime", cfg.displayTime),
		zap.Duration("transitionTime", cfg.transitionTime),
		zap.String("outputDir", cfg.outputDir))

	return cfg, nil
}

// Load reads configuration from path, or from the default location when path is empty.
// A missing file is not an error; defaults apply.
func Load(path string) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		home, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(home, ".config", "veloframe"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(path != "" && os.IsNotExist(err)) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return fromSettings(s)
}

func fromSettings(s settings) (*AppConfig, error) {
	displayTime, err := ParseDuration(s.DisplayTime)
	if err != nil {
		return nil, fmt.Errorf("display_time: %w", err)
	}
	transitionTime, err := ParseDuration(s.TransitionTime)
	if err != nil {
		return nil, fmt.Errorf("transition_time: %w", err)
	}
	rescanInterval, err := ParseDuration(s.RescanInterval)
	if err != nil {
		return nil, fmt.Errorf("rescan_interval: %w", err)
	}

	cfg := &AppConfig{
		photosDirectory:    expandPath(s.PhotosDirectory),
		recursive:          s.Recursive,
		displayTime:        displayTime,
		transitionTime:     transitionTime,
		transitionFrames:   s.TransitionFrames,
		randomOrder:        s.RandomOrder,
		reshuffle:          ReshufflePolicy(s.Reshuffle),
		blurZoomBackground: s.BlurZoomBackground,
		showMetadata:       s.ShowMetadata,
		metadataOpacity:    s.MetadataOpacity,
		showClock:          s.ShowClock,
		clockPosition:      ClockPosition(s.ClockPosition),
		clockOpacity:       s.ClockOpacity,
		clockFormat:        ClockLayout(s.ClockFormat),
		outputDir:          expandPath(s.OutputDir),
		displayCommand:     s.DisplayCommand,
		screenWidth:        s.ScreenWidth,
		screenHeight:       s.ScreenHeight,
		rescanInterval:     rescanInterval,
		dbusControl:        s.DBusControl,
		keyboardControl:    s.KeyboardControl,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *AppConfig) Validate() error {
	if c.photosDirectory == "" {
		return fmt.Errorf("photos_directory cannot be empty")
	}
	if c.displayTime <= 0 {
		return fmt.Errorf("display_time must be positive")
	}
	if c.transitionTime < 0 {
		return fmt.Errorf("transition_time cannot be negative")
	}
	if c.transitionFrames < 0 {
		return fmt.Errorf("transition_frames cannot be negative")
	}
	switch c.reshuffle {
	case ReshuffleNever, ReshuffleOnWrap:
	default:
		return fmt.Errorf("reshuffle must be %q or %q, got %q", ReshuffleNever, ReshuffleOnWrap, c.reshuffle)
	}
	switch c.clockPosition {
	case ClockTopLeft, ClockTopCenter, ClockTopRight, ClockBottomLeft, ClockBottomCenter, ClockBottomRight:
	default:
		return fmt.Errorf("unknown clock_position %q", c.clockPosition)
	}
	if c.metadataOpacity < 0 || c.metadataOpacity > 100 {
		return fmt.Errorf("metadata_opacity must be between 0 and 100")
	}
	if c.clockOpacity < 0 || c.clockOpacity > 100 {
		return fmt.Errorf("clock_opacity must be between 0 and 100")
	}
	if c.screenWidth < 0 || c.screenHeight < 0 {
		return fmt.Errorf("screen size cannot be negative")
	}
	return nil
}

// expandPath expands environment variables and a leading ~
func expandPath(p string) string {
	p = os.ExpandEnv(p)
	if len(p) > 0 && p[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	return p
}

// GetPhotosDirectory returns the directory the slideshow reads photos from
func (c *AppConfig) GetPhotosDirectory() string { return c.photosDirectory }

// Recursive reports whether subdirectories are scanned too
func (c *AppConfig) Recursive() bool { return c.recursive }

// GetDisplayTime returns how long each slide stays on screen
func (c *AppConfig) GetDisplayTime() time.Duration { return c.displayTime }

// GetTransitionTime returns the cross-fade duration
func (c *AppConfig) GetTransitionTime() time.Duration { return c.transitionTime }

// GetTransitionFrames returns the number of intermediate cross-fade frames
func (c *AppConfig) GetTransitionFrames() int { return c.transitionFrames }

func (c *AppConfig) RandomOrder() bool { return c.randomOrder }
func (c *AppConfig) Reshuffle() ReshufflePolicy { return c.reshuffle }
func (c *AppConfig) BlurZoomBackground() bool { return c.blurZoomBackground }
func (c *AppConfig) ShowMetadata() bool { return c.showMetadata }
func (c *AppConfig) MetadataOpacity() int { return c.metadataOpacity }
func (c *AppConfig) ShowClock() bool { return c.showClock }
func (c *AppConfig) ClockPosition() ClockPosition { return c.clockPosition }
func (c *AppConfig) ClockOpacity() int { return c.clockOpacity }
func (c *AppConfig) ClockFormat() string { return c.clockFormat }
func (c *AppConfig) GetOutputDir() string { return c.outputDir }
func (c *AppConfig) DisplayCommand() string { return c.displayCommand }
func (c *AppConfig) ScreenSize() (int, int) { return c.screenWidth, c.screenHeight }
func (c *AppConfig) GetRescanInterval() time.Duration { return c.rescanInterval }
func (c *AppConfig) DBusControl() bool { return c.dbusControl }
func (c *AppConfig) KeyboardControl() bool { return c.keyboardControl }

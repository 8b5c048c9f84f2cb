package processor

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/disintegration/imaging"
	"github.com/genricoloni/veloframe/internal/config"
	"github.com/genricoloni/veloframe/internal/domain"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp" // WebP format support
)

const (
	defaultBlurRadius = 30.0
	defaultDateLayout = "02 January 2006"
)

// ProcessorConfig holds configuration for frame composition
type ProcessorConfig struct {
	BlurRadius      float64
	BlurBackground  bool
	ShowMetadata    bool
	MetadataOpacity int // 0-100
	DateLayout      string
	ShowClock       bool
	ClockFormat     string
	ClockPosition   config.ClockPosition
	ClockOpacity    int // 0-100
}

// Compositor renders laid-out frames: blurred zoom background, the photos and
// the date/clock overlays
type Compositor struct {
	logger *zap.Logger
	config ProcessorConfig
	now    func() time.Time
}

// NewCompositor creates a compositor from the application configuration
func NewCompositor(logger *zap.Logger, appCfg *config.AppConfig) *Compositor {
	return NewCompositorWithConfig(logger, ProcessorConfig{
		BlurRadius:      defaultBlurRadius,
		BlurBackground:  appCfg.BlurZoomBackground(),
		ShowMetadata:    appCfg.ShowMetadata(),
		MetadataOpacity: appCfg.MetadataOpacity(),
		DateLayout:      defaultDateLayout,
		ShowClock:       appCfg.ShowClock(),
		ClockFormat:     appCfg.ClockFormat(),
		ClockPosition:   appCfg.ClockPosition(),
		ClockOpacity:    appCfg.ClockOpacity(),
	})
}

// NewCompositorWithConfig creates a compositor with explicit settings
func NewCompositorWithConfig(logger *zap.Logger, cfg ProcessorConfig) *Compositor {
	if cfg.BlurRadius <= 0 {
		cfg.BlurRadius = defaultBlurRadius
	}
	if cfg.DateLayout == "" {
		cfg.DateLayout = defaultDateLayout
	}
	if cfg.ClockFormat == "" {
		cfg.ClockFormat = "15:04"
	}
	if cfg.ClockPosition == "" {
		cfg.ClockPosition = config.ClockTopCenter
	}
	return &Compositor{
		logger: logger,
		config: cfg,
		now:    time.Now,
	}
}

// Compose renders frame onto a screen-sized canvas
func (c *Compositor) Compose(ctx context.Context, frame domain.Frame) (image.Image, error) {
	if frame.Screen.Width <= 0 || frame.Screen.Height <= 0 {
		return nil, fmt.Errorf("invalid screen resolution: %dx%d", frame.Screen.Width, frame.Screen.Height)
	}
	if len(frame.Slots) == 0 {
		return nil, fmt.Errorf("frame has no photos")
	}

	// 1. Load every photo first so a broken file fails the slide before any drawing
	photos := make([]image.Image, len(frame.Slots))
	for i, slot := range frame.Slots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := imaging.Open(slot.Entry.Path, imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", slot.Entry.Path, err)
		}
		bounds := img.Bounds()
		if bounds.Dx() == 0 || bounds.Dy() == 0 {
			return nil, fmt.Errorf("invalid image dimensions in %s: %dx%d", slot.Entry.Path, bounds.Dx(), bounds.Dy())
		}
		photos[i] = img
	}

	canvas := imaging.New(frame.Screen.Width, frame.Screen.Height, color.Black)

	// 2. Blurred zoom background behind photos that leave bars
	if c.config.BlurBackground {
		for i, slot := range frame.Slots {
			if slot.Target.Size() == slot.Area.Size() || slot.Area.Empty() {
				continue
			}
			c.logger.Debug("Creating blurred background",
				zap.String("photo", slot.Entry.Name()),
				zap.Int("w", slot.Area.Dx()),
				zap.Int("h", slot.Area.Dy()))
			background := imaging.Fill(photos[i], slot.Area.Dx(), slot.Area.Dy(), imaging.Center, imaging.Lanczos)
			background = imaging.Blur(background, c.config.BlurRadius)
			canvas = imaging.Paste(canvas, background, slot.Area.Min)
		}
	}

	// 3. Sharp photos on top
	for i, slot := range frame.Slots {
		if slot.Target.Empty() {
			continue
		}
		fg := imaging.Resize(photos[i], slot.Target.Dx(), slot.Target.Dy(), imaging.Lanczos)
		canvas = imaging.Paste(canvas, fg, slot.Target.Min)
	}

	// 4. Overlays
	scale := overlayScale(frame.Screen)
	if c.config.ShowMetadata {
		for _, slot := range frame.Slots {
			canvas = c.drawDateLabel(canvas, slot, scale)
		}
	}
	if c.config.ShowClock {
		canvas = c.drawClock(canvas, frame.Screen, scale)
	}

	c.logger.Debug("Frame composed",
		zap.String("kind", string(frame.Kind)),
		zap.Int("photos", len(frame.Slots)))
	return canvas, nil
}

// Blend cross-fades two frames; alpha 0 returns from, 1 returns to
func (c *Compositor) Blend(from, to image.Image, alpha float64) image.Image {
	alpha = max(0, min(1, alpha))
	return imaging.Overlay(from, to, image.Pt(0, 0), alpha)
}

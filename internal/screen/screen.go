package screen

import (
	"github.com/genricoloni/veloframe/internal/config"
	"github.com/genricoloni/veloframe/internal/domain"
	"github.com/kbinani/screenshot"
	"go.uber.org/zap"
)

// Fallback is used when no display can be detected
var Fallback = domain.ScreenResolution{Width: 1920, Height: 1080}

// Display reports the bounds of the active displays
type Display interface {
	NumActiveDisplays() int
	DisplaySize(index int) (width, height int)
}

type screenshotDisplay struct{}

func (screenshotDisplay) NumActiveDisplays() int { return screenshot.NumActiveDisplays() }

func (screenshotDisplay) DisplaySize(index int) (int, int) {
	b := screenshot.GetDisplayBounds(index)
	return b.Dx(), b.Dy()
}

// NewScreenResolution returns the configured screen size, or detects the primary display
func NewScreenResolution(logger *zap.Logger, cfg *config.AppConfig) domain.ScreenResolution {
	w, h := cfg.ScreenSize()
	return Resolve(logger, screenshotDisplay{}, w, h)
}

// Resolve picks the frame size: explicit width/height win, then display 0, then Fallback
func Resolve(logger *zap.Logger, display Display, width, height int) domain.ScreenResolution {
	if width > 0 && height > 0 {
		logger.Info("Using configured screen size",
			zap.Int("width", width),
			zap.Int("height", height))
		return domain.ScreenResolution{Width: width, Height: height}
	}

	if display.NumActiveDisplays() <= 0 {
		logger.Warn("No active displays detected, falling back to 1920x1080")
		return Fallback
	}

	// Use primary monitor (index 0)
	w, h := display.DisplaySize(0)
	if w <= 0 || h <= 0 {
		logger.Warn("Primary display reports no size, falling back to 1920x1080")
		return Fallback
	}

	res := domain.ScreenResolution{Width: w, Height: h}
	logger.Info("Screen resolution detected",
		zap.Int("width", res.Width),
		zap.Int("height", res.Height))
	return res
}

// Package layout maps a slide selection onto display slots.
package layout

import (
	"image"

	"github.com/genricoloni/veloframe/internal/domain"
	"go.uber.org/zap"
)

// PairGap is the horizontal gap in pixels between the two photos of a pair
const PairGap = 10

// PreparationManager positions the photos of a selection on the screen
type PreparationManager struct {
	logger *zap.Logger
}

// NewPreparationManager creates a layout manager
func NewPreparationManager(logger *zap.Logger) *PreparationManager {
	return &PreparationManager{logger: logger}
}

// Prepare lays out sel on a screen of the given resolution.
// A single photo is fitted to the whole screen and centered. The photos of a
// pair are each fitted to half the screen minus the gap, placed side by side
// with PairGap pixels between them, and the group is centered.
func (m *PreparationManager) Prepare(sel domain.Selection, screen domain.ScreenResolution) domain.Frame {
	frame := domain.Frame{Kind: sel.Kind(), Screen: screen}

	if !sel.IsPair() {
		e := sel.First()
		w, h := FitSize(e.Width, e.Height, screen.Width, screen.Height)
		frame.Slots = []domain.Slot{{
			Entry:     e,
			Area:      screen.Bounds(),
			Target:    centered(screen.Bounds(), w, h),
			LabelSide: domain.LabelLeft,
		}}
		return frame
	}

	entries := sel.Entries()
	maxWidth := screen.Width/2 - PairGap
	w1, h1 := FitSize(entries[0].Width, entries[0].Height, maxWidth, screen.Height)
	w2, h2 := FitSize(entries[1].Width, entries[1].Height, maxWidth, screen.Height)

	startX := (screen.Width - (w1 + PairGap + w2)) / 2
	x1 := startX
	x2 := startX + w1 + PairGap
	y1 := (screen.Height - h1) / 2
	y2 := (screen.Height - h2) / 2

	half := screen.Width / 2
	frame.Slots = []domain.Slot{
		{
			Entry:     entries[0],
			Area:      image.Rect(0, 0, half, screen.Height),
			Target:    image.Rect(x1, y1, x1+w1, y1+h1),
			LabelSide: domain.LabelLeft,
		},
		{
			Entry:     entries[1],
			Area:      image.Rect(half, 0, screen.Width, screen.Height),
			Target:    image.Rect(x2, y2, x2+w2, y2+h2),
			LabelSide: domain.LabelRight,
		},
	}

	m.logger.Debug("Prepared photo pair",
		zap.String("left", entries[0].Name()),
		zap.String("right", entries[1].Name()),
		zap.Int("startX", startX))

	return frame
}

// FitSize scales (width, height) to fit within (maxWidth, maxHeight) keeping the aspect ratio
func FitSize(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 || maxWidth <= 0 || maxHeight <= 0 {
		return 0, 0
	}
	scale := min(float64(maxWidth)/float64(width), float64(maxHeight)/float64(height))
	return int(float64(width) * scale), int(float64(height) * scale)
}

// centered places a w×h rectangle in the middle of area
func centered(area image.Rectangle, w, h int) image.Rectangle {
	x := area.Min.X + (area.Dx()-w)/2
	y := area.Min.Y + (area.Dy()-h)/2
	return image.Rect(x, y, x+w, y+h)
}

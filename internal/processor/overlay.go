package processor

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/genricoloni/veloframe/internal/config"
	"github.com/genricoloni/veloframe/internal/domain"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	labelPadding = 2  // unscaled pixels around the text
	clockMargin  = 20 // screen pixels between the clock and the screen edge
)

// overlayScale picks an integer upscaling for the 7x13 bitmap font so text
// stays readable on large screens
func overlayScale(screen domain.ScreenResolution) int {
	return max(1, screen.Height/360)
}

// textBox renders text in white on a black box with the given opacity (0-100),
// enlarged by scale with nearest-neighbour sampling to keep glyph edges crisp
func textBox(text string, opacity, scale int) *image.NRGBA {
	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, text).Ceil()
	metrics := face.Metrics()

	w := textWidth + 2*labelPadding
	h := metrics.Height.Ceil() + 2*labelPadding

	alpha := uint8(opacity * 255 / 100)
	box := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(box, box.Bounds(), image.NewUniform(color.NRGBA{A: alpha}), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  box,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(labelPadding, labelPadding+metrics.Ascent.Ceil()),
	}
	d.DrawString(text)

	if scale <= 1 {
		return box
	}
	return imaging.Resize(box, w*scale, h*scale, imaging.NearestNeighbor)
}

// drawDateLabel puts the capture date at the bottom corner of the slot's photo
func (c *Compositor) drawDateLabel(canvas *image.NRGBA, slot domain.Slot, scale int) *image.NRGBA {
	if slot.Target.Empty() {
		return canvas
	}
	label := slot.Entry.DisplayDate().Format(c.config.DateLayout)
	box := textBox(label, c.config.MetadataOpacity, scale)

	x := slot.Target.Min.X
	if slot.LabelSide == domain.LabelRight {
		x = slot.Target.Max.X - box.Bounds().Dx()
	}
	y := slot.Target.Max.Y - box.Bounds().Dy()

	return imaging.Overlay(canvas, box, image.Pt(x, y), 1.0)
}

// drawClock puts the current time at the configured screen position
func (c *Compositor) drawClock(canvas *image.NRGBA, screen domain.ScreenResolution, scale int) *image.NRGBA {
	text := c.now().Format(c.config.ClockFormat)
	box := textBox(text, c.config.ClockOpacity, scale)
	return imaging.Overlay(canvas, box, clockPoint(c.config.ClockPosition, screen, box.Bounds().Size()), 1.0)
}

// clockPoint returns the top-left corner of a box of the given size at pos
func clockPoint(pos config.ClockPosition, screen domain.ScreenResolution, size image.Point) image.Point {
	var x, y int

	switch pos {
	case config.ClockTopLeft, config.ClockBottomLeft:
		x = clockMargin
	case config.ClockTopRight, config.ClockBottomRight:
		x = screen.Width - size.X - clockMargin
	default:
		x = (screen.Width - size.X) / 2
	}

	switch pos {
	case config.ClockBottomLeft, config.ClockBottomCenter, config.ClockBottomRight:
		y = screen.Height - size.Y - clockMargin
	default:
		y = clockMargin
	}

	return image.Pt(x, y)
}

package domain

import (
	"context"
	"image"
	"time"
)

// Navigator walks the photo collection one slide at a time.
// Implementations are not safe for concurrent use; the engine owns the cursor.
type Navigator interface {
	// Current returns the slide under the cursor
	Current() Selection

	// Advance moves past the current slide and returns the next one
	Advance() Selection

	// Retreat undoes the most recent Advance and returns the previous slide
	Retreat() Selection

	// Replace swaps in a freshly scanned collection, keeping the current photo if possible
	Replace(entries []PhotoEntry) error

	// Len returns the number of photos in the collection
	Len() int
}

// Scanner discovers photos in a directory
type Scanner interface {
	// Scan returns the supported photos of dir in deterministic order.
	// It fails with ErrEmptyCollection when nothing usable is found.
	Scan(ctx context.Context, dir string) ([]PhotoEntry, error)
}

// Preparer lays out a selection on the screen
type Preparer interface {
	Prepare(sel Selection, screen ScreenResolution) Frame
}

// Composer turns a laid-out frame into pixels
type Composer interface {
	// Compose renders the frame, including background and overlays
	Compose(ctx context.Context, frame Frame) (image.Image, error)

	// Blend cross-fades two rendered frames; alpha 0 is from, 1 is to
	Blend(from, to image.Image, alpha float64) image.Image
}

// FrameWriter persists rendered frames so a presenter can pick them up
type FrameWriter interface {
	// Write encodes img and returns the absolute path of the written file
	Write(img image.Image) (string, error)
}

// Presenter puts a rendered frame on screen
type Presenter interface {
	// Present displays the image at imagePath
	Present(ctx context.Context, imagePath string) error

	// Current retrieves the path of what is displayed right now.
	// Returns an error if the operation is not supported or fails
	Current(ctx context.Context) (string, error)
}

// Controller produces slideshow commands from an input source
type Controller interface {
	// Start begins reading input. It blocks until ctx is cancelled or input ends.
	Start(ctx context.Context) error

	// Stop gracefully stops the controller
	Stop(ctx context.Context) error

	// Commands returns a read-only channel of user commands
	Commands() <-chan Command
}

// Config defines the slideshow settings consumed by the engine and renderers
type Config interface {
	GetPhotosDirectory() string
	GetDisplayTime() time.Duration
	GetTransitionTime() time.Duration
	GetTransitionFrames() int
	GetRescanInterval() time.Duration
	GetOutputDir() string
	ShowClock() bool
}

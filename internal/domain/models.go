package domain

import (
	"image"
	"path/filepath"
	"time"
)

// Metadata holds optional photo metadata read from EXIF
type Metadata struct {
	// CaptureDate is the EXIF DateTimeOriginal, valid only when HasCaptureDate is set
	CaptureDate    time.Time
	HasCaptureDate bool
}

// PhotoEntry is a discovered image file. It is immutable once discovered.
type PhotoEntry struct {
	// Path is the absolute path to the image file
	Path string
	// Width and Height are the display dimensions (EXIF rotation applied)
	Width  int
	Height int
	// ModTime is the file modification time, used when no capture date exists
	ModTime  time.Time
	Metadata Metadata
}

// IsPortrait reports whether the photo is taller than it is wide
func (e PhotoEntry) IsPortrait() bool {
	return e.Height > e.Width
}

// Name returns the base file name of the photo
func (e PhotoEntry) Name() string {
	return filepath.Base(e.Path)
}

// DisplayDate returns the capture date, falling back to the modification time
func (e PhotoEntry) DisplayDate() time.Time {
	if e.Metadata.HasCaptureDate {
		return e.Metadata.CaptureDate
	}
	return e.ModTime
}

// SelectionKind tags the variant of a Selection
type SelectionKind string

const (
	// KindSingle is one photo shown full screen
	KindSingle SelectionKind = "single"
	// KindPair is two consecutive portrait photos shown side by side
	KindPair SelectionKind = "pair"
)

// Selection is what the navigator hands to the renderer: a Single or a Pair.
// The zero value is not a valid selection.
type Selection struct {
	kind    SelectionKind
	entries [2]PhotoEntry
}

// Single builds a one-photo selection
func Single(e PhotoEntry) Selection {
	return Selection{kind: KindSingle, entries: [2]PhotoEntry{e}}
}

// Pair builds a side-by-side selection of two photos
func Pair(a, b PhotoEntry) Selection {
	return Selection{kind: KindPair, entries: [2]PhotoEntry{a, b}}
}

// Kind returns the selection variant
func (s Selection) Kind() SelectionKind {
	return s.kind
}

// IsPair reports whether the selection holds two photos
func (s Selection) IsPair() bool {
	return s.kind == KindPair
}

// Len returns the number of photos consumed by the selection
func (s Selection) Len() int {
	if s.kind == KindPair {
		return 2
	}
	return 1
}

// Entries returns the photos of the selection in display order (left to right)
func (s Selection) Entries() []PhotoEntry {
	return s.entries[:s.Len()]
}

// First returns the leftmost photo
func (s Selection) First() PhotoEntry {
	return s.entries[0]
}

// Paths returns the file paths of the selection, in display order
func (s Selection) Paths() []string {
	entries := s.Entries()
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	return paths
}

// Equal compares two selections by variant and entry identity (path)
func (s Selection) Equal(o Selection) bool {
	if s.kind != o.kind {
		return false
	}
	for i := 0; i < s.Len(); i++ {
		if s.entries[i].Path != o.entries[i].Path {
			return false
		}
	}
	return true
}

// ScreenResolution holds the display dimensions
type ScreenResolution struct {
	Width  int
	Height int
}

// Bounds returns the screen as an image rectangle anchored at the origin
func (r ScreenResolution) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.Width, r.Height)
}

// Slot places one photo on the display surface
type Slot struct {
	Entry PhotoEntry
	// Area is the region the slot owns (whole screen for a single, one half for a pair)
	Area image.Rectangle
	// Target is where the scaled photo is drawn, aspect ratio preserved and centered
	Target image.Rectangle
	// LabelSide is where the capture date label is anchored inside Target
	LabelSide LabelSide
}

// LabelSide selects the bottom corner of a photo used for its date label
type LabelSide string

const (
	LabelLeft  LabelSide = "left"
	LabelRight LabelSide = "right"
)

// Frame is a laid-out selection ready for composition
type Frame struct {
	Kind   SelectionKind
	Screen ScreenResolution
	Slots  []Slot
}

// Command is a user or control request for the slideshow
type Command string

const (
	CmdNext              Command = "next"
	CmdPrevious          Command = "previous"
	CmdNextImmediate     Command = "next-immediate"
	CmdPreviousImmediate Command = "previous-immediate"
	CmdTogglePause       Command = "toggle-pause"
	CmdRescan            Command = "rescan"
	CmdQuit              Command = "quit"
)

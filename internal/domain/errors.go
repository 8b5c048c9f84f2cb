package domain

import "errors"

var (
	// ErrEmptyCollection is returned when the photos directory yields no supported images
	ErrEmptyCollection = errors.New("no supported images found")

	// ErrNoPresenter is returned when no way to put a frame on screen was found
	ErrNoPresenter = errors.New("no supported display command found on this system")
)

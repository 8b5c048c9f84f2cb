package photoset

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF format support
	_ "image/jpeg" // JPEG format support
	_ "image/png"  // PNG format support
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/genricoloni/veloframe/internal/domain"
	"github.com/rwcarlsen/goexif/exif"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"  // BMP format support
	_ "golang.org/x/image/tiff" // TIFF format support
	_ "golang.org/x/image/webp" // WebP format support
)

// SupportedExt lists the lower-case extensions the scanner picks up
var SupportedExt = mapset.NewSet(
	".jpg", ".jpeg", ".png", ".bmp", ".gif", ".tif", ".tiff", ".webp",
)

// IsSupported reports whether the file name has a supported image extension
func IsSupported(name string) bool {
	return SupportedExt.Contains(strings.ToLower(filepath.Ext(name)))
}

// ScanResult is the outcome of a directory scan
type ScanResult struct {
	Entries []domain.PhotoEntry
	// Warnings combines the per-file failures that excluded a file (see multierr.Errors)
	Warnings error
}

// DirScanner discovers photos on the local filesystem
type DirScanner struct {
	logger    *zap.Logger
	recursive bool
}

// NewDirScanner creates a scanner. With recursive set, subdirectories are walked too.
func NewDirScanner(logger *zap.Logger, recursive bool) *DirScanner {
	return &DirScanner{
		logger:    logger,
		recursive: recursive,
	}
}

// Scan satisfies domain.Scanner; per-file warnings are logged and dropped
func (s *DirScanner) Scan(ctx context.Context, dir string) ([]domain.PhotoEntry, error) {
	res, err := s.ScanDetailed(ctx, dir)
	if err != nil {
		return nil, err
	}
	return res.Entries, nil
}

// ScanDetailed returns every readable supported photo in dir, ordered by path.
// Unreadable files are skipped and reported through ScanResult.Warnings.
func (s *DirScanner) ScanDetailed(ctx context.Context, dir string) (*ScanResult, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve photos directory: %w", err)
	}

	paths, err := s.listFiles(absDir)
	if err != nil {
		s.logger.Warn("Photos directory is not readable",
			zap.String("dir", absDir),
			zap.Error(err))
		return nil, fmt.Errorf("%w in %s: %w", domain.ErrEmptyCollection, absDir, err)
	}
	sort.Strings(paths)

	res := &ScanResult{Entries: make([]domain.PhotoEntry, 0, len(paths))}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry, err := ReadEntry(path)
		if err != nil {
			s.logger.Warn("Skipping unreadable photo",
				zap.String("path", path),
				zap.Error(err))
			res.Warnings = multierr.Append(res.Warnings, err)
			continue
		}
		res.Entries = append(res.Entries, entry)
	}

	if len(res.Entries) == 0 {
		return nil, fmt.Errorf("%w in %s", domain.ErrEmptyCollection, absDir)
	}

	portraits := 0
	for _, e := range res.Entries {
		if e.IsPortrait() {
			portraits++
		}
	}
	s.logger.Info("Photo scan complete",
		zap.String("dir", absDir),
		zap.Int("photos", len(res.Entries)),
		zap.Int("portraits", portraits),
		zap.Int("skipped", len(multierr.Errors(res.Warnings))))

	return res, nil
}

// listFiles collects supported image paths, flat or recursive
func (s *DirScanner) listFiles(dir string) ([]string, error) {
	var paths []string

	if !s.recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || !IsSupported(e.Name()) {
				continue
			}
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
		return paths, nil
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			s.logger.Debug("Skipping unreadable path", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() && IsSupported(d.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

// ReadEntry reads dimensions and metadata of one photo without decoding its pixels
func ReadEntry(path string) (domain.PhotoEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.PhotoEntry{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return domain.PhotoEntry{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return domain.PhotoEntry{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return domain.PhotoEntry{}, fmt.Errorf("invalid image dimensions in %s: %dx%d", path, cfg.Width, cfg.Height)
	}

	entry := domain.PhotoEntry{
		Path:    path,
		Width:   cfg.Width,
		Height:  cfg.Height,
		ModTime: info.ModTime(),
	}

	// EXIF is optional; a photo without it keeps its raw orientation and no capture date
	if _, err := f.Seek(0, io.SeekStart); err == nil {
		if x, err := exif.Decode(f); err == nil {
			applyExif(&entry, x)
		}
	}

	return entry, nil
}

// applyExif copies capture date and orientation from decoded EXIF data
func applyExif(entry *domain.PhotoEntry, x *exif.Exif) {
	if taken, err := x.DateTime(); err == nil && !taken.IsZero() {
		entry.Metadata = domain.Metadata{CaptureDate: taken, HasCaptureDate: true}
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return
	}
	if swapsAxes(orientation) {
		entry.Width, entry.Height = entry.Height, entry.Width
	}
}

// swapsAxes reports whether an EXIF orientation rotates the image by 90 or 270 degrees
func swapsAxes(orientation int) bool {
	return orientation >= 5 && orientation <= 8
}

// IsEmpty reports whether err means the directory had nothing to show
func IsEmpty(err error) bool {
	return errors.Is(err, domain.ErrEmptyCollection)
}

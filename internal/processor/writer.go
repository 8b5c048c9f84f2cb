package processor

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/genricoloni/veloframe/internal/domain"
	"go.uber.org/zap"
)

const (
	frameQuality = 90
	// some presenters cache by path, so frames alternate between two names
	frameSlots = 2
)

// FileWriter encodes frames to JPEG files in the output directory
type FileWriter struct {
	logger *zap.Logger
	appCfg domain.Config
	next   int
}

// NewFileWriter creates a writer that stores frames in appCfg's output directory
func NewFileWriter(logger *zap.Logger, appCfg domain.Config) *FileWriter {
	return &FileWriter{
		logger: logger,
		appCfg: appCfg,
	}
}

// Write encodes img and returns the absolute path of the written file
func (w *FileWriter) Write(img image.Image) (string, error) {
	// 1. Encode result to JPEG (in-memory buffer)
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: frameQuality}); err != nil {
		return "", fmt.Errorf("failed to encode frame: %w", err)
	}

	// 2. Ensure output directory exists
	outputDir := w.appCfg.GetOutputDir()
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	// 3. Write to a temporary file and rename, so a reader never sees half a frame
	outputPath := filepath.Join(outputDir, fmt.Sprintf("frame-%d.jpg", w.next))
	w.next = (w.next + 1) % frameSlots

	tmp := outputPath + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write frame file: %w", err)
	}
	if err := os.Rename(tmp, outputPath); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to move frame file into place: %w", err)
	}

	w.logger.Debug("Frame written",
		zap.String("path", outputPath),
		zap.Int("size", buf.Len()))

	absPath, err := filepath.Abs(outputPath)
	if err != nil {
		return outputPath, nil // Return relative path if abs fails
	}
	return absPath, nil
}

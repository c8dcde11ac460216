package qrscan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"time"

	"go.uber.org/zap"
)

// FrameSource yields camera frames. Frame returns a nil image when no
// frame is ready yet.
type FrameSource interface {
	Frame(ctx context.Context) (image.Image, error)
}

// Scanner polls a FrameSource until a QR code is decoded
type Scanner struct {
	source   FrameSource
	interval time.Duration
	logger   *zap.Logger
}

// NewScanner creates a scanner polling source every interval
func NewScanner(source FrameSource, interval time.Duration, logger *zap.Logger) *Scanner {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{source: source, interval: interval, logger: logger}
}

// Scan blocks until a frame decodes, the source fails or ctx is done.
// No frames are requested after the first successful decode.
func (s *Scanner) Scan(ctx context.Context) (string, error) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		attempts++
		frame, err := s.source.Frame(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to read frame: %w", err)
		}
		if frame == nil {
			continue
		}

		text, err := Decode(frame)
		if err != nil {
			if !errors.Is(err, ErrNoQRCode) {
				s.logger.Debug("Frame decode failed", zap.Int("attempt", attempts), zap.Error(err))
			}
			continue
		}

		s.logger.Info("QR code decoded", zap.Int("attempts", attempts))
		return text, nil
	}
}

// FileSource serves the image at Path as every frame. A missing file
// yields no frame so a snapshot can be dropped in while scanning.
type FileSource struct {
	Path string
}

func (f FileSource) Frame(ctx context.Context) (image.Image, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer fh.Close()

	img, _, err := image.Decode(fh)
	if err != nil {
		// partially written file
		return nil, nil
	}
	return img, nil
}

// services/thumbnail_service.go
package services

import (
	"bytes"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	// Registered codecs for thumbnail decoding
	_ "image/gif"
	_ "image/png"

	"omnidrive/config"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"github.com/sirupsen/logrus"
)

const thumbnailMaxDim = 300

// ThumbnailService renders fixed-size previews at a predictable
// location keyed by file id. It is invoked asynchronously by the upload
// pipeline; its failures are logged, never surfaced, and consumers must
// tolerate a missing thumbnail.
type ThumbnailService struct {
	cfg    *config.Config
	logger *logrus.Logger
}

func NewThumbnailService(cfg *config.Config, logger *logrus.Logger) *ThumbnailService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ThumbnailService{cfg: cfg, logger: logger}
}

// Path returns the expected thumbnail location for a file id.
func (ts *ThumbnailService) Path(fileID uuid.UUID) string {
	return ts.cfg.ThumbnailPath(fileID.String())
}

// Generate decodes content, scales it down and writes the JPEG
// rendering. Safe to call from a goroutine; never returns an error to
// the upload path.
func (ts *ThumbnailService) Generate(fileID uuid.UUID, content []byte) {
	img, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		ts.logger.WithError(err).WithField("file_id", fileID).Warn("thumbnail decode failed")
		return
	}

	thumb := resize.Thumbnail(thumbnailMaxDim, thumbnailMaxDim, img, resize.Lanczos3)

	path := ts.Path(fileID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		ts.logger.WithError(err).WithField("file_id", fileID).Warn("thumbnail directory creation failed")
		return
	}

	out, err := os.Create(path)
	if err != nil {
		ts.logger.WithError(err).WithField("file_id", fileID).Warn("thumbnail write failed")
		return
	}
	defer out.Close()

	if err := jpeg.Encode(out, thumb, &jpeg.Options{Quality: 85}); err != nil {
		ts.logger.WithError(err).WithField("file_id", fileID).Warn("thumbnail encode failed")
	}
}

// Remove deletes a thumbnail if present.
func (ts *ThumbnailService) Remove(fileID uuid.UUID) {
	err := os.Remove(ts.Path(fileID))
	if err != nil && !os.IsNotExist(err) {
		ts.logger.WithError(err).WithField("file_id", fileID).Warn("thumbnail removal failed")
	}
}

package storage

import (
	"bytes"
	"context"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/crafto/internal/gateway"
	"github.com/timmy/crafto/internal/logger"
	"github.com/timmy/crafto/internal/media"
)

// MediaHost puts quote images into object storage and hands back their public URL.
type MediaHost struct {
	store  ObjectStorage
	prefix string
}

// NewMediaHost creates a MediaHost writing objects under prefix.
func NewMediaHost(store ObjectStorage, prefix string) *MediaHost {
	return &MediaHost{store: store, prefix: strings.Trim(prefix, "/")}
}

// objectKey builds prefix/yyyy/mm/<uuid><ext>.
func (h *MediaHost) objectKey(file *media.File, now time.Time) string {
	name := uuid.NewString() + file.Ext()
	return path.Join(h.prefix, now.Format("2006/01"), name)
}

// UploadMedia stores the file and returns its URL. Failures are reported as
// *gateway.UploadError so callers see one error type whichever host is configured.
func (h *MediaHost) UploadMedia(ctx context.Context, file *media.File) (string, error) {
	if file == nil || len(file.Data) == 0 {
		return "", &gateway.UploadError{Cause: gateway.UploadInvalid, Message: "no file to upload", Err: media.ErrNoSelection}
	}

	start := time.Now()
	key := h.objectKey(file, start.UTC())
	if err := h.store.Upload(ctx, key, bytes.NewReader(file.Data), file.Size(), file.ContentType); err != nil {
		return "", &gateway.UploadError{Cause: gateway.UploadTransport, Message: "Failed to upload file", Err: err}
	}

	logger.With(logger.Fields{"key": key, logger.FieldSize: file.Size()}).
		WithDuration(start).
		Info(ctx, "Media stored")
	return h.store.GetURL(key), nil
}

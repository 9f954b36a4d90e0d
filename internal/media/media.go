// Package media validates user-selected images and renders upload previews.
package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultMaxBytes caps a single upload when no explicit limit is configured.
	DefaultMaxBytes = 10 << 20
	// DefaultMaxPixels caps width*height of an image when no explicit limit is configured.
	DefaultMaxPixels = 25_000_000

	previewMaxSide = 320
)

var (
	ErrEmptyFile   = errors.New("media: file is empty")
	ErrTooLarge      = errors.New("media: file too large")
	ErrTooManyPixels = errors.New("media: image dimensions too large")
	ErrNotAnImage    = errors.New("media: file is not a supported image")
	ErrNoSelection   = errors.New("media: no file selected")
)

// Limits bound a selected image. Zero fields use the package defaults.
type Limits struct {
	MaxBytes  int64
	MaxPixels int64
}

func (l Limits) normalized() Limits {
	if l.MaxBytes <= 0 {
		l.MaxBytes = DefaultMaxBytes
	}
	if l.MaxPixels <= 0 {
		l.MaxPixels = DefaultMaxPixels
	}
	return l
}

// File is an image picked by the user, held in memory until it is uploaded.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Info describes a decoded image header.
type Info struct {
	Format string
	Width  int
	Height int
}

// Read loads at most maxBytes from r. A body larger than maxBytes yields ErrTooLarge.
func Read(name string, r io.Reader, maxBytes int64) (*File, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("media: read %s: %w", name, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w (max %d bytes)", ErrTooLarge, maxBytes)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	return &File{
		Name:        filepath.Base(name),
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}

// Size returns the file length in bytes.
func (f *File) Size() int64 {
	if f == nil {
		return 0
	}
	return int64(len(f.Data))
}

// Ext returns the extension matching the decoded format, falling back to the name.
func (f *File) Ext() string {
	if info, err := f.Inspect(); err == nil {
		switch info.Format {
		case "jpeg":
			return ".jpg"
		default:
			return "." + info.Format
		}
	}
	return strings.ToLower(filepath.Ext(f.Name))
}

// Inspect decodes the image header. Anything that is not png, jpeg, gif, webp or
// bmp is rejected with ErrNotAnImage.
func (f *File) Inspect() (Info, error) {
	if f == nil || len(f.Data) == 0 {
		return Info{}, ErrEmptyFile
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(f.Data))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}
	return Info{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// Validate checks the file is a decodable image within limits. Dimensions come
// from the image header, so nothing is decoded in full here.
func (f *File) Validate(limits Limits) error {
	if f == nil {
		return ErrNoSelection
	}
	limits = limits.normalized()
	if f.Size() > limits.MaxBytes {
		return fmt.Errorf("%w (max %d bytes)", ErrTooLarge, limits.MaxBytes)
	}
	info, err := f.Inspect()
	if err != nil {
		return err
	}
	if pixels := int64(info.Width) * int64(info.Height); pixels > limits.MaxPixels {
		return fmt.Errorf("%w (%dx%d, max %d pixels)", ErrTooManyPixels, info.Width, info.Height, limits.MaxPixels)
	}
	return nil
}

// Preview scales the image to fit a 320px box and returns it as a JPEG data URI.
// It decodes the whole image; call Validate first.
func (f *File) Preview() (string, error) {
	if f == nil {
		return "", ErrNoSelection
	}
	src, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}

	w, h := fitWithin(src.Bounds().Dx(), src.Bounds().Dy(), previewMaxSide)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 80}); err != nil {
		return "", fmt.Errorf("media: encode preview: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// fitWithin scales (w, h) down so the longer side is at most limit.
func fitWithin(w, h, limit int) (int, int) {
	if w <= 0 || h <= 0 {
		return 1, 1
	}
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}

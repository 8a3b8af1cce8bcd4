// Package imaging normalises uploaded product photos.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"

	"github.com/erazemk/blagajna/internal/apperrors"
)

// Defaults for product photos.
const (
	MaxDimension   = 800
	JPEGQuality    = 82
	MaxUploadBytes = 8 << 20
)

var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Options controls how Process normalises an image. Zero fields use the
// package defaults.
type Options struct {
	MaxDimension int
	Quality      int
	MaxBytes     int64
}

func (o Options) withDefaults() Options {
	if o.MaxDimension <= 0 {
		o.MaxDimension = MaxDimension
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = JPEGQuality
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = MaxUploadBytes
	}
	return o
}

// Process sniffs the upload (the client's Content-Type is ignored), fits it
// within the maximum dimension and re-encodes it as JPEG. Rejected uploads
// return an error wrapping apperrors.ErrValidation.
func Process(r io.Reader, opts Options) (data []byte, mime string, err error) {
	opts = opts.withDefaults()

	raw, err := io.ReadAll(io.LimitReader(r, opts.MaxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading image data: %w", err)
	}
	if int64(len(raw)) > opts.MaxBytes {
		return nil, "", fmt.Errorf("image larger than %d bytes: %w", opts.MaxBytes, apperrors.ErrValidation)
	}

	detected := http.DetectContentType(raw)
	if !allowedMIME[detected] {
		return nil, "", fmt.Errorf("unsupported image format %s, only JPEG and PNG are accepted: %w",
			detected, apperrors.ErrValidation)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("decoding image: %v: %w", err, apperrors.ErrValidation)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, fit(img, opts.MaxDimension), &jpeg.Options{Quality: opts.Quality}); err != nil {
		return nil, "", fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

// fit scales img down with Catmull-Rom so neither side exceeds limit, keeping
// the aspect ratio. Smaller images are returned unchanged.
func fit(img image.Image, limit int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= limit && h <= limit {
		return img
	}

	nw, nh := limit, limit
	if w > h {
		nh = max(1, h*limit/w)
	} else {
		nw = max(1, w*limit/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

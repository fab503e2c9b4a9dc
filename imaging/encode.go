// ABOUTME: Image capture pipeline: sniff, decode, down-scale, and re-encode uploads as JPEG data URIs.
// ABOUTME: Scaling preserves aspect ratio, never enlarges, and flattens transparency onto white.

package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxWidth = 800
	DefaultQuality  = 80
	DefaultMaxBytes = 20 << 20
	// DefaultMaxPixels bounds the decoded bitmap, which a small compressed
	// file can inflate far beyond MaxBytes.
	DefaultMaxPixels = 40_000_000

	outputType = "image/jpeg"
)

// supportedTypes lists the sniffed MIME types the pipeline can decode.
var supportedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// Options bounds the encoded payload. Zero values fall back to defaults.
type Options struct {
	MaxWidth  int   `yaml:"max_width"`
	Quality   int   `yaml:"quality"`
	MaxBytes  int64 `yaml:"max_bytes"`
	MaxPixels int64 `yaml:"max_pixels"`
}

// Image is an encoded, embeddable image payload.
type Image struct {
	DataURI     string
	ContentType string
	SourceType  string
	Width       int
	Height      int
	Scaled      bool
	Bytes       int
}

// Encoder re-encodes uploaded images into bounded data URIs.
type Encoder struct {
	opts Options
}

// NewEncoder returns an Encoder using opts, filling unset fields with defaults.
func NewEncoder(opts Options) *Encoder {
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = DefaultMaxWidth
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultQuality
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = DefaultMaxPixels
	}
	return &Encoder{opts: opts}
}

// Options returns the effective options.
func (e *Encoder) Options() Options {
	return e.opts
}

// Encode reads one image from r and returns it as a JPEG data URI, scaled
// down to the configured maximum width.
func (e *Encoder) Encode(ctx context.Context, r io.Reader) (Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, e.opts.MaxBytes+1))
	if err != nil {
		return Image{}, &ReadError{Err: err}
	}
	if len(data) == 0 {
		return Image{}, ErrEmpty
	}
	if int64(len(data)) > e.opts.MaxBytes {
		return Image{}, &TooLargeError{Limit: e.opts.MaxBytes}
	}
	if err := ctx.Err(); err != nil {
		return Image{}, err
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), supportedTypes...) {
		return Image{}, &UnsupportedTypeError{Type: mt.String()}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, &DecodeError{Type: mt.String(), Err: err}
	}
	if int64(cfg.Width)*int64(cfg.Height) > e.opts.MaxPixels {
		return Image{}, &TooLargeError{Width: cfg.Width, Height: cfg.Height, MaxPixels: e.opts.MaxPixels}
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, &DecodeError{Type: mt.String(), Err: err}
	}
	if err := ctx.Err(); err != nil {
		return Image{}, err
	}

	dst, scaled := e.Downscale(src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: e.opts.Quality}); err != nil {
		return Image{}, &EncodeError{Err: err}
	}

	b := dst.Bounds()
	return Image{
		DataURI:     DataURI(outputType, buf.Bytes()),
		ContentType: outputType,
		SourceType:  mt.String(),
		Width:       b.Dx(),
		Height:      b.Dy(),
		Scaled:      scaled,
		Bytes:       buf.Len(),
	}, nil
}

// Downscale renders src onto an opaque white canvas no wider than the
// configured maximum width. The second result reports whether it was resized.
func (e *Encoder) Downscale(src image.Image) (*image.RGBA, bool) {
	sb := src.Bounds()
	w, h := ScaledSize(sb.Dx(), sb.Dy(), e.opts.MaxWidth)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	if w == sb.Dx() && h == sb.Dy() {
		draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Over)
		return dst, false
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Over, nil)
	return dst, true
}

// ScaledSize returns width and height bounded by maxWidth with the aspect
// ratio preserved. Images already within bounds are returned unchanged.
func ScaledSize(width, height, maxWidth int) (int, int) {
	if maxWidth <= 0 || width <= maxWidth || width <= 0 {
		return width, height
	}
	h := (height*maxWidth + width/2) / width
	if h < 1 {
		h = 1
	}
	return maxWidth, h
}

// DataURI encodes data as a base64 data URI of the given content type.
func DataURI(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// Result is a compressed image ready for storage.
type Result struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// Compressor shrinks uploaded images to a byte budget while preserving the
// original MIME type. Anything already within budget and bounds passes
// through untouched.
type Compressor struct {
	maxDimension int
	targetBytes  int64
}

// NewCompressor constructs a Compressor.
func NewCompressor(maxDimension int, targetBytes int64) *Compressor {
	if maxDimension <= 0 {
		maxDimension = 1920
	}
	if targetBytes <= 0 {
		targetBytes = 1024 * 1024
	}
	return &Compressor{maxDimension: maxDimension, targetBytes: targetBytes}
}

// Compress decodes, bounds and re-encodes the image. mime must be
// "image/jpeg" or "image/png".
func (c *Compressor) Compress(data []byte, mime string) (*Result, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	if int64(len(data)) <= c.targetBytes && bounds.Dx() <= c.maxDimension && bounds.Dy() <= c.maxDimension {
		return &Result{Data: data, MIME: mime, Width: bounds.Dx(), Height: bounds.Dy()}, nil
	}

	if bounds.Dx() > c.maxDimension || bounds.Dy() > c.maxDimension {
		src = imaging.Fit(src, c.maxDimension, c.maxDimension, imaging.Lanczos)
	}

	switch mime {
	case "image/jpeg":
		return c.encodeJPEG(src, mime)
	case "image/png":
		return c.encodePNG(src, mime)
	default:
		return nil, fmt.Errorf("unsupported mime type %q", mime)
	}
}

func (c *Compressor) encodeJPEG(src image.Image, mime string) (*Result, error) {
	// Step quality down until the budget is met; below 25 the artifacts
	// outweigh any further savings.
	for quality := 85; quality >= 25; quality -= 10 {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, src, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		if int64(buf.Len()) <= c.targetBytes || quality == 25 {
			b := src.Bounds()
			return &Result{Data: buf.Bytes(), MIME: mime, Width: b.Dx(), Height: b.Dy()}, nil
		}
	}
	return nil, fmt.Errorf("encode jpeg: budget unreachable")
}

func (c *Compressor) encodePNG(src image.Image, mime string) (*Result, error) {
	// PNG has no quality dial, so shrink dimensions until the budget is
	// met, flooring at a quarter of the allowed dimension.
	dim := c.maxDimension
	floor := c.maxDimension / 4
	for {
		var buf bytes.Buffer
		encoder := png.Encoder{CompressionLevel: png.BestCompression}
		if err := encoder.Encode(&buf, src); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
		if int64(buf.Len()) <= c.targetBytes || dim <= floor {
			b := src.Bounds()
			return &Result{Data: buf.Bytes(), MIME: mime, Width: b.Dx(), Height: b.Dy()}, nil
		}
		dim = dim * 3 / 4
		src = imaging.Fit(src, dim, dim, imaging.Lanczos)
	}
}

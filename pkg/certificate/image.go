package certificate

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// JPEGQuality matches the quality the certificate PDF is assembled with.
const JPEGQuality = 95

// NormalizeJPEG decodes a captured bitmap, flattens transparency onto white
// and re-encodes it as JPEG.
func NormalizeJPEG(raw []byte) ([]byte, image.Point, error) {
	src, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, image.Point{}, fmt.Errorf("decode certificate bitmap: %w", err)
	}
	bounds := src.Bounds()
	canvas := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	canvas = imaging.Overlay(canvas, src, image.Pt(0, 0), 1.0)

	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, canvas, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, image.Point{}, fmt.Errorf("encode certificate jpeg: %w", err)
	}
	return buf.Bytes(), image.Pt(bounds.Dx(), bounds.Dy()), nil
}

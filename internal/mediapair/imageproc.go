package mediapair

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

const (
	contrastFactor = 1.08
	jpegQuality    = 92
)

// enhanceStill upscales the image to at least minHeight and applies a mild
// contrast lift. The file is rewritten in place; videos never pass through
// here.
func enhanceStill(path string, minHeight int) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	src, format, err := image.Decode(file)
	file.Close()
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	if minHeight > 0 && bounds.Dy() < minHeight {
		scale := float64(minHeight) / float64(bounds.Dy())
		width := int(float64(bounds.Dx()) * scale)
		scaled := image.NewRGBA(image.Rect(0, 0, width, minHeight))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, bounds, draw.Over, nil)
		src = scaled
		bounds = scaled.Bounds()
	}

	enhanced := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := src.At(x, y).RGBA()
			enhanced.SetRGBA(x, y, color.RGBA{
				R: liftChannel(r),
				G: liftChannel(g),
				B: liftChannel(b),
				A: uint8(a >> 8),
			})
		}
	}

	tmpPath := path + ".enhanced"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create enhanced image: %w", err)
	}
	switch {
	case format == "png" || strings.EqualFold(filepath.Ext(path), ".png"):
		err = png.Encode(out, enhanced)
	default:
		err = jpeg.Encode(out, enhanced, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		out.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode enhanced image: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close enhanced image: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace image: %w", err)
	}
	return nil
}

// liftChannel applies contrast around the midpoint on a 16-bit channel and
// returns the clamped 8-bit value.
func liftChannel(channel uint32) uint8 {
	value := float64(channel>>8)/255.0 - 0.5
	value = value*contrastFactor + 0.5
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	return uint8(value * 255)
}

package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

// Icon dimensions for system tray.
const iconSize = 22

// Pre-generated PNG icons for different connection states.
var (
	iconDisconnectedPNG []byte
	iconConnectingPNG   []byte
	iconConnectedPNG    []byte
)

func init() {
	iconDisconnectedPNG = generateShieldIcon(color.RGBA{128, 128, 128, 255}) // Gray
	iconConnectingPNG = generateShieldIcon(color.RGBA{255, 140, 0, 255})     // Orange
	iconConnectedPNG = generateShieldIcon(color.RGBA{76, 175, 80, 255})      // Green
}

// generateShieldIcon draws a simple shield in the given color: a flat
// top tapering to a point, with a darker check mark in the middle.
func generateShieldIcon(c color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))

	top := 3
	bottom := 20
	left := 4
	right := 17
	taperStart := 12

	for y := top; y <= bottom; y++ {
		lo, hi := left, right
		if y > taperStart {
			// Narrow both sides toward the bottom point.
			inset := (y - taperStart) * (right - left) / (2 * (bottom - taperStart))
			lo += inset
			hi -= inset
		}
		for x := lo; x <= hi; x++ {
			img.Set(x, y, c)
		}
	}

	// Check mark: short down-stroke meeting a longer up-stroke.
	mark := color.RGBA{40, 40, 40, 255}
	for i := 0; i < 3; i++ {
		img.Set(7+i, 10+i, mark)
		img.Set(7+i, 11+i, mark)
	}
	for i := 0; i < 5; i++ {
		img.Set(10+i, 12-i, mark)
		img.Set(10+i, 13-i, mark)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

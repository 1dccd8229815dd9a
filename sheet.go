package apng

import (
	"image"
	"image/draw"
)

// DefaultSheetMaxWidth bounds the sprite sheet's width when SpriteSheet is
// given a non-positive maximum.
const DefaultSheetMaxWidth = 6000

// SpriteSheet renders every frame, fully composed, into a horizontal strip
// wrapped at maxWidth pixels. Cells are laid out row-major at full canvas
// size; a row wraps as soon as the next x position reaches the sheet width.
func (a *Animation) SpriteSheet(maxWidth int) *image.NRGBA {
	if maxWidth <= 0 {
		maxWidth = DefaultSheetMaxWidth
	}
	n := len(a.Frames)
	w, h := a.Width, a.Height

	var sheetW, sheetH int
	if w*n <= maxWidth {
		sheetW, sheetH = w*n, h
	} else {
		cols := maxWidth / w
		if cols < 1 {
			cols = 1
		}
		sheetW = cols * w
		sheetH = (n + cols - 1) / cols * h
	}

	out := image.NewNRGBA(image.Rect(0, 0, sheetW, sheetH))
	player := NewPlayer(a, nil)
	x, y := 0, 0
	for i := 0; i < n; i++ {
		player.SetFrame(i)
		draw.Draw(out, image.Rect(x, y, x+w, y+h), player.Canvas().NRGBA(), image.Point{}, draw.Src)
		x += w
		if x >= sheetW {
			x, y = 0, y+h
		}
	}
	return out
}

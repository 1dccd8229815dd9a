package apng

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Canvas is the 2-D surface the compositor renders onto. The library ships
// the in-memory Surface; a host can supply its own implementation through
// PlayerOptions.NewCanvas as long as NRGBA exposes the backing pixels.
type Canvas interface {
	Bounds() image.Rectangle

	// Clear resets the whole surface to fully transparent.
	Clear()

	// ClearRect resets r to fully transparent.
	ClearRect(r image.Rectangle)

	// Draw blits img with its top-left corner at. With over true the image
	// is alpha-composited; otherwise it replaces the destination pixels.
	Draw(img image.Image, at image.Point, over bool)

	// CopyRegion copies the pixels of region r from src into the same
	// coordinates here, replacing the destination.
	CopyRegion(src Canvas, r image.Rectangle)

	// Blit alpha-composites all of src over this surface at the origin.
	Blit(src Canvas)

	// StrokeRect draws a one-pixel border just inside r.
	StrokeRect(r image.Rectangle, c color.Color)

	// FillText draws s with the baseline starting at. A nil face falls
	// back to basicfont.Face7x13.
	FillText(s string, at image.Point, face font.Face, c color.Color)

	// NRGBA returns the backing pixels.
	NRGBA() *image.NRGBA
}

// Surface is the default Canvas, backed by an image.NRGBA.
type Surface struct {
	img *image.NRGBA
}

func NewSurface(w, h int) *Surface {
	return &Surface{img: image.NewNRGBA(image.Rect(0, 0, w, h))}
}

func (s *Surface) Bounds() image.Rectangle { return s.img.Bounds() }

func (s *Surface) NRGBA() *image.NRGBA { return s.img }

func (s *Surface) Clear() {
	for i := range s.img.Pix {
		s.img.Pix[i] = 0
	}
}

func (s *Surface) ClearRect(r image.Rectangle) {
	draw.Draw(s.img, r.Intersect(s.img.Bounds()), image.Transparent, image.Point{}, draw.Src)
}

func (s *Surface) Draw(img image.Image, at image.Point, over bool) {
	op := draw.Src
	if over {
		op = draw.Over
	}
	r := image.Rectangle{Min: at, Max: at.Add(img.Bounds().Size())}
	draw.Draw(s.img, r.Intersect(s.img.Bounds()), img, img.Bounds().Min, op)
}

func (s *Surface) CopyRegion(src Canvas, r image.Rectangle) {
	draw.Draw(s.img, r.Intersect(s.img.Bounds()), src.NRGBA(), r.Min, draw.Src)
}

func (s *Surface) Blit(src Canvas) {
	draw.Draw(s.img, s.img.Bounds(), src.NRGBA(), image.Point{}, draw.Over)
}

func (s *Surface) StrokeRect(r image.Rectangle, c color.Color) {
	r = r.Intersect(s.img.Bounds())
	if r.Empty() {
		return
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		s.img.Set(x, r.Min.Y, c)
		s.img.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		s.img.Set(r.Min.X, y, c)
		s.img.Set(r.Max.X-1, y, c)
	}
}

func (s *Surface) FillText(str string, at image.Point, face font.Face, c color.Color) {
	if face == nil {
		face = basicfont.Face7x13
	}
	d := font.Drawer{
		Dst:  s.img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(at.X, at.Y),
	}
	d.DrawString(str)
}

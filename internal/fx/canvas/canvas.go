// Package canvas is a small raster surface for the frame simulators.
// Shapes are rasterized with golang.org/x/image/vector and composited onto an RGBA image.
package canvas

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// Blend selects how a shape is composited onto the canvas.
type Blend int

const (
	// Over is normal source-over compositing.
	Over Blend = iota
	// Screen lightens: each channel becomes s + d - s*d.
	Screen
)

// kappa places cubic control points for a quarter-circle arc.
const kappa = 0.5522847498

// Canvas is a resizable RGBA surface. It is not safe for concurrent use.
type Canvas struct {
	img  *image.RGBA
	z    *vector.Rasterizer
	mask *image.Alpha
}

// New creates a transparent canvas of w x h pixels.
func New(w, h int) *Canvas {
	c := &Canvas{z: vector.NewRasterizer(1, 1)}
	c.Resize(w, h)
	return c
}

// Resize replaces the backing image with a cleared one of the new size.
func (c *Canvas) Resize(w, h int) {
	c.img = image.NewRGBA(image.Rect(0, 0, max(w, 0), max(h, 0)))
}

// Width returns the canvas width in pixels.
func (c *Canvas) Width() int { return c.img.Rect.Dx() }

// Height returns the canvas height in pixels.
func (c *Canvas) Height() int { return c.img.Rect.Dy() }

// Image returns the backing image. It is overwritten by later drawing.
func (c *Canvas) Image() *image.RGBA { return c.img }

// Clone copies the current pixels.
func (c *Canvas) Clone() *image.RGBA {
	out := image.NewRGBA(c.img.Rect)
	copy(out.Pix, c.img.Pix)
	return out
}

// Clear makes every pixel transparent.
func (c *Canvas) Clear() {
	draw.Draw(c.img, c.img.Rect, image.Transparent, image.Point{}, draw.Src)
}

// FillRect fills the axis-aligned rectangle at (x, y) of size w x h.
func (c *Canvas) FillRect(x, y, w, h float64, col color.NRGBA, mode Blend) {
	r, ok := c.clip(x, y, x+w, y+h)
	if !ok {
		return
	}
	ox, oy := float32(r.Min.X), float32(r.Min.Y)
	c.z.MoveTo(float32(x)-ox, float32(y)-oy)
	c.z.LineTo(float32(x+w)-ox, float32(y)-oy)
	c.z.LineTo(float32(x+w)-ox, float32(y+h)-oy)
	c.z.LineTo(float32(x)-ox, float32(y+h)-oy)
	c.z.ClosePath()
	c.composite(r, col, mode)
}

// FillCircle fills a circle centered at (cx, cy).
func (c *Canvas) FillCircle(cx, cy, radius float64, col color.NRGBA, mode Blend) {
	if radius <= 0 {
		return
	}
	r, ok := c.clip(cx-radius, cy-radius, cx+radius, cy+radius)
	if !ok {
		return
	}
	x := float32(cx) - float32(r.Min.X)
	y := float32(cy) - float32(r.Min.Y)
	rad := float32(radius)
	k := rad * kappa

	c.z.MoveTo(x+rad, y)
	c.z.CubeTo(x+rad, y+k, x+k, y+rad, x, y+rad)
	c.z.CubeTo(x-k, y+rad, x-rad, y+k, x-rad, y)
	c.z.CubeTo(x-rad, y-k, x-k, y-rad, x, y-rad)
	c.z.CubeTo(x+k, y-rad, x+rad, y-k, x+rad, y)
	c.z.ClosePath()
	c.composite(r, col, mode)
}

// clip returns the pixel rectangle covering the bounds, intersected with the
// canvas, and resets the rasterizer to it.
func (c *Canvas) clip(x0, y0, x1, y1 float64) (image.Rectangle, bool) {
	r := image.Rect(
		int(math.Floor(x0)), int(math.Floor(y0)),
		int(math.Ceil(x1)), int(math.Ceil(y1)),
	).Intersect(c.img.Rect)
	if r.Empty() {
		return r, false
	}
	c.z.Reset(r.Dx(), r.Dy())
	return r, true
}

func (c *Canvas) composite(r image.Rectangle, col color.NRGBA, mode Blend) {
	bounds := image.Rect(0, 0, r.Dx(), r.Dy())
	c.mask = image.NewAlpha(bounds)
	c.z.Draw(c.mask, bounds, image.Opaque, image.Point{})

	switch mode {
	case Screen:
		c.screen(r, col)
	default:
		draw.DrawMask(c.img, r, image.NewUniform(col), image.Point{}, c.mask, image.Point{}, draw.Over)
	}
}

// screen composites col through the mask with the screen operator on
// premultiplied channels.
func (c *Canvas) screen(r image.Rectangle, col color.NRGBA) {
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			cov := uint32(c.mask.AlphaAt(x, y).A)
			if cov == 0 {
				continue
			}
			a := uint32(col.A) * cov / 255
			src := [4]uint32{
				uint32(col.R) * a / 255,
				uint32(col.G) * a / 255,
				uint32(col.B) * a / 255,
				a,
			}
			i := c.img.PixOffset(r.Min.X+x, r.Min.Y+y)
			for ch := range 4 {
				d := uint32(c.img.Pix[i+ch])
				c.img.Pix[i+ch] = uint8(src[ch] + d - src[ch]*d/255)
			}
		}
	}
}

// EncodePNG writes the current frame as PNG.
func (c *Canvas) EncodePNG(w io.Writer) error {
	return png.Encode(w, c.img)
}

// WithAlpha scales col's alpha by a in [0, 1].
func WithAlpha(col color.NRGBA, a float64) color.NRGBA {
	a = math.Max(0, math.Min(1, a))
	col.A = uint8(math.Round(float64(col.A) * a))
	return col
}

// ParseHex parses "#RRGGBB" or "#RGB" into an opaque color.
func ParseHex(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// Package field simulates the ambient pixel lattice that ripples around the pointer.
package field

import (
	"fmt"
	"image/color"
	"math"

	"github.com/quicksafe/quicksafe-server/internal/fx/canvas"
)

// Variant is the shape drawn at each lattice point.
type Variant string

const (
	Square Variant = "square"
	Circle Variant = "circle"
)

const (
	minGap      = 10.0
	baseGap     = 30.0
	rippleReach = 200.0
	glowReach   = 250.0
	wobble      = 3.0
)

// OffscreenPointer is where the pointer sits before any input.
const OffscreenPointer = -2000

// Config is fixed for the life of a Field.
type Config struct {
	Variant              Variant
	PixelSize            float64
	Color                string
	PatternScale         float64
	PatternDensity       float64
	EnableRipples        bool
	RippleSpeed          float64
	RippleThickness      float64
	RippleIntensityScale float64
	Speed                float64
	Transparent          bool
	EdgeFade             float64
}

// DefaultConfig returns the stock field settings.
func DefaultConfig() Config {
	return Config{
		Variant:              Square,
		PixelSize:            4,
		Color:                "#B19EEF",
		PatternScale:         2,
		PatternDensity:       1,
		EnableRipples:        true,
		RippleSpeed:          0.3,
		RippleThickness:      0.1,
		RippleIntensityScale: 1,
		Speed:                0.5,
		Transparent:          true,
		EdgeFade:             0.25,
	}
}

// Point is one displaced lattice point ready to draw.
type Point struct {
	X, Y  float64
	Alpha float64
}

// Field is the lattice simulation. It is not safe for concurrent use.
type Field struct {
	cfg      Config
	color    color.NRGBA
	time     float64
	pointerX float64
	pointerY float64
	width    int
	height   int
}

// New creates a field with the pointer off screen.
func New(cfg Config, width, height int) (*Field, error) {
	switch cfg.Variant {
	case Square, Circle:
	case "":
		cfg.Variant = Square
	default:
		return nil, fmt.Errorf("unknown variant %q", cfg.Variant)
	}
	col, err := canvas.ParseHex(cfg.Color)
	if err != nil {
		return nil, err
	}
	return &Field{
		cfg:      cfg,
		color:    col,
		pointerX: OffscreenPointer,
		pointerY: OffscreenPointer,
		width:    width,
		height:   height,
	}, nil
}

// Pointer moves the pointer. Mouse and touch input both land here.
func (f *Field) Pointer(x, y float64) {
	f.pointerX, f.pointerY = x, y
}

// Touch applies the first touch point; an empty touch list is ignored.
func (f *Field) Touch(points [][2]float64) {
	if len(points) == 0 {
		return
	}
	f.Pointer(points[0][0], points[0][1])
}

// Resize sets the viewport size used by the next frame.
func (f *Field) Resize(w, h int) {
	f.width, f.height = w, h
}

// Time returns the animation clock.
func (f *Field) Time() float64 {
	return f.time
}

// Step advances the animation clock by one frame.
func (f *Field) Step() {
	f.time += 0.05 * f.cfg.Speed
}

// Gap returns the lattice spacing.
func (f *Field) Gap() float64 {
	density := f.cfg.PatternDensity
	if density == 0 {
		density = 1
	}
	return math.Max(minGap, baseGap/density)
}

// Grid returns the lattice dimensions for the current viewport.
func (f *Field) Grid() (cols, rows int) {
	gap := f.Gap()
	cols = int(math.Ceil(float64(f.width)/gap)) + 1
	rows = int(math.Ceil(float64(f.height)/gap)) + 1
	return cols, rows
}

// Points computes every displaced lattice point for the current frame,
// column by column.
func (f *Field) Points() []Point {
	cols, rows := f.Grid()
	gap := f.Gap()
	out := make([]Point, 0, cols*rows)
	for i := range cols {
		for j := range rows {
			out = append(out, f.point(float64(i)*gap, float64(j)*gap))
		}
	}
	return out
}

func (f *Field) point(x, y float64) Point {
	cfg := f.cfg
	dx := f.pointerX - x
	dy := f.pointerY - y
	distSq := dx*dx + dy*dy
	dist := math.Sqrt(distSq)

	fx, fy := x, y
	if cfg.EnableRipples {
		influence := math.Exp(-distSq/(rippleReach*rippleReach)) * 30 * cfg.RippleIntensityScale
		force := influence * math.Sin(dist*cfg.RippleThickness-f.time*cfg.RippleSpeed*5)
		fx += dx / (dist + 0.1) * force
		fy += dy / (dist + 0.1) * force
	}

	noise := math.Sin(x*0.005*cfg.PatternScale+f.time*0.2) *
		math.Cos(y*0.005*cfg.PatternScale+f.time*0.2)
	fx += noise * wobble
	fy += noise * wobble

	alpha := 1.0
	if cfg.Transparent {
		alpha = 0.35
	}
	if cfg.EdgeFade > 0 {
		cx, cy := float64(f.width)/2, float64(f.height)/2
		fade := 0.0
		if maxR := math.Max(cx, cy); maxR > 0 {
			fade = math.Max(0, 1-math.Hypot(fx-cx, fy-cy)/maxR)
		}
		alpha *= math.Pow(fade, cfg.EdgeFade*4)
	}

	if cfg.EnableRipples {
		alpha += math.Exp(-distSq/(glowReach*glowReach)) * 0.5
	}

	return Point{X: fx, Y: fy, Alpha: math.Min(1, alpha)}
}

// Draw clears c and paints the current frame.
func (f *Field) Draw(c *canvas.Canvas) {
	c.Clear()
	size := f.cfg.PixelSize
	for _, p := range f.Points() {
		col := canvas.WithAlpha(f.color, p.Alpha)
		if f.cfg.Variant == Circle {
			c.FillCircle(p.X, p.Y, size/2, col, canvas.Over)
			continue
		}
		c.FillRect(p.X-size/2, p.Y-size/2, size, size, col, canvas.Over)
	}
}

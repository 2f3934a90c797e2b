// Package trail simulates the fading particle trail that follows the pointer.
package trail

import (
	"image/color"
	"math/rand/v2"

	"github.com/quicksafe/quicksafe-server/internal/fx/canvas"
)

const (
	// PerMove is how many particles one pointer move spawns.
	PerMove = 2
	// Shrink is the per-step size multiplier.
	Shrink = 0.96
	// MinSize is the size at or below which a particle is dropped.
	MinSize = 0.5
)

// Colors alternate across the particles spawned by one move.
var Colors = [PerMove]color.NRGBA{
	{R: 99, G: 102, B: 241, A: 102},
	{R: 168, G: 85, B: 247, A: 102},
}

// Particle is one trail dot. Size is its radius in pixels.
type Particle struct {
	X, Y   float64
	VX, VY float64
	Size   float64
	Alpha  float64
	Decay  float64
	Color  color.NRGBA
}

// Trail owns the live particles. It is not safe for concurrent use; run it
// from a single loop goroutine.
type Trail struct {
	particles []Particle
	rng       *rand.Rand
	width     int
	height    int
}

// New creates an empty trail. A nil rng uses a randomly seeded source.
func New(rng *rand.Rand) *Trail {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Trail{rng: rng}
}

// Pointer spawns particles at (x, y); it is the pointer-move handler.
func (t *Trail) Pointer(x, y float64) {
	for i := range PerMove {
		t.particles = append(t.particles, Particle{
			X:     x,
			Y:     y,
			Size:  t.rng.Float64()*8 + 4,
			VX:    (t.rng.Float64() - 0.5) * 2,
			VY:    (t.rng.Float64() - 0.5) * 2,
			Alpha: 1,
			Decay: t.rng.Float64()*0.02 + 0.01,
			Color: Colors[i%len(Colors)],
		})
	}
}

// Step advances every particle once and drops the spent ones.
func (t *Trail) Step() {
	live := t.particles[:0]
	for _, p := range t.particles {
		p.X += p.VX
		p.Y += p.VY
		p.Alpha -= p.Decay
		p.Size *= Shrink
		if p.Alpha <= 0 || p.Size <= MinSize {
			continue
		}
		live = append(live, p)
	}
	clear(t.particles[len(live):])
	t.particles = live
}

// Draw clears c and paints the live particles.
func (t *Trail) Draw(c *canvas.Canvas) {
	c.Clear()
	for _, p := range t.particles {
		c.FillCircle(p.X, p.Y, p.Size, canvas.WithAlpha(p.Color, p.Alpha), canvas.Screen)
	}
}

// Resize records the viewport size.
func (t *Trail) Resize(w, h int) {
	t.width, t.height = w, h
}

// Size returns the last viewport size.
func (t *Trail) Size() (w, h int) {
	return t.width, t.height
}

// Len returns the number of live particles.
func (t *Trail) Len() int {
	return len(t.particles)
}

// Particles returns a copy of the live particles.
func (t *Trail) Particles() []Particle {
	return append([]Particle(nil), t.particles...)
}

// Package loop drives a frame scene on its own goroutine, the server-side
// stand-in for a per-frame animation callback that runs while mounted.
package loop

import (
	"context"
	"errors"
	"image"
	"slices"
	"sync"
	"time"

	"github.com/quicksafe/quicksafe-server/internal/fx/canvas"
)

// DefaultInterval is roughly one display frame.
const DefaultInterval = time.Second / 60

const inputBuffer = 64

// ErrStarted is returned when Start is called on a running or stopped loop.
var ErrStarted = errors.New("loop already started")

// Scene is a frame simulation. Its methods are only ever called from one goroutine.
type Scene interface {
	Step()
	Draw(c *canvas.Canvas)
	Pointer(x, y float64)
	Resize(w, h int)
}

// Toucher is implemented by scenes that take multi-point touch input.
type Toucher interface {
	Touch(points [][2]float64)
}

type input func(Scene)

// Loop owns a scene and renders it on a ticker.
type Loop struct {
	scene    Scene
	canvas   *canvas.Canvas
	width    int
	height   int
	interval time.Duration
	inputs   chan input

	mu     sync.RWMutex
	frame  *image.RGBA
	frames uint64

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// Option configures a Loop.
type Option func(*Loop)

// WithInterval sets the frame period.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// New creates a stopped loop rendering scene onto a w x h canvas.
func New(scene Scene, w, h int, opts ...Option) *Loop {
	scene.Resize(w, h)
	l := &Loop{
		scene:    scene,
		canvas:   canvas.New(w, h),
		width:    w,
		height:   h,
		interval: DefaultInterval,
		inputs:   make(chan input, inputBuffer),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start mounts the loop. It runs until ctx is done or Stop is called.
func (l *Loop) Start(ctx context.Context) error {
	err := ErrStarted
	l.startOnce.Do(func() {
		ctx, l.cancel = context.WithCancel(ctx)
		go l.run(ctx)
		err = nil
	})
	return err
}

// Stop unmounts the loop and waits for its goroutine to exit.
// Stopping a loop that was never started is a no-op.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		l.startOnce.Do(func() { close(l.done) })
		if l.cancel != nil {
			l.cancel()
		}
	})
	<-l.done
}

// Size returns the frame size in pixels.
func (l *Loop) Size() (w, h int) {
	return l.width, l.height
}

// Pointer queues a pointer move for the next frame. Moves arriving faster
// than frames are rendered are dropped once the queue is full.
func (l *Loop) Pointer(x, y float64) {
	l.enqueue(func(s Scene) { s.Pointer(x, y) })
}

// Touch queues a touch update for the next frame. Scenes without touch
// support get the first point as a pointer move; an empty list is ignored.
func (l *Loop) Touch(points [][2]float64) {
	if len(points) == 0 {
		return
	}
	pts := slices.Clone(points)
	l.enqueue(func(s Scene) {
		if t, ok := s.(Toucher); ok {
			t.Touch(pts)
			return
		}
		s.Pointer(pts[0][0], pts[0][1])
	})
}

func (l *Loop) enqueue(in input) {
	select {
	case l.inputs <- in:
	default:
	}
}

// Snapshot returns a copy of the latest frame and its sequence number.
// Before the first frame it returns nil and 0.
func (l *Loop) Snapshot() (*image.RGBA, uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.frame == nil {
		return nil, 0
	}
	out := image.NewRGBA(l.frame.Rect)
	copy(out.Pix, l.frame.Pix)
	return out, l.frames
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tick()
		}
	}
}

func (l *Loop) tick() {
	for drained := false; !drained; {
		select {
		case in := <-l.inputs:
			in(l.scene)
		default:
			drained = true
		}
	}

	l.scene.Step()
	l.scene.Draw(l.canvas)
	frame := l.canvas.Clone()

	l.mu.Lock()
	l.frame = frame
	l.frames++
	l.mu.Unlock()
}

// Render runs a scene offline on the calling goroutine and returns the last
// frame. Before step i the pointer is moved to path[i] when there is one.
// At least max(frames, len(path), 1) steps are taken.
func Render(scene Scene, w, h int, path [][2]float64, frames int) *image.RGBA {
	scene.Resize(w, h)
	c := canvas.New(w, h)
	for i := range max(frames, len(path), 1) {
		if i < len(path) {
			scene.Pointer(path[i][0], path[i][1])
		}
		scene.Step()
	}
	scene.Draw(c)
	return c.Image()
}

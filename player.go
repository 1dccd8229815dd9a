package apng

import (
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"golang.org/x/image/font"
)

// Mode selects the order frames are sequenced for playback.
type Mode uint8

const (
	ModeForward Mode = iota
	ModeBackward
	ModePingPong
)

func (m Mode) String() string {
	switch m {
	case ModeForward:
		return "forward"
	case ModeBackward:
		return "backward"
	case ModePingPong:
		return "pingpong"
	}
	return "unknown"
}

// vsyncInterval approximates one display refresh at 60 Hz. Delays within
// [16, 17] ms, or every delay when VSync is set, snap to it.
const vsyncInterval = time.Second / 60

// PlayerOptions configures a Player. Pass nil to NewPlayer for the
// defaults; a non-nil struct must set Iterations explicitly (0 loops
// forever, negative inherits the acTL count).
type PlayerOptions struct {
	// Iterations overrides the animation's declared loop count when
	// positive. 0 loops forever; negative inherits from the source.
	Iterations int

	// IgnoreIterations loops forever regardless of Iterations.
	IgnoreIterations bool

	// VSync snaps every frame delay to the display refresh interval.
	VSync bool

	Mode Mode

	// NewCanvas supplies the two composition surfaces. Defaults to
	// NewSurface.
	NewCanvas func(w, h int) Canvas

	// Debug strokes each frame's region and prints its index and
	// dispose/blend operators on the canvas.
	Debug            bool
	DebugRegionColor color.Color
	DebugTextColor   color.Color
	DebugTextPos     image.Point
	DebugFont        font.Face

	// Callback slots. All fire after the canvas reflects the rendered frame,
	// on the caller's goroutine for seeks, Stop and the first frame of Play,
	// and on the player's scheduling goroutine otherwise.
	OnFrame     func(index int)
	OnIteration func(loops int)
	OnEnded     func()
	OnStop      func()
}

// Player composites an Animation's frames onto a canvas and steps through
// them by index, time, or wall-clock playback. All exported methods are safe
// for concurrent use; rendering is strictly sequential per player.
type Player struct {
	mu   sync.Mutex
	anim *Animation
	opts PlayerOptions

	canvas         Canvas
	restore        Canvas
	restorePending bool

	seq    []*Frame
	mode   Mode
	cursor int
	loops  int

	iterations       int
	ignoreIterations bool

	running bool
	commit  bool
	timer   *time.Timer
	gen     uint64

	startTime   time.Time
	currentTime float64
}

// NewPlayer builds a player for anim. A nil opts inherits the animation's
// iteration count and plays forward.
func NewPlayer(anim *Animation, opts *PlayerOptions) *Player {
	o := PlayerOptions{Iterations: -1}
	if opts != nil {
		o = *opts
	}
	if o.NewCanvas == nil {
		o.NewCanvas = func(w, h int) Canvas { return NewSurface(w, h) }
	}
	if o.DebugRegionColor == nil {
		o.DebugRegionColor = color.RGBA{R: 0xff, A: 0xff}
	}
	if o.DebugTextColor == nil {
		o.DebugTextColor = color.RGBA{G: 0xff, A: 0xff}
	}
	if o.DebugTextPos == (image.Point{}) {
		o.DebugTextPos = image.Point{X: 4, Y: 14}
	}

	p := &Player{
		anim:   anim,
		opts:   o,
		canvas: o.NewCanvas(anim.Width, anim.Height),
		commit: true,
	}
	p.restore = o.NewCanvas(anim.Width, anim.Height)

	it := o.Iterations
	ign := o.IgnoreIterations
	if it < 0 {
		it = anim.Iterations
		if !anim.IsAPNG {
			// A plain PNG renders once and ends.
			it = 0
			ign = false
		} else if it == 0 {
			ign = true
		}
	} else if it == 0 {
		ign = true
	}
	p.iterations = it
	p.ignoreIterations = ign

	p.mode = o.Mode
	p.seq = buildSequence(anim.Frames, o.Mode)
	return p
}

// buildSequence orders frames for the given mode. Pingpong appends the
// reversed sequence to the original, so its length is twice the frame count.
func buildSequence(frames []*Frame, m Mode) []*Frame {
	seq := make([]*Frame, 0, 2*len(frames))
	switch m {
	case ModeBackward:
		for i := len(frames) - 1; i >= 0; i-- {
			seq = append(seq, frames[i])
		}
	case ModePingPong:
		seq = append(seq, frames...)
		for i := len(frames) - 1; i >= 0; i-- {
			seq = append(seq, frames[i])
		}
	default:
		seq = append(seq, frames...)
	}
	return seq
}

// SetMode rebuilds the playback sequence. The cursor is kept when still in
// range and reset to 0 otherwise.
func (p *Player) SetMode(m Mode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = m
	p.seq = buildSequence(p.anim.Frames, m)
	if p.cursor >= len(p.seq) {
		p.cursor = 0
	}
}

func (p *Player) Mode() Mode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// Canvas returns the composition surface. It is owned by the player and
// mutated on every render; snapshot it before handing pixels elsewhere.
func (p *Player) Canvas() Canvas { return p.canvas }

func (p *Player) CurrentFrame() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// CurrentTime returns the milliseconds of playback at the last rendered
// frame.
func (p *Player) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentTime
}

func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Player) Loops() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loops
}

// SequenceLength is the number of entries in the current playback sequence:
// the frame count, doubled in pingpong mode.
func (p *Player) SequenceLength() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seq)
}

// SetCommit toggles drawing. When off, playback still advances but frames
// are neither rendered nor reported through OnFrame.
func (p *Player) SetCommit(commit bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.commit = commit
}

func (p *Player) Commit() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.commit
}

// render composites sequence entry i onto the canvas.
//
// Both dispose and blend are read from the frame being drawn, with
// dispose=previous deferred through restorePending to the following render.
// A dispose=previous therefore takes effect when the next frame renders, and
// a dispose=background clears the frame's own region before it is drawn.
func (p *Player) render(i int) {
	f := p.seq[i]
	region := f.region()

	if p.restorePending {
		p.canvas.Blit(p.restore)
		p.restorePending = false
	}

	switch f.Dispose {
	case DisposeBackground:
		p.canvas.ClearRect(region)
	case DisposePrevious:
		p.restore.Clear()
		p.restore.CopyRegion(p.canvas, region)
		p.restorePending = true
	}

	if f.Blend == BlendSource {
		p.canvas.ClearRect(region)
	}
	if f.Image != nil {
		p.canvas.Draw(f.Image, region.Min, f.Blend == BlendOver)
	}

	if p.opts.Debug {
		p.canvas.StrokeRect(region, p.opts.DebugRegionColor)
		label := fmt.Sprintf("F:%d  D:%d  B:%d", i, f.Dispose, f.Blend)
		p.canvas.FillText(label, p.opts.DebugTextPos, p.opts.DebugFont, p.opts.DebugTextColor)
	}
}

// SetFrame seeks to sequence entry n, clamped to the sequence bounds. The
// canvas is rebuilt from a blank state by rendering entries 0 through n in
// order, then OnFrame fires.
func (p *Player) SetFrame(n int) {
	p.mu.Lock()
	n = p.seekLocked(n)
	cb := p.opts.OnFrame
	p.mu.Unlock()
	if cb != nil {
		cb(n)
	}
}

func (p *Player) seekLocked(n int) int {
	if len(p.seq) == 0 {
		return 0
	}
	if n < 0 {
		n = 0
	}
	if n > len(p.seq)-1 {
		n = len(p.seq) - 1
	}
	p.canvas.Clear()
	p.restorePending = false
	for i := 0; i <= n; i++ {
		p.render(i)
	}
	p.cursor = n
	return n
}

// SetTime seeks to the first sequence entry whose cumulative delay reaches
// t milliseconds.
func (p *Player) SetTime(t float64) {
	p.mu.Lock()
	idx := len(p.seq) - 1
	var sum float64
	for i, f := range p.seq {
		sum += f.Delay
		if sum >= t {
			idx = i
			break
		}
	}
	p.currentTime = t
	n := p.seekLocked(idx)
	cb := p.opts.OnFrame
	p.mu.Unlock()
	if cb != nil {
		cb(n)
	}
}

// Play starts playback at the current cursor. It is a no-op while already
// playing or for an empty sequence.
func (p *Player) Play() {
	p.mu.Lock()
	if p.running || len(p.seq) == 0 {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.startTime = time.Now()
	p.mu.Unlock()
	p.step()
}

// step renders the cursor (when committing) and schedules the advance after
// the frame's delay.
func (p *Player) step() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	i := p.cursor
	var cb func(int)
	if p.commit {
		p.render(i)
		cb = p.opts.OnFrame
	}
	p.currentTime = float64(time.Since(p.startTime)) / float64(time.Millisecond)
	p.scheduleLocked(p.seq[i].Delay)
	p.mu.Unlock()
	if cb != nil {
		cb(i)
	}
}

func (p *Player) scheduleLocked(delayMS float64) {
	d := time.Duration(delayMS * float64(time.Millisecond))
	if p.opts.VSync || (delayMS >= 16 && delayMS <= 17) {
		d = vsyncInterval
	}
	if d < 0 {
		d = 0
	}
	p.gen++
	gen := p.gen
	p.timer = time.AfterFunc(d, func() { p.tick(gen) })
}

// tick advances the cursor, wrapping at the end of the sequence and
// accounting for completed iterations.
func (p *Player) tick(gen uint64) {
	p.mu.Lock()
	if gen != p.gen || !p.running {
		p.mu.Unlock()
		return
	}
	var (
		onIter func(int)
		onEnd  func()
		loops  int
	)
	p.cursor++
	if p.cursor >= len(p.seq) {
		p.cursor = 0
		p.loops++
		loops = p.loops
		onIter = p.opts.OnIteration
		if !p.ignoreIterations && loops >= p.iterations {
			p.running = false
			onEnd = p.opts.OnEnded
		}
	}
	p.mu.Unlock()

	if onIter != nil {
		onIter(loops)
	}
	if onEnd != nil {
		onEnd()
		return
	}
	p.step()
}

// Pause stops playback and cancels the pending tick; no OnFrame fires for a
// canceled tick.
func (p *Player) Pause() {
	p.mu.Lock()
	p.pauseLocked()
	p.mu.Unlock()
}

func (p *Player) pauseLocked() {
	p.running = false
	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// Stop pauses, rewinds to the first frame and renders it, then fires OnStop.
func (p *Player) Stop() {
	p.mu.Lock()
	p.pauseLocked()
	p.loops = 0
	p.currentTime = 0
	n := p.seekLocked(0)
	onFrame := p.opts.OnFrame
	onStop := p.opts.OnStop
	p.mu.Unlock()
	if onFrame != nil {
		onFrame(n)
	}
	if onStop != nil {
		onStop()
	}
}

package indicator

import (
	"fmt"
	"log"
	"maps"
	"sync/atomic"
	"time"

	"github.com/chess10kp/obs-indicator/internal/icons"
)

// DefaultBaseDelay is the poll interval between ticks
const DefaultBaseDelay = 125 * time.Millisecond

// skipFactor slows polling while the settings make the overlay invisible
const skipFactor = 4

// State is the engine's position in its state machine
type State int32

const (
	StateHidden State = iota
	StateVisible
	StateSkip
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateHidden:
		return "hidden"
	case StateVisible:
		return "visible"
	case StateSkip:
		return "skip"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Renderer owns the on-screen surface. A nil image clears the channel slot.
type Renderer interface {
	SetChannelIcon(ch Channel, img icons.Image)
	SetGeometry(width, height, x, y int)
	Show()
	Hide()
	IsVisible() bool
}

// Screen reports the dimensions the overlay is placed on
type Screen interface {
	Size() (width, height int)
}

// Options configures an Engine
type Options struct {
	Status    StatusReader
	Renderer  Renderer
	Icons     IconProvider
	Screen    Screen
	Settings  map[string]string
	BaseDelay time.Duration
	Now       func() time.Time
	Debug     bool
}

type autoHideTimer struct {
	armed   bool
	armedAt time.Time
	policy  AutoHide
}

func (t autoHideTimer) expired(now time.Time) bool {
	if !t.armed || !t.policy.Enabled {
		return false
	}
	return !now.Before(t.armedAt.Add(t.policy.After))
}

// Engine is the poll-render state machine behind the overlay.
//
// Tick must only be called from one goroutine at a time. Settings update
// requests and state queries are safe from any goroutine.
type Engine struct {
	status    StatusReader
	renderer  Renderer
	icons     IconProvider
	screen    Screen
	now       func() time.Time
	baseDelay time.Duration
	debug     bool

	pending atomic.Pointer[map[string]string]
	current atomic.Pointer[AppearanceSettings]
	state   atomic.Int32

	iconSet  IconSet
	geometry Geometry
	last     StatusSnapshot
	hasLast  bool
	timer    autoHideTimer
}

// NewEngine creates an engine for the initial raw settings. The icon set
// for those settings is loaded up front so missing assets fail here.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Status == nil {
		return nil, fmt.Errorf("status source is nil")
	}
	if opts.Renderer == nil {
		return nil, fmt.Errorf("renderer is nil")
	}
	if opts.Icons == nil {
		return nil, fmt.Errorf("icon provider is nil")
	}
	if opts.Screen == nil {
		return nil, fmt.Errorf("screen is nil")
	}

	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	initial := Resolve(opts.Settings)
	if _, err := LoadIconSet(opts.Icons, initial); err != nil {
		return nil, fmt.Errorf("failed to load icons: %w", err)
	}

	e := &Engine{
		status:    opts.Status,
		renderer:  opts.Renderer,
		icons:     opts.Icons,
		screen:    opts.Screen,
		now:       opts.Now,
		baseDelay: opts.BaseDelay,
		debug:     opts.Debug,
	}
	e.current.Store(&initial)
	e.state.Store(int32(StateHidden))
	e.RequestSettingsUpdate(opts.Settings)

	return e, nil
}

// RequestSettingsUpdate queues a wholesale replacement of the settings.
// It takes effect at the start of the next tick; only the latest request
// before that tick is applied.
func (e *Engine) RequestSettingsUpdate(raw map[string]string) {
	cp := maps.Clone(raw)
	if cp == nil {
		cp = map[string]string{}
	}
	e.pending.Store(&cp)
}

// Settings returns the authoritative appearance snapshot
func (e *Engine) Settings() AppearanceSettings {
	return *e.current.Load()
}

// State returns the current state machine state
func (e *Engine) State() State {
	return State(e.state.Load())
}

// BaseDelay returns the poll interval
func (e *Engine) BaseDelay() time.Duration {
	return e.baseDelay
}

func (e *Engine) setState(s State) {
	if old := State(e.state.Swap(int32(s))); old != s {
		e.debugf("state %s -> %s", old, s)
	}
}

// Tick runs one poll-render iteration and returns the delay before the next
// one. ok is false once the engine has stopped; no renderer call happens
// after that.
func (e *Engine) Tick() (delay time.Duration, ok bool) {
	if e.State() == StateStopped {
		return 0, false
	}

	if e.status.ShutdownRequested() {
		log.Printf("[ENGINE] Shutdown requested, stopping indicator")
		e.renderer.Hide()
		e.timer = autoHideTimer{}
		e.setState(StateStopped)
		return 0, false
	}

	if raw := e.pending.Swap(nil); raw != nil {
		e.debugf("settings update requested")
		e.applySettings(Resolve(*raw))
	}

	if e.State() == StateSkip {
		return e.baseDelay * skipFactor, true
	}

	now := e.now()
	if e.timer.expired(now) {
		e.debugf("hide via auto-hide timer")
		e.timer = autoHideTimer{}
		e.renderer.Hide()
		e.setState(StateHidden)
		return e.baseDelay, true
	}

	snap := e.status.Snapshot()
	if e.hasLast && snap == e.last {
		return e.baseDelay, true
	}

	e.redraw(snap, now)
	return e.baseDelay, true
}

// applySettings installs a new settings snapshot and everything derived from
// it. The last rendered snapshot and the auto-hide timer are dropped so the
// current tick redraws even if the status did not change.
func (e *Engine) applySettings(s AppearanceSettings) {
	e.current.Store(&s)
	e.hasLast = false
	e.timer = autoHideTimer{}

	log.Printf("[ENGINE] Settings: size=%s corner=%s record=%s stream=%s duration=%s",
		s.Size, s.Corner, s.RecordColor, s.StreamColor, s.Duration)

	set, err := LoadIconSet(e.icons, s)
	if err != nil {
		log.Printf("[ENGINE] Failed to load icons, indicator disabled until next settings update: %v", err)
		e.enterSkip()
		return
	}
	e.iconSet = set

	w, h := e.screen.Size()
	e.geometry = ComputeGeometry(s, set, w, h)
	e.debugf("geometry %s on %dx%d screen", e.geometry, w, h)

	if s.Skip() {
		e.enterSkip()
		return
	}

	for _, ch := range Channels {
		if !s.ChannelColor(ch).Enabled() {
			e.renderer.SetChannelIcon(ch, nil)
		}
	}
	g := e.geometry
	e.renderer.SetGeometry(g.Width, g.Height, g.X, g.Y)
	e.renderer.Show()
	e.setState(StateVisible)
}

func (e *Engine) enterSkip() {
	e.timer = autoHideTimer{}
	e.renderer.Hide()
	e.setState(StateSkip)
}

func (e *Engine) redraw(snap StatusSnapshot, now time.Time) {
	e.debugf("status changed: recording=%v streaming=%v", snap.Recording, snap.Streaming)

	settings := e.Settings()
	for _, ch := range Channels {
		if !settings.ChannelColor(ch).Enabled() {
			continue
		}
		e.renderer.SetChannelIcon(ch, e.iconSet.For(ch).Pick(snap.Active(ch)))
	}

	if !e.renderer.IsVisible() {
		e.renderer.Show()
	}
	e.setState(StateVisible)

	e.timer = autoHideTimer{
		armed:   true,
		armedAt: now,
		policy:  settings.Duration.AutoHide(),
	}
	e.last = snap
	e.hasLast = true
}

func (e *Engine) debugf(format string, args ...any) {
	if e.debug {
		log.Printf("[ENGINE] "+format, args...)
	}
}

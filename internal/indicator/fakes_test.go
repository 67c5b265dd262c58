package indicator

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chess10kp/obs-indicator/internal/icons"
)

type fakeImage struct {
	name   icons.Name
	factor int
	w, h   int
}

func (f fakeImage) Width() int  { return f.w }
func (f fakeImage) Height() int { return f.h }

// fakeIcons serves record icons at 64x64 and stream icons at 96x64
type fakeIcons struct {
	mu    sync.Mutex
	fail  bool
	loads int
}

func (f *fakeIcons) Get(name icons.Name, factor int) (icons.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return nil, errors.New("asset missing")
	}
	f.loads++

	w := 64
	switch name {
	case icons.StreamStartedGreen, icons.StreamStartedRed, icons.StreamStopped:
		w = 96
	}
	return fakeImage{name: name, factor: factor, w: w / factor, h: 64 / factor}, nil
}

func (f *fakeIcons) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

type fakeScreen struct{ w, h int }

func (s fakeScreen) Size() (int, int) { return s.w, s.h }

// fakeRenderer records every call as a string
type fakeRenderer struct {
	mu       sync.Mutex
	calls    []string
	visible  bool
	icons    map[Channel]icons.Image
	geometry Geometry
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{icons: make(map[Channel]icons.Image)}
}

func (r *fakeRenderer) record(call string) {
	r.calls = append(r.calls, call)
}

func (r *fakeRenderer) SetChannelIcon(ch Channel, img icons.Image) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.icons[ch] = img
	if img == nil {
		r.record(fmt.Sprintf("icon:%s:nil", ch))
		return
	}
	fi := img.(fakeImage)
	r.record(fmt.Sprintf("icon:%s:%s@%d", ch, fi.name, fi.factor))
}

func (r *fakeRenderer) SetGeometry(width, height, x, y int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.geometry = Geometry{Width: width, Height: height, X: x, Y: y}
	r.record("geometry:" + r.geometry.String())
}

func (r *fakeRenderer) Show() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.visible = true
	r.record("show")
}

func (r *fakeRenderer) Hide() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.visible = false
	r.record("hide")
}

func (r *fakeRenderer) IsVisible() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.record("visible?")
	return r.visible
}

// take returns and clears the recorded calls
func (r *fakeRenderer) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	calls := r.calls
	r.calls = nil
	return calls
}

func (r *fakeRenderer) isShown() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.visible
}

func (r *fakeRenderer) icon(ch Channel) icons.Image {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.icons[ch]
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// countingStatus counts how often the engine samples the channels
type countingStatus struct {
	*StatusSource
	samples atomic.Int64
}

func (c *countingStatus) Snapshot() StatusSnapshot {
	c.samples.Add(1)
	return c.StatusSource.Snapshot()
}

type testRig struct {
	engine   *Engine
	renderer *fakeRenderer
	status   *countingStatus
	clock    *fakeClock
	icons    *fakeIcons
}

func newTestRig(t *testing.T, raw map[string]string) *testRig {
	t.Helper()

	rig := &testRig{
		renderer: newFakeRenderer(),
		status:   &countingStatus{StatusSource: NewStatusSource()},
		clock:    &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)},
		icons:    &fakeIcons{},
	}

	engine, err := NewEngine(Options{
		Status:   rig.status,
		Renderer: rig.renderer,
		Icons:    rig.icons,
		Screen:   fakeScreen{w: 1920, h: 1080},
		Settings: raw,
		Now:      rig.clock.Now,
	})
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	rig.engine = engine

	return rig
}

// tick runs one tick and fails the test if the engine stopped
func (r *testRig) tick(t *testing.T) time.Duration {
	t.Helper()

	delay, ok := r.engine.Tick()
	if !ok {
		t.Fatal("Engine stopped unexpectedly")
	}
	return delay
}

func containsCall(calls []string, call string) bool {
	for _, c := range calls {
		if c == call {
			return true
		}
	}
	return false
}

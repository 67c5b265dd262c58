package indicator

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/chess10kp/obs-indicator/internal/icons"
	"github.com/chess10kp/obs-indicator/internal/schedule"
)

func TestEngineSmallSouthEastRecordOnly(t *testing.T) {
	rig := newTestRig(t, map[string]string{
		"Size":           "Small",
		"Position":       "SE",
		"RecordingColor": "Green",
		"StreamingColor": "None",
		"Duration":       "Always",
	})

	if delay := rig.tick(t); delay != DefaultBaseDelay {
		t.Errorf("Expected delay %v, got %v", DefaultBaseDelay, delay)
	}

	want := []string{
		"icon:stream:nil",
		"geometry:20x20+1892+1052",
		"show",
		"icon:record:record_stopped.png@4",
		"visible?",
	}
	if got := rig.renderer.take(); !reflect.DeepEqual(got, want) {
		t.Fatalf("First tick calls:\n got %v\nwant %v", got, want)
	}

	rig.status.SetRecording(true)
	rig.tick(t)

	want = []string{"icon:record:record_started_green.png@4", "visible?"}
	if got := rig.renderer.take(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Status change calls:\n got %v\nwant %v", got, want)
	}

	img := rig.renderer.icon(ChannelRecord)
	if img.Width() != 16 || img.Height() != 16 {
		t.Errorf("Expected 16x16 record icon at Small, got %dx%d", img.Width(), img.Height())
	}

	for i := 0; i < 100; i++ {
		rig.clock.Advance(time.Hour)
		rig.tick(t)
	}

	if calls := rig.renderer.take(); len(calls) != 0 {
		t.Errorf("Expected no renderer calls while status is unchanged, got %v", calls)
	}
	if !rig.renderer.isShown() || rig.engine.State() != StateVisible {
		t.Errorf("Expected indicator to stay visible, state=%s", rig.engine.State())
	}
}

func TestEngineTimedAutoHide(t *testing.T) {
	rig := newTestRig(t, map[string]string{"Duration": "Sec1"})

	rig.tick(t)
	rig.status.SetRecording(true)
	rig.tick(t)
	rig.renderer.take()

	rig.clock.Advance(900 * time.Millisecond)
	rig.tick(t)
	if calls := rig.renderer.take(); len(calls) != 0 {
		t.Errorf("Expected no calls before expiry, got %v", calls)
	}
	if rig.engine.State() != StateVisible {
		t.Errorf("Expected visible at 0.9s, got %s", rig.engine.State())
	}

	rig.clock.Advance(100 * time.Millisecond)
	if delay := rig.tick(t); delay != DefaultBaseDelay {
		t.Errorf("Expected base delay after hiding, got %v", delay)
	}
	if calls := rig.renderer.take(); !reflect.DeepEqual(calls, []string{"hide"}) {
		t.Errorf("Expected a single hide at 1.0s, got %v", calls)
	}
	if rig.engine.State() != StateHidden {
		t.Errorf("Expected hidden at 1.0s, got %s", rig.engine.State())
	}

	rig.clock.Advance(5 * time.Second)
	rig.tick(t)
	if calls := rig.renderer.take(); len(calls) != 0 {
		t.Errorf("Expected indicator to stay hidden, got %v", calls)
	}

	rig.status.SetStreaming(true)
	rig.tick(t)
	calls := rig.renderer.take()
	if !containsCall(calls, "show") {
		t.Errorf("Expected a status change to show the indicator again, got %v", calls)
	}
}

func TestEngineSkipModeWhenNoChannels(t *testing.T) {
	rig := newTestRig(t, map[string]string{
		"RecordingColor": "None",
		"StreamingColor": "None",
		"Duration":       "Sec3",
	})

	skipDelay := 4 * DefaultBaseDelay

	if delay := rig.tick(t); delay != skipDelay {
		t.Errorf("Expected skip delay %v, got %v", skipDelay, delay)
	}
	if calls := rig.renderer.take(); !reflect.DeepEqual(calls, []string{"hide"}) {
		t.Errorf("Expected only a hide on entering skip mode, got %v", calls)
	}
	if rig.engine.State() != StateSkip {
		t.Errorf("Expected skip state, got %s", rig.engine.State())
	}

	rig.status.SetRecording(true)
	rig.status.SetStreaming(true)
	for i := 0; i < 10; i++ {
		if delay := rig.tick(t); delay != skipDelay {
			t.Errorf("Expected skip delay %v, got %v", skipDelay, delay)
		}
	}

	if calls := rig.renderer.take(); len(calls) != 0 {
		t.Errorf("Expected no renderer calls in skip mode, got %v", calls)
	}
	if n := rig.status.samples.Load(); n != 0 {
		t.Errorf("Expected no status sampling in skip mode, got %d samples", n)
	}
}

func TestEngineSettingsUpdateMovesCorner(t *testing.T) {
	rig := newTestRig(t, map[string]string{"Position": "NE"})

	rig.tick(t)
	calls := rig.renderer.take()
	if !containsCall(calls, "geometry:88x36+1824+8") {
		t.Fatalf("Expected NE geometry, got %v", calls)
	}

	rig.engine.RequestSettingsUpdate(map[string]string{"Position": "NW"})
	rig.tick(t)

	want := []string{
		"geometry:88x36+8+8",
		"show",
		"icon:record:record_stopped.png@2",
		"icon:stream:stream_stopped.png@2",
		"visible?",
	}
	if got := rig.renderer.take(); !reflect.DeepEqual(got, want) {
		t.Errorf("Settings update calls:\n got %v\nwant %v", got, want)
	}
	if rig.engine.Settings().Corner != CornerNW {
		t.Errorf("Expected NW settings, got %s", rig.engine.Settings().Corner)
	}
}

func TestEngineIdenticalSnapshotsDoNotRearm(t *testing.T) {
	rig := newTestRig(t, map[string]string{"Duration": "Sec1"})

	rig.tick(t)
	rig.renderer.take()

	rig.clock.Advance(500 * time.Millisecond)
	rig.tick(t)
	if calls := rig.renderer.take(); len(calls) != 0 {
		t.Errorf("Expected no calls for an identical snapshot, got %v", calls)
	}

	rig.clock.Advance(500 * time.Millisecond)
	rig.tick(t)
	if rig.engine.State() != StateHidden {
		t.Errorf("Expected the timer armed at the first redraw to expire, got %s", rig.engine.State())
	}
}

func TestEngineSettingsUpdateAfterExpiryRedraws(t *testing.T) {
	raw := map[string]string{"Duration": "Sec1"}
	rig := newTestRig(t, raw)

	rig.tick(t)
	rig.clock.Advance(2 * time.Second)
	rig.tick(t)
	if rig.engine.State() != StateHidden {
		t.Fatalf("Expected hidden after expiry, got %s", rig.engine.State())
	}
	rig.renderer.take()

	rig.engine.RequestSettingsUpdate(raw)
	rig.tick(t)

	calls := rig.renderer.take()
	if !containsCall(calls, "icon:record:record_stopped.png@2") || !containsCall(calls, "show") {
		t.Errorf("Expected a full redraw on the tick after the update, got %v", calls)
	}
	if rig.engine.State() != StateVisible {
		t.Errorf("Expected visible after the update, got %s", rig.engine.State())
	}
}

func TestEngineShutdownIsTerminal(t *testing.T) {
	rig := newTestRig(t, nil)

	rig.tick(t)
	rig.renderer.take()

	rig.engine.RequestSettingsUpdate(map[string]string{"Position": "SE"})
	rig.status.RequestShutdown()

	if _, ok := rig.engine.Tick(); ok {
		t.Fatal("Expected engine to stop")
	}
	if calls := rig.renderer.take(); !reflect.DeepEqual(calls, []string{"hide"}) {
		t.Errorf("Expected a single hide on shutdown, got %v", calls)
	}
	if rig.engine.State() != StateStopped {
		t.Errorf("Expected stopped state, got %s", rig.engine.State())
	}

	rig.status.SetRecording(true)
	rig.engine.RequestSettingsUpdate(map[string]string{"Size": "Large"})
	for i := 0; i < 5; i++ {
		if _, ok := rig.engine.Tick(); ok {
			t.Fatal("Expected engine to remain stopped")
		}
	}
	if calls := rig.renderer.take(); len(calls) != 0 {
		t.Errorf("Expected no renderer calls after stopping, got %v", calls)
	}
}

func TestEngineNeverShown(t *testing.T) {
	durations := []string{"Always", "Never", "Sec1", "Sec3"}

	for _, d := range durations {
		t.Run("no channels "+d, func(t *testing.T) {
			rig := newTestRig(t, map[string]string{
				"RecordingColor": "None",
				"StreamingColor": "None",
				"Duration":       d,
			})
			assertNeverShown(t, rig)
		})
	}

	t.Run("duration never", func(t *testing.T) {
		rig := newTestRig(t, map[string]string{"Duration": "Never"})
		assertNeverShown(t, rig)
	})
}

func assertNeverShown(t *testing.T, rig *testRig) {
	t.Helper()

	for i := 0; i < 40; i++ {
		rig.status.SetRecording(i%3 == 0)
		rig.status.SetStreaming(i%5 == 0)
		rig.clock.Advance(700 * time.Millisecond)
		rig.tick(t)
	}

	for _, call := range rig.renderer.take() {
		if call == "show" {
			t.Fatal("Indicator was shown")
		}
	}
	if rig.renderer.isShown() {
		t.Error("Indicator is visible")
	}
}

func TestEngineAlwaysStaysVisible(t *testing.T) {
	rig := newTestRig(t, map[string]string{"Duration": "Always"})

	rig.status.SetStreaming(true)
	rig.tick(t)
	rig.renderer.take()

	for i := 0; i < 1000; i++ {
		rig.clock.Advance(24 * time.Hour)
		rig.tick(t)
	}

	if calls := rig.renderer.take(); len(calls) != 0 {
		t.Errorf("Expected no calls, got %v", calls)
	}
	if rig.engine.State() != StateVisible || !rig.renderer.isShown() {
		t.Errorf("Expected indicator to stay visible, state=%s", rig.engine.State())
	}
}

func TestEngineIconFailure(t *testing.T) {
	failing := &fakeIcons{fail: true}
	_, err := NewEngine(Options{
		Status:   NewStatusSource(),
		Renderer: newFakeRenderer(),
		Icons:    failing,
		Screen:   fakeScreen{w: 800, h: 600},
	})
	if err == nil {
		t.Fatal("Expected construction to fail when icons are missing")
	}

	rig := newTestRig(t, nil)
	rig.tick(t)
	rig.renderer.take()

	rig.icons.setFail(true)
	rig.engine.RequestSettingsUpdate(map[string]string{"Size": "Large"})
	rig.tick(t)

	if rig.engine.State() != StateSkip {
		t.Errorf("Expected skip state after icon failure, got %s", rig.engine.State())
	}
	if calls := rig.renderer.take(); !reflect.DeepEqual(calls, []string{"hide"}) {
		t.Errorf("Expected hide on icon failure, got %v", calls)
	}

	rig.icons.setFail(false)
	rig.engine.RequestSettingsUpdate(map[string]string{"Size": "Large"})
	rig.tick(t)

	if rig.engine.State() != StateVisible {
		t.Errorf("Expected recovery on the next settings update, got %s", rig.engine.State())
	}
	img := rig.renderer.icon(ChannelStream).(fakeImage)
	if img.name != icons.StreamStopped || img.factor != 1 {
		t.Errorf("Expected full-size stream icon, got %+v", img)
	}
}

func TestEngineLatestSettingsRequestWins(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.tick(t)

	rig.engine.RequestSettingsUpdate(map[string]string{"Size": "Small"})
	rig.engine.RequestSettingsUpdate(map[string]string{"Size": "Large"})
	rig.tick(t)

	if got := rig.engine.Settings().Size; got != SizeLarge {
		t.Errorf("Expected Large, got %s", got)
	}
}

func TestEngineRequestCopiesSettings(t *testing.T) {
	rig := newTestRig(t, nil)

	raw := map[string]string{"Position": "SW"}
	rig.engine.RequestSettingsUpdate(raw)
	raw["Position"] = "NE"
	rig.tick(t)

	if got := rig.engine.Settings().Corner; got != CornerSW {
		t.Errorf("Expected SW, got %s", got)
	}
}

func TestNewEngineValidation(t *testing.T) {
	base := Options{
		Status:   NewStatusSource(),
		Renderer: newFakeRenderer(),
		Icons:    &fakeIcons{},
		Screen:   fakeScreen{w: 800, h: 600},
	}

	testCases := []struct {
		name   string
		mutate func(*Options)
	}{
		{"nil status", func(o *Options) { o.Status = nil }},
		{"nil renderer", func(o *Options) { o.Renderer = nil }},
		{"nil icons", func(o *Options) { o.Icons = nil }},
		{"nil screen", func(o *Options) { o.Screen = nil }},
	}

	for _, tc := range testCases {
		opts := base
		tc.mutate(&opts)
		if _, err := NewEngine(opts); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}

	e, err := NewEngine(base)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if e.BaseDelay() != DefaultBaseDelay {
		t.Errorf("Expected default base delay, got %v", e.BaseDelay())
	}
	if e.State() != StateHidden {
		t.Errorf("Expected initial hidden state, got %s", e.State())
	}
}

func TestEngineWithScheduler(t *testing.T) {
	status := NewStatusSource()
	renderer := newFakeRenderer()

	engine, err := NewEngine(Options{
		Status:    status,
		Renderer:  renderer,
		Icons:     &fakeIcons{},
		Screen:    fakeScreen{w: 1280, h: 720},
		BaseDelay: 2 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	sched := schedule.NewScheduler("indicator", engine.Tick)
	if err := sched.Start(0); err != nil {
		t.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	go status.Apply(EventRecordingStarted)

	waitFor(t, func() bool {
		img, ok := renderer.icon(ChannelRecord).(fakeImage)
		return ok && img.name == icons.RecordStartedRed
	})

	status.Apply(EventUnload)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sched.Wait(ctx); err != nil {
		t.Fatalf("Scheduler did not stop after unload: %v", err)
	}

	if engine.State() != StateStopped {
		t.Errorf("Expected stopped, got %s", engine.State())
	}
	if renderer.isShown() {
		t.Error("Expected indicator hidden after unload")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("Condition not met before deadline")
}

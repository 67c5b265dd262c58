package indicator

import (
	"errors"
	"sync"
	"testing"
)

func TestStatusSourceApply(t *testing.T) {
	testCases := []struct {
		event HostEvent
		want  StatusSnapshot
	}{
		{EventRecordingStarted, StatusSnapshot{Recording: true}},
		{EventRecordingPaused, StatusSnapshot{}},
		{EventRecordingUnpaused, StatusSnapshot{Recording: true}},
		{EventStreamingStarted, StatusSnapshot{Recording: true, Streaming: true}},
		{EventRecordingStopped, StatusSnapshot{Streaming: true}},
		{EventStreamingStopped, StatusSnapshot{}},
	}

	s := NewStatusSource()
	for _, tc := range testCases {
		s.Apply(tc.event)
		if got := s.Snapshot(); got != tc.want {
			t.Errorf("After %s: got %+v, want %+v", tc.event, got, tc.want)
		}
	}

	if s.ShutdownRequested() {
		t.Error("Shutdown should not be requested by channel events")
	}

	s.Apply(EventUnload)
	if !s.ShutdownRequested() {
		t.Error("Expected shutdown after unload")
	}
}

func TestParseHostEvent(t *testing.T) {
	for _, name := range HostEventNames() {
		ev, err := ParseHostEvent(name)
		if err != nil {
			t.Fatalf("ParseHostEvent(%q) failed: %v", name, err)
		}
		if ev.String() != name {
			t.Errorf("Round trip of %q gave %q", name, ev.String())
		}
	}

	if ev, err := ParseHostEvent("  Recording-Started "); err != nil || ev != EventRecordingStarted {
		t.Errorf("Expected case-insensitive match, got %v, %v", ev, err)
	}

	if _, err := ParseHostEvent("replay-buffer-saved"); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("Expected ErrUnknownEvent, got %v", err)
	}
}

func TestStatusSourceConcurrentWriters(t *testing.T) {
	s := NewStatusSource()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				s.SetRecording((i+j)%2 == 0)
				s.SetStreaming((i+j)%3 == 0)
				_ = s.Snapshot()
			}
		}(i)
	}
	wg.Wait()

	s.SetRecording(true)
	s.SetStreaming(false)
	if got := s.Snapshot(); got != (StatusSnapshot{Recording: true}) {
		t.Errorf("Unexpected final snapshot %+v", got)
	}
}

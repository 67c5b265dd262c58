package indicator

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
)

// ErrUnknownEvent is returned when a host event name is not recognised
var ErrUnknownEvent = errors.New("unknown host event")

// Channel identifies one of the two monitored signals
type Channel int

const (
	ChannelRecord Channel = iota
	ChannelStream
)

// Channels lists every channel in layout order
var Channels = []Channel{ChannelRecord, ChannelStream}

func (c Channel) String() string {
	if c == ChannelRecord {
		return "record"
	}
	return "stream"
}

// StatusSnapshot is the (recording, streaming) pair sampled once per tick
type StatusSnapshot struct {
	Recording bool
	Streaming bool
}

// Active reports the flag for a channel
func (s StatusSnapshot) Active(ch Channel) bool {
	if ch == ChannelRecord {
		return s.Recording
	}
	return s.Streaming
}

// StatusReader is the read-only view of host status the engine polls
type StatusReader interface {
	Snapshot() StatusSnapshot
	ShutdownRequested() bool
}

// StatusSource holds the host status flags. Each flag is independently
// atomic; no consistency across flags is provided or needed. The host event
// bridge is the only writer.
type StatusSource struct {
	recording atomic.Bool
	streaming atomic.Bool
	shutdown  atomic.Bool
}

// NewStatusSource creates a status source with every flag cleared
func NewStatusSource() *StatusSource {
	return &StatusSource{}
}

// Snapshot samples both channel flags
func (s *StatusSource) Snapshot() StatusSnapshot {
	return StatusSnapshot{
		Recording: s.recording.Load(),
		Streaming: s.streaming.Load(),
	}
}

// ShutdownRequested reports whether the host asked the engine to stop
func (s *StatusSource) ShutdownRequested() bool {
	return s.shutdown.Load()
}

// SetRecording sets the recording flag
func (s *StatusSource) SetRecording(v bool) {
	s.recording.Store(v)
}

// SetStreaming sets the streaming flag
func (s *StatusSource) SetStreaming(v bool) {
	s.streaming.Store(v)
}

// RequestShutdown raises the shutdown flag. It is never cleared.
func (s *StatusSource) RequestShutdown() {
	s.shutdown.Store(true)
}

// HostEvent is a host notification that changes a status flag
type HostEvent int

const (
	EventRecordingStarted HostEvent = iota
	EventRecordingStopped
	EventRecordingPaused
	EventRecordingUnpaused
	EventStreamingStarted
	EventStreamingStopped
	EventUnload
)

var hostEventNames = map[HostEvent]string{
	EventRecordingStarted:  "recording-started",
	EventRecordingStopped:  "recording-stopped",
	EventRecordingPaused:   "recording-paused",
	EventRecordingUnpaused: "recording-unpaused",
	EventStreamingStarted:  "streaming-started",
	EventStreamingStopped:  "streaming-stopped",
	EventUnload:            "unload",
}

func (e HostEvent) String() string {
	if name, ok := hostEventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("HostEvent(%d)", int(e))
}

// ParseHostEvent maps an event name such as "recording-started" to a HostEvent
func ParseHostEvent(name string) (HostEvent, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for ev, n := range hostEventNames {
		if n == name {
			return ev, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
}

// HostEventNames returns every accepted event name
func HostEventNames() []string {
	names := make([]string, 0, len(hostEventNames))
	for ev := EventRecordingStarted; ev <= EventUnload; ev++ {
		names = append(names, hostEventNames[ev])
	}
	return names
}

// Apply updates the flags for a host event
func (s *StatusSource) Apply(ev HostEvent) {
	switch ev {
	case EventRecordingStarted, EventRecordingUnpaused:
		s.SetRecording(true)
	case EventRecordingStopped, EventRecordingPaused:
		s.SetRecording(false)
	case EventStreamingStarted:
		s.SetStreaming(true)
	case EventStreamingStopped:
		s.SetStreaming(false)
	case EventUnload:
		s.RequestShutdown()
	}
}

// Package bridge carries host notifications into the indicator: recording
// and streaming events, settings changes and status queries.
package bridge

import (
	"fmt"
	"log"
	"strings"

	"github.com/chess10kp/obs-indicator/internal/indicator"
)

// Host is the narrow view of the application the bridges need
type Host interface {
	// EngineStatus reports "running", "stopped" or "absent"
	EngineStatus() string
	SetSetting(key, value string) error
	ReloadSettings() error
}

// StatusWriter is the write side of the shared status flags
type StatusWriter interface {
	Apply(ev indicator.HostEvent)
}

// Dispatcher turns bridge messages into status writes and host calls.
// It is shared by every transport.
type Dispatcher struct {
	status StatusWriter
	host   Host
}

// NewDispatcher creates a dispatcher writing to status and calling host
func NewDispatcher(status StatusWriter, host Host) *Dispatcher {
	return &Dispatcher{status: status, host: host}
}

// Event applies a named host event
func (d *Dispatcher) Event(name string) error {
	ev, err := indicator.ParseHostEvent(name)
	if err != nil {
		return err
	}

	log.Printf("[BRIDGE] %s", ev)
	d.status.Apply(ev)
	return nil
}

// Handle processes one text message and returns the reply line.
//
//	event <name>        apply a host event (the bare name also works)
//	set <Key>=<Value>   change one appearance setting
//	reload              re-read the config file
//	status              report the engine state
func (d *Dispatcher) Handle(message string) (string, error) {
	message = strings.TrimSpace(message)
	cmd, arg, _ := strings.Cut(message, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "":
		return "", fmt.Errorf("empty message")
	case "event":
		if err := d.Event(arg); err != nil {
			return "", err
		}
		return "ok", nil
	case "set":
		key, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return "", fmt.Errorf("set expects <Key>=<Value>, got %q", arg)
		}
		if err := d.host.SetSetting(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return "", err
		}
		return "ok", nil
	case "reload":
		if err := d.host.ReloadSettings(); err != nil {
			return "", err
		}
		return "ok", nil
	case "status":
		return d.host.EngineStatus(), nil
	default:
		if err := d.Event(message); err != nil {
			return "", fmt.Errorf("unknown command %q", cmd)
		}
		return "ok", nil
	}
}

package overlay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/gotk3/gotk3/gdk"
	"github.com/joshuarubin/go-sway"
)

const swayTimeout = 500 * time.Millisecond

// output is the part of a compositor output the overlay needs
type output struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
	Rect   struct {
		X      int64 `json:"x"`
		Y      int64 `json:"y"`
		Width  int64 `json:"width"`
		Height int64 `json:"height"`
	} `json:"rect"`
}

type workspace struct {
	Focused bool   `json:"focused"`
	Output  string `json:"output"`
}

// outputRect is an output in layout coordinates
type outputRect struct {
	X, Y, Width, Height int
}

// Placer moves the overlay onto the output whose origin is x, y
type Placer interface {
	PlaceOnOutput(x, y int)
}

// Screen reports the size of the output the overlay is placed on, and pins
// the overlay to that same output. The compositor is asked on every call, so
// moving focus between outputs is picked up on the next settings
// application; the GDK monitor captured at construction is the fallback.
type Screen struct {
	fallback outputRect
	placer   Placer
	query    func() ([]output, []workspace, error)
}

// NewScreen must be called on the GTK main thread
func NewScreen(placer Placer) *Screen {
	s := &Screen{
		fallback: outputRect{Width: 1920, Height: 1080},
		placer:   placer,
		query:    querySway,
	}

	display, err := gdk.DisplayGetDefault()
	if err != nil {
		return s
	}
	monitor, err := display.GetPrimaryMonitor()
	if err != nil || monitor == nil {
		monitor, err = display.GetMonitor(0)
		if err != nil || monitor == nil {
			return s
		}
	}

	geometry := monitor.GetGeometry()
	s.fallback = outputRect{
		X:      geometry.GetX(),
		Y:      geometry.GetY(),
		Width:  geometry.GetWidth(),
		Height: geometry.GetHeight(),
	}
	return s
}

func (s *Screen) Size() (int, int) {
	rect := s.target()
	if s.placer != nil {
		s.placer.PlaceOnOutput(rect.X, rect.Y)
	}
	return rect.Width, rect.Height
}

func (s *Screen) target() outputRect {
	outputs, workspaces, err := s.query()
	if err != nil {
		log.Printf("[OVERLAY] Compositor query failed, using %dx%d: %v", s.fallback.Width, s.fallback.Height, err)
		return s.fallback
	}

	if rect, ok := focusedOutput(outputs, workspaces); ok {
		return rect
	}
	return s.fallback
}

// focusedOutput picks the output holding the focused workspace, or the first
// active output when no workspace is focused
func focusedOutput(outputs []output, workspaces []workspace) (outputRect, bool) {
	focused := ""
	for _, ws := range workspaces {
		if ws.Focused {
			focused = ws.Output
			break
		}
	}

	var first *output
	for i := range outputs {
		o := &outputs[i]
		if !o.Active || o.Rect.Width <= 0 || o.Rect.Height <= 0 {
			continue
		}
		if o.Name == focused {
			return o.rect(), true
		}
		if first == nil {
			first = o
		}
	}

	if first != nil {
		return first.rect(), true
	}
	return outputRect{}, false
}

func (o *output) rect() outputRect {
	return outputRect{
		X:      int(o.Rect.X),
		Y:      int(o.Rect.Y),
		Width:  int(o.Rect.Width),
		Height: int(o.Rect.Height),
	}
}

func querySway() ([]output, []workspace, error) {
	ctx, cancel := context.WithTimeout(context.Background(), swayTimeout)
	defer cancel()

	client, err := sway.New(ctx)
	if err == nil {
		swayOutputs, err := client.GetOutputs(ctx)
		if err == nil {
			swayWorkspaces, err := client.GetWorkspaces(ctx)
			if err == nil {
				outputs := make([]output, len(swayOutputs))
				for i, o := range swayOutputs {
					outputs[i].Name = o.Name
					outputs[i].Active = o.Active
					outputs[i].Rect.X = int64(o.Rect.X)
					outputs[i].Rect.Y = int64(o.Rect.Y)
					outputs[i].Rect.Width = int64(o.Rect.Width)
					outputs[i].Rect.Height = int64(o.Rect.Height)
				}
				workspaces := make([]workspace, len(swayWorkspaces))
				for i, ws := range swayWorkspaces {
					workspaces[i] = workspace{Focused: ws.Focused, Output: ws.Output}
				}
				return outputs, workspaces, nil
			}
		}
	}

	return querySwaymsg(ctx)
}

// querySwaymsg is the fallback when the IPC socket cannot be reached directly
func querySwaymsg(ctx context.Context) ([]output, []workspace, error) {
	var outputs []output
	if err := swaymsg(ctx, "get_outputs", &outputs); err != nil {
		return nil, nil, err
	}
	var workspaces []workspace
	if err := swaymsg(ctx, "get_workspaces", &workspaces); err != nil {
		return nil, nil, err
	}
	return outputs, workspaces, nil
}

func swaymsg(ctx context.Context, query string, v any) error {
	env := os.Environ()
	// Remove LD_PRELOAD to avoid child process issues
	for i, e := range env {
		if strings.HasPrefix(e, "LD_PRELOAD=") {
			env = append(env[:i], env[i+1:]...)
			break
		}
	}

	cmd := exec.CommandContext(ctx, "swaymsg", "-r", "-t", query)
	cmd.Env = env
	out, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("swaymsg %s: %w", query, err)
	}
	return json.Unmarshal(out, v)
}

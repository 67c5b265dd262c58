package overlay

import (
	"fmt"
	"log"
	"sync"
	"unsafe"

	"github.com/gotk3/gotk3/gdk"
	"github.com/gotk3/gotk3/glib"
	"github.com/gotk3/gotk3/gtk"

	"github.com/chess10kp/obs-indicator/internal/icons"
	"github.com/chess10kp/obs-indicator/internal/indicator"
	"github.com/chess10kp/obs-indicator/internal/layer"
)

// slotMargin gives each channel the 4px of padding the layout reserves
const slotMargin = 2

const windowCSS = `
	window, box, image {
		background-color: transparent;
	}
`

// Window is the GTK overlay surface. It must be created on the GTK main
// thread; its Renderer methods may be called from any goroutine and are
// applied on the main thread in call order.
type Window struct {
	window  *gtk.Window
	box     *gtk.Box
	slots   map[indicator.Channel]*gtk.Image
	layered bool

	// origin of the output the overlay is pinned to; main thread only
	originX int
	originY int

	mu      sync.Mutex
	visible bool
}

// NewWindow builds the hidden overlay window with one image slot per channel
func NewWindow(title string) (*Window, error) {
	win, err := gtk.WindowNew(gtk.WINDOW_TOPLEVEL)
	if err != nil {
		return nil, fmt.Errorf("failed to create overlay window: %w", err)
	}

	win.SetTitle(title)
	win.SetResizable(false)
	win.SetDecorated(false)
	win.SetKeepAbove(true)
	win.SetAcceptFocus(false)
	win.SetSkipTaskbarHint(true)
	win.SetSkipPagerHint(true)
	win.SetAppPaintable(true)

	if screen, err := win.GetScreen(); err == nil {
		if visual, err := screen.GetRGBAVisual(); err == nil && visual != nil {
			win.SetVisual(visual)
		}
	}

	box, err := gtk.BoxNew(gtk.ORIENTATION_HORIZONTAL, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create overlay box: %w", err)
	}

	w := &Window{
		window: win,
		box:    box,
		slots:  make(map[indicator.Channel]*gtk.Image),
	}

	for _, ch := range indicator.Channels {
		img, err := gtk.ImageNew()
		if err != nil {
			return nil, fmt.Errorf("failed to create %s slot: %w", ch, err)
		}
		img.SetMarginStart(slotMargin)
		img.SetMarginEnd(slotMargin)
		img.SetMarginTop(slotMargin)
		img.SetMarginBottom(slotMargin)
		box.PackStart(img, false, false, 0)
		w.slots[ch] = img
	}

	win.Add(box)
	applyCSS(win, windowCSS)

	w.setupLayerShell()

	return w, nil
}

func (w *Window) setupLayerShell() {
	if !layer.IsSupported() {
		log.Printf("[OVERLAY] Layer shell not supported, using a keep-above window")
		return
	}

	obj := unsafe.Pointer(w.window.GObject)
	layer.InitForWindow(obj)
	layer.SetLayer(obj, layer.LayerOverlay)
	layer.SetKeyboardMode(obj, layer.KeyboardModeNone)
	layer.SetExclusiveZone(obj, -1)
	layer.PlaceTopLeft(obj, indicator.OffsetPx, indicator.OffsetPx)
	w.layered = true
}

// SetChannelIcon shows img in the channel's slot; nil removes the slot from
// the layout
func (w *Window) SetChannelIcon(ch indicator.Channel, img icons.Image) {
	slot, ok := w.slots[ch]
	if !ok {
		return
	}

	var pb *pixbufImage
	if img != nil {
		p, ok := img.(*pixbufImage)
		if !ok {
			log.Printf("[OVERLAY] Unsupported image type %T for %s", img, ch)
			return
		}
		pb = p
	}

	glib.IdleAdd(func() {
		if pb == nil {
			slot.Clear()
			slot.Hide()
			return
		}
		slot.SetFromPixbuf(pb.Pixbuf)
		slot.Show()
	})
}

// PlaceOnOutput pins the overlay to the output whose origin is x, y. Later
// geometry is relative to that output.
func (w *Window) PlaceOnOutput(x, y int) {
	glib.IdleAdd(func() {
		w.originX, w.originY = x, y
		if !w.layered {
			return
		}

		display, err := gdk.DisplayGetDefault()
		if err != nil {
			return
		}
		monitor, err := display.GetMonitorAtPoint(x, y)
		if err != nil || monitor == nil {
			log.Printf("[OVERLAY] No monitor at %d,%d, leaving placement to the compositor", x, y)
			return
		}
		layer.SetMonitor(unsafe.Pointer(w.window.GObject), unsafe.Pointer(monitor.GObject))
	})
}

// SetGeometry resizes the window and moves it to x, y on its output
func (w *Window) SetGeometry(width, height, x, y int) {
	glib.IdleAdd(func() {
		w.window.SetSizeRequest(width, height)
		w.window.Resize(width, height)

		if w.layered {
			layer.PlaceTopLeft(unsafe.Pointer(w.window.GObject), x, y)
			return
		}
		w.window.Move(w.originX+x, w.originY+y)
	})
}

func (w *Window) Show() {
	w.mu.Lock()
	w.visible = true
	w.mu.Unlock()

	glib.IdleAdd(func() {
		w.window.Show()
		w.box.Show()
	})
}

func (w *Window) Hide() {
	w.mu.Lock()
	w.visible = false
	w.mu.Unlock()

	glib.IdleAdd(func() {
		w.window.Hide()
	})
}

// IsVisible reports the visibility last requested through Show or Hide
func (w *Window) IsVisible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.visible
}

// Destroy releases the window. Must be called on the GTK main thread.
func (w *Window) Destroy() {
	w.window.Destroy()
}

func applyCSS(widget gtk.IWidget, css string) {
	cssProvider, err := gtk.CssProviderNew()
	if err != nil {
		return
	}
	if err := cssProvider.LoadFromData(css); err != nil {
		log.Printf("[OVERLAY] Invalid CSS: %v", err)
		return
	}

	styleContext, err := widget.ToWidget().GetStyleContext()
	if err == nil {
		styleContext.AddProvider(cssProvider, gtk.STYLE_PROVIDER_PRIORITY_APPLICATION)
	}
}

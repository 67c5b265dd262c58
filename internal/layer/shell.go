package layer

/*
#cgo pkg-config: gtk-layer-shell-0
#include <gtk-layer-shell.h>
*/
import "C"
import "unsafe"

// IsSupported reports whether the compositor speaks the layer shell protocol
func IsSupported() bool {
	return C.gtk_layer_is_supported() != 0
}

// InitForWindow initializes a window as a layer shell surface
func InitForWindow(window unsafe.Pointer) {
	C.gtk_layer_init_for_window((*C.GtkWindow)(window))
}

// SetMonitor pins the surface to a GdkMonitor instead of letting the
// compositor choose
func SetMonitor(window unsafe.Pointer, monitor unsafe.Pointer) {
	C.gtk_layer_set_monitor((*C.GtkWindow)(window), (*C.GdkMonitor)(monitor))
}

// SetLayer sets the layer for a layer shell surface
func SetLayer(window unsafe.Pointer, layer Layer) {
	C.gtk_layer_set_layer((*C.GtkWindow)(window), C.GtkLayerShellLayer(layer))
}

// SetAnchor sets which edges to anchor the window to
func SetAnchor(window unsafe.Pointer, edge Edge, anchorTo bool) {
	var anchor C.gboolean
	if anchorTo {
		anchor = 1
	}
	C.gtk_layer_set_anchor((*C.GtkWindow)(window), C.GtkLayerShellEdge(edge), anchor)
}

// SetMargin sets the margin for a specific edge
func SetMargin(window unsafe.Pointer, edge Edge, margin int) {
	C.gtk_layer_set_margin((*C.GtkWindow)(window), C.GtkLayerShellEdge(edge), C.int(margin))
}

// SetKeyboardMode sets the keyboard interactivity mode
func SetKeyboardMode(window unsafe.Pointer, mode KeyboardMode) {
	C.gtk_layer_set_keyboard_mode((*C.GtkWindow)(window), C.GtkLayerShellKeyboardMode(mode))
}

// SetExclusiveZone sets the exclusive zone for the surface. -1 lets the
// surface overlap other exclusive zones such as panels.
func SetExclusiveZone(window unsafe.Pointer, zone int) {
	C.gtk_layer_set_exclusive_zone((*C.GtkWindow)(window), C.int(zone))
}

// PlaceTopLeft anchors the surface to the top-left corner of its output and
// offsets it by x, y
func PlaceTopLeft(window unsafe.Pointer, x, y int) {
	SetAnchor(window, EdgeTop, true)
	SetAnchor(window, EdgeLeft, true)
	SetAnchor(window, EdgeRight, false)
	SetAnchor(window, EdgeBottom, false)
	SetMargin(window, EdgeLeft, x)
	SetMargin(window, EdgeTop, y)
}

// Layer represents a layer shell layer
type Layer int

const (
	LayerBackground Layer = 0
	LayerBottom     Layer = 1
	LayerTop        Layer = 2
	LayerOverlay    Layer = 3
)

// Edge represents a screen edge
type Edge int

const (
	EdgeLeft   Edge = 0
	EdgeRight  Edge = 1
	EdgeTop    Edge = 2
	EdgeBottom Edge = 3
)

// KeyboardMode represents keyboard focus mode
type KeyboardMode int

const (
	KeyboardModeNone      KeyboardMode = 0
	KeyboardModeExclusive KeyboardMode = 1
	KeyboardModeOnDemand  KeyboardMode = 2
)

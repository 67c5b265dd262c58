package indicator

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// OffsetPx is the distance kept between the overlay and the screen edges
const OffsetPx = 8

// Configuration keys understood by Resolve
const (
	KeySize           = "Size"
	KeyPosition       = "Position"
	KeyRecordingColor = "RecordingColor"
	KeyStreamingColor = "StreamingColor"
	KeyDuration       = "Duration"
)

// Size selects the icon scale
type Size int

const (
	SizeSmall Size = iota
	SizeMedium
	SizeLarge
)

// ScaleFactor returns the integer downscale divisor for the size
func (s Size) ScaleFactor() int {
	switch s {
	case SizeSmall:
		return 4
	case SizeMedium:
		return 2
	default:
		return 1
	}
}

func (s Size) String() string {
	switch s {
	case SizeSmall:
		return "Small"
	case SizeLarge:
		return "Large"
	default:
		return "Medium"
	}
}

// Corner is the screen corner the overlay is anchored to
type Corner string

const (
	CornerNW Corner = "NW"
	CornerNE Corner = "NE"
	CornerSW Corner = "SW"
	CornerSE Corner = "SE"
)

// Right reports whether the overlay hugs the right screen edge
func (c Corner) Right() bool {
	return strings.Contains(string(c), "E")
}

// Bottom reports whether the overlay hugs the bottom screen edge
func (c Corner) Bottom() bool {
	return strings.Contains(string(c), "S")
}

// Color is a channel's active color. ColorNone disables the channel.
type Color int

const (
	ColorNone Color = iota
	ColorRed
	ColorGreen
)

func (c Color) String() string {
	switch c {
	case ColorNone:
		return "None"
	case ColorGreen:
		return "Green"
	default:
		return "Red"
	}
}

// Enabled reports whether a channel with this color takes part in layout
func (c Color) Enabled() bool {
	return c != ColorNone
}

// Duration is the auto-hide setting in seconds.
// DurationAlways never hides, DurationNever never shows.
type Duration int

const (
	DurationAlways Duration = -1
	DurationNever  Duration = 0
	DurationSec1   Duration = 1
	DurationSec3   Duration = 3
)

func (d Duration) String() string {
	switch {
	case d < 0:
		return "Always"
	case d == 0:
		return "Never"
	default:
		return "Sec" + strconv.Itoa(int(d))
	}
}

// AutoHide describes when a visible overlay is hidden again
type AutoHide struct {
	Enabled bool
	After   time.Duration
}

// AutoHide converts the duration into an explicit hide policy
func (d Duration) AutoHide() AutoHide {
	if d <= 0 {
		return AutoHide{}
	}
	return AutoHide{Enabled: true, After: time.Duration(d) * time.Second}
}

// AppearanceSettings is an immutable snapshot of the overlay appearance.
// It is replaced wholesale on every settings update.
type AppearanceSettings struct {
	Size        Size
	Corner      Corner
	RecordColor Color
	StreamColor Color
	Duration    Duration
	OffsetPx    int
}

// ChannelColor returns the color configured for a channel
func (s AppearanceSettings) ChannelColor(ch Channel) Color {
	if ch == ChannelRecord {
		return s.RecordColor
	}
	return s.StreamColor
}

// Skip reports whether the settings make the overlay permanently invisible
func (s AppearanceSettings) Skip() bool {
	noChannels := !s.RecordColor.Enabled() && !s.StreamColor.Enabled()
	return noChannels || s.Duration == DurationNever
}

var (
	sizeTable = map[string]Size{
		"SMALL":  SizeSmall,
		"MEDIUM": SizeMedium,
		"LARGE":  SizeLarge,
	}
	cornerTable = map[string]Corner{
		"NW": CornerNW,
		"NE": CornerNE,
		"SW": CornerSW,
		"SE": CornerSE,
	}
	colorTable = map[string]Color{
		"NONE":  ColorNone,
		"RED":   ColorRed,
		"GREEN": ColorGreen,
	}
	durationTable = map[string]Duration{
		"ALWAYS": DurationAlways,
		"NEVER":  DurationNever,
		"SEC1":   DurationSec1,
		"SEC3":   DurationSec3,
	}
)

// DefaultRawSettings holds the value used for every key missing from the
// raw configuration
var DefaultRawSettings = map[string]string{
	KeySize:           "Medium",
	KeyPosition:       "NW",
	KeyRecordingColor: "Red",
	KeyStreamingColor: "Green",
	KeyDuration:       "Always",
}

// DefaultSettings is what Resolve returns for an empty configuration
var DefaultSettings = Resolve(nil)

// Resolve parses a raw string-keyed configuration into AppearanceSettings.
// Keys and values are case-insensitive. Missing keys take the value from
// DefaultRawSettings (blank values count as missing), unrecognised values
// fall back per field. It never fails.
func Resolve(raw map[string]string) AppearanceSettings {
	lookup := func(key string) string {
		if v, ok := lookupKey(raw, key); ok && strings.TrimSpace(v) != "" {
			return v
		}
		return DefaultRawSettings[key]
	}

	return AppearanceSettings{
		Size:        parseWithDefault(lookup(KeySize), sizeTable, SizeMedium),
		Corner:      parseWithDefault(lookup(KeyPosition), cornerTable, CornerNW),
		RecordColor: parseWithDefault(lookup(KeyRecordingColor), colorTable, ColorRed),
		StreamColor: parseWithDefault(lookup(KeyStreamingColor), colorTable, ColorRed),
		Duration:    parseWithDefault(lookup(KeyDuration), durationTable, DurationAlways),
		OffsetPx:    OffsetPx,
	}
}

func parseWithDefault[T any](raw string, table map[string]T, def T) T {
	if v, ok := table[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return v
	}
	return def
}

func lookupKey(raw map[string]string, key string) (string, bool) {
	matches := matchingKeys(raw, key)
	if len(matches) == 0 {
		return "", false
	}
	return raw[matches[0]], true
}

// matchingKeys lists the spellings of key present in raw in precedence order:
// the exact spelling first, then the rest sorted
func matchingKeys(raw map[string]string, key string) []string {
	var matches []string
	for k := range raw {
		if k != key && strings.EqualFold(k, key) {
			matches = append(matches, k)
		}
	}
	sort.Strings(matches)

	if _, ok := raw[key]; ok {
		matches = append([]string{key}, matches...)
	}
	return matches
}

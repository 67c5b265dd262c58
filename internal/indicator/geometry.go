package indicator

import (
	"fmt"

	"github.com/chess10kp/obs-indicator/internal/icons"
)

// channelPadding is the space added around each enabled channel's icon
const channelPadding = 4

// ChannelIcons holds the active and inactive bitmaps of one channel
type ChannelIcons struct {
	Active   icons.Image
	Inactive icons.Image
}

// Pick returns the bitmap for the channel state
func (c ChannelIcons) Pick(active bool) icons.Image {
	if active {
		return c.Active
	}
	return c.Inactive
}

// IconSet holds the icons of both channels at the resolved scale.
// A disabled channel has a zero ChannelIcons.
type IconSet struct {
	Record ChannelIcons
	Stream ChannelIcons
}

// For returns the icons of a channel
func (s IconSet) For(ch Channel) ChannelIcons {
	if ch == ChannelRecord {
		return s.Record
	}
	return s.Stream
}

// IconProvider returns bitmaps at a scale factor
type IconProvider interface {
	Get(name icons.Name, factor int) (icons.Image, error)
}

func activeIcon(ch Channel, color Color) icons.Name {
	if ch == ChannelRecord {
		if color == ColorGreen {
			return icons.RecordStartedGreen
		}
		return icons.RecordStartedRed
	}
	if color == ColorGreen {
		return icons.StreamStartedGreen
	}
	return icons.StreamStartedRed
}

func inactiveIcon(ch Channel) icons.Name {
	if ch == ChannelRecord {
		return icons.RecordStopped
	}
	return icons.StreamStopped
}

// LoadIconSet fetches the icons every enabled channel needs at the scale
// selected by the settings
func LoadIconSet(provider IconProvider, settings AppearanceSettings) (IconSet, error) {
	var set IconSet
	factor := settings.Size.ScaleFactor()

	for _, ch := range Channels {
		color := settings.ChannelColor(ch)
		if !color.Enabled() {
			continue
		}

		active, err := provider.Get(activeIcon(ch, color), factor)
		if err != nil {
			return IconSet{}, fmt.Errorf("%s channel: %w", ch, err)
		}
		inactive, err := provider.Get(inactiveIcon(ch), factor)
		if err != nil {
			return IconSet{}, fmt.Errorf("%s channel: %w", ch, err)
		}

		pair := ChannelIcons{Active: active, Inactive: inactive}
		if ch == ChannelRecord {
			set.Record = pair
		} else {
			set.Stream = pair
		}
	}

	return set, nil
}

// Geometry is the overlay rectangle in screen coordinates
type Geometry struct {
	Width  int
	Height int
	X      int
	Y      int
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", g.Width, g.Height, g.X, g.Y)
}

// ComputeGeometry lays out the enabled channels side by side and anchors the
// result to the configured corner of a screenW x screenH screen. Disabled
// channels contribute nothing.
func ComputeGeometry(settings AppearanceSettings, set IconSet, screenW, screenH int) Geometry {
	var width, height, columns int

	for _, ch := range Channels {
		if !settings.ChannelColor(ch).Enabled() {
			continue
		}
		img := set.For(ch).Active
		if img == nil {
			continue
		}
		width += img.Width()
		height = max(height, img.Height())
		columns++
	}

	if columns == 0 {
		return Geometry{X: settings.OffsetPx, Y: settings.OffsetPx}
	}

	width += channelPadding * columns
	height += channelPadding

	return Geometry{
		Width:  width,
		Height: height,
		X:      anchor(settings.Corner.Right(), screenW, width, settings.OffsetPx),
		Y:      anchor(settings.Corner.Bottom(), screenH, height, settings.OffsetPx),
	}
}

// anchor places a span of size either offset from the start of the screen
// axis or offset from its far end, never before offset
func anchor(far bool, screen, size, offset int) int {
	if !far {
		return offset
	}
	return max(offset, screen-offset-size)
}

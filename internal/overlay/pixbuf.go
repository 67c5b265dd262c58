package overlay

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gotk3/gotk3/gdk"

	"github.com/chess10kp/obs-indicator/internal/icons"
)

type pixbufImage struct {
	*gdk.Pixbuf
}

func (p *pixbufImage) Width() int  { return p.GetWidth() }
func (p *pixbufImage) Height() int { return p.GetHeight() }

// PixbufLoader decodes the indicator bitmaps from an asset directory
type PixbufLoader struct {
	dir string
}

func NewPixbufLoader(dir string) *PixbufLoader {
	return &PixbufLoader{dir: dir}
}

// CheckAssets reports the first bitmap missing from the asset directory
func (l *PixbufLoader) CheckAssets() error {
	for _, name := range icons.All {
		path := filepath.Join(l.dir, string(name))
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("missing icon %s: %w", path, err)
		}
	}
	return nil
}

func (l *PixbufLoader) Load(name icons.Name) (icons.Image, error) {
	pb, err := gdk.PixbufNewFromFile(filepath.Join(l.dir, string(name)))
	if err != nil {
		return nil, err
	}
	return &pixbufImage{pb}, nil
}

// Scale keeps every factor-th pixel in both directions, rounding the result
// size up
func (l *PixbufLoader) Scale(img icons.Image, factor int) (icons.Image, error) {
	src, ok := img.(*pixbufImage)
	if !ok {
		return nil, fmt.Errorf("unsupported image type %T", img)
	}
	if factor <= 1 {
		return src, nil
	}

	width := (src.Width() + factor - 1) / factor
	height := (src.Height() + factor - 1) / factor

	scaled, err := src.ScaleSimple(width, height, gdk.INTERP_NEAREST)
	if err != nil {
		return nil, err
	}
	return &pixbufImage{scaled}, nil
}

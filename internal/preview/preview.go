// Package preview renders small thumbnails of the selected image to temporary
// files so the console can point at them.
package preview

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"sync"

	"LeafScan/internal/session"

	"github.com/nfnt/resize"
)

// Thumbnail is a preview backed by a temporary PNG file
type Thumbnail struct {
	path string
	once sync.Once
	err  error
}

// Path returns the thumbnail file location
func (t *Thumbnail) Path() string {
	return t.path
}

// Release removes the thumbnail file. Further calls are no-ops.
func (t *Thumbnail) Release() error {
	t.once.Do(func() {
		if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
			t.err = fmt.Errorf("failed to remove preview: %w", err)
		}
	})
	return t.err
}

// Factory derives thumbnails no larger than Size pixels on either edge,
// written under Dir (the OS temp dir when empty).
type Factory struct {
	Dir  string
	Size uint
}

// Derive implements session.PreviewFunc.
func (f Factory) Derive(img session.Image) (session.Preview, error) {
	src, format, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", img.Name, err)
	}

	size := f.Size
	if size == 0 {
		size = 160
	}
	thumb := resize.Thumbnail(size, size, src, resize.Lanczos3)

	file, err := os.CreateTemp(f.Dir, "leafscan-preview-*.png")
	if err != nil {
		return nil, fmt.Errorf("failed to create preview file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, thumb); err != nil {
		os.Remove(file.Name())
		return nil, fmt.Errorf("failed to encode %s preview: %w", format, err)
	}

	return &Thumbnail{path: file.Name()}, nil
}

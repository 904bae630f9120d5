package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Phase is the stage of the upload-predict-display cycle
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseReady
	PhaseSubmitting
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseReady:
		return "ready"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Image is the selected leaf image. Data is treated as read-only once selected.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// LoadImage reads an image file from disk and sniffs its content type.
// Files that are not detected as image/* are rejected.
func LoadImage(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%s: %w", path, ErrNoImage)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return Image{}, fmt.Errorf("%s is not an image (detected %s)", path, mt.String())
	}

	return Image{
		Name:        filepath.Base(path),
		ContentType: mt.String(),
		Data:        data,
	}, nil
}

// PredictionResult is the validated classifier answer for one image
type PredictionResult struct {
	PredictedClass string
	Confidence     float64
	AllPredictions map[string]float64
}

func (r PredictionResult) clone() PredictionResult {
	all := make(map[string]float64, len(r.AllPredictions))
	for class, p := range r.AllPredictions {
		all[class] = p
	}
	r.AllPredictions = all
	return r
}

// Preview is a display-only handle derived from the selected image.
type Preview interface {
	// Path locates the rendered preview for the presentation layer.
	Path() string
	// Release frees whatever backs the preview.
	Release() error
}

// PreviewFunc derives a Preview from an image.
type PreviewFunc func(img Image) (Preview, error)

// Snapshot is an immutable copy of the session for rendering.
type Snapshot struct {
	Phase        Phase
	Image        *Image
	PreviewPath  string
	Result       *PredictionResult
	ErrorMessage string
	// Generation changes whenever the selection is replaced or cleared.
	Generation uint64
}

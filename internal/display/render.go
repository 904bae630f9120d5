package display

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"LeafScan/internal/session"

	"github.com/fatih/color"
)

const barWidth = 30

var (
	headerColor = color.New(color.Bold)
	mutedColor  = color.New(color.Faint)
	errorColor  = color.New(color.FgRed, color.Bold)
)

// Render writes a human readable view of snap to w.
func Render(w io.Writer, snap session.Snapshot) {
	switch snap.Phase {
	case session.PhaseIdle:
		mutedColor.Fprintln(w, "No image selected. Use /open <path> to choose a potato leaf image (JPG, JPEG or PNG).")

	case session.PhaseReady:
		renderSelection(w, snap)
		mutedColor.Fprintln(w, "Ready. Use /predict to detect disease.")

	case session.PhaseSubmitting:
		renderSelection(w, snap)
		fmt.Fprintln(w, "Analyzing...")

	case session.PhaseSucceeded:
		renderSelection(w, snap)
		if snap.Result != nil {
			renderResult(w, *snap.Result)
		}

	case session.PhaseFailed:
		renderSelection(w, snap)
		errorColor.Fprintf(w, "! %s\n", snap.ErrorMessage)
	}
}

func renderSelection(w io.Writer, snap session.Snapshot) {
	if snap.Image == nil {
		return
	}
	fmt.Fprintf(w, "Image:   %s (%d bytes)\n", snap.Image.Name, len(snap.Image.Data))
	if snap.PreviewPath != "" {
		mutedColor.Fprintf(w, "Preview: %s\n", snap.PreviewPath)
	}
}

func renderResult(w io.Writer, r session.PredictionResult) {
	style := Style(r.PredictedClass)
	c := style.Color().Add(color.Bold)

	headerColor.Fprint(w, "PREDICTION   ")
	c.Fprintln(w, style.Label)
	headerColor.Fprint(w, "CONFIDENCE   ")
	c.Fprintln(w, Percent(r.Confidence))

	fmt.Fprintln(w)
	headerColor.Fprintln(w, "ALL PROBABILITIES")

	classes := make([]string, 0, len(r.AllPredictions))
	for class := range r.AllPredictions {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	for _, class := range classes {
		p := r.AllPredictions[class]
		s := Style(class)
		fmt.Fprintf(w, "  %-14s ", s.Label)
		s.Color().Fprint(w, Bar(p, barWidth))
		fmt.Fprintf(w, " %7s\n", Percent(p))
	}
}

// Percent formats a probability with one decimal, e.g. 0.873 -> "87.3%".
func Percent(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}

// Bar draws p as a fixed width bar. Values outside [0, 1] are clamped for
// drawing only.
func Bar(p float64, width int) string {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	filled := int(p*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

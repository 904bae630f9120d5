package display

import (
	"bytes"
	"strings"
	"testing"

	"LeafScan/internal/classifier"
	"LeafScan/internal/session"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func TestStyleLookup(t *testing.T) {
	assert.Equal(t, ClassStyle{Label: "Late Blight", Hex: "#e74c3c"}, Style(classifier.ClassLateBlight))
	assert.Equal(t, "Early Blight", Style(classifier.ClassEarlyBlight).Label)
	assert.Equal(t, "Healthy", Style(classifier.ClassHealthy).Label)

	unknown := Style("Tomato___mosaic")
	assert.Equal(t, "Tomato___mosaic", unknown.Label)
	assert.Equal(t, NeutralHex, unknown.Hex)
}

func TestEveryClassHasAStyle(t *testing.T) {
	for _, class := range classifier.Classes {
		assert.NotEqual(t, NeutralHex, Style(class).Hex, class)
	}
}

func TestParseHex(t *testing.T) {
	r, g, b := parseHex("#e67e22")
	assert.Equal(t, []int{0xe6, 0x7e, 0x22}, []int{r, g, b})

	r, g, b = parseHex("nonsense")
	assert.Equal(t, []int{0, 0, 0}, []int{r, g, b})
}

func TestPercentAndBar(t *testing.T) {
	assert.Equal(t, "87.0%", Percent(0.87))
	assert.Equal(t, "5.0%", Percent(0.05))

	assert.Equal(t, "█████░░░░░", Bar(0.5, 10))
	assert.Equal(t, "░░░░░░░░░░", Bar(-1, 10))
	assert.Equal(t, "██████████", Bar(3, 10))
}

func TestRenderPhases(t *testing.T) {
	img := &session.Image{Name: "leaf.jpg", Data: []byte("1234")}

	tests := []struct {
		name string
		snap session.Snapshot
		want []string
	}{
		{
			name: "idle",
			snap: session.Snapshot{Phase: session.PhaseIdle},
			want: []string{"No image selected"},
		},
		{
			name: "ready",
			snap: session.Snapshot{Phase: session.PhaseReady, Image: img, PreviewPath: "/tmp/p.png"},
			want: []string{"leaf.jpg (4 bytes)", "/tmp/p.png", "/predict"},
		},
		{
			name: "submitting",
			snap: session.Snapshot{Phase: session.PhaseSubmitting, Image: img},
			want: []string{"Analyzing..."},
		},
		{
			name: "failed",
			snap: session.Snapshot{Phase: session.PhaseFailed, Image: img, ErrorMessage: "classifier down"},
			want: []string{"! classifier down"},
		},
		{
			name: "succeeded",
			snap: session.Snapshot{
				Phase: session.PhaseSucceeded,
				Image: img,
				Result: &session.PredictionResult{
					PredictedClass: classifier.ClassLateBlight,
					Confidence:     0.87,
					AllPredictions: map[string]float64{
						classifier.ClassEarlyBlight: 0.05,
						classifier.ClassLateBlight:  0.87,
						classifier.ClassHealthy:     0.08,
					},
				},
			},
			want: []string{"Late Blight", "87.0%", "Early Blight", "5.0%", "Healthy", "8.0%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Render(&buf, tt.snap)
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestRenderOrdersProbabilitiesByClass(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, session.Snapshot{
		Phase: session.PhaseSucceeded,
		Result: &session.PredictionResult{
			PredictedClass: classifier.ClassHealthy,
			Confidence:     0.9,
			AllPredictions: map[string]float64{
				classifier.ClassHealthy:     0.9,
				classifier.ClassEarlyBlight: 0.1,
			},
		},
	})

	out := buf.String()
	probs := out[strings.Index(out, "ALL PROBABILITIES"):]
	assert.Less(t, strings.Index(probs, "Early Blight"), strings.Index(probs, "Healthy"))
}

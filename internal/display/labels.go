package display

import (
	"strconv"
	"strings"

	"LeafScan/internal/classifier"

	"github.com/fatih/color"
)

// ClassStyle is how a class identifier is shown to the user
type ClassStyle struct {
	Label string
	Hex   string
}

// NeutralHex colors anything without a style of its own.
const NeutralHex = "#2c3e50"

var classStyles = map[string]ClassStyle{
	classifier.ClassEarlyBlight: {Label: "Early Blight", Hex: "#e67e22"},
	classifier.ClassLateBlight:  {Label: "Late Blight", Hex: "#e74c3c"},
	classifier.ClassHealthy:     {Label: "Healthy", Hex: "#27ae60"},
}

// Style returns the style for class. Unknown classes keep their raw
// identifier as label and use the neutral color.
func Style(class string) ClassStyle {
	if s, ok := classStyles[class]; ok {
		return s
	}
	return ClassStyle{Label: class, Hex: NeutralHex}
}

// Color builds a terminal color from the style's hex value.
func (s ClassStyle) Color() *color.Color {
	r, g, b := parseHex(s.Hex)
	return color.RGB(r, g, b)
}

func parseHex(hex string) (int, int, int) {
	v, err := strconv.ParseUint(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}

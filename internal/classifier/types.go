package classifier

// Class identifiers produced by the potato leaf classifier
const (
	ClassEarlyBlight = "Potato___Early_blight"
	ClassLateBlight  = "Potato___Late_blight"
	ClassHealthy     = "Potato___healthy"
)

// Classes lists the identifiers in the classifier's output order.
var Classes = []string{ClassEarlyBlight, ClassLateBlight, ClassHealthy}

// Known reports whether class is one of Classes.
func Known(class string) bool {
	for _, c := range Classes {
		if c == class {
			return true
		}
	}
	return false
}

// FormField is the multipart field that carries the image.
const FormField = "file"

// PredictResponse represents the JSON body returned by the classifier
type PredictResponse struct {
	Class          string             `json:"class" validate:"required"`
	Confidence     *float64           `json:"confidence" validate:"required,gte=0,lte=1"`
	AllPredictions map[string]float64 `json:"all_predictions" validate:"required"`
}

package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"LeafScan/internal/session"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// maxResponseBytes bounds how much of a classifier reply is read.
const maxResponseBytes = 1 << 20

// Classifier maps an image to disease-class probabilities
type Classifier interface {
	Predict(ctx context.Context, img session.Image) (session.PredictionResult, error)
}

// Options configures an HTTPClient
type Options struct {
	Endpoint   string
	Timeout    time.Duration
	HTTPClient *http.Client // overrides Timeout when set
	Logger     *slog.Logger
	Tracer     trace.Tracer
	Meter      metric.Meter
}

// HTTPClient implements Classifier against the remote /predict endpoint
type HTTPClient struct {
	endpoint   string
	httpClient *http.Client
	validate   *validator.Validate
	logger     *slog.Logger
	tracer     trace.Tracer
	duration   metric.Float64Histogram
}

// NewHTTPClient creates a classifier client for the given endpoint
func NewHTTPClient(opts Options) (*HTTPClient, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("classifier endpoint cannot be empty")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("leafscan")
	}
	meter := opts.Meter
	if meter == nil {
		meter = otel.Meter("leafscan")
	}

	duration, err := meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	logger.Info("created classifier client", "endpoint", opts.Endpoint)
	return &HTTPClient{
		endpoint:   opts.Endpoint,
		httpClient: httpClient,
		validate:   validator.New(),
		logger:     logger,
		tracer:     tracer,
		duration:   duration,
	}, nil
}

// Predict uploads img as multipart form data and parses the classifier's answer.
// Exactly one request is sent; failures come back as *ConnectionError,
// *ServerError or *MalformedResponseError.
func (c *HTTPClient) Predict(ctx context.Context, img session.Image) (session.PredictionResult, error) {
	ctx, span := c.tracer.Start(ctx, "classifier.predict", trace.WithAttributes(
		attribute.String("image.name", img.Name),
		attribute.Int("image.bytes", len(img.Data)),
	))
	defer span.End()

	result, status, err := c.predict(ctx, img)
	if status != 0 {
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Kind(err))
		return session.PredictionResult{}, err
	}
	return result, nil
}

func (c *HTTPClient) predict(ctx context.Context, img session.Image) (session.PredictionResult, int, error) {
	body, contentType, err := encodeUpload(img)
	if err != nil {
		return session.PredictionResult{}, 0, fmt.Errorf("failed to encode upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return session.PredictionResult{}, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.duration.Record(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		return session.PredictionResult{}, 0, &ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		// The body only decorates the error; a failed read keeps what arrived.
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		return session.PredictionResult{}, resp.StatusCode, &ServerError{
			StatusCode: resp.StatusCode,
			Body:       truncate(string(raw), 256),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return session.PredictionResult{}, resp.StatusCode, &ConnectionError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	result, err := c.parse(raw)
	if err != nil {
		return session.PredictionResult{}, resp.StatusCode, err
	}

	c.logger.Debug("classifier responded",
		"class", result.PredictedClass,
		"confidence", result.Confidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, resp.StatusCode, nil
}

// parse decodes and validates a 2xx body.
func (c *HTTPClient) parse(raw []byte) (session.PredictionResult, error) {
	var apiResp struct {
		PredictResponse
		// The classifier reports model-server trouble in-band with a 200.
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return session.PredictionResult{}, &MalformedResponseError{Err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}
	if apiResp.Class == "" && apiResp.Error != "" {
		return session.PredictionResult{}, &MalformedResponseError{Err: fmt.Errorf("classifier reported: %s", apiResp.Error)}
	}
	if err := c.validate.Struct(apiResp.PredictResponse); err != nil {
		return session.PredictionResult{}, &MalformedResponseError{Err: err}
	}

	if !Known(apiResp.Class) {
		c.logger.Warn("classifier returned an unknown class", "class", apiResp.Class)
	}

	return session.PredictionResult{
		PredictedClass: apiResp.Class,
		Confidence:     *apiResp.Confidence,
		AllPredictions: apiResp.AllPredictions,
	}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeUpload builds the multipart body with the image under FormField.
func encodeUpload(img session.Image) (*bytes.Buffer, string, error) {
	name := img.Name
	if name == "" {
		name = "image"
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(img.Data).String()
	}

	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		FormField, quoteEscaper.Replace(name)))
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ Classifier = (*HTTPClient)(nil)

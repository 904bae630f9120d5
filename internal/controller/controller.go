package controller

import (
	"context"
	"log/slog"
	"time"

	"LeafScan/internal/classifier"
	"LeafScan/internal/session"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// FailureMessage is shown for every failed prediction, whatever the cause.
const FailureMessage = "Could not get a prediction from the classifier. Make sure the prediction server is running and try again."

// Outcome describes one resolved submission
type Outcome struct {
	RequestID  string
	Image      string
	Kind       string // "success" or a classifier error kind
	Class      string
	Confidence float64
	Error      string
	Duration   time.Duration
	Stale      bool // resolved after the session moved on; not applied
}

// Recorder receives every applied outcome, e.g. for the prediction journal
type Recorder interface {
	Record(ctx context.Context, o Outcome) error
}

// Controller drives the Submitting phase of the session and owns all writes
// to the store.
type Controller struct {
	store      *session.Store
	classifier classifier.Classifier
	recorder   Recorder
	logger     *slog.Logger
	tracer     trace.Tracer
	outcomes   metric.Int64Counter
}

// Option customises a Controller
type Option func(*Controller)

// WithRecorder journals applied outcomes.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithTelemetry sets the tracer and meter.
func WithTelemetry(tracer trace.Tracer, meter metric.Meter) Option {
	return func(c *Controller) {
		c.tracer = tracer
		if meter != nil {
			c.outcomes = newOutcomeCounter(meter, c.logger)
		}
	}
}

// New creates a Controller over store using cl for predictions
func New(store *session.Store, cl classifier.Classifier, opts ...Option) *Controller {
	c := &Controller{
		store:      store,
		classifier: cl,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer("leafscan")
	}
	if c.outcomes == nil {
		c.outcomes = newOutcomeCounter(otel.Meter("leafscan"), c.logger)
	}
	return c
}

func newOutcomeCounter(meter metric.Meter, logger *slog.Logger) metric.Int64Counter {
	counter, err := meter.Int64Counter(
		"leafscan.predictions",
		metric.WithDescription("Resolved prediction requests by outcome"),
	)
	if err != nil {
		logger.Warn("failed to create outcome counter", "error", err)
		return nil
	}
	return counter
}

// Read returns the current session snapshot.
func (c *Controller) Read() session.Snapshot {
	return c.store.Read()
}

// Observe registers fn to be called with every new snapshot.
func (c *Controller) Observe(fn func(session.Snapshot)) {
	c.store.Observe(fn)
}

// SetImage selects img, replacing any previous selection. A request still in
// flight for the previous selection will be discarded when it resolves.
func (c *Controller) SetImage(img session.Image) error {
	return c.store.SetImage(img)
}

// Reset clears the session.
func (c *Controller) Reset() {
	c.store.Reset()
}

// Submit sends the selected image to the classifier and blocks until the
// outcome has been applied. It is a no-op returning false unless the session
// is Ready, so at most one request is ever in flight. Other goroutines may keep
// calling SetImage and Reset while Submit waits.
func (c *Controller) Submit(ctx context.Context) bool {
	ticket, ok := c.store.BeginSubmit()
	if !ok {
		c.logger.Debug("submit ignored", "phase", c.store.Read().Phase.String())
		return false
	}

	requestID := uuid.NewString()
	ctx, span := c.tracer.Start(ctx, "controller.submit", trace.WithAttributes(
		attribute.String("request.id", requestID),
		attribute.String("image.name", ticket.Image.Name),
		attribute.Int64("session.generation", int64(ticket.Generation)),
	))
	defer span.End()

	c.logger.Info("submitting image", "request_id", requestID, "image", ticket.Image.Name, "generation", ticket.Generation)

	start := time.Now()
	result, err := c.classifier.Predict(ctx, ticket.Image)
	out := Outcome{
		RequestID: requestID,
		Image:     ticket.Image.Name,
		Duration:  time.Since(start),
	}

	if err != nil {
		out.Kind = classifier.Kind(err)
		out.Error = err.Error()
		out.Stale = !c.store.Fail(ticket, FailureMessage)
		c.logger.Error("prediction failed",
			"request_id", requestID,
			"kind", out.Kind,
			"stale", out.Stale,
			"error", err,
		)
	} else {
		out.Kind = "success"
		out.Class = result.PredictedClass
		out.Confidence = result.Confidence
		out.Stale = !c.store.Succeed(ticket, result)
		c.logger.Info("prediction succeeded",
			"request_id", requestID,
			"class", result.PredictedClass,
			"confidence", result.Confidence,
			"stale", out.Stale,
			"duration_ms", out.Duration.Milliseconds(),
		)
	}

	span.SetAttributes(attribute.String("outcome", out.Kind), attribute.Bool("stale", out.Stale))
	c.finish(ctx, out)
	return true
}

// SubmitAsync starts Submit on its own goroutine. The returned channel yields
// Submit's result once the outcome has been applied, then closes.
func (c *Controller) SubmitAsync(ctx context.Context) <-chan bool {
	done := make(chan bool, 1)
	go func() {
		defer close(done)
		done <- c.Submit(ctx)
	}()
	return done
}

func (c *Controller) finish(ctx context.Context, out Outcome) {
	if c.outcomes != nil {
		c.outcomes.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", out.Kind),
			attribute.Bool("stale", out.Stale),
		))
	}

	if out.Stale {
		c.logger.Info("discarded stale prediction", "request_id", out.RequestID, "image", out.Image)
		return
	}
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(ctx, out); err != nil {
		c.logger.Warn("failed to record outcome", "request_id", out.RequestID, "error", err)
	}
}

package controller

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"LeafScan/internal/classifier"
	"LeafScan/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedClassifier blocks each Predict call until a reply is pushed.
type gatedClassifier struct {
	calls   atomic.Int32
	started chan session.Image
	replies chan reply
}

type reply struct {
	result session.PredictionResult
	err    error
}

func newGatedClassifier() *gatedClassifier {
	return &gatedClassifier{
		started: make(chan session.Image, 4),
		replies: make(chan reply, 4),
	}
}

func (g *gatedClassifier) Predict(ctx context.Context, img session.Image) (session.PredictionResult, error) {
	g.calls.Add(1)
	g.started <- img
	r := <-g.replies
	return r.result, r.err
}

type memoryRecorder struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (m *memoryRecorder) Record(ctx context.Context, o Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, o)
	return nil
}

func (m *memoryRecorder) all() []Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Outcome(nil), m.outcomes...)
}

func leaf(name string) session.Image {
	return session.Image{Name: name, ContentType: "image/jpeg", Data: []byte("jpeg:" + name)}
}

func newHTTPController(t *testing.T, endpoint string, opts ...Option) *Controller {
	t.Helper()
	cl, err := classifier.NewHTTPClient(classifier.Options{Endpoint: endpoint, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return New(session.NewStore(nil, nil), cl, opts...)
}

func TestSubmitSucceedsWithMockedClassifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"class":"Potato___Late_blight","confidence":0.87,"all_predictions":{"Potato___Early_blight":0.05,"Potato___Late_blight":0.87,"Potato___healthy":0.08}}`)
	}))
	defer srv.Close()

	rec := &memoryRecorder{}
	c := newHTTPController(t, srv.URL+"/predict", WithRecorder(rec))
	require.NoError(t, c.SetImage(leaf("leaf.jpg")))

	require.True(t, c.Submit(context.Background()))
	snap := c.Read()

	assert.Equal(t, session.PhaseSucceeded, snap.Phase)
	require.NotNil(t, snap.Result)
	assert.Equal(t, "Potato___Late_blight", snap.Result.PredictedClass)
	assert.Equal(t, 0.87, snap.Result.Confidence)
	assert.Len(t, snap.Result.AllPredictions, 3)
	assert.Empty(t, snap.ErrorMessage)

	outcomes := rec.all()
	require.Len(t, outcomes, 1)
	assert.Equal(t, "success", outcomes[0].Kind)
	assert.Equal(t, "leaf.jpg", outcomes[0].Image)
	assert.NotEmpty(t, outcomes[0].RequestID)
}

func TestSubmitFailsWhenConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	rec := &memoryRecorder{}
	c := newHTTPController(t, "http://"+addr+"/predict", WithRecorder(rec))
	require.NoError(t, c.SetImage(leaf("leaf.jpg")))

	require.True(t, c.Submit(context.Background()))
	snap := c.Read()

	assert.Equal(t, session.PhaseFailed, snap.Phase)
	assert.NotEmpty(t, snap.ErrorMessage)
	assert.Nil(t, snap.Result)

	outcomes := rec.all()
	require.Len(t, outcomes, 1)
	assert.Equal(t, classifier.KindConnection, outcomes[0].Kind)
}

func TestFailuresShareOneMessage(t *testing.T) {
	errs := []error{
		&classifier.ConnectionError{Err: errors.New("refused")},
		&classifier.ServerError{StatusCode: 500},
		&classifier.MalformedResponseError{Err: errors.New("missing class")},
	}

	for _, e := range errs {
		g := newGatedClassifier()
		c := New(session.NewStore(nil, nil), g)
		require.NoError(t, c.SetImage(leaf("a.jpg")))
		g.replies <- reply{err: e}

		require.True(t, c.Submit(context.Background()))
		snap := c.Read()
		assert.Equal(t, session.PhaseFailed, snap.Phase)
		assert.Equal(t, FailureMessage, snap.ErrorMessage)
	}
}

func TestSubmitIsNoOpUnlessReady(t *testing.T) {
	g := newGatedClassifier()
	c := New(session.NewStore(nil, nil), g)

	before := c.Read()
	assert.False(t, c.Submit(context.Background()))
	assert.Equal(t, before, c.Read())

	require.NoError(t, c.SetImage(leaf("a.jpg")))
	g.replies <- reply{result: session.PredictionResult{PredictedClass: classifier.ClassHealthy, Confidence: 1}}
	require.True(t, c.Submit(context.Background()))

	before = c.Read()
	assert.False(t, c.Submit(context.Background()))
	assert.Equal(t, before, c.Read())
	assert.Equal(t, int32(1), g.calls.Load())
}

func TestSubmitWhileSubmittingIssuesNoSecondRequest(t *testing.T) {
	g := newGatedClassifier()
	c := New(session.NewStore(nil, nil), g)
	require.NoError(t, c.SetImage(leaf("a.jpg")))

	done := c.SubmitAsync(context.Background())
	<-g.started
	assert.Equal(t, session.PhaseSubmitting, c.Read().Phase)

	assert.False(t, c.Submit(context.Background()))

	g.replies <- reply{result: session.PredictionResult{PredictedClass: classifier.ClassHealthy, Confidence: 0.99}}
	assert.True(t, <-done)
	assert.Equal(t, session.PhaseSucceeded, c.Read().Phase)
	assert.Equal(t, int32(1), g.calls.Load())
}

func TestStaleResultAfterReselectionIsDiscarded(t *testing.T) {
	g := newGatedClassifier()
	rec := &memoryRecorder{}
	c := New(session.NewStore(nil, nil), g, WithRecorder(rec))
	require.NoError(t, c.SetImage(leaf("old.jpg")))

	done := c.SubmitAsync(context.Background())
	assert.Equal(t, "old.jpg", (<-g.started).Name)

	require.NoError(t, c.SetImage(leaf("new.jpg")))
	g.replies <- reply{result: session.PredictionResult{PredictedClass: classifier.ClassLateBlight, Confidence: 0.9}}
	require.True(t, <-done)

	snap := c.Read()
	assert.Equal(t, session.PhaseReady, snap.Phase)
	assert.Equal(t, "new.jpg", snap.Image.Name)
	assert.Nil(t, snap.Result)
	assert.Empty(t, rec.all())

	// The newer selection can still be submitted normally.
	g.replies <- reply{result: session.PredictionResult{PredictedClass: classifier.ClassHealthy, Confidence: 0.7}}
	require.True(t, c.Submit(context.Background()))
	<-g.started
	snap = c.Read()
	assert.Equal(t, session.PhaseSucceeded, snap.Phase)
	assert.Equal(t, classifier.ClassHealthy, snap.Result.PredictedClass)
}

func TestStaleFailureAfterResetIsDiscarded(t *testing.T) {
	g := newGatedClassifier()
	c := New(session.NewStore(nil, nil), g)
	require.NoError(t, c.SetImage(leaf("a.jpg")))

	done := c.SubmitAsync(context.Background())
	<-g.started
	c.Reset()
	g.replies <- reply{err: &classifier.ConnectionError{Err: errors.New("timeout")}}
	<-done

	snap := c.Read()
	assert.Equal(t, session.PhaseIdle, snap.Phase)
	assert.Empty(t, snap.ErrorMessage)
	assert.Nil(t, snap.Image)
}

func TestSubmitAsyncReportsNoOp(t *testing.T) {
	c := New(session.NewStore(nil, nil), newGatedClassifier())
	assert.False(t, <-c.SubmitAsync(context.Background()))
}

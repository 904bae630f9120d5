package session

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrNoImage is returned when a selection carries no image bytes.
var ErrNoImage = errors.New("no image data")

// Ticket ties a submission to the selection it was issued for.
type Ticket struct {
	Generation uint64
	Image      Image
}

// Store holds the single Session. Reads are open to everyone; the transition
// methods are driven by the controller.
type Store struct {
	mu         sync.Mutex
	phase      Phase
	image      *Image
	preview    Preview
	result     *PredictionResult
	errMessage string
	generation uint64

	newPreview PreviewFunc
	logger     *slog.Logger
	observers  []func(Snapshot)

	// Each mutation takes a sequence number under mu and is delivered once
	// every earlier one has been, with no lock held during observer calls.
	seq         uint64
	deliverMu   sync.Mutex
	deliverCond *sync.Cond
	delivered   uint64
}

// NewStore creates a Store in the Idle phase. newPreview may be nil, in which
// case sessions carry no preview.
func NewStore(newPreview PreviewFunc, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		phase:      PhaseIdle,
		newPreview: newPreview,
		logger:     logger,
	}
	s.deliverCond = sync.NewCond(&s.deliverMu)
	return s
}

// Observe registers fn to receive a snapshot after every mutation.
// Snapshots arrive in mutation order. Observers may call Read but must not
// mutate the store.
func (s *Store) Observe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Read returns the current snapshot.
func (s *Store) Read() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// SetImage replaces the selection and moves the session to Ready.
func (s *Store) SetImage(img Image) error {
	if len(img.Data) == 0 {
		return ErrNoImage
	}

	// Derive outside the lock; decoding a preview can be slow.
	var preview Preview
	if s.newPreview != nil {
		p, err := s.newPreview(img)
		if err != nil {
			s.logger.Warn("failed to derive preview", "image", img.Name, "error", err)
		} else {
			preview = p
		}
	}

	s.mu.Lock()
	old := s.preview
	selected := img
	s.image = &selected
	s.preview = preview
	s.result = nil
	s.errMessage = ""
	s.phase = PhaseReady
	s.generation++
	snap := s.snapshotLocked()
	s.publishLocked(snap)

	s.release(old)
	s.logger.Info("image selected", "image", img.Name, "bytes", len(img.Data), "generation", snap.Generation)
	return nil
}

// Reset clears the session back to Idle. Resetting an Idle session does nothing.
func (s *Store) Reset() {
	s.mu.Lock()
	if s.phase == PhaseIdle {
		s.mu.Unlock()
		return
	}
	old := s.preview
	s.image = nil
	s.preview = nil
	s.result = nil
	s.errMessage = ""
	s.phase = PhaseIdle
	s.generation++
	snap := s.snapshotLocked()
	s.publishLocked(snap)

	s.release(old)
	s.logger.Info("session reset", "generation", snap.Generation)
}

// BeginSubmit moves a Ready session to Submitting. It reports false and changes
// nothing when the session is in any other phase.
func (s *Store) BeginSubmit() (Ticket, bool) {
	s.mu.Lock()
	if s.phase != PhaseReady || s.image == nil {
		s.mu.Unlock()
		return Ticket{}, false
	}
	s.phase = PhaseSubmitting
	s.result = nil
	s.errMessage = ""
	ticket := Ticket{Generation: s.generation, Image: *s.image}
	s.publishLocked(s.snapshotLocked())
	return ticket, true
}

// Succeed records a result for t. It reports false when t is stale.
func (s *Store) Succeed(t Ticket, result PredictionResult) bool {
	r := result.clone()
	return s.complete(t, func() {
		s.phase = PhaseSucceeded
		s.result = &r
		s.errMessage = ""
	})
}

// Fail records a failure for t. It reports false when t is stale.
func (s *Store) Fail(t Ticket, message string) bool {
	return s.complete(t, func() {
		s.phase = PhaseFailed
		s.result = nil
		s.errMessage = message
	})
}

func (s *Store) complete(t Ticket, apply func()) bool {
	s.mu.Lock()
	if s.generation != t.Generation || s.phase != PhaseSubmitting {
		s.mu.Unlock()
		return false
	}
	apply()
	s.publishLocked(s.snapshotLocked())
	return true
}

// publishLocked releases s.mu and hands snap to observers after every
// earlier snapshot has been delivered.
func (s *Store) publishLocked(snap Snapshot) {
	s.seq++
	seq := s.seq
	observers := s.observers[:len(s.observers):len(s.observers)]
	s.mu.Unlock()

	s.deliverMu.Lock()
	for s.delivered != seq-1 {
		s.deliverCond.Wait()
	}
	s.deliverMu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}

	s.deliverMu.Lock()
	s.delivered = seq
	s.deliverCond.Broadcast()
	s.deliverMu.Unlock()
}

func (s *Store) release(p Preview) {
	if p == nil {
		return
	}
	if err := p.Release(); err != nil {
		s.logger.Warn("failed to release preview", "path", p.Path(), "error", err)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Phase:        s.phase,
		ErrorMessage: s.errMessage,
		Generation:   s.generation,
	}
	if s.image != nil {
		img := *s.image
		snap.Image = &img
	}
	if s.preview != nil {
		snap.PreviewPath = s.preview.Path()
	}
	if s.result != nil {
		r := s.result.clone()
		snap.Result = &r
	}
	return snap
}

package mainvolume

import (
	"errors"
	"sync"

	"gargoton.petite-maison-orange.fr/eric/pmovolume/internal/objectstore"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Metrics receives the service counters. The pmometrics package provides a
// Prometheus implementation.
type Metrics interface {
	PropertySet(property, outcome string)
	Notified(delivered, pruned int)
	ObserverCount(n int)
}

type noMetrics struct{}

func (noMetrics) PropertySet(string, string) {}
func (noMetrics) Notified(int, int)          {}
func (noMetrics) ObserverCount(int)          {}

// Outcome labels reported to Metrics.PropertySet.
const (
	OutcomeChanged   = "changed"
	OutcomeUnchanged = "unchanged"
	OutcomeRejected  = "rejected"
)

// Service is the only entry point to the volume state. Every read and write
// runs under a single mutex, and observers are notified after the mutex is
// released.
type Service struct {
	mu        sync.Mutex
	state     *State
	observers objectstore.ObjectSet[Observer]
	seq       uint64

	// A write committed with sequence n emits once emitted == n-1. mu is
	// never held while waiting for that turn.
	emitMu   sync.Mutex
	emitTurn *sync.Cond
	emitted  uint64

	logger   *log.Logger
	metrics  Metrics
	limiter  *rate.Limiter
	maxSteps uint32
}

type Option func(*Service)

func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithStepCountLimiter bounds the rate of StepCount writes. Writes above the
// rate fail with ErrRateLimited.
func WithStepCountLimiter(l *rate.Limiter) Option {
	return func(s *Service) {
		s.limiter = l
	}
}

// WithMaxStepCount rejects step counts above n with ErrInvalidArgument.
// Zero means no limit.
func WithMaxStepCount(n uint32) Option {
	return func(s *Service) {
		s.maxSteps = n
	}
}

func NewService(state *State, opts ...Option) *Service {
	s := &Service{
		state:     state,
		observers: make(objectstore.ObjectSet[Observer]),
		logger:    log.StandardLogger(),
		metrics:   noMetrics{},
	}
	s.emitTurn = sync.NewCond(&s.emitMu)

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Get returns the current value of the named property.
func (s *Service) Get(name string) (uint32, error) {
	p, err := ParseProperty(name)
	if err != nil {
		return 0, propertyError("get", name, nil, ErrUnknownProperty)
	}

	snap := s.GetAll()
	v, _ := snap.Value(p)

	s.logger.Debugf("🎚️ Get %s (%d)", p, v)
	return v, nil
}

// GetAll returns the three properties read in a single critical section.
func (s *Service) GetAll() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.Snapshot()
}

// Set writes a property. value may be any integer type, an integral float
// or a base 10 string. When the write changes the state, every observer is
// notified before Set returns.
func (s *Service) Set(name string, value any) error {
	p, err := ParseProperty(name)
	if err != nil {
		s.metrics.PropertySet(name, OutcomeRejected)
		return propertyError("set", name, value, ErrUnknownProperty)
	}

	s.logger.Debugf("🎚️ Set %s (%v)", p, value)

	switch p {
	case PropertyStepCount:
		n, err := toUint32(value)
		if err != nil || n < 1 || (s.maxSteps > 0 && n > s.maxSteps) {
			return s.reject(p, value, ErrInvalidArgument)
		}
		return s.apply("set", p, value, func(st *State) (bool, error) {
			if st.Snapshot().StepCount == n {
				return false, nil
			}
			if s.limiter != nil && !s.limiter.Allow() {
				return false, ErrRateLimited
			}
			return st.SetStepCount(n)
		})

	case PropertyCurrentStep:
		n, err := toUint32(value)
		switch {
		case errors.Is(err, errNotNumeric):
			return s.reject(p, value, ErrInvalidArgument)
		case err != nil:
			// négatif ou trop grand : hors de l'échelle dans tous les cas
			return s.reject(p, value, ErrOutOfRange)
		}
		return s.apply("set", p, value, func(st *State) (bool, error) {
			return st.SetCurrentStep(n)
		})

	default:
		return s.reject(p, value, ErrReadOnlyProperty)
	}
}

// Configure replaces the scale and the current step in one write, producing
// at most one notification. The step is clamped to the new scale.
func (s *Service) Configure(stepCount, currentStep uint32) error {
	if s.maxSteps > 0 && stepCount > s.maxSteps {
		return s.reject(PropertyStepCount, stepCount, ErrInvalidArgument)
	}

	return s.apply("configure", PropertyStepCount, stepCount, func(st *State) (bool, error) {
		return st.Configure(stepCount, currentStep)
	})
}

func (s *Service) reject(p Property, value any, err error) error {
	s.logger.Debugf("❌ Set %s (%v) rejected: %v", p, value, err)
	s.metrics.PropertySet(p.String(), OutcomeRejected)
	return propertyError("set", p.String(), value, err)
}

func (s *Service) apply(op string, p Property, value any, mutate func(*State) (bool, error)) error {
	s.mu.Lock()

	changed, err := mutate(s.state)
	if err != nil {
		s.mu.Unlock()
		s.logger.Debugf("❌ %s %s (%v) rejected: %v", op, p, value, err)
		s.metrics.PropertySet(p.String(), OutcomeRejected)
		return propertyError(op, p.String(), value, err)
	}

	if !changed {
		s.mu.Unlock()
		s.metrics.PropertySet(p.String(), OutcomeUnchanged)
		return nil
	}

	s.seq++
	snap := s.state.Snapshot()
	ev := StepsUpdated{
		StepCount:   snap.StepCount,
		CurrentStep: snap.CurrentStep,
		Seq:         s.seq,
	}
	observers := s.observers.Values()
	s.mu.Unlock()

	s.waitTurn(ev.Seq)
	dead := s.emit(ev, observers)
	s.endTurn(ev.Seq)

	s.metrics.PropertySet(p.String(), OutcomeChanged)
	s.prune(dead)

	return nil
}

func (s *Service) waitTurn(seq uint64) {
	s.emitMu.Lock()
	for s.emitted != seq-1 {
		s.emitTurn.Wait()
	}
	s.emitMu.Unlock()
}

func (s *Service) endTurn(seq uint64) {
	s.emitMu.Lock()
	s.emitted = seq
	s.emitMu.Unlock()
	s.emitTurn.Broadcast()
}

func (s *Service) emit(ev StepsUpdated, observers []Observer) []Observer {
	var dead []Observer

	for _, o := range observers {
		if err := o.Notify(ev); err != nil {
			s.logger.Warnf("❌ Cannot notify %s of %s: %v", o.Name(), ev, err)
			dead = append(dead, o)
		}
	}

	s.logger.Infof("📢 %s sent to %d observer(s)", ev, len(observers)-len(dead))
	s.metrics.Notified(len(observers)-len(dead), len(dead))

	return dead
}

func (s *Service) prune(dead []Observer) {
	if len(dead) == 0 {
		return
	}

	for _, o := range dead {
		if s.Unsubscribe(o.Name()) {
			s.logger.Infof("🧹 Observer %s pruned", o.Name())
		}
		if c, ok := o.(interface{ Close() error }); ok {
			_ = c.Close()
		}
	}
}

// Subscribe registers an observer. Registering a name twice keeps the first
// observer and returns false.
func (s *Service) Subscribe(o Observer) bool {
	s.mu.Lock()
	err := s.observers.Insert(o)
	n := s.observers.Len()
	s.mu.Unlock()

	if err != nil {
		return false
	}

	s.metrics.ObserverCount(n)
	s.logger.Infof("🔔 Observer %s subscribed (%d registered)", o.Name(), n)
	return true
}

// Unsubscribe removes the named observer. Removing an unknown name is a
// no-op and returns false.
func (s *Service) Unsubscribe(name string) bool {
	s.mu.Lock()
	_, ok := s.observers.Remove(name)
	n := s.observers.Len()
	s.mu.Unlock()

	if ok {
		s.metrics.ObserverCount(n)
		s.logger.Infof("👋 Observer %s unsubscribed (%d registered)", name, n)
	}
	return ok
}

func (s *Service) ObserverCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.observers.Len()
}

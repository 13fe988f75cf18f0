package detect

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/officebot/loanarm/pkg/inventory"
	"github.com/officebot/loanarm/pkg/robot"
	"github.com/officebot/loanarm/pkg/statusbus"
)

// State is the supervisor's lifecycle phase.
type State string

const (
	StateIdle        State = "idle"
	StateMovingToObs State = "moving_to_observation"
	StateCountdown   State = "countdown"
	StateWatching    State = "watching"
	StateStabilizing State = "stabilizing"
	StateTriggering  State = "triggering"
	StateStopped     State = "stopped"
)

// Config tunes detection timing. The zero value selects defaults.
type Config struct {
	DetectionInterval time.Duration // time between classifier polls
	InitialWait       time.Duration // countdown before polling starts
	SafetyWait        time.Duration // settle time between stable detection and pickup
	StableCount       int           // consecutive matching samples required
}

// DefaultConfig returns the production detection timing.
func DefaultConfig() Config {
	return Config{
		DetectionInterval: time.Second,
		InitialWait:       3 * time.Second,
		SafetyWait:        2 * time.Second,
		StableCount:       3,
	}
}

// Supervisor owns the return-mode loop. It moves the arm to the
// observation position, polls the classifier, and once the same item
// is identified StableCount times in a row it triggers the return
// transaction and marks the item available.
//
// A supervisor runs once; after it stops, construct a new one.
type Supervisor struct {
	orch   *robot.Orchestrator
	cls    Classifier
	ledger *inventory.Ledger
	events *statusbus.Bus
	cfg    Config

	mu      sync.Mutex
	state   State
	started bool
	cancel  context.CancelFunc

	samples chan Sample
	done    chan struct{}
}

// New wires a supervisor. The events bus may be shared; if nil the
// orchestrator's bus is used.
func New(orch *robot.Orchestrator, cls Classifier, ledger *inventory.Ledger, events *statusbus.Bus, cfg Config) *Supervisor {
	if events == nil {
		events = orch.Events()
	}
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	return &Supervisor{
		orch:    orch,
		cls:     cls,
		ledger:  ledger,
		events:  events,
		cfg:     cfg,
		state:   StateIdle,
		samples: make(chan Sample, 1),
		done:    make(chan struct{}),
	}
}

// State returns the current lifecycle phase.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Samples returns a channel carrying every classifier sample, stable
// or not, for display. Old samples are dropped when the consumer lags.
func (s *Supervisor) Samples() <-chan Sample {
	return s.samples
}

// Done is closed when the run loop has exited.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// Stop cancels the run loop. The loop finishes its current primitive,
// then exits; a best-effort move home is issued asynchronously.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run executes the return-mode loop until ctx is cancelled or Stop is
// called. It blocks; run it in its own goroutine and consume Samples
// and the status bus from the presentation layer.
func (s *Supervisor) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("supervisor already ran; construct a new one")
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	defer close(s.done)
	defer s.shutdown()

	s.setState(StateMovingToObs)
	if err := s.orch.MoveToObservation(ctx); err != nil {
		return fmt.Errorf("move to observation: %w", err)
	}

	s.setState(StateCountdown)
	for remaining := int(s.cfg.InitialWait / time.Second); remaining > 0; remaining-- {
		s.events.Printf("", "Place item in drop zone, detection starts in %ds", remaining)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Second):
		}
	}

	s.setState(StateWatching)
	s.events.Printf("", "Watching for items")

	var (
		run  int
		last robot.Item
	)

	ticker := time.NewTicker(s.cfg.DetectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		// The ticker may fire in the same instant as cancellation;
		// never start another poll once stopped.
		if ctx.Err() != nil {
			return nil
		}

		sample := s.classify(ctx)
		s.publishSample(sample)

		if !sample.OK {
			run, last = 0, ""
			s.setState(StateWatching)
			continue
		}

		if sample.Item == last {
			run++
		} else {
			run, last = 1, sample.Item
		}
		s.setState(StateStabilizing)
		s.events.Printf("", "Detected %s at %.0f%% (%d/%d)", sample.Item, sample.Confidence*100, run, s.cfg.StableCount)

		if run < s.cfg.StableCount {
			continue
		}

		s.setState(StateTriggering)
		s.events.Printf("", "Stable detection of %s, settling before pickup", sample.Item)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.cfg.SafetyWait):
		}

		if err := s.orch.Return(ctx, sample.Item); err != nil {
			// The item stays LOANED_OUT: its physical location is
			// uncertain. Keep watching.
			s.events.Printf("", "Return of %s failed: %v", sample.Item, err)
		} else if err := s.ledger.MarkAvailable(sample.Item); err != nil {
			s.events.Printf("", "Ledger update for %s failed: %v", sample.Item, err)
		}

		run, last = 0, ""
		s.setState(StateWatching)
		s.events.Printf("", "Watching for items")
	}
}

func (s *Supervisor) classify(ctx context.Context) Sample {
	sample, err := s.cls.Classify(ctx)
	if err != nil {
		s.events.Printf("", "Classifier error: %v", err)
		return Sample{Note: err.Error()}
	}
	return sample
}

// publishSample delivers the latest sample, replacing a stale one if
// the consumer has not caught up.
func (s *Supervisor) publishSample(sample Sample) {
	select {
	case s.samples <- sample:
	default:
		select {
		case <-s.samples:
		default:
		}
		select {
		case s.samples <- sample:
		default:
		}
	}
}

func (s *Supervisor) shutdown() {
	s.setState(StateStopped)
	s.events.Printf("", "Return mode stopped")
	go func() {
		if err := s.orch.MoveHome(context.Background()); err != nil {
			s.events.Printf("", "Move home after return mode failed: %v", err)
		}
	}()
}

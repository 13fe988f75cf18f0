package detect

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/officebot/loanarm/pkg/inventory"
	"github.com/officebot/loanarm/pkg/robot"
)

// nopDriver accepts every write. Joint moves fail once jointWrites
// exceeds failAfter (0 means never fail, -1 fails immediately).
type nopDriver struct {
	mu          sync.Mutex
	jointWrites int
	failAfter   int
}

func (d *nopDriver) WriteJoints(context.Context, robot.Joints, int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jointWrites++
	if d.failAfter != 0 && d.jointWrites > d.failAfter {
		return errors.New("servo timeout")
	}
	return nil
}

func (d *nopDriver) WriteChannel(context.Context, int, int, int) error { return nil }

func testOrchestrator(drv robot.ServoDriver) *robot.Orchestrator {
	cfg := robot.Config{SpeedNormal: 1, SpeedSlow: 1, SpeedFast: 1}
	return robot.NewOrchestrator(drv, robot.NewStoreDefaults(), nil, cfg)
}

func fastDetectConfig() Config {
	return Config{
		DetectionInterval: 2 * time.Millisecond,
		SafetyWait:        time.Millisecond,
		StableCount:       3,
	}
}

func pen(conf float64) Sample {
	return Sample{OK: true, Item: robot.Pen, Confidence: conf}
}

func mouse(conf float64) Sample {
	return Sample{OK: true, Item: robot.Mouse, Confidence: conf}
}

func TestSupervisor_StableDetectionTriggersReturn(t *testing.T) {
	// A mismatch resets the run: the trigger fires only after three
	// consecutive Pen samples, on the sixth poll.
	cls := NewScripted(pen(0.9), pen(0.9), mouse(0.9), pen(0.9), pen(0.9), pen(0.9))
	ledger := inventory.NewLedger()
	sup := New(testOrchestrator(&nopDriver{}), cls, ledger, nil, fastDetectConfig())

	go func() { _ = sup.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		return ledger.IsAvailable(robot.Pen)
	}, 5*time.Second, 2*time.Millisecond, "pen never marked available")

	// The script is exhausted after the trigger, so nothing else may
	// become available
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, ledger.Counts()[inventory.Available])
	assert.False(t, ledger.IsAvailable(robot.Mouse))
	assert.GreaterOrEqual(t, cls.Calls(), 6)

	sup.Stop()
	select {
	case <-sup.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop")
	}
	assert.Equal(t, StateStopped, sup.State())
}

func TestSupervisor_StopHaltsPolling(t *testing.T) {
	cls := NewScriptedLoop(Sample{Note: "no item recognized"})
	sup := New(testOrchestrator(&nopDriver{}), cls, inventory.NewLedger(), nil, fastDetectConfig())

	errCh := make(chan error, 1)
	go func() { errCh <- sup.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		return cls.Calls() >= 3
	}, 5*time.Second, time.Millisecond, "polling never started")

	sup.Stop()
	select {
	case <-sup.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop")
	}
	require.NoError(t, <-errCh, "stopping is not an error")

	// No classification may start after the loop exited
	stopped := cls.Calls()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, cls.Calls())
	assert.Equal(t, StateStopped, sup.State())
}

func TestSupervisor_ObservationFailureAborts(t *testing.T) {
	cls := NewScriptedLoop(pen(0.9))
	drv := &nopDriver{failAfter: -1}
	sup := New(testOrchestrator(drv), cls, inventory.NewLedger(), nil, fastDetectConfig())

	err := sup.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, robot.ErrMotion)
	assert.Equal(t, StateStopped, sup.State())
	assert.Zero(t, cls.Calls(), "no polling without an observation position")
}

func TestSupervisor_ReturnFailureKeepsItemLoaned(t *testing.T) {
	cls := NewScripted(pen(0.9), pen(0.9), pen(0.9))
	// The first joint write is the observation move; every later one
	// fails, so the triggered return cannot complete.
	drv := &nopDriver{failAfter: 1}
	ledger := inventory.NewLedger()
	sup := New(testOrchestrator(drv), cls, ledger, nil, fastDetectConfig())

	errCh := make(chan error, 1)
	go func() { errCh <- sup.Run(context.Background()) }()

	// The stable run completes, the return fails, and the loop keeps
	// watching with the ledger untouched
	require.Eventually(t, func() bool {
		return cls.Calls() >= 4
	}, 5*time.Second, time.Millisecond, "supervisor stopped watching after a failed return")

	assert.False(t, ledger.IsAvailable(robot.Pen))

	sup.Stop()
	<-sup.Done()
	require.NoError(t, <-errCh)
}

func TestSupervisor_RunsOnce(t *testing.T) {
	cls := NewScriptedLoop(Sample{Note: "no item recognized"})
	sup := New(testOrchestrator(&nopDriver{}), cls, inventory.NewLedger(), nil, fastDetectConfig())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- sup.Run(ctx) }()

	require.Eventually(t, func() bool {
		return cls.Calls() >= 1
	}, 5*time.Second, time.Millisecond)
	cancel()
	<-sup.Done()
	require.NoError(t, <-errCh)

	assert.Error(t, sup.Run(context.Background()))
}

func TestSupervisor_SamplesCarryLatest(t *testing.T) {
	cls := NewScriptedLoop(pen(0.42))
	sup := New(testOrchestrator(&nopDriver{}), cls, inventory.NewLedger(), nil, fastDetectConfig())

	go func() { _ = sup.Run(context.Background()) }()
	defer func() {
		sup.Stop()
		<-sup.Done()
	}()

	select {
	case s := <-sup.Samples():
		assert.Equal(t, robot.Pen, s.Item)
		assert.Equal(t, 0.42, s.Confidence)
	case <-time.After(5 * time.Second):
		t.Fatal("no sample published")
	}
}

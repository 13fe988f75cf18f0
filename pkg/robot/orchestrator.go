package robot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/officebot/loanarm/pkg/statusbus"
)

// Movement speeds in milliseconds per commanded move.
const (
	SpeedNormal = 1000
	SpeedSlow   = 500
	SpeedFast   = 1500
)

// Safety-net angles used only when calibration is missing. Not
// validated physical limits.
const (
	fallbackGripperOpen   = 131
	fallbackGripperClosed = 15

	fallbackLiftShoulder    = 20 // degrees to raise the shoulder when travel_position is unset
	fallbackLiftElbow       = 10 // degrees to bend the elbow when travel_position is unset
	fallbackObservationLift = 15 // shoulder raise over drop_zone when observation_position is unset
)

// Config tunes transaction timing. The zero value selects defaults.
type Config struct {
	SpeedNormal int // ms per full joint write
	SpeedSlow   int // ms per gripper write
	SpeedFast   int

	SettleBuffer  time.Duration // added to the commanded speed after a joint write
	GripperSettle time.Duration // wait after a gripper write
	GripPause     time.Duration // pause around grip and release
}

// DefaultConfig returns the calibrated production timing.
func DefaultConfig() Config {
	return Config{
		SpeedNormal:   SpeedNormal,
		SpeedSlow:     SpeedSlow,
		SpeedFast:     SpeedFast,
		SettleBuffer:  500 * time.Millisecond,
		GripperSettle: 600 * time.Millisecond,
		GripPause:     300 * time.Millisecond,
	}
}

// Orchestrator sequences the arm through pick/place motions and
// composes them into Borrow and Return transactions. It is a pure
// motion executor: the availability ledger is the caller's concern.
//
// At most one transaction runs at a time; a second request fails with
// ErrBusy rather than queueing. Cancellation is cooperative and never
// aborts a primitive already in flight.
type Orchestrator struct {
	driver ServoDriver
	store  *Store
	events *statusbus.Bus
	cfg    Config

	mu   sync.RWMutex
	pose Joints // best-known joint angles; the board reports no encoder state
	tx   string

	busy atomic.Bool
}

// NewOrchestrator wires an orchestrator to a driver and position
// store. The events bus may be shared with other components; if nil a
// private bus is created.
func NewOrchestrator(driver ServoDriver, store *Store, events *statusbus.Bus, cfg Config) *Orchestrator {
	if events == nil {
		events = statusbus.New()
	}
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	return &Orchestrator{
		driver: driver,
		store:  store,
		events: events,
		cfg:    cfg,
		pose:   Joints{90, 90, 90, 90, 90, 90},
	}
}

// Events returns the status bus carrying progress updates.
func (o *Orchestrator) Events() *statusbus.Bus { return o.events }

// Pose returns the best-known joint configuration. The gripper slot
// holds the last commanded gripper angle.
func (o *Orchestrator) Pose() Joints {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.pose
}

// Busy reports whether a transaction is in flight.
func (o *Orchestrator) Busy() bool { return o.busy.Load() }

func (o *Orchestrator) say(format string, args ...any) {
	o.mu.RLock()
	tx := o.tx
	o.mu.RUnlock()
	o.events.Printf(tx, format, args...)
}

func (o *Orchestrator) setTx(id string) {
	o.mu.Lock()
	o.tx = id
	o.mu.Unlock()
}

func (o *Orchestrator) gripperAngle() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.pose[JointGripper]
}

// settle blocks for the physical move to finish. The board is
// fire-and-forget, so timing is the only completion signal. Not
// interruptible: aborting mid-move would leave the pose unknown.
func (o *Orchestrator) settle(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// moveJoints is the base primitive: validate, write, settle, then
// commit the new pose.
func (o *Orchestrator) moveJoints(ctx context.Context, j Joints, speedMs int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := j.Validate(); err != nil {
		return err
	}
	if err := o.driver.WriteJoints(ctx, j, speedMs); err != nil {
		return fmt.Errorf("%w: %w", ErrMotion, err)
	}
	o.settle(time.Duration(speedMs)*time.Millisecond + o.cfg.SettleBuffer)
	o.mu.Lock()
	o.pose = j
	o.mu.Unlock()
	return nil
}

// MoveTo moves the arm to a named position. With keepGripper the
// stored configuration's gripper slot is overridden by the current
// gripper angle, so a destination never clobbers a grip mid-carry.
func (o *Orchestrator) MoveTo(ctx context.Context, name string, keepGripper bool) error {
	j, err := o.store.Get(name)
	if err != nil {
		return err
	}
	if keepGripper {
		j[JointGripper] = o.gripperAngle()
	}
	o.say("Moving to %s", name)
	return o.moveJoints(ctx, j, o.cfg.SpeedNormal)
}

// MoveHome returns the arm to the home position.
func (o *Orchestrator) MoveHome(ctx context.Context) error {
	return o.MoveTo(ctx, PosHome, false)
}

func (o *Orchestrator) setGripper(ctx context.Context, name string, fallback int, verb string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	angle, err := o.store.Gripper(name)
	if err != nil {
		angle = fallback
		o.say("No calibrated %s angle, using default %d", name, fallback)
	}
	o.say("%s (angle %d)", verb, angle)
	if err := o.driver.WriteChannel(ctx, GripperChannel, angle, o.cfg.SpeedSlow); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMotion, name, err)
	}
	o.settle(o.cfg.GripperSettle)
	o.mu.Lock()
	o.pose[JointGripper] = angle
	o.mu.Unlock()
	return nil
}

// OpenGripper opens the gripper to its calibrated open angle.
func (o *Orchestrator) OpenGripper(ctx context.Context) error {
	return o.setGripper(ctx, PosGripperOpen, fallbackGripperOpen, "Opening gripper")
}

// CloseGripper closes the gripper to its calibrated closed angle.
func (o *Orchestrator) CloseGripper(ctx context.Context) error {
	return o.setGripper(ctx, PosGripperClosed, fallbackGripperClosed, "Closing gripper")
}

// LiftToTravelHeight raises the arm vertically before any lateral
// motion, keeping the current base rotation and gripper so a low sweep
// cannot knock items over. Composes a configuration from
// travel_position's shoulder, elbow and wrist pitch; without a
// calibrated travel_position it applies a small fixed lift instead.
func (o *Orchestrator) LiftToTravelHeight(ctx context.Context) error {
	o.say("Lifting to safe height")
	cur := o.Pose()

	travel, err := o.store.Get(PosTravel)
	if err != nil {
		o.say("No calibrated travel position, using fallback lift")
		lifted := cur
		lifted[JointShoulder] = max(JointMin, lifted[JointShoulder]-fallbackLiftShoulder)
		lifted[JointElbow] = min(JointMax, lifted[JointElbow]+fallbackLiftElbow)
		return o.moveJoints(ctx, lifted, o.cfg.SpeedNormal)
	}

	lifted := cur
	lifted[JointShoulder] = travel[JointShoulder]
	lifted[JointElbow] = travel[JointElbow]
	lifted[JointWristPitch] = travel[JointWristPitch]
	return o.moveJoints(ctx, lifted, o.cfg.SpeedNormal)
}

// approachFor composes the safe approach for a target: the target's
// base rotation at travel height, gripper kept as it is.
func (o *Orchestrator) approachFor(target Joints) (Joints, error) {
	travel, err := o.store.Get(PosTravel)
	if err != nil {
		return Joints{}, err
	}
	a := target
	a[JointShoulder] = travel[JointShoulder]
	a[JointElbow] = travel[JointElbow]
	a[JointWristPitch] = travel[JointWristPitch]
	a[JointGripper] = o.gripperAngle()
	return a, nil
}

// Pick grabs the item at a named position: open gripper, approach at
// travel height, descend, grip, lift. The approach and the final lift
// are safety enhancements and fail soft; the descent and the grip are
// required.
func (o *Orchestrator) Pick(ctx context.Context, from string) error {
	o.say("Picking from %s", from)

	if err := o.OpenGripper(ctx); err != nil {
		o.say("Could not open gripper, continuing: %v", err)
	}

	target, err := o.store.Get(from)
	if err != nil {
		return err
	}

	if approach, aerr := o.approachFor(target); aerr != nil {
		o.say("No calibrated travel position, approaching %s directly", from)
	} else {
		o.say("Moving above %s", from)
		if err := o.moveJoints(ctx, approach, o.cfg.SpeedNormal); err != nil {
			o.say("Could not reach approach position: %v", err)
		}
	}

	o.say("Descending to %s", from)
	if err := o.MoveTo(ctx, from, true); err != nil {
		return fmt.Errorf("descend to %s: %w", from, err)
	}
	o.settle(o.cfg.GripPause)

	if err := o.CloseGripper(ctx); err != nil {
		return fmt.Errorf("grip at %s: %w", from, err)
	}
	o.settle(o.cfg.GripPause)

	o.say("Lifting item")
	if err := o.LiftToTravelHeight(ctx); err != nil {
		o.say("Could not lift to travel height: %v", err)
	}
	return nil
}

// Place lowers the carried item onto a named position and releases it.
// Same fail-soft split as Pick: approach and lift are best effort, the
// descent and the release are required.
func (o *Orchestrator) Place(ctx context.Context, to string) error {
	o.say("Placing at %s", to)

	target, err := o.store.Get(to)
	if err != nil {
		return err
	}

	if approach, aerr := o.approachFor(target); aerr != nil {
		o.say("No calibrated travel position, moving to %s directly", to)
	} else {
		o.say("Moving above %s", to)
		if err := o.moveJoints(ctx, approach, o.cfg.SpeedNormal); err != nil {
			o.say("Could not reach approach position: %v", err)
		}
	}

	o.say("Descending to %s", to)
	if err := o.MoveTo(ctx, to, true); err != nil {
		return fmt.Errorf("descend to %s: %w", to, err)
	}

	if err := o.OpenGripper(ctx); err != nil {
		return fmt.Errorf("release at %s: %w", to, err)
	}
	o.settle(o.cfg.GripPause)

	o.say("Lifting arm")
	if err := o.LiftToTravelHeight(ctx); err != nil {
		o.say("Could not lift to travel height: %v", err)
	}
	return nil
}

// MoveToObservation positions the camera over the drop zone. Without a
// calibrated observation_position it derives one from drop_zone with
// the shoulder raised for a wider view.
func (o *Orchestrator) MoveToObservation(ctx context.Context) error {
	o.say("Moving to observation position")

	if j, err := o.store.Get(PosObservation); err == nil {
		return o.moveJoints(ctx, j, o.cfg.SpeedNormal)
	}

	o.say("No calibrated observation position, deriving from drop zone")
	dz, err := o.store.Get(PosDropZone)
	if err != nil {
		return err
	}
	dz[JointShoulder] = max(JointMin, dz[JointShoulder]-fallbackObservationLift)
	return o.moveJoints(ctx, dz, o.cfg.SpeedNormal)
}

// tryMove is the recovery helper: move, log on failure, never
// propagate. Used only at documented recovery points. Runs detached
// from the transaction's context so recovery outlives cancellation.
func (o *Orchestrator) tryMove(name string) {
	if err := o.MoveTo(context.Background(), name, false); err != nil {
		o.say("Recovery move to %s failed: %v", name, err)
	}
}

// Borrow executes the borrow transaction for an item: pick from its
// storage slot, deliver to the drop zone, return home. On any failure
// the arm recovers to home best-effort and the original error is
// reported. The ledger is not touched; marking the loan is the
// caller's job once the physical move succeeded.
func (o *Orchestrator) Borrow(ctx context.Context, item Item) error {
	if !o.busy.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: another transaction is running", ErrBusy)
	}
	defer o.busy.Store(false)

	o.setTx(shortID())
	defer o.setTx("")

	storage, err := o.store.StorageFor(item)
	if err != nil {
		return err
	}

	o.say("Borrowing %s", item)
	if err := o.Pick(ctx, storage); err != nil {
		return o.failHome(fmt.Errorf("pick from %s: %w", storage, err))
	}

	o.say("Delivering to drop zone")
	if err := o.Place(ctx, PosDropZone); err != nil {
		return o.failHome(fmt.Errorf("place at drop zone: %w", err))
	}

	o.say("Returning home")
	if err := o.MoveHome(ctx); err != nil {
		return o.failHome(fmt.Errorf("move home: %w", err))
	}

	o.say("%s borrowed successfully", item)
	return nil
}

// Return executes the return transaction for an item: pick from the
// drop zone, store it, then take up the observation position (falling
// back to home) ready for the next item.
func (o *Orchestrator) Return(ctx context.Context, item Item) error {
	if !o.busy.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: another transaction is running", ErrBusy)
	}
	defer o.busy.Store(false)

	o.setTx(shortID())
	defer o.setTx("")

	storage, err := o.store.StorageFor(item)
	if err != nil {
		return err
	}

	o.say("Returning %s", item)
	if err := o.Pick(ctx, PosDropZone); err != nil {
		return o.failObservation(fmt.Errorf("pick from drop zone: %w", err))
	}

	o.say("Storing %s", item)
	if err := o.Place(ctx, storage); err != nil {
		return o.failObservation(fmt.Errorf("place at %s: %w", storage, err))
	}

	if err := o.MoveToObservation(ctx); err != nil {
		o.say("Could not reach observation position, going home: %v", err)
		o.tryMove(PosHome)
	}

	o.say("%s returned successfully", item)
	return nil
}

// failHome reports a failed transaction after a best-effort recovery
// to home.
func (o *Orchestrator) failHome(cause error) error {
	o.say("Transaction failed: %v", cause)
	o.tryMove(PosHome)
	return cause
}

// failObservation reports a failed return after best-effort recovery
// to the observation position, then home.
func (o *Orchestrator) failObservation(cause error) error {
	o.say("Transaction failed: %v", cause)
	if err := o.MoveToObservation(context.Background()); err != nil {
		o.tryMove(PosHome)
	}
	return cause
}

// EmergencyStop freezes the arm by re-commanding every servo with its
// last known angle at zero speed, then clears the in-progress flag.
func (o *Orchestrator) EmergencyStop(ctx context.Context) error {
	o.say("EMERGENCY STOP")
	pose := o.Pose()

	var firstErr error
	for ch := 1; ch <= NumServos; ch++ {
		if err := o.driver.WriteChannel(ctx, ch, pose[ch-1], 0); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%w: emergency stop channel %d: %w", ErrMotion, ch, err)
		}
	}
	o.busy.Store(false)
	return firstErr
}

func shortID() string {
	return uuid.NewString()[:8]
}

package robot

import "context"

// Servo channel numbers on the arm's controller board. The gripper is
// a dedicated channel written independently of full joint writes.
const (
	NumServos      = 6
	GripperChannel = 6
)

// ServoDriver is the boundary to the arm hardware. Writes are
// fire-and-forget: the board gives no completion acknowledgment or
// angle feedback, so callers wait a settle duration proportional to
// the commanded speed.
type ServoDriver interface {
	// WriteJoints commands all six servos at once. speedMs is the
	// commanded movement duration in milliseconds; zero means "as fast
	// as possible".
	WriteJoints(ctx context.Context, angles Joints, speedMs int) error

	// WriteChannel commands a single servo channel (1-based).
	WriteChannel(ctx context.Context, channel, angle, speedMs int) error
}

package robot

import (
	"context"
	"fmt"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// Raw position mapping. The 0-180 degree command range occupies the
// middle half of the servo's 0-4095 tick travel, centered at 2048.
const (
	rawCenter       = 2048
	rawTicksPerSpan = 2048 // ticks covering the full 180 degree span
)

func degreesToRaw(angle int) int {
	return rawCenter + (angle-90)*rawTicksPerSpan/180
}

// FeetechDriver drives the arm over a feetech serial servo bus.
// Channels 1 through 6 map to servo IDs 1 through 6.
type FeetechDriver struct {
	bus   *feetech.Bus
	group *feetech.ServoGroup
}

// NewFeetechDriver opens the serial bus and enables torque on all six
// servos.
func NewFeetechDriver(ctx context.Context, port string) (*FeetechDriver, error) {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	ids := make([]int, NumServos)
	for i := range ids {
		ids[i] = i + 1
	}
	group := feetech.NewServoGroupByIDs(bus, ids...)

	if err := group.EnableAll(ctx); err != nil {
		bus.Close()
		return nil, fmt.Errorf("enable servos: %w", err)
	}

	return &FeetechDriver{bus: bus, group: group}, nil
}

// Close disables torque and closes the bus.
func (d *FeetechDriver) Close() error {
	if err := d.group.DisableAll(context.Background()); err != nil {
		d.bus.Close()
		return fmt.Errorf("disable servos: %w", err)
	}
	return d.bus.Close()
}

// WriteJoints commands all six servos with a sync write. The feetech
// servos move at their configured speed profile; speedMs only informs
// the caller's settle wait.
func (d *FeetechDriver) WriteJoints(ctx context.Context, angles Joints, _ int) error {
	positions := make(feetech.PositionMap, NumServos)
	for i, angle := range angles {
		positions[i+1] = degreesToRaw(angle)
	}
	if err := d.group.SetPositions(ctx, positions); err != nil {
		return fmt.Errorf("write joints: %w", err)
	}
	return nil
}

// WriteChannel commands a single servo.
func (d *FeetechDriver) WriteChannel(ctx context.Context, channel, angle, _ int) error {
	if channel < 1 || channel > NumServos {
		return fmt.Errorf("invalid servo channel %d", channel)
	}
	positions := feetech.PositionMap{channel: degreesToRaw(angle)}
	if err := d.group.SetPositions(ctx, positions); err != nil {
		return fmt.Errorf("write channel %d: %w", channel, err)
	}
	return nil
}

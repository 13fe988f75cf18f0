package main

import (
	"context"
	"fmt"

	"github.com/officebot/loanarm/pkg/config"
	"github.com/officebot/loanarm/pkg/detect"
	"github.com/officebot/loanarm/pkg/inventory"
	"github.com/officebot/loanarm/pkg/robot"
	"github.com/officebot/loanarm/pkg/statusbus"
)

// CommonFlags are shared by every subcommand.
type CommonFlags struct {
	Config   string `long:"config" description:"settings file (default: loanarm.yaml)"`
	Simulate bool   `long:"simulate" description:"run without arm hardware or classifier"`
}

// app bundles the wired core components for a command invocation.
type app struct {
	cfg    *config.Settings
	store  *robot.Store
	ledger *inventory.Ledger
	bus    *statusbus.Bus
	orch   *robot.Orchestrator

	hw *robot.FeetechDriver // nil in simulation
}

// newApp loads settings and positions, opens the driver (or a
// simulated one) and wires the orchestrator.
func newApp(flags CommonFlags, needsArm bool) (*app, error) {
	cfg, err := config.Load(flags.Config)
	if err != nil {
		return nil, err
	}

	store, err := robot.NewStore(cfg.PositionsFile)
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}

	a := &app{
		cfg:    cfg,
		store:  store,
		ledger: inventory.NewLedger(),
		bus:    statusbus.New(),
	}

	var driver robot.ServoDriver
	motion := robot.DefaultConfig()
	motion.SpeedNormal = cfg.SpeedNormal
	motion.SpeedSlow = cfg.SpeedSlow
	motion.SpeedFast = cfg.SpeedFast

	switch {
	case flags.Simulate:
		driver = simDriver{}
		// No hardware to wait for.
		motion.SpeedNormal, motion.SpeedSlow, motion.SpeedFast = 1, 1, 1
		motion.SettleBuffer, motion.GripperSettle, motion.GripPause = 0, 0, 0
	case needsArm:
		hw, err := robot.NewFeetechDriver(context.Background(), cfg.SerialPort)
		if err != nil {
			return nil, fmt.Errorf("connect to arm on %s: %w", cfg.SerialPort, err)
		}
		a.hw = hw
		driver = hw
	default:
		driver = simDriver{}
	}

	a.orch = robot.NewOrchestrator(driver, store, a.bus, motion)
	return a, nil
}

// classifier returns the configured classifier boundary: the HTTP
// inference sidecar, or a scripted loop in simulation.
func (a *app) classifier(simulate bool) detect.Classifier {
	if !simulate {
		return detect.NewHTTPClassifier(a.cfg.ClassifierURL, a.cfg.ConfidenceThreshold)
	}
	return detect.NewScriptedLoop(
		detect.Sample{Note: "no item recognized"},
		detect.Sample{Note: "no item recognized"},
		detect.Sample{OK: true, Item: robot.Pen, Confidence: 0.91},
		detect.Sample{OK: true, Item: robot.Pen, Confidence: 0.88},
		detect.Sample{OK: true, Item: robot.Pen, Confidence: 0.93},
		detect.Sample{Note: "no item recognized"},
		detect.Sample{OK: true, Item: robot.Mouse, Confidence: 0.85},
		detect.Sample{OK: true, Item: robot.Mouse, Confidence: 0.89},
		detect.Sample{OK: true, Item: robot.Mouse, Confidence: 0.90},
		detect.Sample{Note: "no item recognized"},
	)
}

// Close releases the arm if hardware was opened.
func (a *app) Close() error {
	if a.hw != nil {
		return a.hw.Close()
	}
	return nil
}

// simDriver accepts every write. Used by simulation and by commands
// that never move the arm.
type simDriver struct{}

func (simDriver) WriteJoints(context.Context, robot.Joints, int) error { return nil }
func (simDriver) WriteChannel(context.Context, int, int, int) error    { return nil }

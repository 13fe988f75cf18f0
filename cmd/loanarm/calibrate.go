package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/officebot/loanarm/pkg/robot"
)

type CalibrateCommand struct {
	CommonFlags
}

var (
	calHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

const calDone = "(save and exit)"

func (c *CalibrateCommand) Execute(args []string) error {
	a, err := newApp(c.CommonFlags, true)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Println(calHeaderStyle.Render("LoanArm Calibration"))
	fmt.Println()

	for {
		name, err := pickPosition(a.store)
		if err != nil {
			return err
		}
		if name == calDone {
			break
		}

		if name == robot.PosGripperOpen || name == robot.PosGripperClosed {
			if err := calibrateGripper(a, name); err != nil {
				return err
			}
		} else {
			if err := calibrateJoints(a, name); err != nil {
				return err
			}
		}
	}

	if err := a.store.Flush(); err != nil {
		return fmt.Errorf("save positions: %w", err)
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("Positions saved to %s", a.cfg.PositionsFile)))
	return nil
}

func pickPosition(store *robot.Store) (string, error) {
	joints, gripper := store.Snapshot()

	var options []huh.Option[string]
	for _, name := range store.Names() {
		label := name
		if j, ok := joints[name]; ok {
			label = fmt.Sprintf("%s  %v", name, j)
		} else if g, ok := gripper[name]; ok {
			label = fmt.Sprintf("%s  %d", name, g)
		} else {
			label = fmt.Sprintf("%s  (not calibrated)", name)
		}
		options = append(options, huh.NewOption(label, name))
	}
	options = append(options, huh.NewOption(calDone, calDone))

	var name string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Position to calibrate").
				Options(options...).
				Value(&name),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return name, nil
}

func calibrateJoints(a *app, name string) error {
	cur := a.orch.Pose()
	if j, err := a.store.Get(name); err == nil {
		cur = j
	}

	input := jointsToString(cur)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Joint angles for %s", name)).
				Description(fmt.Sprintf("Six comma-separated degrees, %d-%d each", robot.JointMin, robot.JointMax)).
				Value(&input).
				Validate(func(s string) error {
					_, err := parseJoints(s)
					return err
				}),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	j, err := parseJoints(input)
	if err != nil {
		return err
	}
	if err := a.store.Set(name, j); err != nil {
		return err
	}
	return maybeMove(a, name)
}

func calibrateGripper(a *app, name string) error {
	cur, err := a.store.Gripper(name)
	if err != nil {
		cur = 90
	}

	input := strconv.Itoa(cur)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Angle for %s", name)).
				Description(fmt.Sprintf("Degrees, %d-%d", robot.JointMin, robot.JointMax)).
				Value(&input).
				Validate(func(s string) error {
					angle, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil {
						return fmt.Errorf("not a number: %q", s)
					}
					return robot.ValidateAngle(angle)
				}),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	angle, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return err
	}
	return a.store.SetGripper(name, angle)
}

// maybeMove offers to drive the arm to the freshly recorded position
// so the operator can verify it.
func maybeMove(a *app, name string) error {
	var move bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Move arm to %s to verify?", name)).
				Affirmative("Move").
				Negative("Skip").
				Value(&move),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	if !move {
		return nil
	}
	if err := a.orch.MoveTo(context.Background(), name, false); err != nil {
		fmt.Printf("Move failed: %v\n", err)
	}
	return nil
}

func jointsToString(j robot.Joints) string {
	parts := make([]string, len(j))
	for i, a := range j {
		parts[i] = strconv.Itoa(a)
	}
	return strings.Join(parts, ",")
}

func parseJoints(s string) (robot.Joints, error) {
	parts := strings.Split(s, ",")
	if len(parts) != len(robot.Joints{}) {
		return robot.Joints{}, fmt.Errorf("need %d angles, got %d", len(robot.Joints{}), len(parts))
	}
	var j robot.Joints
	for i, p := range parts {
		angle, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return robot.Joints{}, fmt.Errorf("joint %d: not a number: %q", i+1, p)
		}
		if err := robot.ValidateAngle(angle); err != nil {
			return robot.Joints{}, fmt.Errorf("joint %d: %w", i+1, err)
		}
		j[i] = angle
	}
	return j, nil
}

package robot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Joint angle limits in degrees. Values outside the range are rejected,
// never clamped.
const (
	JointMin = 0
	JointMax = 180
)

// Well-known position labels.
const (
	PosHome        = "home"
	PosDropZone    = "drop_zone"
	PosTravel      = "travel_position"
	PosObservation = "observation_position"

	PosGripperOpen   = "gripper_open"
	PosGripperClosed = "gripper_closed"
)

// Joints is a full joint configuration: six servo angles in degrees,
// base rotation first, gripper last.
type Joints [6]int

// Joint indices within a Joints configuration.
const (
	JointBase       = 0
	JointShoulder   = 1
	JointElbow      = 2
	JointWristPitch = 3
	JointWristRoll  = 4
	JointGripper    = 5
)

// ValidateAngle checks a single servo angle against the joint limits.
func ValidateAngle(angle int) error {
	if angle < JointMin || angle > JointMax {
		return fmt.Errorf("%w: angle %d out of range [%d, %d]", ErrValidation, angle, JointMin, JointMax)
	}
	return nil
}

// Validate checks every angle in the configuration.
func (j Joints) Validate() error {
	for i, a := range j {
		if err := ValidateAngle(a); err != nil {
			return fmt.Errorf("joint %d: %w", i+1, err)
		}
	}
	return nil
}

// DefaultPositionsFile is the positions file relative to the working
// directory.
const DefaultPositionsFile = "positions.json"

// Default calibration values used when the positions file has no entry.
var (
	defaultHome     = Joints{90, 90, 90, 90, 90, 90}
	defaultDropZone = Joints{90, 90, 90, 90, 90, 90}
)

const (
	defaultGripperOpen   = 90
	defaultGripperClosed = 135
)

// Store holds named joint configurations and gripper angles. It owns
// the table exclusively: lookups return copies, so a configuration can
// never change under a caller mid-motion.
type Store struct {
	path string

	mu      sync.RWMutex
	joints  map[string]Joints
	gripper map[string]int
}

// jointPositionNames lists every recognized joint position label.
func jointPositionNames() []string {
	names := []string{PosHome, PosDropZone, PosTravel, PosObservation}
	for _, it := range AllItems() {
		names = append(names, it.StorageName())
	}
	return names
}

func isJointPositionName(name string) bool {
	for _, n := range jointPositionNames() {
		if n == name {
			return true
		}
	}
	return false
}

func isGripperName(name string) bool {
	return name == PosGripperOpen || name == PosGripperClosed
}

// NewStore loads positions from path, falling back to defaults for
// absent entries. If the file does not exist it is created with the
// default table, matching first-run behavior.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = DefaultPositionsFile
	}
	s := &Store{path: path}
	s.loadDefaults()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.Flush(); err != nil {
			return nil, fmt.Errorf("write default positions: %w", err)
		}
		return s, nil
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStoreDefaults returns an in-memory store with the default table
// and no backing file. Flush is a no-op until a path is configured.
func NewStoreDefaults() *Store {
	s := &Store{}
	s.loadDefaults()
	return s
}

func (s *Store) loadDefaults() {
	joints := map[string]Joints{
		PosHome:     defaultHome,
		PosDropZone: defaultDropZone,
	}
	for _, it := range AllItems() {
		joints[it.StorageName()] = defaultHome
	}
	// travel_position and observation_position have no safe default;
	// they stay unset until calibrated and callers fall back.
	s.mu.Lock()
	s.joints = joints
	s.gripper = map[string]int{
		PosGripperOpen:   defaultGripperOpen,
		PosGripperClosed: defaultGripperClosed,
	}
	s.mu.Unlock()
}

// Get returns a copy of the named joint configuration.
func (s *Store) Get(name string) (Joints, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.joints[name]
	if !ok {
		return Joints{}, fmt.Errorf("%w: position %q", ErrNotFound, name)
	}
	return j, nil
}

// Gripper returns the named gripper angle (gripper_open or
// gripper_closed).
func (s *Store) Gripper(name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.gripper[name]
	if !ok {
		return 0, fmt.Errorf("%w: gripper position %q", ErrNotFound, name)
	}
	return a, nil
}

// Set stores a joint configuration under a recognized position label.
// The change is in-memory only until Flush is called.
func (s *Store) Set(name string, j Joints) error {
	if !isJointPositionName(name) {
		return fmt.Errorf("%w: unrecognized position name %q", ErrValidation, name)
	}
	if err := j.Validate(); err != nil {
		return fmt.Errorf("position %q: %w", name, err)
	}
	s.mu.Lock()
	s.joints[name] = j
	s.mu.Unlock()
	return nil
}

// SetGripper stores a gripper angle under gripper_open or
// gripper_closed.
func (s *Store) SetGripper(name string, angle int) error {
	if !isGripperName(name) {
		return fmt.Errorf("%w: unrecognized gripper name %q", ErrValidation, name)
	}
	if err := ValidateAngle(angle); err != nil {
		return fmt.Errorf("gripper %q: %w", name, err)
	}
	s.mu.Lock()
	s.gripper[name] = angle
	s.mu.Unlock()
	return nil
}

// StorageFor resolves an item to its calibrated storage position name.
// Items without a calibrated slot are rejected so a catalog entry can
// never send the arm to an uncalibrated position.
func (s *Store) StorageFor(item Item) (string, error) {
	name := item.StorageName()
	s.mu.RLock()
	_, ok := s.joints[name]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: no storage position for item %q", ErrNotFound, item)
	}
	return name, nil
}

// Names returns all recognized position labels, joint positions first.
func (s *Store) Names() []string {
	return append(jointPositionNames(), PosGripperOpen, PosGripperClosed)
}

// Snapshot returns copies of the joint and gripper tables.
func (s *Store) Snapshot() (map[string]Joints, map[string]int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	joints := make(map[string]Joints, len(s.joints))
	for k, v := range s.joints {
		joints[k] = v
	}
	gripper := make(map[string]int, len(s.gripper))
	for k, v := range s.gripper {
		gripper[k] = v
	}
	return joints, gripper
}

// ResetToDefaults discards all calibration and restores the default
// table. Not flushed automatically.
func (s *Store) ResetToDefaults() {
	s.loadDefaults()
}

// Flush writes the current table to the positions file.
func (s *Store) Flush() error {
	if s.path == "" {
		return nil
	}
	s.mu.RLock()
	table := make(map[string]any, len(s.joints)+len(s.gripper))
	for name, j := range s.joints {
		table[name] = j
	}
	for name, a := range s.gripper {
		table[name] = a
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal positions: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create positions dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write positions file: %w", err)
	}
	return nil
}

// Reload reads the positions file, overlaying valid entries onto the
// defaults. Entries with unknown names or out-of-range angles are
// skipped rather than poisoning the table.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read positions file: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse positions file: %w", err)
	}

	s.loadDefaults()
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, msg := range raw {
		if isGripperName(name) {
			var angle int
			if err := json.Unmarshal(msg, &angle); err != nil {
				continue
			}
			if ValidateAngle(angle) == nil {
				s.gripper[name] = angle
			}
			continue
		}
		if !isJointPositionName(name) {
			continue
		}
		var angles []int
		if err := json.Unmarshal(msg, &angles); err != nil {
			continue
		}
		if len(angles) != len(Joints{}) {
			continue
		}
		var j Joints
		copy(j[:], angles)
		if j.Validate() == nil {
			s.joints[name] = j
		}
	}
	return nil
}

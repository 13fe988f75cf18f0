package robot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestJoints_Validate(t *testing.T) {
	tests := []struct {
		name    string
		joints  Joints
		wantErr bool
	}{
		{"all mid-range", Joints{90, 90, 90, 90, 90, 90}, false},
		{"boundary low", Joints{0, 0, 0, 0, 0, 0}, false},
		{"boundary high", Joints{180, 180, 180, 180, 180, 180}, false},
		{"negative angle", Joints{90, -1, 90, 90, 90, 90}, true},
		{"over max", Joints{90, 90, 181, 90, 90, 90}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.joints.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%v) error = %v, wantErr %v", tt.joints, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Errorf("Validate(%v) error = %v, want ErrValidation", tt.joints, err)
			}
		})
	}
}

func TestStore_SetGetRoundTrip(t *testing.T) {
	s := NewStoreDefaults()

	want := Joints{10, 20, 30, 40, 50, 60}
	if err := s.Set(PosHome, want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(PosHome)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != want {
		t.Errorf("Get(home) = %v, want %v", got, want)
	}
}

func TestStore_SetRejectsOutOfRange(t *testing.T) {
	s := NewStoreDefaults()

	before, err := s.Get(PosHome)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	err = s.Set(PosHome, Joints{90, 90, 90, 90, 90, 200})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Set with out-of-range angle: error = %v, want ErrValidation", err)
	}

	// Rejected writes must leave the stored value untouched
	after, err := s.Get(PosHome)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if after != before {
		t.Errorf("stored value changed after rejected Set: %v != %v", after, before)
	}
}

func TestStore_SetRejectsUnknownName(t *testing.T) {
	s := NewStoreDefaults()
	err := s.Set("lunch_position", Joints{90, 90, 90, 90, 90, 90})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Set with unknown name: error = %v, want ErrValidation", err)
	}
}

func TestStore_GetUnknown(t *testing.T) {
	s := NewStoreDefaults()
	_, err := s.Get("nowhere")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(nowhere) error = %v, want ErrNotFound", err)
	}
}

func TestStore_UncalibratedPositionsUnset(t *testing.T) {
	s := NewStoreDefaults()
	for _, name := range []string{PosTravel, PosObservation} {
		if _, err := s.Get(name); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(%s) error = %v, want ErrNotFound before calibration", name, err)
		}
	}

	// Both are recognized names and accept calibration
	if err := s.Set(PosTravel, Joints{90, 70, 100, 90, 90, 90}); err != nil {
		t.Errorf("Set(travel_position): %v", err)
	}
}

func TestStore_Gripper(t *testing.T) {
	s := NewStoreDefaults()

	open, err := s.Gripper(PosGripperOpen)
	if err != nil {
		t.Fatalf("Gripper(open): %v", err)
	}
	if open != 90 {
		t.Errorf("default gripper_open = %d, want 90", open)
	}

	if err := s.SetGripper(PosGripperClosed, 140); err != nil {
		t.Fatalf("SetGripper: %v", err)
	}
	closed, err := s.Gripper(PosGripperClosed)
	if err != nil {
		t.Fatalf("Gripper(closed): %v", err)
	}
	if closed != 140 {
		t.Errorf("gripper_closed = %d, want 140", closed)
	}

	if err := s.SetGripper(PosGripperOpen, 181); !errors.Is(err, ErrValidation) {
		t.Errorf("SetGripper out of range: error = %v, want ErrValidation", err)
	}
	if err := s.SetGripper(PosHome, 90); !errors.Is(err, ErrValidation) {
		t.Errorf("SetGripper with joint name: error = %v, want ErrValidation", err)
	}
}

func TestStore_StorageFor(t *testing.T) {
	s := NewStoreDefaults()
	name, err := s.StorageFor(Pen)
	if err != nil {
		t.Fatalf("StorageFor(Pen): %v", err)
	}
	if name != "pen_storage" {
		t.Errorf("StorageFor(Pen) = %s, want pen_storage", name)
	}
}

func TestStore_FileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "positions.json")

	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("first run should create the positions file: %v", err)
	}

	want := Joints{10, 20, 30, 40, 50, 60}
	if err := s.Set(PosDropZone, want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.SetGripper(PosGripperOpen, 75); err != nil {
		t.Fatalf("SetGripper: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	// A fresh store reads back exactly what was written
	s2, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore reload: %v", err)
	}
	got, err := s2.Get(PosDropZone)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != want {
		t.Errorf("reloaded drop_zone = %v, want %v", got, want)
	}
	open, err := s2.Gripper(PosGripperOpen)
	if err != nil {
		t.Fatalf("Gripper: %v", err)
	}
	if open != 75 {
		t.Errorf("reloaded gripper_open = %d, want 75", open)
	}
}

func TestStore_ReloadSkipsBadEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "positions.json")
	content := `{
  "home": [10, 20, 30, 40, 50, 60],
  "drop_zone": [90, 90, 300, 90, 90, 90],
  "pen_storage": [90, 90],
  "mystery_spot": [1, 2, 3, 4, 5, 6],
  "gripper_open": 250
}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	home, _ := s.Get(PosHome)
	if (home != Joints{10, 20, 30, 40, 50, 60}) {
		t.Errorf("valid entry not loaded: home = %v", home)
	}

	// Out-of-range, wrong-length and unknown entries fall back to defaults
	drop, _ := s.Get(PosDropZone)
	if (drop != Joints{90, 90, 90, 90, 90, 90}) {
		t.Errorf("out-of-range drop_zone should keep default, got %v", drop)
	}
	pen, _ := s.Get("pen_storage")
	if (pen != Joints{90, 90, 90, 90, 90, 90}) {
		t.Errorf("short pen_storage should keep default, got %v", pen)
	}
	if _, err := s.Get("mystery_spot"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown name should not be loaded, got err = %v", err)
	}
	open, _ := s.Gripper(PosGripperOpen)
	if open != 90 {
		t.Errorf("out-of-range gripper_open should keep default, got %d", open)
	}
}

func TestStore_ResetToDefaults(t *testing.T) {
	s := NewStoreDefaults()
	if err := s.Set(PosHome, Joints{1, 2, 3, 4, 5, 6}); err != nil {
		t.Fatal(err)
	}
	s.ResetToDefaults()
	home, err := s.Get(PosHome)
	if err != nil {
		t.Fatal(err)
	}
	if (home != Joints{90, 90, 90, 90, 90, 90}) {
		t.Errorf("after reset home = %v, want defaults", home)
	}
}

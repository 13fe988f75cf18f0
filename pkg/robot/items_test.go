package robot

import "testing"

func TestItem_StorageName(t *testing.T) {
	tests := []struct {
		item     Item
		expected string
	}{
		{Chair, "chair_storage"},
		{Keyboard, "keyboard_storage"},
		{Mouse, "mouse_storage"},
		{Headphones, "headphones_storage"},
		{MobilePhone, "mobile_phone_storage"},
		{Pen, "pen_storage"},
	}

	for _, tt := range tests {
		got := tt.item.StorageName()
		if got != tt.expected {
			t.Errorf("StorageName(%s) = %s, want %s", tt.item, got, tt.expected)
		}
	}
}

func TestItem_StorageNameStable(t *testing.T) {
	// Derivation is deterministic across repeated calls
	for _, item := range AllItems() {
		first := item.StorageName()
		for i := 0; i < 5; i++ {
			if got := item.StorageName(); got != first {
				t.Fatalf("StorageName(%s) changed between calls: %s != %s", item, got, first)
			}
		}
	}
}

func TestKnown(t *testing.T) {
	for _, item := range AllItems() {
		if !Known(string(item)) {
			t.Errorf("Known(%s) = false, want true", item)
		}
	}

	for _, name := range []string{"", "Stapler", "pen", "computer mouse"} {
		if Known(name) {
			t.Errorf("Known(%q) = true, want false", name)
		}
	}
}

// Package robot provides motion control for the loan arm: the position
// store, the servo driver boundary, and the pick/place orchestrator.
package robot

import "strings"

// Item identifies a lendable office item.
type Item string

// The item catalog. Fixed at process start; matches the classifier's
// label set.
const (
	Chair       Item = "Chair"
	Keyboard    Item = "Computer Keyboard"
	Mouse       Item = "Computer Mouse"
	Headphones  Item = "Headphones"
	MobilePhone Item = "Mobile Phone"
	Pen         Item = "Pen"
)

// AllItems returns all catalog items in display order.
func AllItems() []Item {
	return []Item{
		Chair,
		Keyboard,
		Mouse,
		Headphones,
		MobilePhone,
		Pen,
	}
}

// Known reports whether name is a catalog item.
func Known(name string) bool {
	for _, it := range AllItems() {
		if string(it) == name {
			return true
		}
	}
	return false
}

// StorageName derives the item's storage position label:
// lower-case, drop a leading "computer " token, join words with
// underscores, append "_storage". "Computer Mouse" -> "mouse_storage".
func (i Item) StorageName() string {
	name := strings.ToLower(string(i))
	name = strings.TrimPrefix(name, "computer ")
	return strings.ReplaceAll(name, " ", "_") + "_storage"
}

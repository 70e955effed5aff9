package model

import "strings"

// Device is a unit of shared gaming hardware.  Devices are created once at
// process start from static configuration and are never destroyed; the set
// of supported games is immutable at runtime.  Each device hosts at most one
// active session at a time.
type Device struct {
	ID    string   // stable identifier, e.g. "parth"
	Name  string   // display name shown to the operator
	Games []string // supported game titles; membership only, order irrelevant
}

// Supports reports whether the device can run the given game.  Matching is a
// case-insensitive exact title comparison.
func (d *Device) Supports(game string) bool {
	for _, g := range d.Games {
		if strings.EqualFold(g, game) {
			return true
		}
	}
	return false
}

// Package catalog holds the static inventory of rental devices and the games
// each one supports.  The catalog is built once at startup and is read-only
// afterwards; all lookups enumerate devices in the order they were
// configured so that device selection is deterministic.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/iliyamo/game-station-rental/internal/model"
)

// Catalog is an immutable, ordered collection of devices.
type Catalog struct {
	devices []*model.Device
	byID    map[string]*model.Device
}

// New builds a catalog from the given device definitions, preserving their
// order.  Duplicate IDs keep the first definition.
func New(devices []model.Device) *Catalog {
	c := &Catalog{byID: make(map[string]*model.Device, len(devices))}
	for i := range devices {
		d := devices[i]
		if _, ok := c.byID[d.ID]; ok {
			continue
		}
		dev := &model.Device{ID: d.ID, Name: d.Name, Games: append([]string(nil), d.Games...)}
		c.devices = append(c.devices, dev)
		c.byID[d.ID] = dev
	}
	return c
}

// Default returns the venue's four stations with their installed game
// libraries.
func Default() *Catalog {
	return New([]model.Device{
		{
			ID:   "parth",
			Name: "Parth",
			Games: []string{
				"Forza Horizon", "Fortnite", "Grand Theft Auto 5", "Street Fighter 6",
				"Arena Breakout Infinite", "God of War Ragnarok", "Black Myth Wukong",
				"Rust", "Grand Theft Auto: San Andreas",
			},
		},
		{
			ID:   "atishay",
			Name: "Atishay",
			Games: []string{
				"Aimlabs", "Apex Legends", "Arena Breakout Infinite", "Counterstrike 2",
				"Marvel Rivals", "Rust", "Assetto Corsa", "Minecraft", "Among Us",
				"Rocket League",
			},
		},
		{
			ID:   "bhavay",
			Name: "Bhavay",
			Games: []string{
				"Grand Theft Auto 5", "Forza Horizon 5", "Arena Breakout: Infinite",
				"Black Myth Wukong", "Batman Arkham Knight", "Red Dead Redemption 2",
				"Fortnite", "Fall Guys", "Grand Theft Auto: San Andreas",
			},
		},
		{
			ID:   "ally",
			Name: "Ally",
			Games: []string{
				"GTA 5", "Forza Horizon 5", "Beach Buggy Racing", "Fortnite",
				"Red Dead Redemption 2", "Arena Breakout", "Black Myth Wukong", "Rust",
			},
		},
	})
}

// FromFile reads device definitions from a JSON file containing an array of
// {id, name, games} objects.  It is used when the DEVICES_FILE environment
// variable points at a custom inventory.
func FromFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read devices file: %w", err)
	}
	var defs []struct {
		ID    string   `json:"id"`
		Name  string   `json:"name"`
		Games []string `json:"games"`
	}
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("parse devices file: %w", err)
	}
	devices := make([]model.Device, 0, len(defs))
	for _, def := range defs {
		if def.ID == "" {
			return nil, fmt.Errorf("device with empty id in %s", path)
		}
		devices = append(devices, model.Device{ID: def.ID, Name: def.Name, Games: def.Games})
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no devices defined in %s", path)
	}
	return New(devices), nil
}

// Devices returns all devices in configured order.  Callers must not modify
// the returned slice or the devices it points to.
func (c *Catalog) Devices() []*model.Device { return c.devices }

// Get returns the device with the given ID.
func (c *Catalog) Get(id string) (*model.Device, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// Supports reports whether the device with the given ID exists and can run
// the game (case-insensitive title match).
func (c *Catalog) Supports(deviceID, game string) bool {
	d, ok := c.byID[deviceID]
	return ok && d.Supports(game)
}

// DevicesSupporting returns every device able to run the game, in configured
// order.  An empty result means no device in the venue carries the title.
func (c *Catalog) DevicesSupporting(game string) []*model.Device {
	var out []*model.Device
	for _, d := range c.devices {
		if d.Supports(game) {
			out = append(out, d)
		}
	}
	return out
}

package sim

import (
	"log/slog"
	"sync"

	"picogate/core"
)

// VirtualPins is a host-side GPIODriver that remembers pin levels and counts edges
type VirtualPins struct {
	log *slog.Logger

	mu     sync.Mutex
	levels map[core.GPIOPin]bool
	edges  map[core.GPIOPin]uint32
}

// NewVirtualPins creates a driver that logs edges at debug level
func NewVirtualPins(log *slog.Logger) *VirtualPins {
	return &VirtualPins{
		log:    log,
		levels: make(map[core.GPIOPin]bool),
		edges:  make(map[core.GPIOPin]uint32),
	}
}

func (v *VirtualPins) ConfigureOutput(pin core.GPIOPin) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.levels[pin] = false
	return nil
}

func (v *VirtualPins) SetPin(pin core.GPIOPin, value bool) error {
	v.mu.Lock()
	changed := v.levels[pin] != value
	v.levels[pin] = value
	if changed {
		v.edges[pin]++
	}
	v.mu.Unlock()

	if changed {
		v.log.Debug("pin edge", "pin", pin, "high", value)
	}
	return nil
}

func (v *VirtualPins) GetPin(pin core.GPIOPin) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.levels[pin], nil
}

// Edges returns how many times pin changed level
func (v *VirtualPins) Edges(pin core.GPIOPin) uint32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.edges[pin]
}

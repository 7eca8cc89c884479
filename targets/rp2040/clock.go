//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"
)

// RP2040 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerTIMERAWH = timerBase + 0x24 // Raw timer high word, no latching
	timerTIMERAWL = timerBase + 0x28 // Raw timer low word, no latching
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// HardwareTimer is the RP2040's free-running 64-bit microsecond counter.
// The timer is clocked from the 1MHz watchdog tick that TinyGo's runtime
// sets up, so no clock configuration happens here.
type HardwareTimer struct{}

// Ticks reads the full 64-bit counter
func (HardwareTimer) Ticks() uint64 {
	// Read high, low, high again to detect a carry between the two halves
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()

		// If high didn't change, we got a consistent reading
		if high1 == high2 {
			return (uint64(high1) << 32) | uint64(low)
		}
	}
}

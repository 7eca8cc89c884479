//go:build rp2040

package main

import (
	"machine"

	"picogate/protocol"
)

// Consecutive failed writes before reports are dropped instead of retried
const maxWriteFailures = 10

var (
	reportEncoder            protocol.ReportEncoder
	reportBuffer             = protocol.NewScratchOutput()
	consecutiveWriteFailures uint32
	reportsDropped           uint32
)

// InitUSB initializes USB serial communication
// TinyGo automatically sets up USB CDC-ACM on RP2040
func InitUSB() {
	// machine.Serial is USB CDC on the Pico
	_ = machine.Serial.Configure(machine.UARTConfig{})
}

// queueReport frames r into the pending output
func queueReport(r protocol.Report) {
	reportEncoder.Encode(reportBuffer, r)
}

// writeUSB flushes pending reports. A host that is not listening must not
// stall the gated loop, so after repeated failures the backlog is discarded.
func writeUSB() {
	result := reportBuffer.Result()
	if len(result) == 0 {
		return
	}

	written := 0
	for written < len(result) {
		n, err := machine.Serial.Write(result[written:])
		if err != nil || n == 0 {
			// Write error or no progress - likely no host attached
			consecutiveWriteFailures++
			if consecutiveWriteFailures > maxWriteFailures {
				consecutiveWriteFailures = 0
				reportsDropped++
				reportBuffer.Reset()
			}
			return
		}
		written += n
	}

	consecutiveWriteFailures = 0
	reportBuffer.Reset()
}

// Package protocol frames gate reports for the trip from firmware to host.
//
// Frames reuse the Klipper message block layout so that a stream can be
// resynchronised on the sync byte after a dropped or corrupted byte:
//
//	[len][seq][payload ...][crc hi][crc lo][0x7E]
package protocol

// Version represents the picogate report format version
const Version = "0.1.0"

// Protocol constants
const (
	MessageMax         = 256 // Scratch buffer size, several frames
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10

	// Message sequence masks
	MessageSeqMask = 0x0F
)

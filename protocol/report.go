package protocol

import (
	"errors"

	"picogate/core"
)

var (
	ErrNeedMore   = errors.New("incomplete frame")
	ErrBadFrame   = errors.New("malformed frame")
	ErrBadCRC     = errors.New("frame CRC mismatch")
	ErrBadPayload = errors.New("malformed report payload")
)

// Report flags
const (
	FlagOverrun = 1 << 0
)

// Report is one gate outcome as sent over the wire.
// Microsecond values that do not fit in 32 bits are clamped to MaxUint32.
type Report struct {
	Cycle   uint32
	Period  uint32 // Requested period in microseconds
	Elapsed uint32 // Microseconds since previous anchor
	Flags   uint32
}

// Overrun reports whether the cycle exceeded its period
func (r Report) Overrun() bool {
	return r.Flags&FlagOverrun != 0
}

// Excess is how far past the period an overrun cycle ran
func (r Report) Excess() uint32 {
	if !r.Overrun() || r.Elapsed < r.Period {
		return 0
	}
	return r.Elapsed - r.Period
}

// ClampMicros narrows a 64-bit microsecond count for a Report field
func ClampMicros(us uint64) uint32 {
	if us > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(us)
}

// ReportEncoder writes framed reports with a rolling 4-bit sequence number
type ReportEncoder struct {
	seq uint8
}

// Encode appends one complete frame for r to output
func (e *ReportEncoder) Encode(output OutputBuffer, r Report) {
	start := output.CurPosition()

	// Header, length patched once the payload size is known
	output.Output([]byte{0, MessageDest | (e.seq & MessageSeqMask)})
	EncodeVLQUint(output, r.Cycle)
	EncodeVLQUint(output, r.Period)
	EncodeVLQUint(output, r.Elapsed)
	EncodeVLQUint(output, r.Flags)

	msgLen := output.CurPosition() - start + MessageTrailerSize
	output.Update(start+MessagePositionLen, byte(msgLen))

	crc := CRC16(output.DataSince(start))
	output.Output([]byte{
		uint8((crc & 0xFF00) >> 8),
		uint8(crc & 0xFF),
		MessageValueSync,
	})

	e.seq = (e.seq + 1) & MessageSeqMask
}

// NextFrame extracts the first frame from data.
//
// consumed is always the number of bytes the caller should drop, including
// on error: on ErrBadFrame/ErrBadCRC it skips to just past the next sync
// byte so the following call starts on a frame boundary. On ErrNeedMore only
// leading sync bytes are consumed.
func NextFrame(data []byte) (payload []byte, seq uint8, consumed int, err error) {
	// Skip leading sync bytes
	for consumed < len(data) && data[consumed] == MessageValueSync {
		consumed++
	}
	data = data[consumed:]

	if len(data) < MessageLengthMin {
		return nil, 0, consumed, ErrNeedMore
	}

	msgLen := int(data[MessagePositionLen])
	seqByte := data[MessagePositionSeq]
	if msgLen < MessageLengthMin || msgLen > MessageLengthMax || seqByte&^MessageSeqMask != MessageDest {
		return nil, 0, consumed + resync(data), ErrBadFrame
	}

	if len(data) < msgLen {
		return nil, 0, consumed, ErrNeedMore
	}

	if data[msgLen-MessageTrailerSync] != MessageValueSync {
		return nil, 0, consumed + resync(data), ErrBadFrame
	}

	frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
		uint16(data[msgLen-MessageTrailerCRC+1])
	if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
		return nil, 0, consumed + resync(data), ErrBadCRC
	}

	payload = data[MessageHeaderSize : msgLen-MessageTrailerSize]
	return payload, seqByte & MessageSeqMask, consumed + msgLen, nil
}

// resync returns how many bytes to drop to land just past the next sync byte
func resync(data []byte) int {
	for i, b := range data {
		if b == MessageValueSync {
			return i + 1
		}
	}
	return len(data)
}

// DecodeReport parses a frame payload produced by ReportEncoder
func DecodeReport(payload []byte) (Report, error) {
	var r Report
	fields := []*uint32{&r.Cycle, &r.Period, &r.Elapsed, &r.Flags}
	for _, f := range fields {
		v, err := DecodeVLQUint(&payload)
		if err != nil {
			return Report{}, ErrBadPayload
		}
		*f = v
	}
	if len(payload) != 0 {
		return Report{}, ErrBadPayload
	}
	return r, nil
}

// ReportFromResult converts a Blinker cycle into its wire form
func ReportFromResult(res core.GateResult) Report {
	r := Report{
		Cycle:   res.Cycle,
		Period:  ClampMicros(res.Period),
		Elapsed: ClampMicros(res.Elapsed),
	}
	if res.Overrun {
		r.Flags |= FlagOverrun
	}
	return r
}

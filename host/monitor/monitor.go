// Package monitor turns the firmware's gate report stream into overrun statistics.
package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"picogate/core"
	"picogate/protocol"
)

// Snapshot is a consistent copy of the monitor counters
type Snapshot struct {
	Stats     core.OverrunStats
	Reports   uint32
	Dropped   uint32 // frames inferred missing from sequence gaps
	BadFrames uint32
	Last      protocol.Report
}

// Monitor decodes framed reports and folds them into OverrunStats
type Monitor struct {
	log          *slog.Logger
	summaryEvery int

	// Follow keeps reading after io.EOF. Serial ports report EOF on a read timeout.
	Follow bool

	// OnReport, if set, is called for every decoded report
	OnReport func(protocol.Report)

	mu      sync.Mutex
	snap    Snapshot
	lastSeq uint8
	haveSeq bool

	pending []byte
}

// New creates a Monitor that logs a summary every summaryEvery reports (0 disables)
func New(log *slog.Logger, summaryEvery int) *Monitor {
	return &Monitor{
		log:          log,
		summaryEvery: summaryEvery,
	}
}

// Snapshot returns the current counters
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Feed consumes raw bytes from the stream. Partial frames are kept for the next call.
func (m *Monitor) Feed(data []byte) {
	m.pending = append(m.pending, data...)
	for {
		payload, seq, n, err := protocol.NextFrame(m.pending)
		m.pending = m.pending[n:]
		if errors.Is(err, protocol.ErrNeedMore) {
			break
		}
		if err != nil {
			m.badFrame(err)
			continue
		}

		r, err := protocol.DecodeReport(payload)
		if err != nil {
			m.badFrame(err)
			continue
		}
		m.handle(seq, r)
	}
	// Move the partial frame to the front so the buffer does not creep forward
	m.pending = append(m.pending[:0:0], m.pending...)
}

func (m *Monitor) badFrame(err error) {
	m.mu.Lock()
	m.snap.BadFrames++
	m.mu.Unlock()
	m.log.Debug("discarding frame", "error", err)
}

func (m *Monitor) handle(seq uint8, r protocol.Report) {
	m.mu.Lock()
	if m.haveSeq {
		expected := (m.lastSeq + 1) & protocol.MessageSeqMask
		m.snap.Dropped += uint32((seq - expected) & protocol.MessageSeqMask)
	}
	m.lastSeq = seq
	m.haveSeq = true

	m.snap.Reports++
	m.snap.Last = r
	m.snap.Stats.Cycles++
	if r.Overrun() {
		m.snap.Stats.RecordExcess(uint64(r.Excess()))
	}
	snap := m.snap
	m.mu.Unlock()

	if r.Overrun() {
		m.log.Warn("gate overrun",
			"cycle", r.Cycle,
			"period_us", r.Period,
			"elapsed_us", r.Elapsed,
			"excess_us", r.Excess())
	}
	if m.summaryEvery > 0 && snap.Reports%uint32(m.summaryEvery) == 0 {
		m.log.Info("gate summary",
			"reports", snap.Reports,
			"overruns", snap.Stats.Overruns,
			"max_excess_us", snap.Stats.MaxExcess,
			"mean_excess_us", snap.Stats.MeanExcess(),
			"dropped", snap.Dropped,
			"bad_frames", snap.BadFrames)
	}
	if m.OnReport != nil {
		m.OnReport(r)
	}
}

// Run reads r until ctx is cancelled, a read fails, or EOF when not following.
// The read loop runs on its own goroutine because Read cannot be interrupted;
// close r after cancelling ctx to release it.
func (m *Monitor) Run(ctx context.Context, r io.Reader) error {
	type chunk struct {
		data []byte
		err  error
	}
	chunks := make(chan chunk)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			buf := make([]byte, 256)
			n, err := r.Read(buf)
			if err == io.EOF && m.Follow {
				err = nil
			}
			select {
			case chunks <- chunk{data: buf[:n], err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-chunks:
			if len(c.data) > 0 {
				m.Feed(c.data)
			}
			if errors.Is(c.err, io.EOF) {
				return nil
			}
			if c.err != nil {
				return c.err
			}
		}
	}
}

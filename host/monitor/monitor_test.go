package monitor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"picogate/protocol"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestMonitor(summary int) (*Monitor, *bytes.Buffer) {
	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(log, summary), &logs
}

// encodeFrames returns one encoded frame per report
func encodeFrames(reports ...protocol.Report) [][]byte {
	var enc protocol.ReportEncoder
	frames := make([][]byte, 0, len(reports))
	for _, r := range reports {
		out := protocol.NewScratchOutput()
		enc.Encode(out, r)
		frames = append(frames, append([]byte(nil), out.Result()...))
	}
	return frames
}

func sampleReports() []protocol.Report {
	return []protocol.Report{
		{Cycle: 0, Period: 500000},
		{Cycle: 1, Period: 500000, Elapsed: 500000},
		{Cycle: 2, Period: 500000, Elapsed: 900000, Flags: protocol.FlagOverrun},
		{Cycle: 3, Period: 500000, Elapsed: 500000},
		{Cycle: 4, Period: 500000, Elapsed: 550000, Flags: protocol.FlagOverrun},
	}
}

func TestFeedWholeStream(t *testing.T) {
	m, logs := newTestMonitor(5)
	m.Feed(bytes.Join(encodeFrames(sampleReports()...), nil))

	snap := m.Snapshot()
	assert.Equal(t, uint32(5), snap.Reports)
	assert.Equal(t, uint32(5), snap.Stats.Cycles)
	assert.Equal(t, uint32(2), snap.Stats.Overruns)
	assert.Equal(t, uint64(400000), snap.Stats.MaxExcess)
	assert.Equal(t, uint64(450000), snap.Stats.TotalExcess)
	assert.Equal(t, uint32(0), snap.Dropped)
	assert.Equal(t, uint32(4), snap.Last.Cycle)

	assert.Contains(t, logs.String(), "gate overrun")
	assert.Contains(t, logs.String(), "excess_us=400000")
	assert.Contains(t, logs.String(), "gate summary")
}

func TestFeedByteAtATime(t *testing.T) {
	m, _ := newTestMonitor(0)
	stream := bytes.Join(encodeFrames(sampleReports()...), nil)

	var seen []uint32
	m.OnReport = func(r protocol.Report) { seen = append(seen, r.Cycle) }
	for _, b := range stream {
		m.Feed([]byte{b})
	}

	assert.Equal(t, []uint32{0, 1, 2, 3, 4}, seen)
	assert.Equal(t, uint32(0), m.Snapshot().BadFrames)
}

func TestFeedCountsDroppedFrames(t *testing.T) {
	m, _ := newTestMonitor(0)
	frames := encodeFrames(sampleReports()...)
	m.Feed(bytes.Join([][]byte{frames[0], frames[1], frames[4]}, nil))

	snap := m.Snapshot()
	assert.Equal(t, uint32(3), snap.Reports)
	assert.Equal(t, uint32(2), snap.Dropped)
}

func TestFeedSkipsGarbage(t *testing.T) {
	m, _ := newTestMonitor(0)
	frames := encodeFrames(sampleReports()...)

	corrupt := append([]byte(nil), frames[1]...)
	corrupt[3] ^= 0x40

	stream := bytes.Join([][]byte{
		frames[0],
		{0x01, 0x02, protocol.MessageValueSync},
		corrupt,
		frames[2],
	}, nil)
	m.Feed(stream)

	snap := m.Snapshot()
	assert.Equal(t, uint32(2), snap.Reports)
	assert.Equal(t, uint32(2), snap.BadFrames)
	assert.Equal(t, uint32(1), snap.Stats.Overruns)
}

func TestRunUntilEOF(t *testing.T) {
	m, _ := newTestMonitor(0)
	stream := bytes.Join(encodeFrames(sampleReports()...), nil)

	err := m.Run(context.Background(), bytes.NewReader(stream))

	require.NoError(t, err)
	assert.Equal(t, uint32(5), m.Snapshot().Reports)
}

func TestRunStopsOnCancel(t *testing.T) {
	m, _ := newTestMonitor(0)
	m.Follow = true
	pr, pw := io.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- m.Run(ctx, pr) }()

	frames := encodeFrames(sampleReports()...)
	_, err := pw.Write(frames[0])
	require.NoError(t, err)
	require.Eventually(t, func() bool { return m.Snapshot().Reports == 1 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	// release the reader goroutine
	require.NoError(t, pw.Close())
}

func TestRunPropagatesReadError(t *testing.T) {
	m, _ := newTestMonitor(0)
	pr, pw := io.Pipe()
	boom := errors.New("port unplugged")
	pw.CloseWithError(boom)

	err := m.Run(context.Background(), pr)
	assert.ErrorIs(t, err, boom)
}

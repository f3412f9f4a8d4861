package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/ipsniff/internal/core"
	"firestige.xyz/ipsniff/internal/metrics"
	"firestige.xyz/ipsniff/internal/report"
)

// scriptedSource replays a fixed list of receive results, then io.EOF.
type scriptedSource struct {
	mu     sync.Mutex
	steps  []step
	closed bool
}

type step struct {
	data []byte
	err  error
}

func datagrams(dgrams ...[]byte) *scriptedSource {
	s := &scriptedSource{}
	for _, d := range dgrams {
		s.steps = append(s.steps, step{data: d})
	}
	return s
}

func (s *scriptedSource) Receive(ctx context.Context, buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.steps) == 0 {
		return 0, io.EOF
	}
	st := s.steps[0]
	s.steps = s.steps[1:]
	if st.err != nil {
		return 0, st.err
	}
	return copy(buf, st.data), nil
}

func (s *scriptedSource) Close() error {
	s.closed = true
	return nil
}

// blockingSource blocks until ctx is cancelled.
type blockingSource struct {
	entered chan struct{}
	once    sync.Once
}

func (s *blockingSource) Receive(ctx context.Context, buf []byte) (int, error) {
	s.once.Do(func() { close(s.entered) })
	<-ctx.Done()
	return 0, ctx.Err()
}

func (s *blockingSource) Close() error { return nil }

// memorySink collects appended blocks.
type memorySink struct {
	mu     sync.Mutex
	blocks []string
	err    error
}

func (m *memorySink) Append(block []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.blocks = append(m.blocks, string(block))
	return nil
}

func (m *memorySink) all() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.blocks...)
}

// ipv4 builds a datagram with a 20-byte header for protocol followed by payloadLen zero bytes.
func ipv4(protocol uint8, payloadLen int) []byte {
	total := 20 + payloadLen
	data := make([]byte, total)
	copy(data, []byte{
		0x45, 0x00, byte(total >> 8), byte(total),
		0x12, 0x34, 0x40, 0x00,
		0x40, protocol, 0x00, 0x00,
		10, 0, 0, 1,
		10, 0, 0, 2,
	})
	return data
}

func newTestPipeline(src *scriptedSource, sink *memorySink) *Pipeline {
	return New(Config{
		Source:  src,
		Emitter: report.NewReporter(sink),
	})
}

func payloadRows(block string) int {
	_, after, ok := strings.Cut(block, "Data Payload\n")
	if !ok {
		return -1
	}
	rows := 0
	for _, line := range strings.Split(after, "\n") {
		if strings.HasPrefix(line, "   ") {
			rows++
		}
	}
	return rows
}

func TestRunUDPEndToEnd(t *testing.T) {
	sink := &memorySink{}
	p := newTestPipeline(datagrams(ipv4(core.ProtoUDP, 20)), sink)

	require.NoError(t, p.Run(context.Background()))

	st := p.Stats()
	assert.Equal(t, Stats{UDP: 1, Total: 1, Reported: 1}, st)

	blocks := sink.all()
	require.Len(t, blocks, 1)
	assert.Contains(t, blocks[0], report.Banner(core.CategoryUDP))
	assert.Contains(t, blocks[0], "   |-Protocol : 17\n")
	assert.Equal(t, 2, payloadRows(blocks[0]))
	assert.Equal(t, StateStopped, p.State())
}

func TestRunShortDatagramCountsAsOther(t *testing.T) {
	sink := &memorySink{}
	p := newTestPipeline(datagrams(make([]byte, 10)), sink)

	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, Stats{Other: 1, Total: 1, Malformed: 1}, p.Stats())
	assert.Empty(t, sink.all())
}

func TestRunTCPCounterIsolation(t *testing.T) {
	sink := &memorySink{}
	p := newTestPipeline(datagrams(ipv4(core.ProtoTCP, 0), ipv4(core.ProtoTCP, 4), ipv4(core.ProtoTCP, 100)), sink)

	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, Stats{TCP: 3, Total: 3, Reported: 3}, p.Stats())
	blocks := sink.all()
	require.Len(t, blocks, 3)
	for _, b := range blocks {
		assert.Contains(t, b, report.Banner(core.CategoryTCP))
	}
}

func TestRunOnlyReportsTCPAndUDP(t *testing.T) {
	sink := &memorySink{}
	p := newTestPipeline(datagrams(
		ipv4(core.ProtoICMP, 8),
		ipv4(core.ProtoIGMP, 8),
		ipv4(89, 8), // OSPF
		ipv4(core.ProtoUDP, 8),
	), sink)

	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, Stats{UDP: 1, ICMP: 1, IGMP: 1, Other: 1, Total: 4, Reported: 1}, p.Stats())
	assert.Len(t, sink.all(), 1)
}

func TestRunTotalIsSumOfCategories(t *testing.T) {
	var dgrams [][]byte
	for i := 0; i < 256; i++ {
		dgrams = append(dgrams, ipv4(uint8(i), 0))
	}
	dgrams = append(dgrams, []byte{0x45})
	p := newTestPipeline(datagrams(dgrams...), &memorySink{})

	require.NoError(t, p.Run(context.Background()))

	st := p.Stats()
	assert.Equal(t, uint64(257), st.Total)
	assert.Equal(t, st.Total, st.TCP+st.UDP+st.ICMP+st.IGMP+st.Other)
	assert.Equal(t, uint64(253), st.Other)
}

func TestRunSinkErrorIsNotFatal(t *testing.T) {
	sink := &memorySink{err: errors.New("disk full")}
	p := newTestPipeline(datagrams(ipv4(core.ProtoUDP, 4), ipv4(core.ProtoTCP, 4)), sink)

	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, Stats{TCP: 1, UDP: 1, Total: 2, Dropped: 2}, p.Stats())
}

func TestRunFatalCaptureError(t *testing.T) {
	capErr := &core.CaptureError{Op: "recvfrom", Err: errors.New("network is down")}
	src := &scriptedSource{steps: []step{{data: ipv4(core.ProtoUDP, 0)}, {err: capErr}, {data: ipv4(core.ProtoUDP, 0)}}}
	p := newTestPipeline(src, &memorySink{})

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrCapture)
	assert.Equal(t, uint64(1), p.Stats().Total)
	assert.Equal(t, StateStopped, p.State())
}

func TestRunWrapsUnknownReceiveErrors(t *testing.T) {
	src := &scriptedSource{steps: []step{{err: errors.New("boom")}}}
	p := newTestPipeline(src, &memorySink{})

	err := p.Run(context.Background())
	var capErr *core.CaptureError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "receive", capErr.Op)
}

func TestRunStopsOnCancel(t *testing.T) {
	src := &blockingSource{entered: make(chan struct{})}
	p := New(Config{Source: src})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	<-src.entered
	assert.Equal(t, StateRunning, p.State())
	assert.ErrorIs(t, p.Run(ctx), errAlreadyRunning)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, StateStopped, p.State())
}

func TestRunUpdatesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := New(Config{
		Source:  datagrams(ipv4(core.ProtoUDP, 0), make([]byte, 3)),
		Emitter: report.NewReporter(&memorySink{}),
		Metrics: metrics.NewRecorder(reg),
	})
	require.NoError(t, p.Run(context.Background()))

	families, err := reg.Gather()
	require.NoError(t, err)
	got := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() != nil {
				got[mf.GetName()] += m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, got["ipsniff_packets_total"])
	assert.Equal(t, 1.0, got["ipsniff_malformed_total"])
	assert.Equal(t, 1.0, got["ipsniff_reports_total"])
}

func TestRunWritesStatusLine(t *testing.T) {
	var out bytes.Buffer
	p := New(Config{
		Source:  datagrams(ipv4(core.ProtoICMP, 0), ipv4(core.ProtoUDP, 0)),
		Emitter: report.NewReporter(&memorySink{}),
		Status:  NewStatusLine(&out, 0),
	})
	require.NoError(t, p.Run(context.Background()))

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "TCP : 0   UDP : 0   ICMP : 1   IGMP : 0   Others : 0   Total : 1", lines[0])
	assert.Equal(t, "TCP : 0   UDP : 1   ICMP : 1   IGMP : 0   Others : 0   Total : 2", lines[1])
}

func TestCountersRecord(t *testing.T) {
	var c Counters
	for _, cat := range core.Categories {
		c.Record(cat)
	}
	c.Record(core.CategoryTCP)

	st := c.Snapshot()
	assert.Equal(t, uint64(2), st.Count(core.CategoryTCP))
	for _, cat := range []core.Category{core.CategoryUDP, core.CategoryICMP, core.CategoryIGMP, core.CategoryOther} {
		assert.Equal(t, uint64(1), st.Count(cat), cat.String())
	}
	assert.Equal(t, uint64(6), st.Total)
}

func TestCountersConcurrent(t *testing.T) {
	var c Counters
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				c.Record(core.CategoryUDP)
				_ = c.Snapshot()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(8000), c.UDP.Load())
	assert.Equal(t, uint64(8000), c.Total.Load())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "IDLE", StateIdle.String())
	assert.Equal(t, "RUNNING", StateRunning.String())
	assert.Equal(t, "STOPPED", StateStopped.String())
}

func TestStateLifecycle(t *testing.T) {
	p := newTestPipeline(datagrams(ipv4(core.ProtoUDP, 0)), &memorySink{})
	assert.Equal(t, StateIdle, p.State())

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, StateStopped, p.State())

	assert.ErrorIs(t, p.Run(context.Background()), errStopped)
	assert.Equal(t, StateStopped, p.State())
	assert.Equal(t, uint64(1), p.Stats().Total)
}

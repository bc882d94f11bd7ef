package link

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/face_tracker/internal/facetrack"
)

// pipeConn is one end of an in-memory serial line.
type pipeConn struct {
	*io.PipeReader
	w *io.PipeWriter
}

func (p pipeConn) Write(b []byte) (int, error) { return len(b), nil }

func (p pipeConn) Close() error {
	_ = p.w.Close()
	return p.PipeReader.Close()
}

// pipeOpener hands out a fresh pipe per open; the test writes to the
// latest writer.
type pipeOpener struct {
	mu      sync.Mutex
	opens   int
	writers []*io.PipeWriter
	fail    error
}

func (o *pipeOpener) open() (io.ReadWriteCloser, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail != nil {
		return nil, o.fail
	}
	o.opens++
	pr, pw := io.Pipe()
	o.writers = append(o.writers, pw)
	return pipeConn{PipeReader: pr, w: pw}, nil
}

func (o *pipeOpener) writer(i int) *io.PipeWriter {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.writers[i]
}

func (o *pipeOpener) openCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens
}

func TestNew_RequiresOpener(t *testing.T) {
	_, err := New(Config{Name: "x"})
	require.Error(t, err)
}

func TestLink_DeliversLines(t *testing.T) {
	op := &pipeOpener{}
	l, err := New(Config{Name: "test", Open: op.open})
	require.NoError(t, err)

	got := make(chan string, 4)
	l.OnLineReceived('\n', func() { got <- l.ReadUntil('\n') })

	assert.False(t, l.Ready())
	require.NoError(t, l.Start(context.Background()))
	assert.True(t, l.Ready())

	go func() {
		_, _ = op.writer(0).Write([]byte("05124803910007\r\n0102"))
		_, _ = op.writer(0).Write([]byte("030405060\n"))
	}()

	assert.Equal(t, "05124803910007", <-got)
	assert.Equal(t, "0102030405060", <-got)
	assert.Equal(t, uint64(2), l.Lines())

	require.NoError(t, l.Close())
	assert.False(t, l.Ready())
	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("read loop did not stop")
	}
}

func TestLink_StartTwiceOpensOnce(t *testing.T) {
	op := &pipeOpener{}
	l, err := New(Config{Open: op.open})
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Start(context.Background()))
	require.NoError(t, l.Start(context.Background()))
	assert.Equal(t, 1, op.openCount())
}

func TestLink_CloseSilentStream(t *testing.T) {
	for i := 0; i < 20; i++ {
		op := &pipeOpener{}
		l, err := New(Config{Open: op.open})
		require.NoError(t, err)
		require.NoError(t, l.Start(context.Background()))

		closed := make(chan error, 1)
		go func() { closed <- l.Close() }()
		select {
		case err := <-closed:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatalf("run %d: Close did not return", i)
		}

		// the stream was closed, so the peripheral side sees it
		_, err = op.writer(0).Write([]byte("x"))
		assert.ErrorIs(t, err, io.ErrClosedPipe)
	}
}

func TestLink_ContextCancelStopsReadLoop(t *testing.T) {
	op := &pipeOpener{}
	l, err := New(Config{Open: op.open})
	require.NoError(t, err)
	defer l.Close()

	status := make(chan bool, 4)
	l.OnStatus(func(connected bool) { status <- connected })

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, l.Start(ctx))
	assert.True(t, <-status)

	cancel()
	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("read loop did not stop on cancel")
	}
	assert.False(t, <-status)
	assert.False(t, l.Connected())
	assert.Equal(t, 1, op.openCount())
}

func TestLink_StartFailure(t *testing.T) {
	op := &pipeOpener{fail: errors.New("no such port")}
	l, err := New(Config{Name: "bt", Open: op.open})
	require.NoError(t, err)

	err = l.Start(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "no such port")
	assert.False(t, l.Ready())
}

func TestLink_ReconnectsAndReportsStatus(t *testing.T) {
	op := &pipeOpener{}
	l, err := New(Config{Open: op.open, ReconnectDelay: 10 * time.Millisecond})
	require.NoError(t, err)
	defer l.Close()

	status := make(chan bool, 8)
	l.OnStatus(func(connected bool) { status <- connected })

	var lines atomic.Int32
	l.OnLineReceived('\n', func() {
		l.ReadUntil('\n')
		lines.Add(1)
	})

	require.NoError(t, l.Start(context.Background()))
	assert.True(t, <-status)

	// peripheral drops the connection
	require.NoError(t, op.writer(0).Close())
	assert.False(t, <-status)
	assert.True(t, <-status)
	assert.Equal(t, 2, op.openCount())
	assert.True(t, l.Connected())

	go func() { _, _ = op.writer(1).Write([]byte("00000000000000\n")) }()
	assert.Eventually(t, func() bool { return lines.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestLink_FeedsSession(t *testing.T) {
	l, err := New(Config{Name: "mock", Open: MockOpener(2 * time.Millisecond)})
	require.NoError(t, err)
	defer l.Close()

	s := facetrack.NewSession(l, facetrack.ActuatorFunc(func(string, float64) {}), facetrack.MapperConfig{})
	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool { return s.Store().Seq() >= 3 }, 2*time.Second, 5*time.Millisecond)
	f, _ := s.Snapshot()
	assert.GreaterOrEqual(t, f.Yaw, 0.0)
	assert.LessOrEqual(t, f.Yaw, 10.0)
	assert.GreaterOrEqual(t, f.Pitch, 10.0)
}

func TestMockFrame_RoundTripsThroughPacket(t *testing.T) {
	for _, sec := range []float64{0, 0.4, 1.7, 12.5} {
		want := MockFrame(sec)
		got := facetrack.Decode(facetrack.Encode(want))
		assert.InDelta(t, want.Yaw, got.Yaw, 0.5)
		assert.InDelta(t, want.Pitch, got.Pitch, 0.5)
		assert.InDelta(t, want.Mouth, got.Mouth, 0.5)
	}
}

package facetrack

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLink delivers lines by hand through deliver().
type fakeLink struct {
	mu       sync.Mutex
	ready    bool
	starts   int
	startErr error
	delim    byte
	handler  func()
	pending  string
}

func (l *fakeLink) Start(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.starts++
	if l.startErr != nil {
		return l.startErr
	}
	l.ready = true
	return nil
}

func (l *fakeLink) Ready() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ready
}

func (l *fakeLink) OnLineReceived(delim byte, fn func()) {
	l.mu.Lock()
	l.delim, l.handler = delim, fn
	l.mu.Unlock()
}

func (l *fakeLink) ReadUntil(byte) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	line := l.pending
	l.pending = ""
	return line
}

func (l *fakeLink) deliver(line string) {
	l.mu.Lock()
	l.pending = line
	fn := l.handler
	l.mu.Unlock()
	fn()
}

func TestSession_StartIsIdempotent(t *testing.T) {
	link := &fakeLink{}
	s := NewSession(link, &recordingActuator{}, MapperConfig{YawChannel: "P0", PitchChannel: "P1"})

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))

	assert.Equal(t, 1, link.starts)
	assert.Equal(t, byte('\n'), link.delim)
}

func TestSession_StartSkipsReadyLink(t *testing.T) {
	link := &fakeLink{ready: true}
	s := NewSession(link, &recordingActuator{}, MapperConfig{})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 0, link.starts)
	assert.NotNil(t, link.handler)
}

func TestSession_StartError(t *testing.T) {
	link := &fakeLink{startErr: errors.New("no port")}
	s := NewSession(link, &recordingActuator{}, MapperConfig{})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "no port")
	assert.Equal(t, err, s.Start(context.Background()), "later calls report the first result")
	assert.Equal(t, 1, link.starts)
}

func TestSession_DefaultsBeforeFirstPacket(t *testing.T) {
	s := NewSession(nil, &recordingActuator{}, MapperConfig{})

	assert.False(t, s.Store().Received())
	for _, v := range []float64{s.X(), s.Y(), s.Z(), s.Yaw(), s.Pitch(), s.Roll(), s.Mouth()} {
		assert.Equal(t, 0.0, v)
	}
}

func TestSession_LineUpdatesGetters(t *testing.T) {
	link := &fakeLink{}
	s := NewSession(link, &recordingActuator{}, MapperConfig{})
	require.NoError(t, s.Start(context.Background()))

	link.deliver("05124803910007")

	assert.True(t, s.Store().Received())
	assert.Equal(t, 5.0, s.X())
	assert.Equal(t, 12.0, s.Y())
	assert.Equal(t, 48.0, s.Z())
	assert.Equal(t, 3.0, s.Yaw())
	assert.Equal(t, 91.0, s.Pitch())
	assert.Equal(t, 0.0, s.Roll())
	assert.Equal(t, 7.0, s.Mouth())

	assert.Equal(t, s.Yaw(), s.Yaw(), "getters are idempotent between packets")
}

func TestSession_LastPacketWins(t *testing.T) {
	s := NewSession(nil, &recordingActuator{}, MapperConfig{})

	s.HandleLine("11111111111111")
	s.HandleLine("2222222222")

	f, seq := s.Snapshot()
	assert.Equal(t, uint64(2), seq)
	assert.Equal(t, 22.0, f.X)
	assert.Equal(t, 22.0, f.Pitch)
	assert.True(t, math.IsNaN(f.Roll), "no field is carried over from the earlier packet")
	assert.True(t, math.IsNaN(f.Mouth))
}

func TestSession_MapsLatestFrame(t *testing.T) {
	out := &recordingActuator{}
	s := NewSession(nil, out, MapperConfig{YawChannel: "P0", PitchChannel: "P1", Allowed: testChannels})

	s.HandleLine("00000005550000")
	assert.Equal(t, 90.0, s.MapYawToActuator())
	assert.Equal(t, 45.0, s.MapPitchToActuator())

	s.SetPitchActuatorChannel("P18")
	s.MapPitchToActuator()
	assert.Equal(t, "P18", out.last(t).channel)

	s.MapYawToActuator("bogus")
	assert.Equal(t, "P0", out.last(t).channel)
}

func TestStore_SnapshotIsConsistent(t *testing.T) {
	store := NewStore()
	a := Frame{X: 1, Y: 1, Z: 1, Yaw: 1, Pitch: 1, Roll: 1, Mouth: 1}
	b := Frame{X: 2, Y: 2, Z: 2, Yaw: 2, Pitch: 2, Roll: 2, Mouth: 2}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 2000; i++ {
			if i%2 == 0 {
				store.Update(a)
			} else {
				store.Update(b)
			}
		}
	}()

	for i := 0; i < 2000; i++ {
		f, _ := store.Snapshot()
		if f != (Frame{}) && f != a && f != b {
			t.Fatalf("mixed frame observed: %+v", f)
		}
	}
	wg.Wait()
}

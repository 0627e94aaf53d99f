package capture

import (
	"context"
	"encoding/binary"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/recognis/internal/audio"
)

func float32Bytes(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], math.Float32bits(s))
	}
	return out
}

type fakeEmitter struct {
	levels []float32
}

func (e *fakeEmitter) EmitLevel(level float32) {
	e.levels = append(e.levels, level)
}

func stereoFormat() audio.AudioFormat {
	return audio.AudioFormat{Channels: 2, SampleRate: 48000, BitsPerSample: 32, IsFloat: true}
}

func TestSessionStartStopWritesPackets(t *testing.T) {
	packets := make([]audio.Packet, 0, 20)
	for i := 0; i < 20; i++ {
		samples := []float32{0.5, -0.5, 0.4, -0.4}
		packets = append(packets, audio.Packet{Data: float32Bytes(samples), Frames: 2})
	}
	fake := audio.NewFakeSource(stereoFormat(), packets)

	emitter := &fakeEmitter{}
	s := NewWithSource(nil, emitter, func() audio.Source { return fake })

	path := filepath.Join(t.TempDir(), "capture.wav")
	require.NoError(t, s.Start(context.Background(), path))

	// Give the worker time to drain every packet before stopping.
	time.Sleep(50 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	outPath, err := s.Stop(stopCtx)
	require.NoError(t, err)
	require.Equal(t, path, outPath)
	require.True(t, fake.Closed())
	require.NotEmpty(t, emitter.levels)
}

func TestSessionStartTwiceFails(t *testing.T) {
	fake := audio.NewFakeSource(stereoFormat(), nil)
	s := NewWithSource(nil, nil, func() audio.Source { return fake })

	path := filepath.Join(t.TempDir(), "capture.wav")
	require.NoError(t, s.Start(context.Background(), path))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, _ = s.Stop(ctx)
	}()

	err := s.Start(context.Background(), path)
	require.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestSessionStopWithoutStartFails(t *testing.T) {
	s := New(nil, nil)
	_, err := s.Stop(context.Background())
	require.ErrorIs(t, err, ErrNotRunning)
}

func TestSessionWritesSilentPacketsAsZeros(t *testing.T) {
	packets := []audio.Packet{
		{Frames: 4, Flags: audio.SilentFlag},
	}
	fake := audio.NewFakeSource(stereoFormat(), packets)
	s := NewWithSource(nil, nil, func() audio.Source { return fake })

	path := filepath.Join(t.TempDir(), "silence.wav")
	require.NoError(t, s.Start(context.Background(), path))
	time.Sleep(30 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := s.Stop(ctx)
	require.NoError(t, err)
}

package asr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasVoiceActivityRejectsSilence(t *testing.T) {
	require.False(t, hasVoiceActivity(make([]float32, 1000)))
}

func TestHasVoiceActivityAcceptsLoudSignal(t *testing.T) {
	audio := make([]float32, 1000)
	for i := range audio {
		if i%2 == 0 {
			audio[i] = 0.3
		} else {
			audio[i] = -0.3
		}
	}
	require.True(t, hasVoiceActivity(audio))
}

func TestNormalizeAudioScalesQuietSignalToTarget(t *testing.T) {
	audio := []float32{0.1, -0.2, 0.05}
	out := normalizeAudio(audio)

	var peak float32
	for _, s := range out {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	require.InDelta(t, float64(normalizeTarget), float64(peak), 1e-6)
}

func TestNormalizeAudioSkipsNearSilence(t *testing.T) {
	audio := []float32{0.001, -0.002}
	out := normalizeAudio(audio)
	require.Equal(t, audio, out)
}

func TestNormalizeAudioSkipsAlreadyLoudSignal(t *testing.T) {
	audio := []float32{0.97, -0.96}
	out := normalizeAudio(audio)
	require.Equal(t, audio, out)
}

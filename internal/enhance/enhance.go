// Package enhance reads a captured waveform, applies frame-based noise
// suppression, optional peak normalization, and cosine edge fades.
package enhance

import (
	"fmt"

	"github.com/rbright/recognis/internal/audio"
	"github.com/rbright/recognis/internal/wavfile"
)

// requiredSampleRate is the suppressor's fixed-rate precondition.
const requiredSampleRate = 48000

// NormalizeTargetPeak is the peak-normalize target, approximately -1 dBFS.
const NormalizeTargetPeak = 0.891

// fadeMS is the entry/exit cosine fade length.
const fadeMS = 50

// DenoiseWav reads inputPath, denoises at the given intensity ([0,1]),
// optionally peak-normalizes, applies edge fades, and writes the result to
// outputPath in IEEE-float encoding. Output length always equals input
// length; sample rate and channel count are preserved.
func DenoiseWav(inputPath, outputPath string, intensity float32, normalize bool) (string, error) {
	wf, err := wavfile.Read(inputPath)
	if err != nil {
		return "", fmt.Errorf("enhance: read %q: %w", inputPath, err)
	}

	if wf.Format.SampleRate != requiredSampleRate {
		return "", fmt.Errorf("enhance: expected %dHz audio, got %dHz", requiredSampleRate, wf.Format.SampleRate)
	}

	mono := stereoToMono(wf.Samples, wf.Format.Channels)
	denoised := denoiseMono(mono, intensity)
	output := monoToMultichannel(denoised, wf.Format.Channels)

	if normalize {
		peakNormalize(output, NormalizeTargetPeak)
	}
	applyFade(output, wf.Format.SampleRate, fadeMS)

	outFormat := audio.AudioFormat{
		Channels:      wf.Format.Channels,
		SampleRate:    wf.Format.SampleRate,
		BitsPerSample: 32,
		IsFloat:       true,
	}
	if err := wavfile.WriteSamples(outputPath, outFormat, output); err != nil {
		return "", fmt.Errorf("enhance: write %q: %w", outputPath, err)
	}

	return outputPath, nil
}

// Package wavfile streams PCM to a RIFF/WAVE container with a patched
// header, and reads it back.
package wavfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/rbright/recognis/internal/audio"
)

const (
	riffTag = "RIFF"
	waveTag = "WAVE"
	fmtTag  = "fmt "
	dataTag = "data"

	waveFormatIEEEFloat uint16 = 0x0003
	waveFormatPCM       uint16 = 0x0001

	headerSize = 44

	// bufCapacity sizes the bufio.Writer's internal buffer: 256 KiB is about
	// 0.7s of stereo 48kHz float32 audio, so one syscall per ~0.7s.
	bufCapacity = 256 * 1024

	rmsSampleStride = 4
)

// Writer persists PCM to a waveform file, always as 32-bit IEEE float
// regardless of the source encoding, and reports per-write RMS level.
type Writer struct {
	file       *os.File
	buf        *bufio.Writer
	format     audio.AudioFormat
	dataBytes  uint64
	zeroScratch [4096]byte
}

// Create opens path and reserves a zero-sized placeholder header; Finalize
// must be called to patch in the real sizes.
func Create(path string, format audio.AudioFormat) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("wavfile: create %q: %w", path, err)
	}

	w := &Writer{
		file:   f,
		buf:    bufio.NewWriterSize(f, bufCapacity),
		format: format,
	}

	if err := writeHeader(w.buf, format, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("wavfile: write header: %w", err)
	}
	return w, nil
}

// writeHeader emits the 44-byte RIFF/WAVE/fmt/data header. dataSize may be
// 0 for the initial placeholder write.
func writeHeader(w interface{ Write([]byte) (int, error) }, format audio.AudioFormat, dataSize uint32) error {
	const bitsPerSample = 32 // always written as float32
	blockAlign := uint16(format.Channels) * (bitsPerSample / 8)
	byteRate := format.SampleRate * uint32(blockAlign)
	chunkSize := 36 + dataSize

	var header [headerSize]byte
	copy(header[0:4], riffTag)
	binary.LittleEndian.PutUint32(header[4:8], chunkSize)
	copy(header[8:12], waveTag)
	copy(header[12:16], fmtTag)
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], waveFormatIEEEFloat)
	binary.LittleEndian.PutUint16(header[22:24], format.Channels)
	binary.LittleEndian.PutUint32(header[24:28], format.SampleRate)
	binary.LittleEndian.PutUint32(header[28:32], byteRate)
	binary.LittleEndian.PutUint16(header[32:34], blockAlign)
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], dataTag)
	binary.LittleEndian.PutUint32(header[40:44], dataSize)

	_, err := w.Write(header[:])
	return err
}

// WriteSilence appends frameCount frames worth of zero bytes.
func (w *Writer) WriteSilence(frameCount int) error {
	remaining := frameCount * int(w.format.Channels) * 4
	for remaining > 0 {
		n := remaining
		if n > len(w.zeroScratch) {
			n = len(w.zeroScratch)
		}
		if _, err := w.buf.Write(w.zeroScratch[:n]); err != nil {
			return fmt.Errorf("wavfile: write silence: %w", err)
		}
		remaining -= n
	}
	w.dataBytes += uint64(frameCount * int(w.format.Channels) * 4)
	return nil
}

// WriteRaw appends the source-encoded PCM bytes in data, converting to
// float32 as needed, and returns the RMS level (0..1) of the written audio.
//
// If the source is already 32-bit float it is copied unchanged; 16-bit
// signed integer is converted by dividing by 32768.0; any other encoding is
// treated as float32 (best-effort fallback).
func (w *Writer) WriteRaw(data []byte) (float32, error) {
	channels := int(w.format.Channels)

	switch {
	case w.format.IsFloat && w.format.BitsPerSample == 32:
		samples := bytesToFloat32(data)
		rms := computeRMS(samples)
		if _, err := w.buf.Write(data); err != nil {
			return 0, fmt.Errorf("wavfile: write audio: %w", err)
		}
		w.dataBytes += uint64(len(data))
		return rms, nil

	case !w.format.IsFloat && w.format.BitsPerSample == 16:
		sampleCount := len(data) / 2
		samples := make([]float32, sampleCount)
		for i := 0; i < sampleCount; i++ {
			v := int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
			samples[i] = float32(v) / 32768.0
		}
		rms := computeRMS(samples)
		out := float32SliceToBytes(samples)
		if _, err := w.buf.Write(out); err != nil {
			return 0, fmt.Errorf("wavfile: write audio: %w", err)
		}
		w.dataBytes += uint64(len(out))
		return rms, nil

	default:
		samples := bytesToFloat32(data)
		rms := computeRMS(samples)
		if _, err := w.buf.Write(data); err != nil {
			return 0, fmt.Errorf("wavfile: write audio: %w", err)
		}
		w.dataBytes += uint64(len(data))
		_ = channels
		return rms, nil
	}
}

// Finalize flushes buffers, seeks to the start, and rewrites the header
// with the final chunk sizes.
func (w *Writer) Finalize() error {
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("wavfile: flush: %w", err)
	}

	dataSize := w.dataBytes
	if dataSize > math.MaxUint32 {
		dataSize = math.MaxUint32
	}

	if _, err := w.file.Seek(0, 0); err != nil {
		return fmt.Errorf("wavfile: seek: %w", err)
	}
	if err := writeHeader(w.file, w.format, uint32(dataSize)); err != nil {
		return fmt.Errorf("wavfile: patch header: %w", err)
	}

	return w.file.Close()
}

// WriteSamples writes a complete float32 waveform to path in one call:
// create, write, finalize.
func WriteSamples(path string, format audio.AudioFormat, samples []float32) error {
	w, err := Create(path, format)
	if err != nil {
		return err
	}
	if _, err := w.WriteRaw(float32SliceToBytes(samples)); err != nil {
		return err
	}
	return w.Finalize()
}

// computeRMS samples every 4th value for cost and returns the root-mean-
// square amplitude clamped to [0, 1].
func computeRMS(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	var count int
	for i := 0; i < len(samples); i += rmsSampleStride {
		s := float64(samples[i])
		sum += s * s
		count++
	}
	rms := float32(math.Sqrt(sum / float64(count)))
	if rms > 1 {
		rms = 1
	}
	return rms
}

func bytesToFloat32(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		out[i] = math.Float32frombits(bits)
	}
	return out
}

func float32SliceToBytes(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], math.Float32bits(s))
	}
	return out
}

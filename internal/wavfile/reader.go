package wavfile

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/rbright/recognis/internal/audio"
)

// Waveform is a fully decoded in-memory waveform: interleaved float32
// samples at the file's native channel count and sample rate.
type Waveform struct {
	Format  audio.AudioFormat
	Samples []float32
}

// Read parses a RIFF/WAVE file, scanning chunks from offset 12 for `data`
// (other chunks are skipped by declared size). Format code 0x0003 (float32)
// is read unchanged; 0x0001 (16-bit PCM) is converted via /32768.0.
func Read(path string) (Waveform, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Waveform{}, fmt.Errorf("wavfile: read %q: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a RIFF/WAVE byte buffer in memory.
func Parse(raw []byte) (Waveform, error) {
	if len(raw) < 12 || string(raw[0:4]) != riffTag || string(raw[8:12]) != waveTag {
		return Waveform{}, fmt.Errorf("wavfile: not a RIFF/WAVE file")
	}

	var (
		format     audio.AudioFormat
		formatSeen bool
		data       []byte
		dataSeen   bool
	)

	pos := 12
	for pos+8 <= len(raw) {
		id := string(raw[pos : pos+4])
		size := binary.LittleEndian.Uint32(raw[pos+4 : pos+8])
		body := pos + 8

		switch id {
		case fmtTag:
			if body+16 > len(raw) {
				return Waveform{}, fmt.Errorf("wavfile: truncated fmt chunk")
			}
			tag := binary.LittleEndian.Uint16(raw[body : body+2])
			channels := binary.LittleEndian.Uint16(raw[body+2 : body+4])
			sampleRate := binary.LittleEndian.Uint32(raw[body+4 : body+8])
			bits := binary.LittleEndian.Uint16(raw[body+14 : body+16])

			switch {
			case tag == waveFormatIEEEFloat && bits == 32:
				format = audio.AudioFormat{Channels: channels, SampleRate: sampleRate, BitsPerSample: 32, IsFloat: true}
			case tag == waveFormatPCM && bits == 16:
				format = audio.AudioFormat{Channels: channels, SampleRate: sampleRate, BitsPerSample: 16, IsFloat: false}
			default:
				return Waveform{}, fmt.Errorf("wavfile: unsupported format tag=%d bits=%d", tag, bits)
			}
			formatSeen = true

		case dataTag:
			end := body + int(size)
			if end > len(raw) {
				end = len(raw)
			}
			data = raw[body:end]
			dataSeen = true
		}

		pos = body + int(size)
		if size%2 == 1 {
			pos++ // chunks are word-aligned
		}
	}

	if !formatSeen {
		return Waveform{}, fmt.Errorf("wavfile: missing fmt chunk")
	}
	if !dataSeen {
		return Waveform{}, fmt.Errorf("wavfile: missing data chunk")
	}

	var samples []float32
	if format.IsFloat {
		samples = bytesToFloat32(data)
	} else {
		count := len(data) / 2
		samples = make([]float32, count)
		for i := 0; i < count; i++ {
			v := int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
			samples[i] = float32(v) / 32768.0
		}
	}

	// Readers always expose float32 going forward; the format's own
	// declared bit depth only matters for interpreting the file encoding.
	format.BitsPerSample = 32
	format.IsFloat = true

	return Waveform{Format: format, Samples: samples}, nil
}

// Package asr drives on-device speech-to-text: an encoder/decoder ONNX
// model with an autoregressive KV-cached decode loop, a voice-activity gate
// ahead of it, and a hallucination filter behind it.
package asr

import (
	"fmt"

	"github.com/rbright/recognis/internal/asr/tokenizer"
	"github.com/rbright/recognis/internal/modelcache"
)

// sampleRate is the ASR contract's fixed input rate (mono 16kHz float PCM).
const sampleRate = 16000

// decodeStepsPerSecond bounds generated tokens per second of input audio.
const decodeStepsPerSecond = 6

// session is the inference backend an Engine drives. Its implementation is
// selected at build time: native_onnx.go under the onnx build tag runs the
// actual ONNX Runtime session; without the tag, stub.go's newSession
// returns ErrNativeUnavailable and no session is built.
type session interface {
	// RunEncoder produces the fixed encoder hidden state for one utterance.
	RunEncoder(audio []float32) ([]float32, error)
	// RunDecoder runs one autoregressive step given the previous token, the
	// encoder hidden state, and the current KV cache, returning logits over
	// the vocabulary plus the cache entries to carry into the next step.
	RunDecoder(prevToken int64, encoderHidden []float32, cache []KvEntry, step int) (logits []float32, next []KvEntry, err error)
	Close() error
}

// Engine owns a loaded model and tokenizer and exposes Transcribe.
type Engine struct {
	sess session
	tok  *tokenizer.Tokenizer
	cfg  ModelConfig
}

// Load resolves the cached model files and builds a ready-to-use Engine.
func Load(paths modelcache.Paths) (*Engine, error) {
	cfg, err := LoadModelConfig(paths.Config)
	if err != nil {
		return nil, err
	}

	tok, err := tokenizer.Load(paths.Tokenizer)
	if err != nil {
		return nil, err
	}

	sess, err := newSession(paths, cfg)
	if err != nil {
		return nil, fmt.Errorf("asr: load session: %w", err)
	}

	return &Engine{sess: sess, tok: tok, cfg: cfg}, nil
}

// Close releases the underlying inference session.
func (e *Engine) Close() error {
	return e.sess.Close()
}

// Transcribe runs the full pipeline over one mono 16kHz float32 PCM
// utterance with samples in [-1, 1]: VAD gate, peak normalize, encode, autoregressive KV-cached
// decode, detokenize, hallucination filter. An utterance that fails the
// VAD gate or the hallucination filter returns "" with no error.
func (e *Engine) Transcribe(audio []float32) (string, error) {
	if !hasVoiceActivity(audio) {
		return "", nil
	}
	normalized := normalizeAudio(audio)

	encoderHidden, err := e.sess.RunEncoder(normalized)
	if err != nil {
		return "", fmt.Errorf("asr: encode: %w", err)
	}

	cache := NewKVCache(e.cfg.DecoderNumHiddenLayers, e.cfg.DecoderNumKeyValueHeads, e.cfg.DimKV())
	prevToken := e.cfg.DecoderStartTokenID
	ids := make([]uint32, 0, 64)

	audioSeconds := float64(len(audio)) / float64(sampleRate)
	maxSteps := clampInt(int(audioSeconds*decodeStepsPerSecond), 1, e.cfg.MaxPositionEmbeddings)

	for step := 0; step < maxSteps; step++ {
		logits, next, err := e.sess.RunDecoder(prevToken, encoderHidden, cache, step)
		if err != nil {
			return "", fmt.Errorf("asr: decode step %d: %w", step, err)
		}
		cache = mergeCache(cache, next, step)

		token := argmax(logits)
		if int64(token) == e.cfg.EOSTokenID {
			break
		}
		ids = append(ids, token)
		prevToken = int64(token)
	}

	text := e.tok.Decode(ids)
	if isHallucination(text) {
		return "", nil
	}
	return text, nil
}

// mergeCache applies next's entries over cache according to each entry's
// ShouldUpdate rule, leaving frozen entries (encoder KV after step 0)
// untouched.
func mergeCache(cache, next []KvEntry, step int) []KvEntry {
	merged := make([]KvEntry, len(cache))
	copy(merged, cache)
	for i, entry := range merged {
		if entry.ShouldUpdate(step) && i < len(next) {
			merged[i] = next[i]
		}
	}
	return merged
}

// clampInt restricts v to [lo, hi].
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func argmax(logits []float32) uint32 {
	var best int
	for i, v := range logits {
		if v > logits[best] {
			best = i
		}
	}
	return uint32(best)
}

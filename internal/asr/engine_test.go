package asr

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rbright/recognis/internal/asr/tokenizer"
	"github.com/stretchr/testify/require"
)

// fakeSession emits a fixed token sequence ending in EOS, ignoring the
// actual audio and cache contents beyond bookkeeping what was asked.
type fakeSession struct {
	tokens []int64
	step   int
	closed bool
}

func (f *fakeSession) RunEncoder(audio []float32) ([]float32, error) {
	return make([]float32, 4), nil
}

func (f *fakeSession) RunDecoder(prevToken int64, encoderHidden []float32, cache []KvEntry, step int) ([]float32, []KvEntry, error) {
	var want int64
	if f.step < len(f.tokens) {
		want = f.tokens[f.step]
	} else {
		want = 50257 // EOS
	}
	f.step++

	logits := make([]float32, 50258)
	logits[want] = 10
	return logits, cache, nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func newTestEngine(t *testing.T, tokens []int64) (*Engine, *fakeSession) {
	t.Helper()
	fs := &fakeSession{tokens: tokens}
	cfg := defaultModelConfig()

	// Tokenizer has no exported constructor besides Load, so build a
	// minimal tokenizer.json fixture on disk.
	path := filepath.Join(t.TempDir(), "tokenizer.json")
	const doc = `{"model":{"vocab":{"Hello":0,"Ġworld":1}},"added_tokens":[]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	tok, err := tokenizer.Load(path)
	require.NoError(t, err)

	return &Engine{sess: fs, tok: tok, cfg: cfg}, fs
}

func TestTranscribeSkipsSilentAudio(t *testing.T) {
	engine, fs := newTestEngine(t, []int64{0, 1})
	silence := make([]float32, 4000)

	text, err := engine.Transcribe(silence)
	require.NoError(t, err)
	require.Equal(t, "", text)
	require.Equal(t, 0, fs.step)
}

func TestTranscribeDecodesUntilEOS(t *testing.T) {
	engine, _ := newTestEngine(t, []int64{0, 1})
	audio := loudSignal(16000) // 1s at 16kHz allows 6 decode steps

	text, err := engine.Transcribe(audio)
	require.NoError(t, err)
	require.Equal(t, "Hello world", text)
}

func TestEngineCloseDelegatesToSession(t *testing.T) {
	engine, fs := newTestEngine(t, []int64{0})
	require.NoError(t, engine.Close())
	require.True(t, fs.closed)
}

func loudSignal(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = 0.5
		} else {
			out[i] = -0.5
		}
	}
	return out
}

// Package modelcache probes the on-disk ASR model cache populated by the
// external download subsystem. It never fetches — the download-and-cache
// path is an external collaborator per the backend's scope.
package modelcache

import (
	"errors"
	"os"
	"path/filepath"
)

const (
	modelDir      = "moonshine-base"
	encoderFile   = "onnx/encoder_model_quantized.onnx"
	decoderFile   = "onnx/decoder_model_merged_quantized.onnx"
	tokenizerFile = "tokenizer.json"
	configFile    = "config.json"
)

// ErrNotCached is returned by Paths when one or more required files are
// missing from the cache directory.
var ErrNotCached = errors.New("modelcache: model is not fully cached")

// Paths names the on-disk artifacts for one cached model.
type Paths struct {
	Encoder   string
	Decoder   string
	Tokenizer string
	Config    string
}

func (p Paths) all() []string {
	return []string{p.Encoder, p.Decoder, p.Tokenizer, p.Config}
}

// Manager resolves and probes the model cache directory.
type Manager struct {
	cacheDir string
}

// New builds a Manager rooted at the default cache directory, or at dir if
// non-empty (an override, e.g. from config).
func New(dir string) (*Manager, error) {
	if dir == "" {
		base, err := defaultCacheRoot()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(base, "recognis", "models", modelDir)
	}
	return &Manager{cacheDir: dir}, nil
}

func defaultCacheRoot() (string, error) {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache"), nil
}

// CacheDir returns the resolved model cache directory.
func (m *Manager) CacheDir() string {
	return m.cacheDir
}

// paths builds the expected file paths without checking existence.
func (m *Manager) paths() Paths {
	return Paths{
		Encoder:   filepath.Join(m.cacheDir, encoderFile),
		Decoder:   filepath.Join(m.cacheDir, decoderFile),
		Tokenizer: filepath.Join(m.cacheDir, tokenizerFile),
		Config:    filepath.Join(m.cacheDir, configFile),
	}
}

// IsCached reports whether every required model file is present.
func (m *Manager) IsCached() bool {
	for _, f := range m.paths().all() {
		if _, err := os.Stat(f); err != nil {
			return false
		}
	}
	return true
}

// Paths returns the cached model's file paths, or ErrNotCached if any
// required file is missing.
func (m *Manager) Paths() (Paths, error) {
	if !m.IsCached() {
		return Paths{}, ErrNotCached
	}
	return m.paths(), nil
}

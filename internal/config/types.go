// Package config resolves, parses, validates, and defaults recognis configuration.
package config

// Config is the fully materialized runtime configuration used by recognis.
type Config struct {
	Audio   AudioConfig
	Denoise DenoiseConfig
	ASR     ASRConfig
	Log     LogConfig
}

// AudioConfig controls where captured waveforms are staged.
type AudioConfig struct {
	// TempDir overrides the directory capture and enhance write scratch wav
	// files to. Empty means os.TempDir().
	TempDir string
}

// DenoiseConfig holds the configured post-processing defaults. Config
// validation checks them, but neither the CLI enhance command nor the
// dispatcher's enhance_audio reads them: both take intensity and normalize
// from their own flags or request payload.
type DenoiseConfig struct {
	Intensity float32
	Normalize bool
}

// ASRConfig controls transcription defaults and model resolution.
type ASRConfig struct {
	Language string

	// ModelCacheDir overrides the model cache root. Empty means the
	// platform default cache directory.
	ModelCacheDir string

	// OnnxRuntimeLib is the shared library path the doctor check resolves
	// ahead of the RECOGNIS_ONNXRUNTIME_LIB environment variable. The ASR
	// engine does not read it; it loads the library named by that
	// environment variable (or the platform's default search path).
	OnnxRuntimeLib string
}

// LogConfig holds the configured log level. Validate checks it; the logging
// runtime does not read it and always writes at info level.
type LogConfig struct {
	Level string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

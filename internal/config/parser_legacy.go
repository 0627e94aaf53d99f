package config

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// parseLegacy reads the pre-JSONC `key = value` format, one setting per
// line, dotted keys for nested fields. Retained for upgrade compatibility;
// new configs should use JSONC.
func parseLegacy(content string, base Config) (Config, []Warning, error) {
	cfg := base
	warnings := make([]Warning, 0)

	scanner := bufio.NewScanner(strings.NewReader(content))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return Config{}, nil, fmt.Errorf("line %d: expected key = value, got %q", lineNo, line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if err := applyLegacyField(&cfg, key, value); err != nil {
			return Config{}, nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func applyLegacyField(cfg *Config, key, value string) error {
	switch key {
	case "audio.temp_dir":
		cfg.Audio.TempDir = value
	case "denoise.intensity":
		f, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return fmt.Errorf("invalid denoise.intensity: %w", err)
		}
		cfg.Denoise.Intensity = float32(f)
	case "denoise.normalize":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid denoise.normalize: %w", err)
		}
		cfg.Denoise.Normalize = b
	case "asr.language":
		cfg.ASR.Language = value
	case "asr.model_cache_dir":
		cfg.ASR.ModelCacheDir = value
	case "asr.onnx_runtime_lib":
		cfg.ASR.OnnxRuntimeLib = value
	case "log.level":
		cfg.Log.Level = strings.ToLower(value)
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	return nil
}

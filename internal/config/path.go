package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath applies CLI/XDG/home fallback rules for config.conf location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "recognis", "config.conf"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", "recognis", "config.conf"), nil
}

// legacyPathFor returns the pre-JSONC config location next to resolvedPath,
// which Load falls back to when no explicit path was given and the primary
// path doesn't exist.
func legacyPathFor(resolvedPath string) string {
	dir := filepath.Dir(resolvedPath)
	if dir == "" || dir == "." {
		return ""
	}
	return filepath.Join(dir, "config")
}

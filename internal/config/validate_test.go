package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateRejectsInvalidCoreFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "empty language", mutate: func(c *Config) { c.ASR.Language = "" }, wantErr: "asr.language"},
		{name: "intensity below zero", mutate: func(c *Config) { c.Denoise.Intensity = -0.1 }, wantErr: "denoise.intensity"},
		{name: "intensity above one", mutate: func(c *Config) { c.Denoise.Intensity = 1.1 }, wantErr: "denoise.intensity"},
		{name: "empty log level", mutate: func(c *Config) { c.Log.Level = "" }, wantErr: "log.level"},
		{name: "invalid log level", mutate: func(c *Config) { c.Log.Level = "verbose" }, wantErr: "log.level"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	_, err := Validate(Default())
	require.NoError(t, err)
}

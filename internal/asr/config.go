package asr

import (
	"encoding/json"
	"fmt"
	"os"
)

// ModelConfig holds the Moonshine model fields the decode loop depends on.
type ModelConfig struct {
	EOSTokenID              int64 `json:"eos_token_id"`
	DecoderStartTokenID     int64 `json:"decoder_start_token_id"`
	DecoderNumKeyValueHeads int   `json:"decoder_num_key_value_heads"`
	DecoderNumHiddenLayers  int   `json:"decoder_num_hidden_layers"`
	HiddenSize              int   `json:"hidden_size"`
	MaxPositionEmbeddings   int   `json:"max_position_embeddings"`
	VocabSize               int   `json:"vocab_size"`
}

// DimKV is the per-head key/value dimension.
func (c ModelConfig) DimKV() int {
	if c.DecoderNumKeyValueHeads == 0 {
		return 0
	}
	return c.HiddenSize / c.DecoderNumKeyValueHeads
}

// defaultModelConfig matches the Moonshine-base config.json defaults.
func defaultModelConfig() ModelConfig {
	return ModelConfig{
		EOSTokenID:              50257,
		DecoderStartTokenID:     50257,
		DecoderNumKeyValueHeads: 8,
		DecoderNumHiddenLayers:  8,
		HiddenSize:              416,
		MaxPositionEmbeddings:   2048,
		VocabSize:               50258,
	}
}

// LoadModelConfig reads config.json, filling any missing field with its
// Moonshine-base default.
func LoadModelConfig(path string) (ModelConfig, error) {
	cfg := defaultModelConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return ModelConfig{}, fmt.Errorf("asr: read config %q: %w", path, err)
	}

	var partial struct {
		EOSTokenID              *int64 `json:"eos_token_id"`
		DecoderStartTokenID     *int64 `json:"decoder_start_token_id"`
		DecoderNumKeyValueHeads *int   `json:"decoder_num_key_value_heads"`
		DecoderNumHiddenLayers  *int   `json:"decoder_num_hidden_layers"`
		HiddenSize              *int   `json:"hidden_size"`
		MaxPositionEmbeddings   *int   `json:"max_position_embeddings"`
		VocabSize               *int   `json:"vocab_size"`
	}
	if err := json.Unmarshal(raw, &partial); err != nil {
		return ModelConfig{}, fmt.Errorf("asr: parse config %q: %w", path, err)
	}

	if partial.EOSTokenID != nil {
		cfg.EOSTokenID = *partial.EOSTokenID
	}
	if partial.DecoderStartTokenID != nil {
		cfg.DecoderStartTokenID = *partial.DecoderStartTokenID
	}
	if partial.DecoderNumKeyValueHeads != nil {
		cfg.DecoderNumKeyValueHeads = *partial.DecoderNumKeyValueHeads
	}
	if partial.DecoderNumHiddenLayers != nil {
		cfg.DecoderNumHiddenLayers = *partial.DecoderNumHiddenLayers
	}
	if partial.HiddenSize != nil {
		cfg.HiddenSize = *partial.HiddenSize
	}
	if partial.MaxPositionEmbeddings != nil {
		cfg.MaxPositionEmbeddings = *partial.MaxPositionEmbeddings
	}
	if partial.VocabSize != nil {
		cfg.VocabSize = *partial.VocabSize
	}

	return cfg, nil
}

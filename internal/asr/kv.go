package asr

import "fmt"

// Module tags a KV cache entry by which half of the encoder/decoder
// attention it belongs to, so the decode loop can dispatch on the tag
// instead of matching substrings in the entry's name.
type Module int

const (
	ModuleDecoder Module = iota
	ModuleEncoder
)

func (m Module) String() string {
	if m == ModuleEncoder {
		return "encoder"
	}
	return "decoder"
}

// KvEntry is one named KV cache tensor: layer index, module tag, key/value
// kind, current shape, and flat data buffer.
type KvEntry struct {
	Name   string
	Layer  int
	Module Module
	Kind   string // "key" or "value"
	Shape  []int64
	Data   []float32
}

// NewKVCache allocates 2*2*numLayers zeroed placeholder entries of shape
// [1, numHeads, 1, dimKV], named past_key_values.{layer}.{module}.{kind}.
func NewKVCache(numLayers, numHeads, dimKV int) []KvEntry {
	entries := make([]KvEntry, 0, numLayers*4)
	for layer := 0; layer < numLayers; layer++ {
		for _, module := range []Module{ModuleDecoder, ModuleEncoder} {
			for _, kind := range []string{"key", "value"} {
				entries = append(entries, KvEntry{
					Name:   fmt.Sprintf("past_key_values.%d.%s.%s", layer, module, kind),
					Layer:  layer,
					Module: module,
					Kind:   kind,
					Shape:  []int64{1, int64(numHeads), 1, int64(dimKV)},
					Data:   make([]float32, numHeads*dimKV),
				})
			}
		}
	}
	return entries
}

// ShouldUpdate reports whether this entry should be replaced by the
// decoder's output at the given step. On step 0 (no real cache yet) every
// entry is replaced; afterward only decoder-tagged entries refresh, since
// encoder-tagged KV is derived once from the fixed encoder output and
// frozen thereafter.
func (e KvEntry) ShouldUpdate(step int) bool {
	return step == 0 || e.Module == ModuleDecoder
}

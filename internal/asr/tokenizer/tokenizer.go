// Package tokenizer implements decode-only detokenization for a byte-level
// BPE vocabulary, sufficient to turn generated token ids back into text. It
// never trains or encodes — the ASR driver only ever needs ids → text.
package tokenizer

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Tokenizer maps token ids back to UTF-8 text using a byte-level BPE
// vocabulary (the GPT-2 byte-to-unicode convention used by most Hugging
// Face tokenizers.json files).
type Tokenizer struct {
	idToToken map[uint32]string
	byteDecode map[rune]byte
}

type tokenizerJSON struct {
	Model struct {
		Vocab map[string]uint32 `json:"vocab"`
	} `json:"model"`
	AddedTokens []struct {
		ID      uint32 `json:"id"`
		Content string `json:"content"`
		Special bool   `json:"special"`
	} `json:"added_tokens"`
}

// Load parses a Hugging Face tokenizer.json file's vocabulary for decoding.
func Load(path string) (*Tokenizer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: read %q: %w", path, err)
	}

	var doc tokenizerJSON
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("tokenizer: parse %q: %w", path, err)
	}

	idToToken := make(map[uint32]string, len(doc.Model.Vocab))
	for token, id := range doc.Model.Vocab {
		idToToken[id] = token
	}
	for _, added := range doc.AddedTokens {
		idToToken[added.ID] = added.Content
	}

	return &Tokenizer{
		idToToken:  idToToken,
		byteDecode: gpt2ByteDecodeTable(),
	}, nil
}

// Decode converts a sequence of token ids into text, trimming whitespace
// at the edges. Unknown ids are skipped.
func (t *Tokenizer) Decode(ids []uint32) string {
	var b strings.Builder
	for _, id := range ids {
		token, ok := t.idToToken[id]
		if !ok {
			continue
		}
		b.WriteString(t.decodeToken(token))
	}
	return strings.TrimSpace(b.String())
}

// decodeToken reverses the GPT-2 byte-to-unicode mapping: each rune in the
// BPE token represents one raw byte of the original UTF-8 text.
func (t *Tokenizer) decodeToken(token string) string {
	out := make([]byte, 0, len(token))
	for _, r := range token {
		if b, ok := t.byteDecode[r]; ok {
			out = append(out, b)
			continue
		}
		out = append(out, []byte(string(r))...)
	}
	return string(out)
}

// gpt2ByteDecodeTable builds the inverse of the canonical GPT-2 byte-to-
// unicode encoding: printable bytes map to themselves, the rest are pushed
// into a private codepoint range starting at 256.
func gpt2ByteDecodeTable() map[rune]byte {
	table := make(map[rune]byte, 256)

	isPrintable := func(b byte) bool {
		return (b >= '!' && b <= '~') || (b >= 0xA1 && b <= 0xAC) || (b >= 0xAE && b <= 0xFF)
	}

	next := rune(256)
	for b := 0; b < 256; b++ {
		if isPrintable(byte(b)) {
			table[rune(b)] = byte(b)
			continue
		}
		table[next] = byte(b)
		next++
	}
	return table
}

package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

var _ Tokenizer = (*Tiktoken)(nil)

// Tiktoken counts tokens with an OpenAI BPE encoding.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken loads the encoding for a model name (gpt-4o) or an encoding
// name (cl100k_base).
func NewTiktoken(name string) (*Tiktoken, error) {
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		// try by name
		enc, err = tiktoken.GetEncoding(name)
		if err != nil {
			return nil, fmt.Errorf("tiktoken encoding %q: %w", name, err)
		}
	}
	return &Tiktoken{enc: enc}, nil
}

func (t *Tiktoken) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *Tiktoken) CountTokens(text string) int {
	return len(t.Encode(text))
}

func (t *Tiktoken) DecodeIds(ids []int) string {
	return t.enc.Decode(ids)
}

// New returns a Tiktoken for name, or a SimpleTokenizer when name is empty
// or "simple".
func New(name string) (Tokenizer, error) {
	if name == "" || name == "simple" {
		return NewSimpleTokenizer(), nil
	}
	return NewTiktoken(name)
}

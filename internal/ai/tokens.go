package ai

import (
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
	codecErr  error
)

func getCodec() (tokenizer.Codec, error) {
	codecOnce.Do(func() {
		codec, codecErr = tokenizer.Get(tokenizer.Cl100kBase)
	})
	return codec, codecErr
}

// CountTokens returns the cl100k token count of s.
func CountTokens(s string) (int, error) {
	enc, err := getCodec()
	if err != nil {
		return 0, err
	}
	ids, _, err := enc.Encode(s)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// TruncateTokens cuts s to at most maxTokens cl100k tokens. maxTokens <= 0
// disables truncation. A token boundary inside a multi-byte rune drops the
// partial rune.
func TruncateTokens(s string, maxTokens int) (string, error) {
	if maxTokens <= 0 || s == "" {
		return s, nil
	}
	enc, err := getCodec()
	if err != nil {
		return "", err
	}
	ids, _, err := enc.Encode(s)
	if err != nil {
		return "", err
	}
	if len(ids) <= maxTokens {
		return s, nil
	}
	out, err := enc.Decode(ids[:maxTokens])
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(out, ""), nil
}

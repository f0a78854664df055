// Package tokenizer turns decoded file content into token sequences for
// counting. Tokens are opaque strings; nothing downstream inspects them.
package tokenizer

import (
	"fmt"
	"strings"
)

// Encoder produces the token sequence for a piece of text.
type Encoder interface {
	Name() string
	Encode(input string) ([]string, error)
}

// Config captures tokenizer selection parameters provided by the CLI.
type Config struct {
	Backend string
	Model   string
}

const (
	// BackendOpenAI selects the bundled byte-pair encodings.
	BackendOpenAI = "openai"
	// BackendHuggingFace selects a pretrained tokenizer fetched from the
	// Hugging Face hub.
	BackendHuggingFace = "huggingface"

	defaultEncodingName = "o200k_base"

	errorUnknownBackendFormat = "unknown tokenizer backend %q"
)

// NewEncoder returns an Encoder for the requested backend and model. An empty
// backend selects the OpenAI byte-pair encodings.
func NewEncoder(configuration Config) (Encoder, error) {
	backend := strings.ToLower(strings.TrimSpace(configuration.Backend))
	switch backend {
	case "", BackendOpenAI:
		return newOpenAIEncoder(configuration.Model)
	case BackendHuggingFace:
		return newHuggingFaceEncoder(configuration.Model)
	default:
		return nil, fmt.Errorf(errorUnknownBackendFormat, configuration.Backend)
	}
}

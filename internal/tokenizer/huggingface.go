package tokenizer

import (
	"errors"
	"fmt"

	sugarme "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

const (
	huggingFaceTokenizerFileName = "tokenizer.json"

	errorHuggingFaceModelRequired  = "huggingface backend requires a model name"
	errorHuggingFaceDownloadFormat = "fetch tokenizer definition for %s: %w"
	errorHuggingFaceLoadFormat     = "load tokenizer definition for %s: %w"
	errorHuggingFaceEncodeFormat   = "encode with %s: %w"
)

type huggingFaceEncoder struct {
	inner *sugarme.Tokenizer
	name  string
}

func (encoder *huggingFaceEncoder) Name() string {
	return encoder.name
}

func (encoder *huggingFaceEncoder) Encode(input string) ([]string, error) {
	encoding, encodeError := encoder.inner.EncodeSingle(input)
	if encodeError != nil {
		return nil, fmt.Errorf(errorHuggingFaceEncodeFormat, encoder.name, encodeError)
	}
	return encoding.GetTokens(), nil
}

// newHuggingFaceEncoder downloads (or reuses the cached copy of) the model's
// tokenizer definition and loads it.
func newHuggingFaceEncoder(model string) (Encoder, error) {
	if model == "" {
		return nil, errors.New(errorHuggingFaceModelRequired)
	}
	definitionPath, cacheError := sugarme.CachedPath(model, huggingFaceTokenizerFileName)
	if cacheError != nil {
		return nil, fmt.Errorf(errorHuggingFaceDownloadFormat, model, cacheError)
	}
	inner, loadError := pretrained.FromFile(definitionPath)
	if loadError != nil {
		return nil, fmt.Errorf(errorHuggingFaceLoadFormat, model, loadError)
	}
	return &huggingFaceEncoder{inner: inner, name: model}, nil
}

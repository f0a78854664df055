package tokenizer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

const errorEncodingInitializationFormat = "initialize %s tokenizer: %w"

type openAIEncoder struct {
	encoding *tiktoken.Tiktoken
	name     string
}

func (encoder openAIEncoder) Name() string {
	return encoder.name
}

func (encoder openAIEncoder) Encode(input string) ([]string, error) {
	tokenIdentifiers := encoder.encoding.Encode(input, nil, nil)
	tokens := make([]string, len(tokenIdentifiers))
	for tokenIndex, tokenIdentifier := range tokenIdentifiers {
		tokens[tokenIndex] = strconv.Itoa(tokenIdentifier)
	}
	return tokens, nil
}

// newOpenAIEncoder resolves the encoding for a model name when one is given,
// falling back to the default encoding otherwise.
func newOpenAIEncoder(model string) (Encoder, error) {
	model = strings.TrimSpace(model)
	if model != "" {
		if encoding, modelError := tiktoken.EncodingForModel(model); modelError == nil && encoding != nil {
			return openAIEncoder{encoding: encoding, name: model}, nil
		}
	}
	encoding, encodingError := tiktoken.GetEncoding(defaultEncodingName)
	if encodingError != nil {
		return nil, fmt.Errorf(errorEncodingInitializationFormat, defaultEncodingName, encodingError)
	}
	return openAIEncoder{encoding: encoding, name: defaultEncodingName}, nil
}

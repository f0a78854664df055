package tokenizer

import (
	"strings"
	"testing"
)

type stubEncoder struct{}

func (stubEncoder) Name() string { return "stub" }

func (stubEncoder) Encode(input string) ([]string, error) {
	return strings.Fields(input), nil
}

func TestEncoderContractWithStub(testingHandle *testing.T) {
	var encoder Encoder = stubEncoder{}

	tokens, encodeError := encoder.Encode("three plain words")
	if encodeError != nil {
		testingHandle.Fatalf("Encode error: %v", encodeError)
	}
	if len(tokens) != 3 {
		testingHandle.Fatalf("expected 3 tokens, got %d", len(tokens))
	}

	tokens, encodeError = encoder.Encode("")
	if encodeError != nil {
		testingHandle.Fatalf("Encode error on empty input: %v", encodeError)
	}
	if len(tokens) != 0 {
		testingHandle.Fatalf("expected no tokens for empty input, got %d", len(tokens))
	}
}

func TestNewEncoderRejectsUnknownBackend(testingHandle *testing.T) {
	if _, constructError := NewEncoder(Config{Backend: "morse"}); constructError == nil {
		testingHandle.Fatal("expected an error for an unknown backend")
	}
}

func TestNewEncoderRequiresHuggingFaceModel(testingHandle *testing.T) {
	if _, constructError := NewEncoder(Config{Backend: BackendHuggingFace}); constructError == nil {
		testingHandle.Fatal("expected an error when no model is named")
	}
}

package extract

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fieldEncoder struct{}

func (fieldEncoder) Name() string { return "fields" }

func (fieldEncoder) Encode(input string) ([]string, error) {
	return strings.Fields(input), nil
}

func writeExtractFile(testingHandle *testing.T, name string, content []byte) string {
	testingHandle.Helper()
	filePath := filepath.Join(testingHandle.TempDir(), name)
	if writeError := os.WriteFile(filePath, content, 0o644); writeError != nil {
		testingHandle.Fatalf("failed to write %s: %v", filePath, writeError)
	}
	return filePath
}

// TestExtractValidUTF8RoundTrips verifies decoded content is byte-identical
// to the file for valid UTF-8 input.
func TestExtractValidUTF8RoundTrips(testingHandle *testing.T) {
	originalContent := []byte("first line\nsecond line with ümlaut\n")
	filePath := writeExtractFile(testingHandle, "notes.txt", originalContent)

	extractor := NewExtractor(1<<20, fieldEncoder{}, nil)
	record, extractError := extractor.Extract(filePath, "notes.txt")
	if extractError != nil {
		testingHandle.Fatalf("Extract error: %v", extractError)
	}
	if !bytes.Equal([]byte(record.Content), originalContent) {
		testingHandle.Fatal("decoded content must round-trip byte-identical for valid UTF-8")
	}
	if record.RelativePath != "notes.txt" {
		testingHandle.Fatalf("unexpected relative path %q", record.RelativePath)
	}
	if len(record.Tokens) != 6 {
		testingHandle.Fatalf("expected 6 tokens, got %d", len(record.Tokens))
	}
}

// TestExtractInvalidBytesAreSubstituted verifies lossy decoding never fails.
func TestExtractInvalidBytesAreSubstituted(testingHandle *testing.T) {
	filePath := writeExtractFile(testingHandle, "mixed.txt", []byte{'o', 'k', 0xff, 0xfe, '!'})

	extractor := NewExtractor(1<<20, fieldEncoder{}, nil)
	record, extractError := extractor.Extract(filePath, "mixed.txt")
	if extractError != nil {
		testingHandle.Fatalf("Extract error: %v", extractError)
	}
	if !strings.Contains(record.Content, "�") {
		testingHandle.Fatal("invalid bytes must decode to the replacement character")
	}
	if !strings.HasPrefix(record.Content, "ok") || !strings.HasSuffix(record.Content, "!") {
		testingHandle.Fatalf("valid bytes must survive the lossy decode, got %q", record.Content)
	}
}

// TestExtractLargeFileUsesMappedRead verifies both read strategies produce
// identical decoded text by forcing the mapped path with a tiny threshold.
func TestExtractLargeFileUsesMappedRead(testingHandle *testing.T) {
	originalContent := []byte(strings.Repeat("mapped content line\n", 50))
	filePath := writeExtractFile(testingHandle, "large.txt", originalContent)

	bufferedExtractor := NewExtractor(int64(len(originalContent)), fieldEncoder{}, nil)
	bufferedRecord, bufferedError := bufferedExtractor.Extract(filePath, "large.txt")
	if bufferedError != nil {
		testingHandle.Fatalf("buffered Extract error: %v", bufferedError)
	}

	mappedExtractor := NewExtractor(8, fieldEncoder{}, nil)
	mappedRecord, mappedError := mappedExtractor.Extract(filePath, "large.txt")
	if mappedError != nil {
		testingHandle.Fatalf("mapped Extract error: %v", mappedError)
	}

	if bufferedRecord.Content != mappedRecord.Content {
		testingHandle.Fatal("buffered and mapped reads must decode identically")
	}
	if !bytes.Equal([]byte(mappedRecord.Content), originalContent) {
		testingHandle.Fatal("mapped read must round-trip byte-identical for valid UTF-8")
	}
}

// TestExtractLargeFileLogsSize verifies the mapped read path reports the file
// with a human-readable size.
func TestExtractLargeFileLogsSize(testingHandle *testing.T) {
	observedCore, observedLogs := observer.New(zap.DebugLevel)
	originalContent := []byte(strings.Repeat("mapped content line\n", 50))
	filePath := writeExtractFile(testingHandle, "large.txt", originalContent)

	extractor := NewExtractor(8, fieldEncoder{}, zap.New(observedCore))
	if _, extractError := extractor.Extract(filePath, "large.txt"); extractError != nil {
		testingHandle.Fatalf("Extract error: %v", extractError)
	}

	mappedEntries := observedLogs.FilterMessage("memory-mapping large file").All()
	if len(mappedEntries) != 1 {
		testingHandle.Fatalf("expected one large-file log entry, got %d", len(mappedEntries))
	}
	loggedFields := mappedEntries[0].ContextMap()
	if loggedFields["path"] != filePath {
		testingHandle.Fatalf("unexpected logged path %v", loggedFields["path"])
	}
	if loggedFields["size"] != "1000b" {
		testingHandle.Fatalf("unexpected logged size %v", loggedFields["size"])
	}
}

// TestExtractMissingFileFails verifies a read failure surfaces as an error.
func TestExtractMissingFileFails(testingHandle *testing.T) {
	extractor := NewExtractor(1<<20, fieldEncoder{}, nil)
	if _, extractError := extractor.Extract(filepath.Join(testingHandle.TempDir(), "absent"), "absent"); extractError == nil {
		testingHandle.Fatal("expected an error for a missing file")
	}
}

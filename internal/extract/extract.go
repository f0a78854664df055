// Package extract reads accepted files, decodes them leniently, and attaches
// a token sequence to each.
package extract

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	mmap "github.com/edsrzf/mmap-go"
	"go.uber.org/zap"

	"github.com/temirov/repopack/internal/tokenizer"
	"github.com/temirov/repopack/internal/utils"
)

const (
	replacementCharacter = "�"

	errorContentReadFormat = "read %s: %w"
	errorTokenizeFormat    = "tokenize %s: %w"
)

// FileRecord is one accepted file ready for aggregation. Records are created
// here, consumed once by the aggregator, and never mutated in between.
type FileRecord struct {
	RelativePath string
	Content      string
	Tokens       []string
}

// Extractor reads file content with a size-dependent strategy: files at or
// below the threshold are read into a buffer, larger files are memory-mapped.
// Both paths produce byte-identical decoded text.
type Extractor struct {
	largeFileThreshold int64
	encoder            tokenizer.Encoder
	logger             *zap.Logger
}

// NewExtractor constructs an Extractor using encoder for token sequences.
// A nil logger disables logging.
func NewExtractor(largeFileThreshold int64, encoder tokenizer.Encoder, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{largeFileThreshold: largeFileThreshold, encoder: encoder, logger: logger}
}

// Extract produces the FileRecord for the file at absolutePath.
func (extractor *Extractor) Extract(absolutePath string, relativePath string) (FileRecord, error) {
	content, readError := extractor.readContent(absolutePath)
	if readError != nil {
		return FileRecord{}, fmt.Errorf(errorContentReadFormat, relativePath, readError)
	}
	tokens, encodeError := extractor.encoder.Encode(content)
	if encodeError != nil {
		return FileRecord{}, fmt.Errorf(errorTokenizeFormat, relativePath, encodeError)
	}
	return FileRecord{RelativePath: relativePath, Content: content, Tokens: tokens}, nil
}

func (extractor *Extractor) readContent(absolutePath string) (string, error) {
	fileInformation, statError := os.Stat(absolutePath)
	if statError != nil {
		return "", statError
	}
	if fileInformation.Size() <= extractor.largeFileThreshold {
		contentBytes, readError := os.ReadFile(absolutePath)
		if readError != nil {
			return "", readError
		}
		return decodeLossy(contentBytes), nil
	}

	extractor.logger.Debug("memory-mapping large file",
		zap.String("path", absolutePath),
		zap.String("size", utils.FormatFileSize(fileInformation.Size())))

	fileHandle, openError := os.Open(absolutePath)
	if openError != nil {
		return "", openError
	}
	defer fileHandle.Close()

	mappedRegion, mapError := mmap.Map(fileHandle, mmap.RDONLY, 0)
	if mapError != nil {
		return "", mapError
	}
	defer mappedRegion.Unmap()

	return decodeLossy(mappedRegion), nil
}

// decodeLossy converts raw bytes to a string, substituting the Unicode
// replacement character for invalid sequences. Valid UTF-8 passes through
// byte-identical.
func decodeLossy(contentBytes []byte) string {
	if utf8.Valid(contentBytes) {
		return string(contentBytes)
	}
	return strings.ToValidUTF8(string(contentBytes), replacementCharacter)
}

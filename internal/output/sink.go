// Package output delivers rendered documents to their destination: a
// timestamped file in the output directory or the system clipboard.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/temirov/repopack/internal/services/clipboard"
)

const (
	outputTimestampLayout = "20060102_150405"
	outputFileNameFormat  = "%s_%s.txt"
	outputFilePermissions = 0o644

	errorOutputDirectoryFormat = "create output directory %s: %w"
	errorOutputWriteFormat     = "write output file %s: %w"
	errorClipboardCopyFormat   = "copy to clipboard: %w"
)

// FileSink writes one document per repository into a shared directory.
type FileSink struct {
	outputDirectory string
	now             func() time.Time
}

// NewFileSink constructs a FileSink rooted at outputDirectory.
func NewFileSink(outputDirectory string) *FileSink {
	return &FileSink{outputDirectory: outputDirectory, now: time.Now}
}

// Write stores document under a name derived from the repository name and the
// current timestamp, returning the path written.
func (sink *FileSink) Write(repositoryName string, document string) (string, error) {
	if makeDirectoryError := os.MkdirAll(sink.outputDirectory, 0o755); makeDirectoryError != nil {
		return "", fmt.Errorf(errorOutputDirectoryFormat, sink.outputDirectory, makeDirectoryError)
	}
	timestamp := sink.now().Format(outputTimestampLayout)
	outputPath := filepath.Join(sink.outputDirectory, fmt.Sprintf(outputFileNameFormat, repositoryName, timestamp))
	if writeError := os.WriteFile(outputPath, []byte(document), outputFilePermissions); writeError != nil {
		return "", fmt.Errorf(errorOutputWriteFormat, outputPath, writeError)
	}
	return outputPath, nil
}

// ClipboardSink places the document on the system clipboard.
type ClipboardSink struct {
	copier clipboard.Copier
}

// NewClipboardSink constructs a ClipboardSink around copier.
func NewClipboardSink(copier clipboard.Copier) *ClipboardSink {
	return &ClipboardSink{copier: copier}
}

// Copy sends document to the clipboard.
func (sink *ClipboardSink) Copy(document string) error {
	if copyError := sink.copier.Copy(document); copyError != nil {
		return fmt.Errorf(errorClipboardCopyFormat, copyError)
	}
	return nil
}

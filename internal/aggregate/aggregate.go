// Package aggregate renders the final output document from the tree block and
// the extracted file records.
package aggregate

import (
	"path"
	"strings"

	"github.com/temirov/repopack/internal/extract"
)

const (
	directoryStructureOpenTag  = "<directory_structure>\n"
	directoryStructureCloseTag = "</directory_structure>\n\n"
	fileInfoOpenTag            = "<file_info>\n"
	fileInfoCloseTag           = "</file_info>\n"
	filePathLinePrefix         = "path: "
	fileNameLinePrefix         = "name: "
)

// Aggregator assembles the document: tree block first, then the README slot
// when present, then every remaining record. Records are written in chunks
// purely to bound buffer growth; chunk boundaries never affect content.
type Aggregator struct {
	chunkSize int
}

// NewAggregator constructs an Aggregator writing chunkSize records per batch.
func NewAggregator(chunkSize int) *Aggregator {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	return &Aggregator{chunkSize: chunkSize}
}

// Render produces the complete document. readmeRecord may be nil when no
// README was found or the active include filter rejected it.
func (aggregator *Aggregator) Render(treeText string, readmeRecord *extract.FileRecord, records []extract.FileRecord) string {
	var document strings.Builder

	document.WriteString(directoryStructureOpenTag)
	document.WriteString(treeText)
	document.WriteString("\n")
	document.WriteString(directoryStructureCloseTag)

	if readmeRecord != nil {
		writeFileBatch(&document, []extract.FileRecord{*readmeRecord})
	}

	for chunkStart := 0; chunkStart < len(records); chunkStart += aggregator.chunkSize {
		chunkEnd := chunkStart + aggregator.chunkSize
		if chunkEnd > len(records) {
			chunkEnd = len(records)
		}
		writeFileBatch(&document, records[chunkStart:chunkEnd])
	}

	return document.String()
}

// writeFileBatch appends one block per record: an info header, the raw
// decoded content, and a terminating blank line.
func writeFileBatch(document *strings.Builder, records []extract.FileRecord) {
	for _, record := range records {
		document.WriteString(fileInfoOpenTag)
		document.WriteString(filePathLinePrefix)
		document.WriteString(record.RelativePath)
		document.WriteString("\n")
		document.WriteString(fileNameLinePrefix)
		document.WriteString(path.Base(record.RelativePath))
		document.WriteString("\n")
		document.WriteString(fileInfoCloseTag)
		document.WriteString(record.Content)
		document.WriteString("\n\n")
	}
}

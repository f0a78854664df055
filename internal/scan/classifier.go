package scan

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"

	"github.com/temirov/repopack/internal/config"
)

// Class is the text-or-binary verdict for a candidate file.
type Class int

const (
	// ClassText marks content safe to include in the output document.
	ClassText Class = iota
	// ClassBinary marks content excluded from the output document.
	ClassBinary
)

// Heuristic identifies which cascade rule produced a classification.
type Heuristic string

const (
	HeuristicBuiltinExclusion Heuristic = "builtin-exclusion"
	HeuristicReadme           Heuristic = "readme"
	HeuristicEcosystem        Heuristic = "ecosystem"
	HeuristicExtension        Heuristic = "extension"
	HeuristicSignature        Heuristic = "signature"
	HeuristicByteRatio        Heuristic = "byte-ratio"
)

// Classification is the verdict for one file together with its originating
// heuristic. Verdicts are computed independently per file and never cached.
type Classification struct {
	Class     Class
	Heuristic Heuristic
}

// textAllowedControlBytes are the control characters permitted in text content.
var textAllowedControlBytes = map[byte]struct{}{'\t': {}, '\n': {}, '\r': {}}

// nullByteGateSize is the prefix length inspected by the extraction gate.
const nullByteGateSize = 512

// Classifier decides whether a file is text or binary using a cascade of
// heuristics: built-in exclusions, README priority, extension membership,
// signature sniffing, and a statistical byte-sampling fallback. Any internal
// error collapses to a binary verdict so uncertain content is excluded.
type Classifier struct {
	settings             config.Settings
	textExtensions       map[string]struct{}
	restrictedExtensions map[string]struct{}
}

// NewClassifier constructs a Classifier. When ecosystemNames is non-empty the
// classifier restricts files to the union of those ecosystems' extension
// lists instead of the general text-extension allow-list.
func NewClassifier(settings config.Settings, ecosystemNames []string) *Classifier {
	classifier := &Classifier{
		settings:       settings,
		textExtensions: make(map[string]struct{}, len(settings.TextExtensions)),
	}
	for _, extension := range settings.TextExtensions {
		classifier.textExtensions[extension] = struct{}{}
	}
	if len(ecosystemNames) > 0 {
		classifier.restrictedExtensions = make(map[string]struct{})
		for _, ecosystemName := range ecosystemNames {
			for _, extension := range settings.EcosystemExtensions[ecosystemName] {
				classifier.restrictedExtensions[extension] = struct{}{}
			}
		}
	}
	return classifier
}

// Classify returns the verdict for the file at absolutePath. The first
// matching cascade rule wins.
func (classifier *Classifier) Classify(absolutePath string, relativePath string) Classification {
	if ContainsBuiltinExclusion(relativePath, false, classifier.settings.BuiltinExclusions) {
		return Classification{Class: ClassBinary, Heuristic: HeuristicBuiltinExclusion}
	}

	fileName := strings.ToLower(filepath.Base(absolutePath))
	if strings.Contains(fileName, "readme") {
		return Classification{Class: ClassText, Heuristic: HeuristicReadme}
	}

	extension := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")

	if classifier.restrictedExtensions != nil {
		if _, isMember := classifier.restrictedExtensions[extension]; isMember {
			return Classification{Class: ClassText, Heuristic: HeuristicEcosystem}
		}
		return Classification{Class: ClassBinary, Heuristic: HeuristicEcosystem}
	}

	if _, isTextExtension := classifier.textExtensions[extension]; isTextExtension {
		return Classification{Class: ClassText, Heuristic: HeuristicExtension}
	}

	sampleBytes, sampleError := readLeadingBytes(absolutePath, classifier.settings.BinaryCheckSize)
	if sampleError != nil {
		return Classification{Class: ClassBinary, Heuristic: HeuristicByteRatio}
	}

	if signatureClass, recognized := classifyBySignature(sampleBytes); recognized {
		return Classification{Class: signatureClass, Heuristic: HeuristicSignature}
	}

	return Classification{Class: classifier.classifyByByteRatio(sampleBytes), Heuristic: HeuristicByteRatio}
}

// AllowsExtraction is the independent binary-blob gate applied before content
// extraction: a known binary signature blocks the file, otherwise a null byte
// within the leading bytes does. Both this gate and a text classification
// must pass for a file to be extracted.
func (classifier *Classifier) AllowsExtraction(absolutePath string) bool {
	leadingBytes, readError := readLeadingBytes(absolutePath, nullByteGateSize)
	if readError != nil {
		return true
	}
	if signatureKind, matchError := filetype.Match(leadingBytes); matchError == nil && signatureKind != filetype.Unknown {
		return strings.HasPrefix(signatureKind.MIME.Value, "text/")
	}
	return !bytes.ContainsRune(leadingBytes, 0)
}

// classifyBySignature sniffs magic numbers and signature-derived MIME
// families. The second return value reports whether the sample was
// recognized. Generic text/plain detection is not recognition: content with
// no actual signature falls through to the byte-ratio rule.
func classifyBySignature(sampleBytes []byte) (Class, bool) {
	if signatureKind, matchError := filetype.Match(sampleBytes); matchError == nil && signatureKind != filetype.Unknown {
		mimeValue := signatureKind.MIME.Value
		if strings.HasPrefix(mimeValue, "text/") || mimeValue == "application/json" || mimeValue == "application/xml" {
			return ClassText, true
		}
		return ClassBinary, true
	}

	detectedContentType := http.DetectContentType(sampleBytes)
	if strings.HasPrefix(detectedContentType, "text/html") || strings.HasPrefix(detectedContentType, "text/xml") {
		return ClassText, true
	}
	return ClassBinary, false
}

// classifyByByteRatio samples the leading bytes and computes the fraction
// outside the printable range; empty files are text.
func (classifier *Classifier) classifyByByteRatio(sampleBytes []byte) Class {
	if len(sampleBytes) == 0 {
		return ClassText
	}
	nonTextCount := 0
	for _, sampleByte := range sampleBytes {
		if _, allowed := textAllowedControlBytes[sampleByte]; allowed {
			continue
		}
		if sampleByte < 32 || sampleByte > 126 {
			nonTextCount++
		}
	}
	ratio := float64(nonTextCount) / float64(len(sampleBytes))
	if ratio <= classifier.settings.TextThreshold {
		return ClassText
	}
	return ClassBinary
}

// readLeadingBytes returns up to limit bytes from the start of the file.
func readLeadingBytes(absolutePath string, limit int) ([]byte, error) {
	fileHandle, openError := os.Open(absolutePath)
	if openError != nil {
		return nil, openError
	}
	defer fileHandle.Close()

	buffer := make([]byte, limit)
	bytesRead, readError := io.ReadFull(fileHandle, buffer)
	if readError != nil && readError != io.EOF && readError != io.ErrUnexpectedEOF {
		return nil, readError
	}
	return buffer[:bytesRead], nil
}

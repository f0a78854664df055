// Package pipeline orchestrates a full scan: walking, classification,
// extraction, tree building, and document assembly.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	progressbar "github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/temirov/repopack/internal/aggregate"
	"github.com/temirov/repopack/internal/config"
	"github.com/temirov/repopack/internal/extract"
	"github.com/temirov/repopack/internal/scan"
	"github.com/temirov/repopack/internal/tokenizer"
	"github.com/temirov/repopack/internal/tree"
)

const (
	progressDescription = "Processing files"

	errorRootResolveFormat = "resolve scan root %s: %w"
)

// Options selects what a single Run scans and how.
type Options struct {
	Root            string
	ClonedRoot      bool
	ExcludePatterns []string
	IncludePatterns []string
	EcosystemNames  []string
	Workers         int
	ShowProgress    bool
}

// Result is the outcome of one Run.
type Result struct {
	Document string
	Stats    Stats
}

// Pipeline wires the scan components around shared settings and a tokenizer.
type Pipeline struct {
	settings config.Settings
	encoder  tokenizer.Encoder
	logger   *zap.Logger
}

// New constructs a Pipeline. A nil logger disables logging.
func New(settings config.Settings, encoder tokenizer.Encoder, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{settings: settings, encoder: encoder, logger: logger}
}

// fileOutcome is one worker's verdict for a single candidate file.
type fileOutcome struct {
	record        *extract.FileRecord
	binarySkipped bool
	dropped       bool
}

// Run executes the full scan over options.Root and renders the document.
// Structural failures on the root abort the run; every per-file failure is
// converted into a dropped entry.
func (pipeline *Pipeline) Run(runContext context.Context, options Options) (*Result, error) {
	startTime := time.Now()

	absoluteRoot, absoluteError := filepath.Abs(options.Root)
	if absoluteError != nil {
		return nil, fmt.Errorf(errorRootResolveFormat, options.Root, absoluteError)
	}

	patternSet := scan.NewPatternSet(options.ExcludePatterns, options.IncludePatterns)
	classifier := scan.NewClassifier(pipeline.settings, options.EcosystemNames)
	walker := scan.NewWalker(pipeline.settings, patternSet, options.ClonedRoot)
	extractor := extract.NewExtractor(pipeline.settings.LargeFileThreshold, pipeline.encoder, pipeline.logger)

	// Counting pass. The same walker rules run again below so the counted
	// total matches the processed total.
	countedEntries, countError := walker.Walk(absoluteRoot)
	if countError != nil {
		return nil, countError
	}
	candidateTotal := 0
	for _, countedEntry := range countedEntries {
		if !countedEntry.IsDir {
			candidateTotal++
		}
	}

	readmeRecord := pipeline.extractReadme(absoluteRoot, patternSet, extractor)

	entries, collectError := walker.Walk(absoluteRoot)
	if collectError != nil {
		return nil, collectError
	}

	rootNode := tree.NewBuilder(patternSet).Build(filepath.Base(absoluteRoot), entries)

	candidates := pipeline.selectCandidates(entries, patternSet, readmeRecord)

	progressBar := newProgressBar(candidateTotal, options.ShowProgress)
	records, stats := pipeline.processCandidates(runContext, classifier, extractor, candidates, options.Workers, progressBar)
	finishProgressBar(progressBar)

	sort.Slice(records, func(firstIndex, secondIndex int) bool {
		return records[firstIndex].RelativePath < records[secondIndex].RelativePath
	})

	stats.FilesProcessed = len(records)
	for _, record := range records {
		stats.TotalTokens += len(record.Tokens)
	}
	if readmeRecord != nil {
		stats.FilesProcessed++
		stats.TotalTokens += len(readmeRecord.Tokens)
	}
	stats.Duration = time.Since(startTime)

	document := aggregate.NewAggregator(pipeline.settings.ChunkSize).
		Render(tree.Render(rootNode), readmeRecord, records)

	return &Result{Document: document, Stats: stats}, nil
}

// extractReadme finds the first conventional README name present at the root
// and extracts it, unless an exclusion or an active include filter rejects
// it. The same rules the walker applies must hold here, otherwise the record
// would name a file the tree omits. The record is emitted ahead of every
// chunk regardless of sort order.
func (pipeline *Pipeline) extractReadme(absoluteRoot string, patternSet *scan.PatternSet, extractor *extract.Extractor) *extract.FileRecord {
	for _, readmeName := range pipeline.settings.ReadmeNames {
		readmePath := filepath.Join(absoluteRoot, readmeName)
		readmeInformation, statError := os.Stat(readmePath)
		if statError != nil || readmeInformation.IsDir() {
			continue
		}
		if scan.ContainsBuiltinExclusion(readmeName, false, pipeline.settings.BuiltinExclusions) {
			continue
		}
		if patternSet.ExcludeMatches(readmeName, readmeName) {
			continue
		}
		if !patternSet.IncludeAllows(readmeName, readmeName) {
			return nil
		}
		record, extractError := extractor.Extract(readmePath, readmeName)
		if extractError != nil {
			pipeline.logger.Warn("failed to extract readme", zap.String("path", readmePath), zap.Error(extractError))
			return nil
		}
		return &record
	}
	return nil
}

// selectCandidates filters the walk output down to files eligible for
// extraction: include-filtered, with the README slot deduplicated. The
// deduplication compares base names, so a nested copy of the chosen README
// never appears a second time in the document.
func (pipeline *Pipeline) selectCandidates(entries []scan.ScanEntry, patternSet *scan.PatternSet, readmeRecord *extract.FileRecord) []scan.ScanEntry {
	var candidates []scan.ScanEntry
	for _, entry := range entries {
		if entry.IsDir {
			continue
		}
		if !patternSet.IncludeAllows(entry.RelativePath, filepath.Base(entry.RelativePath)) {
			continue
		}
		if readmeRecord != nil && filepath.Base(entry.RelativePath) == readmeRecord.RelativePath {
			continue
		}
		candidates = append(candidates, entry)
	}
	return candidates
}

// processCandidates fans the candidates out over a bounded worker pool. Each
// worker sends a local outcome; the reducer below sums them, so no counter is
// shared between workers.
func (pipeline *Pipeline) processCandidates(
	runContext context.Context,
	classifier *scan.Classifier,
	extractor *extract.Extractor,
	candidates []scan.ScanEntry,
	workerLimit int,
	progressBar *progressbar.ProgressBar,
) ([]extract.FileRecord, Stats) {
	if workerLimit <= 0 {
		workerLimit = runtime.NumCPU()
	}
	outcomes := make(chan fileOutcome, len(candidates))

	workerGroup, workerContext := errgroup.WithContext(runContext)
	workerGroup.SetLimit(workerLimit)
	for _, candidate := range candidates {
		candidate := candidate
		workerGroup.Go(func() error {
			if contextError := workerContext.Err(); contextError != nil {
				return contextError
			}
			outcomes <- pipeline.processFile(classifier, extractor, candidate)
			advanceProgressBar(progressBar)
			return nil
		})
	}
	_ = workerGroup.Wait()
	close(outcomes)

	var records []extract.FileRecord
	var stats Stats
	for outcome := range outcomes {
		switch {
		case outcome.record != nil:
			records = append(records, *outcome.record)
		case outcome.binarySkipped:
			stats.BinariesSkipped++
		case outcome.dropped:
			stats.EntriesDropped++
		}
	}
	return records, stats
}

// processFile runs the classification cascade and both extraction gates for
// one candidate. Never returns an error; failures become dropped entries.
func (pipeline *Pipeline) processFile(classifier *scan.Classifier, extractor *extract.Extractor, candidate scan.ScanEntry) fileOutcome {
	classification := classifier.Classify(candidate.AbsolutePath, candidate.RelativePath)
	if classification.Class == scan.ClassBinary {
		return fileOutcome{binarySkipped: true}
	}
	if !classifier.AllowsExtraction(candidate.AbsolutePath) {
		return fileOutcome{binarySkipped: true}
	}
	record, extractError := extractor.Extract(candidate.AbsolutePath, candidate.RelativePath)
	if extractError != nil {
		pipeline.logger.Debug("dropping unreadable entry", zap.String("path", candidate.RelativePath), zap.Error(extractError))
		return fileOutcome{dropped: true}
	}
	return fileOutcome{record: &record}
}

// progressOutputIsTerminal reports whether stderr is attached to a terminal.
// A variable so tests can substitute the check.
var progressOutputIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func newProgressBar(total int, showProgress bool) *progressbar.ProgressBar {
	if !showProgress || !progressOutputIsTerminal() {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(progressDescription),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)
}

func advanceProgressBar(progressBar *progressbar.ProgressBar) {
	if progressBar != nil {
		_ = progressBar.Add(1)
	}
}

func finishProgressBar(progressBar *progressbar.ProgressBar) {
	if progressBar != nil {
		_ = progressBar.Finish()
	}
}

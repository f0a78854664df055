package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/repopack/internal/gitrepo"
	"github.com/temirov/repopack/internal/output"
	"github.com/temirov/repopack/internal/pipeline"
	"github.com/temirov/repopack/internal/services/clipboard"
)

// processRepository prepares one scan root (the working directory or a fresh
// clone), runs the pipeline over it, and delivers the document.
func processRepository(
	processContext context.Context,
	enginePipeline *pipeline.Pipeline,
	statsCollector *pipeline.StatsCollector,
	scanInput string,
	ecosystemNames []string,
	credentials gitrepo.Credentials,
	options commandOptions,
	loggerInstance *zap.Logger,
) error {
	scanRoot, repositoryName, clonedRoot, cloneDuration, cleanup, prepareError := prepareScanRoot(scanInput, credentials, options)
	if prepareError != nil {
		return prepareError
	}
	if cleanup != nil {
		defer cleanup()
	}

	result, runError := enginePipeline.Run(processContext, pipeline.Options{
		Root:            scanRoot,
		ClonedRoot:      clonedRoot,
		ExcludePatterns: options.excludePatterns,
		IncludePatterns: options.includePatterns,
		EcosystemNames:  ecosystemNames,
		Workers:         options.workerCount,
		ShowProgress:    options.showProgress,
	})
	if runError != nil {
		return runError
	}
	result.Stats.CloneDuration = cloneDuration
	statsCollector.Add(result.Stats)

	if options.copyToClipboard {
		if copyError := output.NewClipboardSink(clipboard.NewService()).Copy(result.Document); copyError != nil {
			return copyError
		}
		fmt.Println(clipboardConfirmationMessage)
		return nil
	}

	outputPath, writeError := output.NewFileSink(options.outputDirectory).Write(repositoryName, result.Document)
	if writeError != nil {
		return writeError
	}
	loggerInstance.Info("document written", zap.String("repository", repositoryName), zap.String("path", outputPath))
	fmt.Printf(outputWrittenFormat, outputPath)
	return nil
}

// prepareScanRoot returns the directory to scan, the elapsed clone time for
// remote inputs, and a cleanup function removing the temporary clone.
func prepareScanRoot(scanInput string, credentials gitrepo.Credentials, options commandOptions) (string, string, bool, time.Duration, func(), error) {
	if scanInput == localDirectoryInput {
		workingDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return "", "", false, 0, nil, fmt.Errorf(errorWorkingDirectoryFormat, workingDirectoryError)
		}
		return workingDirectory, filepath.Base(workingDirectory), false, 0, nil, nil
	}

	destination, destinationError := gitrepo.CloneDestination(options.cloneDestination)
	if destinationError != nil {
		return "", "", false, 0, nil, destinationError
	}
	var cleanup func()
	if options.cloneDestination == "" {
		cleanup = func() { _ = os.RemoveAll(destination) }
	}
	cloneStart := time.Now()
	if cloneError := gitrepo.Clone(scanInput, destination, credentials); cloneError != nil {
		if cleanup != nil {
			cleanup()
		}
		return "", "", false, 0, nil, cloneError
	}
	return destination, gitrepo.ExtractRepositoryName(scanInput), true, time.Since(cloneStart), cleanup, nil
}

// statisticsReport renders the end-of-run summary.
func statisticsReport(repositoriesProcessed int, stats pipeline.Stats) string {
	var report strings.Builder
	report.WriteString(statisticsHeader + "\n")
	fmt.Fprintf(&report, statisticsRepositoriesFormat+"\n", repositoriesProcessed)
	fmt.Fprintf(&report, statisticsFilesFormat+"\n", stats.FilesProcessed)
	fmt.Fprintf(&report, statisticsTokensFormat+"\n", stats.TotalTokens)
	fmt.Fprintf(&report, statisticsBinariesFormat+"\n", stats.BinariesSkipped)
	fmt.Fprintf(&report, statisticsCloneTimeFormat+"\n", stats.CloneDuration.Seconds())
	fmt.Fprintf(&report, statisticsProcessingTimeFormat+"\n", stats.Duration.Seconds())
	fmt.Fprintf(&report, statisticsTotalTimeFormat+"\n", (stats.CloneDuration + stats.Duration).Seconds())
	if stats.FilesProcessed > 0 {
		fmt.Fprintf(&report, statisticsAverageTokensFormat+"\n", float64(stats.TotalTokens)/float64(stats.FilesProcessed))
	}
	if processingSeconds := stats.Duration.Seconds(); processingSeconds > 0 && stats.FilesProcessed > 0 {
		fmt.Fprintf(&report, statisticsSpeedFormat+"\n", float64(stats.FilesProcessed)/processingSeconds)
	}
	return report.String()
}

// printStatistics mirrors the end-of-run summary on stdout.
func printStatistics(repositoriesProcessed int, stats pipeline.Stats) {
	fmt.Print(statisticsReport(repositoriesProcessed, stats))
}

// Package cli provides the command line interface.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/repopack/internal/config"
	"github.com/temirov/repopack/internal/gitrepo"
	"github.com/temirov/repopack/internal/pipeline"
	"github.com/temirov/repopack/internal/tokenizer"
	"github.com/temirov/repopack/internal/utils"
)

const (
	rootUse              = "repopack [input]"
	rootShortDescription = "repopack flattens a repository into a single text document"
	rootLongDescription  = `repopack scans a local directory or a freshly cloned repository, renders its
directory tree, and concatenates every text file into one ordered document.
With no input it scans the current directory. The input may also be a git URL
(https:// or git@) or a CSV file whose first column lists git URLs.`
	rootUsageExample = `  # Flatten the current directory
  repopack

  # Flatten a remote repository
  repopack https://github.com/acme/widgets.git

  # Flatten every repository listed in a CSV file, markdown only
  repopack repos.csv --only '*.md'`

	outputDirectoryFlagName = "output-dir"
	typesFlagName           = "types"
	onlyFlagName            = "only"
	excludeFlagName         = "exclude"
	copyFlagName            = "copy"
	atFlagName              = "at"
	tokenFlagName           = "token"
	sshKeyFlagName          = "ssh-key"
	sshPassphraseFlagName   = "ssh-passphrase"
	modelFlagName           = "model"
	tokenizerFlagName       = "tokenizer"
	workersFlagName         = "workers"
	progressFlagName        = "progress"
	versionFlagName         = "version"

	outputDirectoryFlagDescription = "directory for generated documents"
	typesFlagDescription           = "restrict files to the named ecosystems (rust, python, javascript, go, java)"
	onlyFlagDescription            = "include only files matching these patterns"
	excludeFlagDescription         = "exclude files matching these patterns"
	copyFlagDescription            = "copy the document to the clipboard instead of writing a file"
	atFlagDescription              = "clone into this directory instead of a temporary one"
	tokenFlagDescription           = "GitHub token for private HTTPS clones (defaults to GITHUB_TOKEN)"
	sshKeyFlagDescription          = "SSH key for git@ clones (defaults to ~/.ssh/id_rsa)"
	sshPassphraseFlagDescription   = "passphrase for the SSH key"
	modelFlagDescription           = "tokenizer model used for token counting"
	tokenizerFlagDescription       = "tokenizer backend (openai or huggingface)"
	workersFlagDescription         = "number of concurrent file workers (0 selects the CPU count)"
	progressFlagDescription        = "display a progress bar"
	versionFlagDescription         = "display application version"

	defaultOutputDirectory = "output"
	localDirectoryInput    = "."
	versionTemplate        = "repopack version: %s\n"

	clipboardConfirmationMessage = "Content copied to clipboard"
	outputWrittenFormat          = "Wrote %s\n"

	statisticsHeader                 = "\nProcessing Statistics:"
	statisticsRepositoriesFormat     = "Total repositories processed: %d"
	statisticsFilesFormat            = "Total files processed: %d"
	statisticsTokensFormat           = "Total tokens: %d"
	statisticsBinariesFormat         = "Binary files skipped: %d"
	statisticsCloneTimeFormat        = "Repository clone time: %.2f seconds"
	statisticsProcessingTimeFormat   = "Content processing time: %.2f seconds"
	statisticsTotalTimeFormat        = "Total time: %.2f seconds"
	statisticsAverageTokensFormat    = "Average tokens per file: %.2f"
	statisticsSpeedFormat            = "Processing speed: %.2f files/second"
	errorInvalidInputFormat          = "input must be a CSV file or a git URL (https:// or git@), got: %s"
	errorRepositoryListMissingFormat = "repository list not found: %s"
	errorUnknownEcosystemFormat      = "unknown repository type %q, supported types: %s"
	errorAtRequiresSingleRepository  = "--at applies to a single repository"
	errorWorkingDirectoryFormat      = "unable to determine working directory: %w"
)

// commandOptions collects every flag value for the root command.
type commandOptions struct {
	outputDirectory  string
	ecosystemAliases []string
	includePatterns  []string
	excludePatterns  []string
	copyToClipboard  bool
	cloneDestination string
	gitHubToken      string
	sshKeyPath       string
	sshPassphrase    string
	tokenizerModel   string
	tokenizerBackend string
	workerCount      int
	showProgress     bool
}

// Execute runs the repopack application.
func Execute(loggerInstance *zap.Logger) error {
	rootCommand := createRootCommand(loggerInstance)
	return rootCommand.Execute()
}

// createRootCommand builds the root Cobra command.
func createRootCommand(loggerInstance *zap.Logger) *cobra.Command {
	var showVersion bool
	var options commandOptions

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		Example:      rootUsageExample,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		PersistentPreRun: func(command *cobra.Command, arguments []string) {
			if showVersion {
				fmt.Printf(versionTemplate, utils.GetApplicationVersion())
				os.Exit(0)
			}
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			input := ""
			if len(arguments) == 1 {
				input = arguments[0]
			}
			return run(command, loggerInstance, input, options)
		},
	}

	flags := rootCommand.Flags()
	flags.StringVarP(&options.outputDirectory, outputDirectoryFlagName, "o", defaultOutputDirectory, outputDirectoryFlagDescription)
	flags.StringSliceVarP(&options.ecosystemAliases, typesFlagName, "t", nil, typesFlagDescription)
	flags.StringSliceVar(&options.includePatterns, onlyFlagName, nil, onlyFlagDescription)
	flags.StringSliceVarP(&options.excludePatterns, excludeFlagName, "e", nil, excludeFlagDescription)
	flags.BoolVarP(&options.copyToClipboard, copyFlagName, "c", false, copyFlagDescription)
	flags.StringVar(&options.cloneDestination, atFlagName, "", atFlagDescription)
	flags.StringVarP(&options.gitHubToken, tokenFlagName, "p", "", tokenFlagDescription)
	flags.StringVar(&options.sshKeyPath, sshKeyFlagName, "", sshKeyFlagDescription)
	flags.StringVar(&options.sshPassphrase, sshPassphraseFlagName, "", sshPassphraseFlagDescription)
	flags.StringVar(&options.tokenizerModel, modelFlagName, "", modelFlagDescription)
	flags.StringVar(&options.tokenizerBackend, tokenizerFlagName, "", tokenizerFlagDescription)
	flags.IntVar(&options.workerCount, workersFlagName, 0, workersFlagDescription)
	flags.BoolVar(&options.showProgress, progressFlagName, true, progressFlagDescription)
	rootCommand.PersistentFlags().BoolVar(&showVersion, versionFlagName, false, versionFlagDescription)

	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// run resolves the input into a list of scan targets and processes each.
func run(command *cobra.Command, loggerInstance *zap.Logger, input string, options commandOptions) error {
	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return fmt.Errorf(errorWorkingDirectoryFormat, workingDirectoryError)
	}

	applicationConfiguration, configurationError := config.LoadApplicationConfiguration(workingDirectory)
	if configurationError != nil {
		return configurationError
	}
	options = applyConfigurationDefaults(command, options, applicationConfiguration)

	ecosystemNames, ecosystemError := resolveEcosystems(options.ecosystemAliases)
	if ecosystemError != nil {
		return ecosystemError
	}

	inputs, inputError := resolveInputs(input)
	if inputError != nil {
		return inputError
	}
	if options.cloneDestination != "" && len(inputs) > 1 {
		return errors.New(errorAtRequiresSingleRepository)
	}
	options.showProgress = options.showProgress && len(inputs) == 1

	encoder, encoderError := tokenizer.NewEncoder(tokenizer.Config{
		Backend: options.tokenizerBackend,
		Model:   options.tokenizerModel,
	})
	if encoderError != nil {
		return encoderError
	}

	enginePipeline := pipeline.New(config.DefaultSettings(), encoder, loggerInstance)
	credentials := gitrepo.Credentials{
		GitHubToken:   config.ResolveGitHubToken(options.gitHubToken),
		SSHKeyPath:    options.sshKeyPath,
		SSHPassphrase: options.sshPassphrase,
	}

	var statsCollector pipeline.StatsCollector
	repositoriesProcessed := 0

	processingGroup := new(errgroup.Group)
	processingGroup.SetLimit(len(inputs))
	for _, scanInput := range inputs {
		scanInput := scanInput
		processingGroup.Go(func() error {
			return processRepository(command.Context(), enginePipeline, &statsCollector, scanInput, ecosystemNames, credentials, options, loggerInstance)
		})
	}
	if processingError := processingGroup.Wait(); processingError != nil {
		return processingError
	}
	for _, scanInput := range inputs {
		if scanInput != localDirectoryInput {
			repositoriesProcessed++
		}
	}

	printStatistics(repositoriesProcessed, statsCollector.Total())
	return nil
}

// applyConfigurationDefaults fills options from the configuration file for
// every flag the user did not set explicitly.
func applyConfigurationDefaults(command *cobra.Command, options commandOptions, configuration config.ApplicationConfiguration) commandOptions {
	flags := command.Flags()
	if !flags.Changed(outputDirectoryFlagName) && configuration.OutputDirectory != "" {
		options.outputDirectory = configuration.OutputDirectory
	}
	if !flags.Changed(excludeFlagName) && len(configuration.Exclude) > 0 {
		options.excludePatterns = configuration.Exclude
	}
	if !flags.Changed(onlyFlagName) && len(configuration.Only) > 0 {
		options.includePatterns = configuration.Only
	}
	if !flags.Changed(typesFlagName) && len(configuration.Types) > 0 {
		options.ecosystemAliases = configuration.Types
	}
	if !flags.Changed(workersFlagName) && configuration.Workers != nil {
		options.workerCount = *configuration.Workers
	}
	if !flags.Changed(copyFlagName) && configuration.Copy != nil {
		options.copyToClipboard = *configuration.Copy
	}
	if !flags.Changed(tokenizerFlagName) && configuration.Tokenizer.Backend != "" {
		options.tokenizerBackend = configuration.Tokenizer.Backend
	}
	if !flags.Changed(modelFlagName) && configuration.Tokenizer.Model != "" {
		options.tokenizerModel = configuration.Tokenizer.Model
	}
	return options
}

// resolveEcosystems maps user aliases onto canonical ecosystem names.
func resolveEcosystems(aliases []string) ([]string, error) {
	var ecosystemNames []string
	for _, alias := range aliases {
		ecosystemName, known := config.ResolveEcosystem(alias)
		if !known {
			return nil, fmt.Errorf(errorUnknownEcosystemFormat, alias, strings.Join(config.DefaultSettings().EcosystemNames(), ", "))
		}
		ecosystemNames = append(ecosystemNames, ecosystemName)
	}
	return ecosystemNames, nil
}

// resolveInputs expands the positional input into scan targets: the current
// directory, a single git URL, or every URL from a CSV list.
func resolveInputs(input string) ([]string, error) {
	if input == "" {
		return []string{localDirectoryInput}, nil
	}
	if gitrepo.IsRepositoryList(input) {
		if _, statError := os.Stat(input); statError != nil {
			return nil, fmt.Errorf(errorRepositoryListMissingFormat, input)
		}
		return gitrepo.ReadRepositoryList(input)
	}
	if gitrepo.IsGitURL(input) {
		return []string{input}, nil
	}
	return nil, fmt.Errorf(errorInvalidInputFormat, input)
}

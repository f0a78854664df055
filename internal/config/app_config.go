package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	configFileName                 = ".repopack.yaml"
	environmentPrefix              = "REPOPACK"
	gitHubTokenKey                 = "github_token"
	gitHubTokenEnvironmentVariable = "GITHUB_TOKEN"

	errorConfigurationStatFormat   = "stat configuration %s: %w"
	errorConfigurationReadFormat   = "read configuration from %s: %w"
	errorConfigurationDecodeFormat = "decode configuration from %s: %w"
)

// ApplicationConfiguration holds defaults loaded from configuration files.
// Flags override anything set here.
type ApplicationConfiguration struct {
	OutputDirectory string                 `mapstructure:"output_dir"`
	Exclude         []string               `mapstructure:"exclude"`
	Only            []string               `mapstructure:"only"`
	Types           []string               `mapstructure:"types"`
	Workers         *int                   `mapstructure:"workers"`
	Copy            *bool                  `mapstructure:"copy"`
	Tokenizer       TokenizerConfiguration `mapstructure:"tokenizer"`
}

// TokenizerConfiguration selects the tokenizer backend and model.
type TokenizerConfiguration struct {
	Backend string `mapstructure:"backend"`
	Model   string `mapstructure:"model"`
}

// LoadApplicationConfiguration merges, in increasing precedence, the global
// configuration file from the home directory, the one in workingDirectory,
// and REPOPACK_* environment variables. Missing files are not an error.
func LoadApplicationConfiguration(workingDirectory string) (ApplicationConfiguration, error) {
	var merged ApplicationConfiguration

	if homeDirectory, homeError := os.UserHomeDir(); homeError == nil && homeDirectory != "" {
		globalConfiguration, loadError := loadConfigurationFromPath(filepath.Join(homeDirectory, configFileName))
		if loadError != nil {
			return ApplicationConfiguration{}, loadError
		}
		merged = merged.Merge(globalConfiguration)
	}

	if workingDirectory != "" {
		localConfiguration, loadError := loadConfigurationFromPath(filepath.Join(workingDirectory, configFileName))
		if loadError != nil {
			return ApplicationConfiguration{}, loadError
		}
		merged = merged.Merge(localConfiguration)
	}

	merged = merged.Merge(environmentOverrides())
	return merged, nil
}

// environmentOverrides reads REPOPACK_* variables, for example
// REPOPACK_OUTPUT_DIR and REPOPACK_TOKENIZER_BACKEND.
func environmentOverrides() ApplicationConfiguration {
	environment := viper.New()
	environment.SetEnvPrefix(environmentPrefix)
	environment.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	environment.AutomaticEnv()

	var overrides ApplicationConfiguration
	overrides.OutputDirectory = environment.GetString("output_dir")
	overrides.Tokenizer.Backend = environment.GetString("tokenizer.backend")
	overrides.Tokenizer.Model = environment.GetString("tokenizer.model")
	if workerCount := environment.GetInt("workers"); workerCount > 0 {
		overrides.Workers = &workerCount
	}
	return overrides
}

func loadConfigurationFromPath(configurationPath string) (ApplicationConfiguration, error) {
	information, statError := os.Stat(configurationPath)
	if statError != nil {
		if os.IsNotExist(statError) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf(errorConfigurationStatFormat, configurationPath, statError)
	}
	if information.IsDir() {
		return ApplicationConfiguration{}, nil
	}

	reader := viper.New()
	reader.SetConfigFile(configurationPath)
	if readError := reader.ReadInConfig(); readError != nil {
		return ApplicationConfiguration{}, fmt.Errorf(errorConfigurationReadFormat, configurationPath, readError)
	}
	var configuration ApplicationConfiguration
	if decodeError := reader.Unmarshal(&configuration); decodeError != nil {
		return ApplicationConfiguration{}, fmt.Errorf(errorConfigurationDecodeFormat, configurationPath, decodeError)
	}
	return configuration, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (configuration ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := configuration
	if override.OutputDirectory != "" {
		result.OutputDirectory = override.OutputDirectory
	}
	if len(override.Exclude) > 0 {
		result.Exclude = append([]string{}, override.Exclude...)
	}
	if len(override.Only) > 0 {
		result.Only = append([]string{}, override.Only...)
	}
	if len(override.Types) > 0 {
		result.Types = append([]string{}, override.Types...)
	}
	if override.Workers != nil {
		workerCount := *override.Workers
		result.Workers = &workerCount
	}
	if override.Copy != nil {
		copyEnabled := *override.Copy
		result.Copy = &copyEnabled
	}
	if override.Tokenizer.Backend != "" {
		result.Tokenizer.Backend = override.Tokenizer.Backend
	}
	if override.Tokenizer.Model != "" {
		result.Tokenizer.Model = override.Tokenizer.Model
	}
	return result
}

// ResolveGitHubToken returns the explicit token when set, otherwise the value
// of the GITHUB_TOKEN environment variable.
func ResolveGitHubToken(explicitToken string) string {
	if explicitToken != "" {
		return explicitToken
	}
	environment := viper.New()
	_ = environment.BindEnv(gitHubTokenKey, gitHubTokenEnvironmentVariable)
	return environment.GetString(gitHubTokenKey)
}

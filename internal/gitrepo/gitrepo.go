// Package gitrepo resolves scan inputs: remote clone URLs, CSV lists of
// URLs, and the clone step itself.
package gitrepo

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

const (
	httpsPrefix               = "https://"
	sshPrefix                 = "git@"
	repositoryListSuffix      = ".csv"
	gitSuffix                 = ".git"
	tokenBasicAuthPassword    = "x-oauth-basic"
	sshAuthUserName           = "git"
	defaultSSHKeyRelativePath = ".ssh/id_rsa"
	fallbackRepositoryName    = "repo"

	errorListOpenFormat       = "open repository list %s: %w"
	errorListParseFormat      = "parse repository list %s: %w"
	errorCloneFormat          = "clone %s: %w"
	errorCloneAuthHTTPSFormat = "clone %s: %w; for private repositories pass --token or set GITHUB_TOKEN"
	errorSSHKeyMissingFormat  = "ssh key %s not found; pass --ssh-key to use a different key"
	errorSSHKeyLoadFormat     = "load ssh key %s: %w"
	errorHomeDirectoryFormat  = "resolve home directory for the default ssh key: %w"
)

// Credentials carries the optional authentication material for cloning.
type Credentials struct {
	GitHubToken   string
	SSHKeyPath    string
	SSHPassphrase string
}

// IsGitURL reports whether candidate is a clonable remote reference.
func IsGitURL(candidate string) bool {
	return strings.HasPrefix(candidate, httpsPrefix) || strings.HasPrefix(candidate, sshPrefix)
}

// IsRepositoryList reports whether candidate names a CSV list of URLs.
func IsRepositoryList(candidate string) bool {
	return strings.HasSuffix(candidate, repositoryListSuffix)
}

// ExtractRepositoryName derives a short repository name from a clone URL.
func ExtractRepositoryName(cloneURL string) string {
	segments := strings.Split(cloneURL, "/")
	lastSegment := segments[len(segments)-1]
	lastSegment = strings.TrimSuffix(lastSegment, gitSuffix)
	if lastSegment == "" {
		return fallbackRepositoryName
	}
	return lastSegment
}

// ReadRepositoryList parses a CSV file whose first column holds clone URLs.
// The first row is treated as a header and skipped.
func ReadRepositoryList(listPath string) ([]string, error) {
	listFile, openError := os.Open(listPath)
	if openError != nil {
		return nil, fmt.Errorf(errorListOpenFormat, listPath, openError)
	}
	defer listFile.Close()

	csvReader := csv.NewReader(listFile)
	csvReader.FieldsPerRecord = -1
	rows, parseError := csvReader.ReadAll()
	if parseError != nil {
		return nil, fmt.Errorf(errorListParseFormat, listPath, parseError)
	}

	var cloneURLs []string
	for rowIndex, row := range rows {
		if rowIndex == 0 || len(row) == 0 {
			continue
		}
		cloneURL := strings.TrimSpace(row[0])
		if cloneURL != "" {
			cloneURLs = append(cloneURLs, cloneURL)
		}
	}
	return cloneURLs, nil
}

// CloneDestination picks the directory a repository will be cloned into: the
// explicit path when given, otherwise a fresh temporary directory.
func CloneDestination(explicitPath string) (string, error) {
	if explicitPath != "" {
		return explicitPath, nil
	}
	return os.MkdirTemp("", "repopack-*")
}

// Clone checks the repository at cloneURL out into destination. A non-empty
// pre-existing destination is removed first. HTTPS clones retry with token
// authentication after an anonymous failure; SSH clones authenticate with the
// configured key up front.
func Clone(cloneURL string, destination string, credentials Credentials) error {
	if removeError := removeNonEmptyDestination(destination); removeError != nil {
		return removeError
	}

	if strings.HasPrefix(cloneURL, sshPrefix) {
		return cloneOverSSH(cloneURL, destination, credentials)
	}
	return cloneOverHTTPS(cloneURL, destination, credentials)
}

// cloneOptions builds the options shared by every clone: a single-branch
// checkout of the remote HEAD.
func cloneOptions(cloneURL string, authMethod transport.AuthMethod) *git.CloneOptions {
	return &git.CloneOptions{URL: cloneURL, SingleBranch: true, Auth: authMethod}
}

func cloneOverHTTPS(cloneURL string, destination string, credentials Credentials) error {
	_, anonymousError := git.PlainClone(destination, false, cloneOptions(cloneURL, nil))
	if anonymousError == nil {
		return nil
	}
	_ = os.RemoveAll(destination)

	if credentials.GitHubToken == "" {
		return fmt.Errorf(errorCloneAuthHTTPSFormat, cloneURL, anonymousError)
	}
	_, authenticatedError := git.PlainClone(destination, false, cloneOptions(cloneURL, &githttp.BasicAuth{
		Username: credentials.GitHubToken,
		Password: tokenBasicAuthPassword,
	}))
	if authenticatedError != nil {
		_ = os.RemoveAll(destination)
		return fmt.Errorf(errorCloneFormat, cloneURL, authenticatedError)
	}
	return nil
}

func cloneOverSSH(cloneURL string, destination string, credentials Credentials) error {
	sshKeyPath := credentials.SSHKeyPath
	if sshKeyPath == "" {
		homeDirectory, homeError := os.UserHomeDir()
		if homeError != nil {
			return fmt.Errorf(errorHomeDirectoryFormat, homeError)
		}
		sshKeyPath = filepath.Join(homeDirectory, filepath.FromSlash(defaultSSHKeyRelativePath))
	}
	if _, statError := os.Stat(sshKeyPath); statError != nil {
		return fmt.Errorf(errorSSHKeyMissingFormat, sshKeyPath)
	}

	publicKeys, keyError := gitssh.NewPublicKeysFromFile(sshAuthUserName, sshKeyPath, credentials.SSHPassphrase)
	if keyError != nil {
		return fmt.Errorf(errorSSHKeyLoadFormat, sshKeyPath, keyError)
	}

	_, cloneError := git.PlainClone(destination, false, cloneOptions(cloneURL, publicKeys))
	if cloneError != nil {
		_ = os.RemoveAll(destination)
		return fmt.Errorf(errorCloneFormat, cloneURL, cloneError)
	}
	return nil
}

func removeNonEmptyDestination(destination string) error {
	destinationEntries, readError := os.ReadDir(destination)
	if readError != nil || len(destinationEntries) == 0 {
		return nil
	}
	return os.RemoveAll(destination)
}

package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/monochromegane/go-gitignore"

	"github.com/temirov/repopack/internal/config"
	"github.com/temirov/repopack/internal/utils"
)

const (
	gitIgnoreFileName = ".gitignore"

	// errorRootMissingFormat reports a scan root that does not exist.
	errorRootMissingFormat = "scan root %s does not exist: %w"
	// errorRootNotDirectoryFormat reports a scan root that is not a directory.
	errorRootNotDirectoryFormat = "scan root %s is not a directory"
	// errorRootUnreadableFormat reports a scan root whose entries cannot be listed.
	errorRootUnreadableFormat = "reading scan root %s: %w"
)

// ScanEntry is one filesystem object discovered by the walker. Entries are
// immutable once discovered; a fresh walk must be issued per scan.
type ScanEntry struct {
	AbsolutePath string
	RelativePath string
	IsDir        bool
}

// Walker enumerates filesystem entries under a root while honoring built-in
// exclusions, the hidden-entry policy, user exclude patterns, and nested
// ignore-file hierarchies.
type Walker struct {
	settings   config.Settings
	patternSet *PatternSet
	clonedRoot bool
}

// NewWalker constructs a Walker. When clonedRoot is true only ignore files
// inside the tree are honored; ancestor ignore configuration is skipped so a
// cloned copy scans identically regardless of the host machine.
func NewWalker(settings config.Settings, patternSet *PatternSet, clonedRoot bool) *Walker {
	return &Walker{settings: settings, patternSet: patternSet, clonedRoot: clonedRoot}
}

// Walk enumerates every surviving entry under root. Entries that fail any
// exclusion rule are omitted together with their subtrees; entries that error
// during I/O are dropped without failing the walk. Order is not significant
// at this layer.
func (walker *Walker) Walk(root string) ([]ScanEntry, error) {
	absoluteRoot, absoluteError := filepath.Abs(root)
	if absoluteError != nil {
		return nil, absoluteError
	}
	rootInformation, rootStatError := os.Stat(absoluteRoot)
	if rootStatError != nil {
		return nil, fmt.Errorf(errorRootMissingFormat, root, rootStatError)
	}
	if !rootInformation.IsDir() {
		return nil, fmt.Errorf(errorRootNotDirectoryFormat, root)
	}

	var matchers []gitignore.IgnoreMatcher
	if !walker.clonedRoot {
		matchers = loadAncestorIgnoreMatchers(absoluteRoot)
	}

	var entries []ScanEntry
	if walkError := walker.walkDirectory(absoluteRoot, absoluteRoot, matchers, &entries, true); walkError != nil {
		return nil, walkError
	}
	return entries, nil
}

// walkDirectory descends into currentDirectory, stacking any ignore file it
// defines on top of the matchers inherited from enclosing directories.
func (walker *Walker) walkDirectory(
	absoluteRoot string,
	currentDirectory string,
	inheritedMatchers []gitignore.IgnoreMatcher,
	entries *[]ScanEntry,
	isRoot bool,
) error {
	matchers := inheritedMatchers
	if directoryMatcher, matcherError := gitignore.NewGitIgnore(filepath.Join(currentDirectory, gitIgnoreFileName)); matcherError == nil {
		matchers = append(append([]gitignore.IgnoreMatcher{}, inheritedMatchers...), directoryMatcher)
	}

	directoryEntries, readDirectoryError := os.ReadDir(currentDirectory)
	if readDirectoryError != nil {
		if isRoot {
			return fmt.Errorf(errorRootUnreadableFormat, currentDirectory, readDirectoryError)
		}
		// Unreadable subdirectory: drop it, the walk continues.
		return nil
	}

	for _, directoryEntry := range directoryEntries {
		entryName := directoryEntry.Name()
		absolutePath := filepath.Join(currentDirectory, entryName)
		relativePath := utils.RelativePathOrSelf(absolutePath, absoluteRoot)
		isDirectory := directoryEntry.IsDir()

		if walker.isExcluded(absolutePath, relativePath, entryName, isDirectory, matchers) {
			continue
		}

		*entries = append(*entries, ScanEntry{
			AbsolutePath: absolutePath,
			RelativePath: relativePath,
			IsDir:        isDirectory,
		})

		if isDirectory {
			if descendError := walker.walkDirectory(absoluteRoot, absolutePath, matchers, entries, false); descendError != nil {
				return descendError
			}
		}
	}
	return nil
}

// isExcluded applies the walker rules in order, short-circuiting on the first
// failure: built-in excluded substrings, hidden names, the exclude pattern
// set, and finally the stacked ignore matchers.
func (walker *Walker) isExcluded(
	absolutePath string,
	relativePath string,
	entryName string,
	isDirectory bool,
	matchers []gitignore.IgnoreMatcher,
) bool {
	if ContainsBuiltinExclusion(relativePath, isDirectory, walker.settings.BuiltinExclusions) {
		return true
	}
	if strings.HasPrefix(entryName, ".") {
		return true
	}
	if walker.patternSet != nil && walker.patternSet.ExcludeMatches(relativePath, entryName) {
		return true
	}
	for _, matcher := range matchers {
		if matcher.Match(absolutePath, isDirectory) {
			return true
		}
	}
	return false
}

// ContainsBuiltinExclusion reports whether the relative path contains any
// built-in excluded substring. Directories are also probed with a trailing
// separator so directory-marker exclusions such as "node_modules/" apply to
// the directory entry itself. Matching is substring containment, not glob.
func ContainsBuiltinExclusion(relativePath string, isDirectory bool, builtinExclusions []string) bool {
	normalizedPath := filepath.ToSlash(relativePath)
	probePath := normalizedPath
	if isDirectory {
		probePath = normalizedPath + "/"
	}
	for _, excludedSubstring := range builtinExclusions {
		if strings.Contains(probePath, excludedSubstring) {
			return true
		}
	}
	return false
}

// loadAncestorIgnoreMatchers collects ignore files defined in directories
// above the scan root, ordered from the outermost ancestor inward. Used only
// for pre-existing local roots.
func loadAncestorIgnoreMatchers(absoluteRoot string) []gitignore.IgnoreMatcher {
	var ancestorDirectories []string
	currentDirectory := filepath.Dir(absoluteRoot)
	for {
		ancestorDirectories = append([]string{currentDirectory}, ancestorDirectories...)
		parentDirectory := filepath.Dir(currentDirectory)
		if parentDirectory == currentDirectory {
			break
		}
		currentDirectory = parentDirectory
	}

	var matchers []gitignore.IgnoreMatcher
	for _, ancestorDirectory := range ancestorDirectories {
		ancestorMatcher, matcherError := gitignore.NewGitIgnore(filepath.Join(ancestorDirectory, gitIgnoreFileName))
		if matcherError != nil {
			continue
		}
		matchers = append(matchers, ancestorMatcher)
	}
	return matchers
}

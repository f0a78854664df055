// Package scan implements the repository scanning engine: pattern matching,
// the ignore-aware walker, and text/binary classification.
package scan

import (
	"path/filepath"
	"strings"
)

const patternSeparator = "/"

// PatternSet holds two independently evaluated glob collections: exclude
// patterns remove a path from consideration anywhere in the pipeline, include
// patterns (when any are present) restrict output to matching files.
// Malformed patterns contribute no rule; they are dropped and counted.
type PatternSet struct {
	excludePatterns []string
	includePatterns []string
	droppedPatterns int
}

// NewPatternSet compiles raw exclude and include pattern strings, silently
// dropping any pattern with invalid glob syntax.
func NewPatternSet(rawExcludePatterns []string, rawIncludePatterns []string) *PatternSet {
	patternSet := &PatternSet{}
	patternSet.excludePatterns = patternSet.compile(rawExcludePatterns)
	patternSet.includePatterns = patternSet.compile(rawIncludePatterns)
	return patternSet
}

func (patternSet *PatternSet) compile(rawPatterns []string) []string {
	var compiledPatterns []string
	for _, rawPattern := range rawPatterns {
		trimmedPattern := strings.TrimSpace(rawPattern)
		if trimmedPattern == "" {
			continue
		}
		if _, matchError := filepath.Match(strings.Trim(trimmedPattern, patternSeparator), "probe"); matchError != nil {
			patternSet.droppedPatterns++
			continue
		}
		compiledPatterns = append(compiledPatterns, trimmedPattern)
	}
	return compiledPatterns
}

// HasIncludes reports whether an include restriction is active.
func (patternSet *PatternSet) HasIncludes() bool {
	return len(patternSet.includePatterns) > 0
}

// DroppedPatternCount reports how many malformed patterns were ignored.
func (patternSet *PatternSet) DroppedPatternCount() int {
	return patternSet.droppedPatterns
}

// ExcludeMatches reports whether any exclude pattern matches the candidate.
func (patternSet *PatternSet) ExcludeMatches(relativePath string, fileName string) bool {
	for _, pattern := range patternSet.excludePatterns {
		if matchesPattern(pattern, relativePath, fileName) {
			return true
		}
	}
	return false
}

// IncludeAllows reports whether the candidate survives the include stage.
// An empty include set imposes no restriction.
func (patternSet *PatternSet) IncludeAllows(relativePath string, fileName string) bool {
	if len(patternSet.includePatterns) == 0 {
		return true
	}
	for _, pattern := range patternSet.includePatterns {
		if matchesPattern(pattern, relativePath, fileName) {
			return true
		}
	}
	return false
}

// matchesPattern evaluates one pattern against both the relative path and the
// bare file name. A pattern containing a separator is matched against the
// relative path directly; a separator-less pattern matches anywhere in the
// tree. A bare directory name matches everything under that directory.
func matchesPattern(pattern string, relativePath string, fileName string) bool {
	normalizedPath := filepath.ToSlash(relativePath)

	if strings.Contains(pattern, patternSeparator) {
		trimmedPattern := strings.Trim(pattern, patternSeparator)
		if isMatched, _ := filepath.Match(trimmedPattern, normalizedPath); isMatched {
			return true
		}
		return strings.HasPrefix(normalizedPath, trimmedPattern+patternSeparator)
	}

	if isMatched, _ := filepath.Match(pattern, fileName); isMatched {
		return true
	}
	if normalizedPath == pattern {
		return true
	}
	return strings.HasPrefix(normalizedPath, pattern+patternSeparator)
}

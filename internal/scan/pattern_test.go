package scan

import "testing"

// TestIncludeAllowsWithoutPatterns verifies that an empty include set imposes no restriction.
func TestIncludeAllowsWithoutPatterns(testingHandle *testing.T) {
	patternSet := NewPatternSet(nil, nil)
	if patternSet.HasIncludes() {
		testingHandle.Fatal("expected no active include restriction")
	}
	if !patternSet.IncludeAllows("src/main.go", "main.go") {
		testingHandle.Fatal("empty include set must allow every path")
	}
}

// TestIncludeAllowsMatchesNameOrPath verifies matching against both the relative path and the bare name.
func TestIncludeAllowsMatchesNameOrPath(testingHandle *testing.T) {
	testCases := []struct {
		name         string
		patterns     []string
		relativePath string
		fileName     string
		allowed      bool
	}{
		{name: "name glob anywhere", patterns: []string{"*.md"}, relativePath: "docs/guide.md", fileName: "guide.md", allowed: true},
		{name: "name glob rejects other extension", patterns: []string{"*.md"}, relativePath: "docs/notes.txt", fileName: "notes.txt", allowed: false},
		{name: "path glob", patterns: []string{"docs/*.md"}, relativePath: "docs/guide.md", fileName: "guide.md", allowed: true},
		{name: "path glob wrong directory", patterns: []string{"docs/*.md"}, relativePath: "src/guide.md", fileName: "guide.md", allowed: false},
		{name: "bare directory shortcut", patterns: []string{"docs"}, relativePath: "docs/deep/guide.md", fileName: "guide.md", allowed: true},
		{name: "trailing slash directory", patterns: []string{"docs/"}, relativePath: "docs/guide.md", fileName: "guide.md", allowed: true},
	}

	for _, testCase := range testCases {
		testingHandle.Run(testCase.name, func(subtestHandle *testing.T) {
			patternSet := NewPatternSet(nil, testCase.patterns)
			allowed := patternSet.IncludeAllows(testCase.relativePath, testCase.fileName)
			if allowed != testCase.allowed {
				subtestHandle.Fatalf("IncludeAllows(%q, %q) = %v, want %v",
					testCase.relativePath, testCase.fileName, allowed, testCase.allowed)
			}
		})
	}
}

// TestExcludeMatches verifies exclusion patterns remove matching candidates.
func TestExcludeMatches(testingHandle *testing.T) {
	patternSet := NewPatternSet([]string{"*.log", "vendor"}, nil)

	if !patternSet.ExcludeMatches("server/debug.log", "debug.log") {
		testingHandle.Fatal("expected *.log to exclude debug.log")
	}
	if !patternSet.ExcludeMatches("vendor/module/file.go", "file.go") {
		testingHandle.Fatal("expected bare directory pattern to exclude nested file")
	}
	if patternSet.ExcludeMatches("server/main.go", "main.go") {
		testingHandle.Fatal("did not expect main.go to be excluded")
	}
}

// TestMalformedPatternsAreDropped verifies invalid glob syntax contributes no rule.
func TestMalformedPatternsAreDropped(testingHandle *testing.T) {
	patternSet := NewPatternSet([]string{"[unclosed"}, []string{"[also-unclosed", "*.md"})

	if patternSet.DroppedPatternCount() != 2 {
		testingHandle.Fatalf("expected 2 dropped patterns, got %d", patternSet.DroppedPatternCount())
	}
	if patternSet.ExcludeMatches("[unclosed", "[unclosed") {
		testingHandle.Fatal("malformed exclude pattern must not match anything")
	}
	if !patternSet.IncludeAllows("docs/guide.md", "guide.md") {
		testingHandle.Fatal("surviving include pattern must keep matching")
	}
	if patternSet.IncludeAllows("docs/guide.txt", "guide.txt") {
		testingHandle.Fatal("non-matching path must not pass an active include set")
	}
}

package scan

import (
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"github.com/temirov/repopack/internal/config"
)

// buildWalkerFixture creates a directory tree and returns its root.
func buildWalkerFixture(testingHandle *testing.T, files map[string]string) string {
	testingHandle.Helper()
	rootDirectory := testingHandle.TempDir()
	for relativePath, content := range files {
		absolutePath := filepath.Join(rootDirectory, filepath.FromSlash(relativePath))
		if makeDirError := os.MkdirAll(filepath.Dir(absolutePath), 0o755); makeDirError != nil {
			testingHandle.Fatalf("failed to create directory for %s: %v", relativePath, makeDirError)
		}
		if writeError := os.WriteFile(absolutePath, []byte(content), 0o644); writeError != nil {
			testingHandle.Fatalf("failed to write %s: %v", relativePath, writeError)
		}
	}
	return rootDirectory
}

// collectRelativePaths extracts sorted relative paths from scan entries.
func collectRelativePaths(entries []ScanEntry) []string {
	var relativePaths []string
	for _, entry := range entries {
		relativePaths = append(relativePaths, entry.RelativePath)
	}
	sort.Strings(relativePaths)
	return relativePaths
}

// TestWalkExcludesHiddenEntries verifies every path under a dot-component is omitted.
func TestWalkExcludesHiddenEntries(testingHandle *testing.T) {
	rootDirectory := buildWalkerFixture(testingHandle, map[string]string{
		"visible.txt":          "a",
		".hidden.txt":          "b",
		".hiddendir/inner.txt": "c",
		"src/app.go":           "d",
	})

	walker := NewWalker(config.DefaultSettings(), NewPatternSet(nil, nil), true)
	entries, walkError := walker.Walk(rootDirectory)
	if walkError != nil {
		testingHandle.Fatalf("walk failed: %v", walkError)
	}

	expectedPaths := []string{"src", "src/app.go", "visible.txt"}
	if relativePaths := collectRelativePaths(entries); !reflect.DeepEqual(relativePaths, expectedPaths) {
		testingHandle.Fatalf("unexpected entries: got %v want %v", relativePaths, expectedPaths)
	}
}

// TestWalkExcludesBuiltinSubstrings verifies built-in exclusions apply regardless of extension.
func TestWalkExcludesBuiltinSubstrings(testingHandle *testing.T) {
	rootDirectory := buildWalkerFixture(testingHandle, map[string]string{
		"node_modules/lib/index.js": "x",
		"package-lock.json":         "{}",
		"src/index.js":              "y",
	})

	walker := NewWalker(config.DefaultSettings(), NewPatternSet(nil, nil), true)
	entries, walkError := walker.Walk(rootDirectory)
	if walkError != nil {
		testingHandle.Fatalf("walk failed: %v", walkError)
	}

	expectedPaths := []string{"src", "src/index.js"}
	if relativePaths := collectRelativePaths(entries); !reflect.DeepEqual(relativePaths, expectedPaths) {
		testingHandle.Fatalf("unexpected entries: got %v want %v", relativePaths, expectedPaths)
	}
}

// TestWalkAppliesExcludePatternSet verifies user exclude patterns remove matching paths.
func TestWalkAppliesExcludePatternSet(testingHandle *testing.T) {
	rootDirectory := buildWalkerFixture(testingHandle, map[string]string{
		"notes.log":    "x",
		"src/app.go":   "y",
		"src/app.log":  "z",
		"docs/help.md": "w",
	})

	walker := NewWalker(config.DefaultSettings(), NewPatternSet([]string{"*.log", "docs"}, nil), true)
	entries, walkError := walker.Walk(rootDirectory)
	if walkError != nil {
		testingHandle.Fatalf("walk failed: %v", walkError)
	}

	expectedPaths := []string{"src", "src/app.go"}
	if relativePaths := collectRelativePaths(entries); !reflect.DeepEqual(relativePaths, expectedPaths) {
		testingHandle.Fatalf("unexpected entries: got %v want %v", relativePaths, expectedPaths)
	}
}

// TestWalkHonorsNestedIgnoreFiles verifies per-directory ignore rules stack as the walk descends.
func TestWalkHonorsNestedIgnoreFiles(testingHandle *testing.T) {
	rootDirectory := buildWalkerFixture(testingHandle, map[string]string{
		"keep.txt":              "a",
		"generated.out":         "b",
		"sub/keep.txt":          "c",
		"sub/local.tmp":         "d",
		"sub/deeper/local.tmp":  "e",
		"other/local.tmp":       "f",
		filepath.Join(".x"):     "",
		"sub/deeper/notes.text": "g",
	})
	if writeError := os.WriteFile(filepath.Join(rootDirectory, ".gitignore"), []byte("*.out\n"), 0o644); writeError != nil {
		testingHandle.Fatalf("failed to write root ignore file: %v", writeError)
	}
	if writeError := os.WriteFile(filepath.Join(rootDirectory, "sub", ".gitignore"), []byte("*.tmp\n"), 0o644); writeError != nil {
		testingHandle.Fatalf("failed to write nested ignore file: %v", writeError)
	}

	walker := NewWalker(config.DefaultSettings(), NewPatternSet(nil, nil), true)
	entries, walkError := walker.Walk(rootDirectory)
	if walkError != nil {
		testingHandle.Fatalf("walk failed: %v", walkError)
	}

	relativePaths := collectRelativePaths(entries)
	expectedPaths := []string{
		"keep.txt",
		"other",
		"other/local.tmp",
		"sub",
		"sub/deeper",
		"sub/deeper/notes.text",
		"sub/keep.txt",
	}
	if !reflect.DeepEqual(relativePaths, expectedPaths) {
		testingHandle.Fatalf("unexpected entries: got %v want %v", relativePaths, expectedPaths)
	}
}

// TestWalkAncestorIgnoreScope verifies ancestor ignore files apply to local roots but never to cloned roots.
func TestWalkAncestorIgnoreScope(testingHandle *testing.T) {
	parentDirectory := testingHandle.TempDir()
	if writeError := os.WriteFile(filepath.Join(parentDirectory, ".gitignore"), []byte("*.secret\n"), 0o644); writeError != nil {
		testingHandle.Fatalf("failed to write ancestor ignore file: %v", writeError)
	}
	rootDirectory := filepath.Join(parentDirectory, "checkout")
	if makeDirError := os.MkdirAll(rootDirectory, 0o755); makeDirError != nil {
		testingHandle.Fatalf("failed to create scan root: %v", makeDirError)
	}
	if writeError := os.WriteFile(filepath.Join(rootDirectory, "keys.secret"), []byte("k"), 0o644); writeError != nil {
		testingHandle.Fatalf("failed to write secret file: %v", writeError)
	}
	if writeError := os.WriteFile(filepath.Join(rootDirectory, "main.txt"), []byte("m"), 0o644); writeError != nil {
		testingHandle.Fatalf("failed to write text file: %v", writeError)
	}

	localWalker := NewWalker(config.DefaultSettings(), NewPatternSet(nil, nil), false)
	localEntries, localWalkError := localWalker.Walk(rootDirectory)
	if localWalkError != nil {
		testingHandle.Fatalf("local walk failed: %v", localWalkError)
	}
	if relativePaths := collectRelativePaths(localEntries); !reflect.DeepEqual(relativePaths, []string{"main.txt"}) {
		testingHandle.Fatalf("local root must honor ancestor ignore files, got %v", relativePaths)
	}

	clonedWalker := NewWalker(config.DefaultSettings(), NewPatternSet(nil, nil), true)
	clonedEntries, clonedWalkError := clonedWalker.Walk(rootDirectory)
	if clonedWalkError != nil {
		testingHandle.Fatalf("cloned walk failed: %v", clonedWalkError)
	}
	if relativePaths := collectRelativePaths(clonedEntries); !reflect.DeepEqual(relativePaths, []string{"keys.secret", "main.txt"}) {
		testingHandle.Fatalf("cloned root must ignore ancestor configuration, got %v", relativePaths)
	}
}

// TestWalkCountMatchesCollect verifies two invocations over an unchanged tree agree.
func TestWalkCountMatchesCollect(testingHandle *testing.T) {
	rootDirectory := buildWalkerFixture(testingHandle, map[string]string{
		"a.txt":       "1",
		"b/c.txt":     "2",
		"b/d/e.txt":   "3",
		".hidden/f":   "4",
		"tmp/scratch": "5",
	})

	walker := NewWalker(config.DefaultSettings(), NewPatternSet(nil, nil), true)
	firstEntries, firstError := walker.Walk(rootDirectory)
	if firstError != nil {
		testingHandle.Fatalf("first walk failed: %v", firstError)
	}
	secondEntries, secondError := walker.Walk(rootDirectory)
	if secondError != nil {
		testingHandle.Fatalf("second walk failed: %v", secondError)
	}

	if !reflect.DeepEqual(collectRelativePaths(firstEntries), collectRelativePaths(secondEntries)) {
		testingHandle.Fatal("count pass and collect pass must apply identical rules")
	}
}

// TestWalkMissingRootFails verifies a structural failure aborts the scan.
func TestWalkMissingRootFails(testingHandle *testing.T) {
	walker := NewWalker(config.DefaultSettings(), NewPatternSet(nil, nil), true)
	if _, walkError := walker.Walk(filepath.Join(testingHandle.TempDir(), "absent")); walkError == nil {
		testingHandle.Fatal("expected an error for a missing scan root")
	}
}

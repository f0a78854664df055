// Package tree assembles scan entries into a hierarchical directory tree and
// renders it with box-drawing connectors.
package tree

import (
	"path"
	"sort"
	"strings"

	"github.com/temirov/repopack/internal/scan"
)

const (
	middleConnector      = "├── "
	lastConnector        = "└── "
	verticalContinuation = "│   "
	lastSiblingSpace     = "    "
)

// Node is one rendered tree entry. Every node is owned by exactly one parent;
// the whole tree hangs off a single root.
type Node struct {
	Name     string
	IsFile   bool
	Children []*Node
}

// Builder turns the walker's flat entry list into a Node hierarchy, applying
// the include filter to files and pruning directories the filter left empty.
type Builder struct {
	patternSet *scan.PatternSet
}

// NewBuilder constructs a Builder around the active pattern set, which may be
// nil when no user patterns were supplied.
func NewBuilder(patternSet *scan.PatternSet) *Builder {
	return &Builder{patternSet: patternSet}
}

// Build assembles the surviving entries into a tree rooted at rootName.
// Directories are never filtered by include rules directly; they are removed
// transitively when pruning finds them empty.
func (builder *Builder) Build(rootName string, entries []scan.ScanEntry) *Node {
	rootNode := &Node{Name: rootName}

	childIndex := make(map[string][]*Node)
	for _, entry := range entries {
		entryName := path.Base(entry.RelativePath)
		if !entry.IsDir && !builder.includeAllows(entry.RelativePath, entryName) {
			continue
		}
		parentPath := path.Dir(entry.RelativePath)
		childIndex[parentPath] = append(childIndex[parentPath], &Node{
			Name:   entryName,
			IsFile: !entry.IsDir,
		})
	}

	attachChildren(rootNode, ".", childIndex)

	if builder.patternSet != nil && builder.patternSet.HasIncludes() {
		pruneEmptyDirectories(rootNode)
	}
	sortChildren(rootNode)
	return rootNode
}

func (builder *Builder) includeAllows(relativePath string, entryName string) bool {
	if builder.patternSet == nil {
		return true
	}
	return builder.patternSet.IncludeAllows(relativePath, entryName)
}

// attachChildren moves the children recorded for relativePath out of the
// index and onto node, recursing into directories depth-first. Every indexed
// entry is attached exactly once; when the recursion finishes the index holds
// nothing reachable from the root.
func attachChildren(node *Node, relativePath string, childIndex map[string][]*Node) {
	children, present := childIndex[relativePath]
	if !present {
		return
	}
	delete(childIndex, relativePath)

	for _, child := range children {
		if !child.IsFile {
			childPath := child.Name
			if relativePath != "." {
				childPath = relativePath + "/" + child.Name
			}
			attachChildren(child, childPath, childIndex)
		}
		node.Children = append(node.Children, child)
	}
}

// pruneEmptyDirectories removes, post-order, every directory left without a
// surviving child. Files always survive pruning. The return value reports
// whether node itself should be kept.
func pruneEmptyDirectories(node *Node) bool {
	if node.IsFile {
		return true
	}
	survivingChildren := node.Children[:0]
	for _, child := range node.Children {
		if pruneEmptyDirectories(child) {
			survivingChildren = append(survivingChildren, child)
		}
	}
	node.Children = survivingChildren
	return len(node.Children) > 0
}

// sortChildren orders every node's children with directories before files and
// lexicographic names within each kind, recursively.
func sortChildren(node *Node) {
	sort.SliceStable(node.Children, func(firstIndex, secondIndex int) bool {
		firstChild := node.Children[firstIndex]
		secondChild := node.Children[secondIndex]
		if firstChild.IsFile != secondChild.IsFile {
			return !firstChild.IsFile
		}
		return firstChild.Name < secondChild.Name
	})
	for _, child := range node.Children {
		sortChildren(child)
	}
}

// Render produces the tree as text, one line per node. The root line carries
// no connector.
func Render(rootNode *Node) string {
	var output strings.Builder
	renderWithPrefix(rootNode, "", "", &output)
	return output.String()
}

func renderWithPrefix(node *Node, linePrefix string, childPrefix string, output *strings.Builder) {
	output.WriteString(linePrefix)
	output.WriteString(node.Name)
	output.WriteByte('\n')

	for childIndex, child := range node.Children {
		isLastSibling := childIndex == len(node.Children)-1
		if isLastSibling {
			renderWithPrefix(child, childPrefix+lastConnector, childPrefix+lastSiblingSpace, output)
		} else {
			renderWithPrefix(child, childPrefix+middleConnector, childPrefix+verticalContinuation, output)
		}
	}
}

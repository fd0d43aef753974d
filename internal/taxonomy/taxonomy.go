package taxonomy

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Node is one category in the classification tree. Terminal nodes carry
// variants; keyword matching uses the node name plus its variants.
type Node struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Children    []*Node  `json:"children,omitempty"`
	Variants    []string `json:"variants,omitempty"`
}

// Taxonomy is a rooted tree of pillars in declared order. Pillar order is
// the tie-break for matching: the first pillar whose subtree matches wins.
type Taxonomy struct {
	Pillars []*Node
}

// Match is the most specific node found for a text.
type Match struct {
	Node  *Node
	Path  []string // pillar → ... → node names
	Depth int
}

// Load reads a taxonomy JSON file. Both the normalized recursive shape
// ({name, children, variants}) and the legacy hierarchical export
// (pilier/branches/sous_branches/niveaux/variantes) are accepted.
func Load(path string) (*Taxonomy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}
	tax, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse taxonomy %s: %w", path, err)
	}
	return tax, nil
}

// Parse decodes taxonomy JSON, trying the normalized shape first and
// falling back to the legacy hierarchical one.
func Parse(raw []byte) (*Taxonomy, error) {
	var pillars []*Node
	if err := json.Unmarshal(raw, &pillars); err == nil && validPillars(pillars) {
		return &Taxonomy{Pillars: pillars}, nil
	}

	var legacy []legacyPillar
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, fmt.Errorf("unsupported taxonomy shape: %w", err)
	}
	if len(legacy) == 0 || legacy[0].Pilier == "" {
		return nil, fmt.Errorf("unsupported taxonomy shape: no pillars")
	}

	converted := make([]*Node, 0, len(legacy))
	for _, p := range legacy {
		converted = append(converted, p.toNode())
	}
	return &Taxonomy{Pillars: converted}, nil
}

// JSON renders the tree in the normalized shape, regardless of the shape
// it was loaded from.
func (t *Taxonomy) JSON() ([]byte, error) {
	raw, err := json.Marshal(t.Pillars)
	if err != nil {
		return nil, fmt.Errorf("encode taxonomy: %w", err)
	}
	return raw, nil
}

func validPillars(pillars []*Node) bool {
	if len(pillars) == 0 {
		return false
	}
	for _, p := range pillars {
		if p == nil || p.Name == "" {
			return false
		}
	}
	return true
}

// BestMatch walks the tree in pillar order and returns the deepest node
// whose name or variants occur in the text (case-insensitive substring).
// When several depths match, the most specific node wins, never a coarser
// ancestor. ok is false when nothing in the tree matches.
func (t *Taxonomy) BestMatch(text string) (Match, bool) {
	lower := strings.ToLower(text)

	var best Match
	found := false
	for _, pillar := range t.Pillars {
		m, ok := deepestMatch(pillar, lower, nil)
		if !ok {
			continue
		}
		// Strictly deeper beats the current best; pillar order breaks ties.
		if !found || m.Depth > best.Depth {
			best = m
			found = true
		}
	}
	return best, found
}

func deepestMatch(node *Node, lower string, prefix []string) (Match, bool) {
	path := append(append([]string{}, prefix...), node.Name)

	var best Match
	found := false
	if nodeMatches(node, lower) {
		best = Match{Node: node, Path: path, Depth: len(path)}
		found = true
	}

	for _, child := range node.Children {
		m, ok := deepestMatch(child, lower, path)
		if ok && (!found || m.Depth > best.Depth) {
			best = m
			found = true
		}
	}
	return best, found
}

func nodeMatches(node *Node, lower string) bool {
	if keywordIn(lower, node.Name) {
		return true
	}
	for _, v := range node.Variants {
		if keywordIn(lower, v) {
			return true
		}
	}
	return false
}

func keywordIn(lower, keyword string) bool {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	return keyword != "" && strings.Contains(lower, keyword)
}

// legacy hierarchical export, as produced by the upstream CRM tooling.

type legacyPillar struct {
	Pilier      string                  `json:"pilier"`
	Description string                  `json:"description"`
	Branches    map[string]legacyBranch `json:"branches"`
}

type legacyBranch struct {
	Description  string                  `json:"description"`
	SousBranches map[string]legacyBranch `json:"sous_branches"`
	Niveaux      map[string]legacyLevel  `json:"niveaux"`
}

type legacyLevel struct {
	Description string   `json:"description"`
	Variantes   []string `json:"variantes"`
}

func (p legacyPillar) toNode() *Node {
	root := &Node{Name: p.Pilier, Description: p.Description}
	for name, branch := range p.Branches {
		root.Children = append(root.Children, branch.toNode(name))
	}
	sortChildren(root)
	return root
}

func (b legacyBranch) toNode(name string) *Node {
	node := &Node{Name: name, Description: b.Description}
	for childName, child := range b.SousBranches {
		node.Children = append(node.Children, child.toNode(childName))
	}
	for levelName, level := range b.Niveaux {
		node.Children = append(node.Children, &Node{
			Name:        levelName,
			Description: level.Description,
			Variants:    level.Variantes,
		})
	}
	sortChildren(node)
	return node
}

// Map iteration order is random; sort converted children so repeated loads
// of the same legacy file classify identically.
func sortChildren(node *Node) {
	sort.Slice(node.Children, func(i, j int) bool {
		return node.Children[i].Name < node.Children[j].Name
	})
}

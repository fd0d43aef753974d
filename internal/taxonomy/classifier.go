package taxonomy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CategoryRule maps one category to its trigger keywords. Rules are
// evaluated in declared order; the first match wins.
type CategoryRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// TagRule maps one tag to its trigger keywords. Tags are independent of
// the category and of each other: every matching tag is attributed.
type TagRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Rules is the flat keyword ruleset driving rule-based classification.
type Rules struct {
	Categories []CategoryRule `yaml:"categories"`
	Tags       []TagRule      `yaml:"tags"`
}

// Sentinel categories. Both are first-class outcomes, not errors.
const (
	// CategoryGeneral marks text with some taxonomy-adjacent signal that
	// matched no category keyword.
	CategoryGeneral = "General"
	// CategoryUncategorized marks text with no signal at all.
	CategoryUncategorized = "Uncategorized"
)

// LoadRules reads a YAML keyword ruleset.
func LoadRules(path string) (Rules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read classification rules: %w", err)
	}
	var rules Rules
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return Rules{}, fmt.Errorf("parse classification rules %s: %w", path, err)
	}
	return rules, nil
}

// DefaultRules carries the retail ruleset of the original system.
func DefaultRules() Rules {
	return Rules{
		Categories: []CategoryRule{
			{Name: "Leather Goods", Keywords: []string{"bag", "wallet", "leather", "purse", "canvas", "sac", "cuir", "portefeuille"}},
			{Name: "Jewelry", Keywords: []string{"ring", "necklace", "gold", "silver", "diamond", "bague", "collier"}},
			{Name: "Perfume", Keywords: []string{"scent", "fragrance", "cologne", "edp", "edt", "parfum"}},
			{Name: "Ready-to-Wear", Keywords: []string{"dress", "shirt", "coat", "jacket", "size", "robe", "veste"}},
		},
		Tags: []TagRule{
			{Name: "VIP", Keywords: []string{"high spender", "frequent", "loyal", "vip"}},
			{Name: "Complaint", Keywords: []string{"issue", "problem", "broken", "return", "refund", "problème", "cassé", "remboursement"}},
			{Name: "Gift", Keywords: []string{"birthday", "anniversary", "spouse", "present", "anniversaire", "cadeau"}},
		},
	}
}

// Classifier assigns a category and tags to cleaned text. Pure: same text
// and rules always yield the same result, no side effects.
type Classifier struct {
	rules Rules
	tree  *Taxonomy
}

// NewClassifier builds a classifier from flat rules and an optional tree.
// The tree contributes deep-path resolution and the "General" signal.
func NewClassifier(rules Rules, tree *Taxonomy) *Classifier {
	return &Classifier{rules: rules, tree: tree}
}

// Classify resolves exactly one category and zero or more tags.
// Category resolution walks the rules in declared order, first match wins;
// no match degrades to General when the taxonomy tree still sees a signal,
// Uncategorized otherwise.
func (c *Classifier) Classify(text string) (string, []string) {
	lower := strings.ToLower(text)

	tags := []string{}
	if strings.TrimSpace(lower) == "" {
		return CategoryUncategorized, tags
	}

	for _, rule := range c.rules.Tags {
		if anyKeywordIn(lower, rule.Keywords) {
			tags = append(tags, rule.Name)
		}
	}

	for _, rule := range c.rules.Categories {
		if anyKeywordIn(lower, rule.Keywords) {
			return rule.Name, tags
		}
	}

	if len(tags) > 0 {
		return CategoryGeneral, tags
	}
	if c.tree != nil {
		if _, ok := c.tree.BestMatch(text); ok {
			return CategoryGeneral, tags
		}
	}
	return CategoryUncategorized, tags
}

// DeepCategory returns the slash-joined path of the most specific taxonomy
// node matching the text, for leaf-level classification tasks. Falls back
// to Classify's category when no tree is configured or nothing matches.
func (c *Classifier) DeepCategory(text string) string {
	if c.tree != nil {
		if m, ok := c.tree.BestMatch(text); ok {
			return strings.Join(m.Path, " / ")
		}
	}
	category, _ := c.Classify(text)
	return category
}

func anyKeywordIn(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if keywordIn(lower, kw) {
			return true
		}
	}
	return false
}

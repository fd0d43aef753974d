package cleaning

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Substitution is a fixed pattern replacement (grammar corrections such as
// contracted negations).
type Substitution struct {
	Pattern string `yaml:"pattern"`
	Replace string `yaml:"replace"`
}

// Ruleset is the versioned, ordered list of removal and substitution rules
// applied by the cleaner. It is externally supplied and swappable without
// code change; order matters and is preserved from the file.
type Ruleset struct {
	Version       string         `yaml:"version"`
	Expressions   []string       `yaml:"expressions"`
	Fillers       []string       `yaml:"fillers"`
	Substitutions []Substitution `yaml:"substitutions"`

	removals []*regexp.Regexp
	subs     []compiledSub
}

type compiledSub struct {
	re      *regexp.Regexp
	replace string
}

// LoadRuleset reads a YAML ruleset file and compiles its patterns.
// Any failure here is fatal for the run: a broken ruleset must abort
// before any record is processed.
func LoadRuleset(path string) (*Ruleset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ruleset: %w", err)
	}

	var rs Ruleset
	if err := yaml.Unmarshal(raw, &rs); err != nil {
		return nil, fmt.Errorf("parse ruleset %s: %w", path, err)
	}

	if err := rs.compile(); err != nil {
		return nil, fmt.Errorf("compile ruleset %s: %w", path, err)
	}

	return &rs, nil
}

func (r *Ruleset) compile() error {
	r.removals = r.removals[:0]
	for _, pat := range append(append([]string{}, r.Expressions...), r.Fillers...) {
		re, err := regexp.Compile("(?i)" + pat)
		if err != nil {
			return fmt.Errorf("pattern %q: %w", pat, err)
		}
		r.removals = append(r.removals, re)
	}

	r.subs = r.subs[:0]
	for _, sub := range r.Substitutions {
		re, err := regexp.Compile("(?i)" + sub.Pattern)
		if err != nil {
			return fmt.Errorf("substitution %q: %w", sub.Pattern, err)
		}
		r.subs = append(r.subs, compiledSub{re: re, replace: sub.Replace})
	}

	return nil
}

// DefaultRuleset carries the built-in French filler vocabulary used for
// retail transcripts. Multi-word expressions run before single fillers so
// that "et euh" is removed as a unit before "euh" alone.
func DefaultRuleset() *Ruleset {
	rs := &Ruleset{
		Version: "fr-v2",
		Expressions: []string{
			`en quelque (sorte|manière)`,
			`pour ainsi dire`,
			`plus ou moins`,
			`si je puis dire`,
			`comme qui dirait`,
			`je veux dire`,
			`je dirais?`,
			`comment dire`,
			`c['’]?est[- ]à[- ]dire`,
			`de toute (façon|manière)`,
			`pour le coup`,
			`du coup`,
			`au coup`,
			`on va dire`,
			`si vous voulez`,
			`si tu veux`,
			`tu (sais|vois)`,
			`vous (savez|voyez)`,
			`en (gros|fait|effet|réalité|tout cas|fin de compte)`,
			`par (exemple|contre|hasard|ailleurs|conséquent)`,
			`disons que`,
			`je pense que`,
			`je crois que`,
			`eh bien`,
			`et ben`,
			`et euh`,
			`et donc`,
			`et alors`,
			`et puis`,
		},
		Fillers: []string{
			`e+u+h+`,
			`h+u+m+`,
			`h+m+`,
			`a+h+`,
			`o+h+`,
			`b+a+h+`,
			`b+e+n+`,
			`h+e+i+n+`,
			`voilà+`,
			`quoi+`,
			`alors+`,
			`donc+`,
			`enfin+`,
			`bref+`,
			`puis+`,
			`pis+`,
		},
		Substitutions: []Substitution{
			{Pattern: `y['’]a`, Replace: `il y a`},
			{Pattern: `t['’]as`, Replace: `tu as`},
			{Pattern: `chuis`, Replace: `je suis`},
			{Pattern: `chais pas`, Replace: `je ne sais pas`},
		},
	}

	if err := rs.compile(); err != nil {
		// The built-in patterns are covered by tests; a compile failure
		// here is a programming error.
		panic(err)
	}
	return rs
}

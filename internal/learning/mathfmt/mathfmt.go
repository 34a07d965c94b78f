// Package mathfmt rewrites the bracket-style LaTeX delimiters models tend to
// emit into the dollar-delimited form the frontend renderer understands.
//
// It is a best-effort heuristic over plain text, not a LaTeX parser. The
// single-bracket rule in particular can both miss real math and rewrite prose
// that merely looks like math.
package mathfmt

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules selects which rewrites run. BracketCommands are bare command names
// (without a backslash) that make a [ ... ] span count as math.
type Rules struct {
	Display         bool     `yaml:"display"`
	Inline          bool     `yaml:"inline"`
	Bracket         bool     `yaml:"bracket"`
	BracketCommands []string `yaml:"bracket_commands"`
}

func DefaultRules() Rules {
	return Rules{
		Display:         true,
		Inline:          true,
		Bracket:         true,
		BracketCommands: []string{"frac", "sqrt", "times", "div", "cdot"},
	}
}

// LoadRules reads rules from a YAML file. Keys missing from the file keep
// their default values.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	raw, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read math rules: %w", err)
	}
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return rules, fmt.Errorf("parse math rules %s: %w", path, err)
	}
	return rules, nil
}

var (
	displayRe = regexp.MustCompile(`(?s)\\\[\s*(.+?)\s*\\\]`)
	inlineRe  = regexp.MustCompile(`\\\(\s*(.+?)\s*\\\)`)
	bracketRe = regexp.MustCompile(`\[([^\[\]$]*)\]`)
	commandRe = regexp.MustCompile(`\\[a-zA-Z]+`)
)

type Normalizer struct {
	rules    Rules
	bareWord *regexp.Regexp
}

func New(rules Rules) *Normalizer {
	n := &Normalizer{rules: rules}
	var words []string
	for _, w := range rules.BracketCommands {
		if w = strings.TrimSpace(strings.TrimPrefix(w, `\`)); w != "" {
			words = append(words, regexp.QuoteMeta(w))
		}
	}
	if len(words) > 0 {
		n.bareWord = regexp.MustCompile(`\b(?:` + strings.Join(words, "|") + `)\b`)
	}
	return n
}

var defaultNormalizer = New(DefaultRules())

// Normalize applies the default rules.
func Normalize(text string) string {
	return defaultNormalizer.Normalize(text)
}

// Normalize applies every enabled rule until the text stops changing, so the
// result is always a fixed point: Normalize(Normalize(s)) == Normalize(s).
// Each rewrite consumes delimiter characters without producing new ones, which
// bounds the loop.
func (n *Normalizer) Normalize(text string) string {
	for {
		next := n.pass(text)
		if next == text {
			return text
		}
		text = next
	}
}

func (n *Normalizer) pass(text string) string {
	if n.rules.Display {
		text = wrapAll(displayRe, text, "$$", nil)
	}
	if n.rules.Inline {
		text = wrapAll(inlineRe, text, "$", nil)
	}
	if n.rules.Bracket {
		text = wrapAll(bracketRe, text, "$", n.acceptBracket)
	}
	return text
}

// wrapAll replaces each match with delim + trimmed group 1 + delim. accept,
// when set, can veto a match given the full text and the match indices.
func wrapAll(re *regexp.Regexp, text, delim string, accept func(text string, loc []int) bool) string {
	locs := re.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, loc := range locs {
		if accept != nil && !accept(text, loc) {
			continue
		}
		b.WriteString(text[last:loc[0]])
		b.WriteString(delim)
		b.WriteString(strings.TrimSpace(text[loc[2]:loc[3]]))
		b.WriteString(delim)
		last = loc[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

func (n *Normalizer) acceptBracket(text string, loc []int) bool {
	// \[ opens a display block, never a single bracket.
	if loc[0] > 0 && text[loc[0]-1] == '\\' {
		return false
	}
	inner := strings.TrimSpace(text[loc[2]:loc[3]])
	if inner == "" || strings.HasSuffix(inner, `\`) {
		return false
	}
	if commandRe.MatchString(inner) {
		return true
	}
	return n.bareWord != nil && n.bareWord.MatchString(inner)
}

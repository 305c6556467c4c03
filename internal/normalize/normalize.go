// Package normalize cleans free-text diary descriptions for display.
package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"mfpreport/internal/cache"
)

var whitespacePattern = regexp.MustCompile(`\s+`)

const memoSize = 4096

// Rewrite replaces every match of Pattern with Replacement. Replacement may
// use $1-style group references.
type Rewrite struct {
	Pattern     string
	Replacement string
}

// Override returns Replacement verbatim for any text containing Trigger.
type Override struct {
	Trigger     string
	Replacement string
}

// Rules is the configured rule set. Slices are applied in order.
type Rules struct {
	PreRewrite  []Rewrite
	Overrides   []Override
	Strip       []string
	StopWords   []string
	PostRewrite []Rewrite
}

// IsZero reports whether no rule is configured.
func (r Rules) IsZero() bool {
	return len(r.PreRewrite) == 0 && len(r.Overrides) == 0 && len(r.Strip) == 0 &&
		len(r.StopWords) == 0 && len(r.PostRewrite) == 0
}

type compiledRewrite struct {
	re   *regexp.Regexp
	repl string
}

// Normalizer applies a compiled rule set. It is safe for concurrent use;
// results are memoized since the same food names recur across a log.
type Normalizer struct {
	pre       []compiledRewrite
	overrides []Override
	strip     []*regexp.Regexp
	stop      map[string]struct{}
	post      []compiledRewrite
	memo      *cache.LRUCache[string]
}

// Compile validates every pattern once.
func Compile(rules Rules) (*Normalizer, error) {
	n := &Normalizer{
		stop: make(map[string]struct{}, len(rules.StopWords)),
		memo: cache.NewLRUCache[string](memoSize, 0),
	}

	var err error
	if n.pre, err = compileRewrites("pre_rewrite", rules.PreRewrite); err != nil {
		return nil, err
	}
	if n.post, err = compileRewrites("post_rewrite", rules.PostRewrite); err != nil {
		return nil, err
	}
	for _, p := range rules.Strip {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("strip pattern %q: %w", p, err)
		}
		n.strip = append(n.strip, re)
	}
	for _, o := range rules.Overrides {
		if o.Trigger == "" {
			continue
		}
		n.overrides = append(n.overrides, Override{Trigger: strings.ToLower(o.Trigger), Replacement: o.Replacement})
	}
	for _, w := range rules.StopWords {
		n.stop[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return n, nil
}

// MustCompile is Compile for rule sets known to be valid.
func MustCompile(rules Rules) *Normalizer {
	n, err := Compile(rules)
	if err != nil {
		panic(err)
	}
	return n
}

func compileRewrites(stage string, in []Rewrite) ([]compiledRewrite, error) {
	out := make([]compiledRewrite, 0, len(in))
	for _, rw := range in {
		re, err := regexp.Compile(rw.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%s pattern %q: %w", stage, rw.Pattern, err)
		}
		out = append(out, compiledRewrite{re: re, repl: rw.Replacement})
	}
	return out, nil
}

// Normalize runs the fixed stage sequence over text.
func (n *Normalizer) Normalize(text string) string {
	if v, ok := n.memo.Get(text); ok {
		return v
	}
	out := n.run(text)
	n.memo.Set(text, out)
	return out
}

func (n *Normalizer) run(text string) string {
	s := strings.ToLower(text)

	for _, rw := range n.pre {
		s = rw.re.ReplaceAllString(s, rw.repl)
	}

	s = collapse(s)

	for _, o := range n.overrides {
		if strings.Contains(s, o.Trigger) {
			return o.Replacement
		}
	}

	s = dedupWords(s)

	if len(n.strip) > 0 {
		for _, re := range n.strip {
			s = re.ReplaceAllString(s, " ")
		}
		s = collapse(s)
	}

	if len(n.stop) > 0 {
		words := strings.Fields(s)
		kept := words[:0]
		for _, w := range words {
			if _, drop := n.stop[strings.ToLower(w)]; !drop {
				kept = append(kept, w)
			}
		}
		s = strings.Join(kept, " ")
	}

	for _, rw := range n.post {
		s = rw.re.ReplaceAllString(s, rw.repl)
	}

	return dedupWords(s)
}

// Normalize compiles rules and applies them to text once.
func Normalize(text string, rules Rules) (string, error) {
	n, err := Compile(rules)
	if err != nil {
		return "", err
	}
	return n.run(text), nil
}

func collapse(s string) string {
	return whitespacePattern.ReplaceAllString(s, " ")
}

// dedupWords keeps the first occurrence of every word.
func dedupWords(s string) string {
	words := strings.Fields(s)
	seen := make(map[string]struct{}, len(words))
	out := words[:0]
	for _, w := range words {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

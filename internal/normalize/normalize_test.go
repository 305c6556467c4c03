package normalize

import (
	"testing"
)

var sampleRules = Rules{
	PreRewrite: []Rewrite{
		{Pattern: `\(.*?\)`, Replacement: " "},
		{Pattern: `,`, Replacement: " "},
	},
	Overrides: []Override{
		{Trigger: "Coffee", Replacement: "koffie"},
	},
	Strip:     []string{`\b\d+\s*(g|ml|gram)\b`, `-`},
	StopWords: []string{"AND", "with", "the"},
	PostRewrite: []Rewrite{
		{Pattern: `^ah `, Replacement: ""},
		{Pattern: `chicken breast`, Replacement: "chicken"},
	},
}

func TestNormalizeStages(t *testing.T) {
	n := MustCompile(sampleRules)
	cases := []struct {
		in, want string
	}{
		{"Apple", "apple"},
		{"  Apple   apple\tAPPLE ", "apple"},
		{"AH Chicken Breast (grilled), 150 g", "chicken"},
		{"Bread with the Butter and jam", "bread butter jam"},
		{"Black Coffee (large) with sugar", "koffie"},
		{"whole-grain rice", "whole grain rice"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := n.Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestOverrideShortCircuits(t *testing.T) {
	rules := Rules{
		Overrides:   []Override{{Trigger: "pizza", Replacement: "Pizza Night!!"}},
		PostRewrite: []Rewrite{{Pattern: `night`, Replacement: "day"}},
		StopWords:   []string{"night"},
	}
	got, err := Normalize("Frozen PIZZA margherita pizza", rules)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Pizza Night!!" {
		t.Fatalf("got %q, want the replacement untouched", got)
	}
}

func TestOverrideSeesPreRewrite(t *testing.T) {
	rules := Rules{
		PreRewrite: []Rewrite{{Pattern: `cappuccino`, Replacement: "coffee"}},
		Overrides:  []Override{{Trigger: "coffee", Replacement: "coffee"}},
	}
	got, _ := Normalize("Cappuccino large", rules)
	if got != "coffee" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	n := MustCompile(sampleRules)
	inputs := []string{
		"AH Chicken Breast (grilled), 150 g",
		"Bread with the Butter and jam jam",
		"apple apple  pie",
		"Rice - white, cooked 200 ml",
		"Coffee",
		"The the THE",
	}
	for _, in := range inputs {
		once := n.Normalize(in)
		twice := n.Normalize(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestPostRewriteDuplicatesAreRemoved(t *testing.T) {
	rules := Rules{PostRewrite: []Rewrite{{Pattern: `cola`, Replacement: "soda"}}}
	got, _ := Normalize("soda cola", rules)
	if got != "soda" {
		t.Fatalf("got %q", got)
	}
}

func TestCompileRejectsBadPattern(t *testing.T) {
	if _, err := Compile(Rules{Strip: []string{"("}}); err == nil {
		t.Fatal("expected error for invalid strip pattern")
	}
	if _, err := Compile(Rules{PreRewrite: []Rewrite{{Pattern: "[", Replacement: ""}}}); err == nil {
		t.Fatal("expected error for invalid pre_rewrite pattern")
	}
}

func TestMemoDoesNotChangeResults(t *testing.T) {
	n := MustCompile(sampleRules)
	a := n.Normalize("Bread and Butter")
	b := n.Normalize("Bread and Butter")
	if a != b || a != "bread butter" {
		t.Fatalf("got %q and %q", a, b)
	}
}

func TestZeroRules(t *testing.T) {
	if !(Rules{}).IsZero() {
		t.Fatal("empty rules should be zero")
	}
	got, _ := Normalize("Greek  Yoghurt yoghurt", Rules{})
	if got != "greek yoghurt" {
		t.Fatalf("got %q", got)
	}
}

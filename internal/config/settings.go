package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"mfpreport/internal/core"
	"mfpreport/internal/normalize"
)

const (
	DefaultAlcohol    = "party"
	DefaultStylesheet = "report.css"

	maxSaveAttempts = 100
)

var ErrNoFreeFilename = errors.New("no free settings filename")

// DisplayOverride controls how one meal or total is rendered. A nil Show
// means the category's default applies.
type DisplayOverride struct {
	Show  *bool  `yaml:"show,omitempty"`
	Name  string `yaml:"name,omitempty"`
	Class string `yaml:"class,omitempty"`
}

// Category pairs a category key with its override.
type Category struct {
	Key string
	DisplayOverride
}

// Categories is a YAML mapping that keeps document order.
type Categories []Category

// Get returns the override for key.
func (c Categories) Get(key string) (DisplayOverride, bool) {
	for _, cat := range c {
		if cat.Key == key {
			return cat.DisplayOverride, true
		}
	}
	return DisplayOverride{}, false
}

func (c *Categories) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of categories", node.Line)
	}
	out := make(Categories, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return err
		}
		var ov DisplayOverride
		if err := node.Content[i+1].Decode(&ov); err != nil {
			return fmt.Errorf("category %q: %w", key, err)
		}
		out = append(out, Category{Key: key, DisplayOverride: ov})
	}
	*c = out
	return nil
}

func (c Categories) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, cat := range c {
		var value yaml.Node
		if err := value.Encode(cat.DisplayOverride); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: cat.Key},
			&value,
		)
	}
	return node, nil
}

// Rewrites is an ordered pattern to replacement mapping.
type Rewrites []normalize.Rewrite

func (r *Rewrites) UnmarshalYAML(node *yaml.Node) error {
	pairs, err := decodePairs(node)
	if err != nil {
		return err
	}
	out := make(Rewrites, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, normalize.Rewrite{Pattern: p[0], Replacement: p[1]})
	}
	*r = out
	return nil
}

func (r Rewrites) MarshalYAML() (interface{}, error) {
	pairs := make([][2]string, 0, len(r))
	for _, rw := range r {
		pairs = append(pairs, [2]string{rw.Pattern, rw.Replacement})
	}
	return encodePairs(pairs), nil
}

// Overrides is an ordered trigger to replacement mapping.
type Overrides []normalize.Override

func (o *Overrides) UnmarshalYAML(node *yaml.Node) error {
	pairs, err := decodePairs(node)
	if err != nil {
		return err
	}
	out := make(Overrides, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, normalize.Override{Trigger: p[0], Replacement: p[1]})
	}
	*o = out
	return nil
}

func (o Overrides) MarshalYAML() (interface{}, error) {
	pairs := make([][2]string, 0, len(o))
	for _, ov := range o {
		pairs = append(pairs, [2]string{ov.Trigger, ov.Replacement})
	}
	return encodePairs(pairs), nil
}

func decodePairs(node *yaml.Node) ([][2]string, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	pairs := make([][2]string, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var k, v string
		if err := node.Content[i].Decode(&k); err != nil {
			return nil, err
		}
		if err := node.Content[i+1].Decode(&v); err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		pairs = append(pairs, [2]string{k, v})
	}
	return pairs, nil
}

func encodePairs(pairs [][2]string) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range pairs {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: p[0]},
			&yaml.Node{Kind: yaml.ScalarNode, Value: p[1], Style: yaml.DoubleQuotedStyle},
		)
	}
	return node
}

// NormalizeSettings is the YAML form of normalize.Rules.
type NormalizeSettings struct {
	PreRewrite  Rewrites  `yaml:"pre_rewrite,omitempty"`
	Overrides   Overrides `yaml:"overrides,omitempty"`
	Strip       []string  `yaml:"strip,omitempty"`
	StopWords   []string  `yaml:"stop_words,omitempty"`
	PostRewrite Rewrites  `yaml:"post_rewrite,omitempty"`
}

// Rules converts the settings to a normalize rule set.
func (n NormalizeSettings) Rules() normalize.Rules {
	return normalize.Rules{
		PreRewrite:  n.PreRewrite,
		Overrides:   n.Overrides,
		Strip:       n.Strip,
		StopWords:   n.StopWords,
		PostRewrite: n.PostRewrite,
	}
}

// Settings is the report configuration surface. It is loaded once and
// passed by value to the components that need it.
type Settings struct {
	Alcohol    string            `yaml:"alcohol"`
	Tooltip    bool              `yaml:"tooltip"`
	Stylesheet string            `yaml:"stylesheet"`
	Meals      Categories        `yaml:"meals,omitempty"`
	Totals     Categories        `yaml:"totals,omitempty"`
	Normalize  NormalizeSettings `yaml:"normalize,omitempty"`
}

func DefaultSettings() Settings {
	return Settings{
		Alcohol:    DefaultAlcohol,
		Tooltip:    true,
		Stylesheet: DefaultStylesheet,
	}
}

// Validate checks that total keys are unique and every pattern compiles.
func (s Settings) Validate() error {
	var problems []string

	seen := make(map[string]bool)
	for _, t := range s.Totals {
		key := TotalKey(t.Key)
		if key == "" {
			problems = append(problems, "total with empty key")
			continue
		}
		if seen[key] {
			problems = append(problems, fmt.Sprintf("total %q configured twice", key))
		}
		seen[key] = true
	}
	for _, m := range s.Meals {
		if strings.TrimSpace(m.Key) == "" {
			problems = append(problems, "meal with empty key")
		}
	}
	if _, err := normalize.Compile(s.Normalize.Rules()); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("settings validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// TotalKey accepts both "calories" and "total-calories" spellings.
func TotalKey(key string) string {
	return strings.TrimPrefix(strings.TrimSpace(key), core.TotalPrefix)
}

// LoadSettings reads a YAML settings file on top of the defaults. An empty
// path returns the defaults.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// SaveSettings writes s to the first free name out of config.yaml,
// config_1.yaml, ... in dir and returns the path written.
func SaveSettings(dir string, s Settings) (string, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create settings directory: %w", err)
	}

	for i := 0; i < maxSaveAttempts; i++ {
		name := "config.yaml"
		if i > 0 {
			name = fmt.Sprintf("config_%d.yaml", i)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", path, err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", fmt.Errorf("failed to write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to close %s: %w", path, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("%w in %s after %d attempts", ErrNoFreeFilename, dir, maxSaveAttempts)
}

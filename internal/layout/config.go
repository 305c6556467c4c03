package layout

import (
	"fmt"

	"mfpreport/internal/config"
	"mfpreport/internal/core"
	"mfpreport/internal/normalize"
)

const defaultTotalClass = "black"

var plainNormalizer = normalize.MustCompile(normalize.Rules{})

// Display is a resolved meal or total override with its defaults applied.
type Display struct {
	Key   string
	Show  bool
	Name  string
	Class string
}

// Config is everything BuildReport needs, resolved once.
type Config struct {
	Tooltip    bool
	Stylesheet string
	// Meals in configured order. Meals missing here are shown with
	// defaults after these.
	Meals []Display
	// Totals in configured order. When TotalsConfigured is false every
	// observed total is shown.
	Totals           []Display
	TotalsConfigured bool
	Normalizer       *normalize.Normalizer
}

// ConfigFromSettings resolves display overrides and compiles the
// normalization rules.
func ConfigFromSettings(s config.Settings) (Config, error) {
	n, err := normalize.Compile(s.Normalize.Rules())
	if err != nil {
		return Config{}, fmt.Errorf("failed to compile normalize rules: %w", err)
	}
	cfg := Config{
		Tooltip:          s.Tooltip,
		Stylesheet:       s.Stylesheet,
		Normalizer:       n,
		TotalsConfigured: len(s.Totals) > 0,
	}
	for _, m := range s.Meals {
		cfg.Meals = append(cfg.Meals, mealDisplay(m.Key, m.DisplayOverride))
	}
	for _, t := range s.Totals {
		key := config.TotalKey(t.Key)
		d := Display{
			Key:   key,
			Show:  t.Show != nil && *t.Show,
			Name:  core.TotalPrefix + key,
			Class: defaultTotalClass,
		}
		if t.Name != "" {
			d.Name = t.Name
		}
		if t.Class != "" {
			d.Class = t.Class
		}
		cfg.Totals = append(cfg.Totals, d)
	}
	return cfg, nil
}

func mealDisplay(key string, ov config.DisplayOverride) Display {
	d := Display{Key: key, Show: true, Name: key}
	if ov.Show != nil {
		d.Show = *ov.Show
	}
	if ov.Name != "" {
		d.Name = ov.Name
	}
	d.Class = ov.Class
	return d
}

func (c Config) meal(key string) (Display, bool) {
	for _, m := range c.Meals {
		if m.Key == key {
			return m, true
		}
	}
	return Display{}, false
}

func (c Config) normalize(text string) string {
	if c.Normalizer == nil {
		return plainNormalizer.Normalize(text)
	}
	return c.Normalizer.Normalize(text)
}

package services

import (
	"strings"

	"mfpreport/internal/core"
)

const (
	cardioGroup     = "cardiovascular"
	exerciseType    = "exercise"
	adjustmentMatch = "adjustment"
	caloriesKey     = "calories"
	burnedKey       = "calories burned"
)

// engineKeys are computed here and never taken from upstream totals, so
// the arithmetic between them always holds.
var engineKeys = map[string]bool{
	"fitness":     true,
	"adjusted":    true,
	"exercise":    true,
	"goal":        true,
	"netcalories": true,
	"bmr":         true,
	"food_only":   true,
}

// dayTotals is an insertion-ordered map of derived totals.
type dayTotals struct {
	keys   []string
	values map[string]int
}

func newDayTotals() *dayTotals {
	return &dayTotals{values: map[string]int{}}
}

func (t *dayTotals) set(key string, v int) {
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = v
}

func (t *dayTotals) get(key string) (int, bool) {
	v, ok := t.values[key]
	return v, ok
}

// DeriveDay turns one upstream diary day into the rows committed for it:
// meal line items, cardio exercise line items and then the full set of
// daily totals. gap reports that alcohol was configured but missing, in
// which case food_only is not emitted.
func DeriveDay(date core.Date, day core.Day, alcohol string) (rows []core.EventRecord, gap bool) {
	totals := newDayTotals()
	mealKeys := map[string]bool{}

	for _, meal := range day.Meals {
		name := strings.ToLower(strings.TrimSpace(meal.Name))
		if name == "" {
			continue
		}
		sum := 0
		for _, entry := range meal.Entries {
			cal := entry.Nutrition.Calories(caloriesKey)
			rows = append(rows, core.NewLineItem(date, name, entry.Name, cal, entry.Nutrition))
			sum += cal
		}
		prev, _ := totals.get(name)
		totals.set(name, prev+sum)
		mealKeys[name] = true
	}

	fitness, adjusted := 0, 0
	for _, ex := range day.Exercises {
		if strings.ToLower(strings.TrimSpace(ex.Name)) != cardioGroup {
			continue
		}
		for _, entry := range ex.Entries {
			cal := -entry.Nutrition.Calories(burnedKey)
			rows = append(rows, core.NewLineItem(date, exerciseType, entry.Name, cal, entry.Nutrition))
			if strings.Contains(strings.ToLower(entry.Name), adjustmentMatch) {
				adjusted += cal
			} else {
				fitness += cal
			}
		}
	}
	totals.set("fitness", fitness)
	totals.set("adjusted", adjusted)
	totals.set("exercise", fitness+adjusted)

	for _, n := range day.Totals {
		key := strings.TrimSpace(n.Name)
		if key == "" || engineKeys[key] || mealKeys[key] {
			continue
		}
		totals.set(key, core.Truncate(n.Value))
	}

	calories, ok := totals.get(caloriesKey)
	if !ok {
		totals.set(caloriesKey, 0)
	}
	exercise, _ := totals.get("exercise")
	goal := day.Goals.Calories(caloriesKey)
	totals.set("goal", goal)
	totals.set("netcalories", calories+exercise)
	totals.set("bmr", goal-calories)

	if alcohol != "" {
		if drink, ok := totals.get(alcohol); ok {
			totals.set("food_only", calories-drink)
		} else {
			gap = true
		}
	}

	for _, key := range totals.keys {
		rows = append(rows, core.NewTotal(date, key, totals.values[key]))
	}
	return rows, gap
}

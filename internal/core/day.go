package core

// Day is one diary day as reported by the upstream event source.
type Day struct {
	Date      Date       `json:"date"`
	Meals     []Meal     `json:"meals"`
	Exercises []Exercise `json:"exercises"`
	Totals    Nutrients  `json:"totals"`
	Goals     Nutrients  `json:"goals"`
}

type Meal struct {
	Name    string  `json:"name"`
	Entries []Entry `json:"entries"`
}

type Exercise struct {
	Name    string  `json:"name"`
	Entries []Entry `json:"entries"`
}

// Entry is one line item of a meal or an exercise group.
type Entry struct {
	Name      string    `json:"name"`
	Nutrition Nutrients `json:"nutrition_information"`
}

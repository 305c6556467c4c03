package records

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"mfpreport/internal/core"
)

// Header names the persisted columns in order.
var Header = []string{"date", "type", "description", "calories", "details"}

// EncodeRow converts a record into its five persisted column values.
func EncodeRow(r core.EventRecord) ([]string, error) {
	details := ""
	if !r.IsTotal() && len(r.Details) > 0 {
		b, err := json.Marshal(r.Details)
		if err != nil {
			return nil, fmt.Errorf("encode details: %w", err)
		}
		details = string(b)
	}
	desc := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(r.Description)
	return []string{
		r.Date.String(),
		r.Type(),
		desc,
		strconv.Itoa(r.Calories),
		details,
	}, nil
}

// DecodeRow parses five persisted column values. Missing trailing columns
// are treated as empty. The description is kept verbatim; every other
// column is trimmed.
func DecodeRow(cols []string) (core.EventRecord, error) {
	get := func(i int) string {
		if i < len(cols) {
			return strings.TrimSpace(cols[i])
		}
		return ""
	}

	date, err := core.ParseDate(get(0))
	if err != nil {
		return core.EventRecord{}, err
	}
	kind, category, err := core.ClassifyType(get(1))
	if err != nil {
		return core.EventRecord{}, err
	}

	calories := 0
	if raw := get(3); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return core.EventRecord{}, fmt.Errorf("calories %q: %w", raw, err)
		}
		calories = core.Truncate(f)
	}

	var details core.Nutrients
	if raw := get(4); raw != "" && kind == core.LineItem {
		if err := json.Unmarshal([]byte(raw), &details); err != nil {
			return core.EventRecord{}, fmt.Errorf("details: %w", err)
		}
	}

	description := ""
	if len(cols) > 2 {
		description = cols[2]
	}

	return core.EventRecord{
		Date:        date,
		Kind:        kind,
		Category:    category,
		Description: description,
		Calories:    calories,
		Details:     details,
	}, nil
}

// IsHeader reports whether cols is the header row.
func IsHeader(cols []string) bool {
	return len(cols) > 0 && strings.EqualFold(strings.TrimSpace(cols[0]), Header[0])
}

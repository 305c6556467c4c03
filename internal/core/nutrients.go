package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type (
	// Nutrient is one named nutrition fact.
	Nutrient struct {
		Name  string
		Value float64
	}

	// Nutrients is a nutrition mapping that keeps the order the upstream
	// service reported it in. It encodes as a JSON object.
	Nutrients []Nutrient
)

// Get returns the value stored under name.
func (n Nutrients) Get(name string) (float64, bool) {
	for _, v := range n {
		if v.Name == name {
			return v.Value, true
		}
	}
	return 0, false
}

// Set replaces the value under name in place, or appends it.
func (n *Nutrients) Set(name string, value float64) {
	for i := range *n {
		if (*n)[i].Name == name {
			(*n)[i].Value = value
			return
		}
	}
	*n = append(*n, Nutrient{Name: name, Value: value})
}

// Calories returns the named value truncated toward zero.
func (n Nutrients) Calories(name string) int {
	v, _ := n.Get(name)
	return Truncate(v)
}

// Lines renders each pair as "name: value", one per element.
func (n Nutrients) Lines() []string {
	if len(n) == 0 {
		return nil
	}
	out := make([]string, 0, len(n))
	for _, v := range n {
		out = append(out, v.Name+": "+FormatValue(v.Value))
	}
	return out
}

// Truncate converts a calorie amount to an integer the way the upstream
// exporter always has: toward zero.
func Truncate(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(math.Trunc(v))
}

// FormatValue prints integral values without a fraction.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (n Nutrients) MarshalJSON() ([]byte, error) {
	if n == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range n {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(v.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if math.IsNaN(v.Value) || math.IsInf(v.Value, 0) {
			buf.WriteString("null")
			continue
		}
		buf.WriteString(FormatValue(v.Value))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (n *Nutrients) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*n = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("nutrients: expected object, got %v", tok)
	}

	out := Nutrients{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("nutrients: expected key, got %v", keyTok)
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("nutrients %q: %w", key, err)
		}
		switch v := raw.(type) {
		case nil:
			// upstream reports unknown facts as null
		case json.Number:
			f, err := v.Float64()
			if err != nil {
				return fmt.Errorf("nutrients %q: %w", key, err)
			}
			out.Set(key, f)
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("nutrients %q: not a number: %q", key, v)
			}
			out.Set(key, f)
		default:
			return fmt.Errorf("nutrients %q: unsupported value %T", key, raw)
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*n = out
	return nil
}

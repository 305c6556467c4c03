package cli

import (
	"fmt"
	"strconv"

	"mfpreport/internal/core"
)

// intArg parses args[i] as an integer, or returns def when it is absent.
func intArg(args []string, i int, name string, def int) (int, error) {
	if i >= len(args) {
		return def, nil
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number, got %q", name, args[i])
	}
	return n, nil
}

// dateArg parses args[i] as YYYY-MM-DD. ok is false when it is absent.
func dateArg(args []string, i int) (d core.Date, ok bool, err error) {
	if i >= len(args) {
		return core.Date{}, false, nil
	}
	d, err = core.ParseDate(args[i])
	if err != nil {
		return core.Date{}, false, fmt.Errorf("date must be YYYY-MM-DD, got %q", args[i])
	}
	return d, true, nil
}

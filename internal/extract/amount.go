package extract

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseAmount converts one amount column to signed currency units.
// A bare "-" is the documents' notation for zero; every other token has
// "$" and "," stripped before numeric parsing, preserving the sign.
func ParseAmount(token string) (int64, error) {
	t := strings.TrimSpace(token)
	if t == "-" {
		return 0, nil
	}
	t = strings.ReplaceAll(t, "$", "")
	t = strings.ReplaceAll(t, ",", "")
	if t == "" {
		return 0, fmt.Errorf("empty amount token %q", token)
	}
	n, err := strconv.ParseInt(t, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", token, err)
	}
	return n, nil
}

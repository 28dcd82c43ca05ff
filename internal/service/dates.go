package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Accepted query/body date shape: DD/MM/YYYY, fixed width.
var orderDatePattern = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)

// IsValidOrderDate reports whether s has the accepted DD/MM/YYYY shape.
// Only the textual shape is checked, not calendar validity.
func IsValidOrderDate(s string) bool {
	return orderDatePattern.MatchString(s)
}

// ParseOrderDate parses a DD/MM/YYYY string into local midnight of that
// calendar day. Out-of-range day or month values normalize forward
// (31/02/2024 becomes 02/03/2024).
func ParseOrderDate(s string) (time.Time, bool) {
	if !orderDatePattern.MatchString(s) {
		return time.Time{}, false
	}
	parts := strings.Split(s, "/")
	day, _ := strconv.Atoi(parts[0])
	month, _ := strconv.Atoi(parts[1])
	year, _ := strconv.Atoi(parts[2])
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local), true
}

package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

var NowFunc = time.Now // mockable

// Now returns the current UTC time, truncated to microseconds (the precision postgres keeps).
func Now() time.Time {
	return NowFunc().UTC().Truncate(time.Microsecond)
}

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// NewID returns a new random record identifier.
func NewID() string {
	return uuid.New().String()
}

// IsValidID reports whether id can address a record at all.
func IsValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDuration parses a Go duration string from config, returning def when
// the field is empty. The field name is only used for error context.
func ParseDuration(field, s string, def time.Duration) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", field, s, err)
	}
	return d, nil
}

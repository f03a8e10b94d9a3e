package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// SecondsFromEnv reads an integer number of seconds from the environment.
// ok is false when the variable is unset or empty. A value that is not a
// positive integer is an error rather than a silent fallback.
func SecondsFromEnv(name string) (d time.Duration, ok bool, err error) {
	raw, set := os.LookupEnv(name)
	raw = strings.TrimSpace(raw)
	if !set || raw == "" {
		return 0, false, nil
	}
	secs, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer number of seconds (got: %q)", name, raw)
	}
	if secs <= 0 {
		return 0, false, fmt.Errorf("%s must be positive (got: %d)", name, secs)
	}
	return time.Duration(secs) * time.Second, true, nil
}

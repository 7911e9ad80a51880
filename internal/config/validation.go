package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/coral-mesh/hookprof/internal/constants"
	"github.com/coral-mesh/hookprof/internal/logging"
)

// ValidateFormat checks an output format name.
func ValidateFormat(format string) error {
	return oneOf("format", format, constants.Formats)
}

// NormalizeOrder upper-cases a sort direction and checks it.
func NormalizeOrder(order string) (string, error) {
	order = strings.ToUpper(order)
	if err := oneOf("order", order, constants.Orders); err != nil {
		return "", err
	}
	return order, nil
}

// ValidateLogLevel checks a log level name.
func ValidateLogLevel(level string) error {
	return oneOf("log level", strings.ToLower(level), logging.Levels)
}

func oneOf(what, value string, allowed []string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("invalid %s %q: must be one of %s", what, value, strings.Join(allowed, ", "))
}

package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	defaultRecent = 10
	maxRecent     = 50
)

// ParseNameArg extracts a monitor name from a command argument string.
func ParseNameArg(args string) (string, error) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		return "", errors.New("monitor name is required")
	}
	return parts[0], nil
}

// ParseRecentArgs parses the arguments of /recent.
// Format: [name] [count]
func ParseRecentArgs(args string) (string, int, error) {
	parts := strings.Fields(args)
	if len(parts) > 2 {
		return "", 0, errors.New("usage: /recent [name] [count]")
	}

	name, limit := "", defaultRecent
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			if i > 0 {
				return "", 0, fmt.Errorf("invalid count %q", p)
			}
			name = p
			continue
		}
		if n < 1 || n > maxRecent {
			return "", 0, fmt.Errorf("count must be between 1 and %d", maxRecent)
		}
		limit = n
	}
	return name, limit, nil
}

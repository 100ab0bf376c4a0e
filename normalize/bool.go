package normalize

import (
	"fmt"
	"strings"

	"github.com/sunerpy/indexproxy/models"
)

// ParseBool recognizes "0"/"1" and case-insensitive true/false/yes/no/none
// (none counts as false). Anything else fails with ErrParseBoolean.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true, nil
	case "0", "false", "no", "none":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", models.ErrParseBoolean, s)
	}
}

package recon

import (
	"fmt"
	"strconv"
	"strings"
)

// NormalizeKey canonicalizes an identifier cell to a comparable string.
// Nil and blank values yield ok=false. Anything else becomes a trimmed
// string; a trailing ".0" on an otherwise all-digit value is stripped,
// undoing the integer-serialized-as-float corruption common to Excel and
// JSON exports. The result is idempotent and normalization never fails.
func NormalizeKey(v any) (string, bool) {
	if v == nil {
		return "", false
	}

	var s string
	switch x := v.(type) {
	case string:
		s = x
	case float64:
		// JSON numbers arrive as float64; format without a spurious
		// fractional part so 42.0 and "42" compare equal.
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		s = strconv.Itoa(x)
	case int64:
		s = strconv.FormatInt(x, 10)
	default:
		s = fmt.Sprint(x)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	if rest, found := strings.CutSuffix(s, ".0"); found && rest != "" && allDigits(rest) {
		s = rest
	}

	return s, true
}

// placeholderKeys are serialized null markers that leak into exports as
// literal text. They are never valid identifiers.
var placeholderKeys = map[string]struct{}{
	"nan":  {},
	"none": {},
	"null": {},
}

// IsPlaceholderKey reports whether a normalized key is a serialized null
// marker rather than a real identifier.
func IsPlaceholderKey(key string) bool {
	_, ok := placeholderKeys[strings.ToLower(key)]
	return ok
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

package enroll

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Reference fields probed on embedded objects, in order. The set is closed
// on purpose; add here (and to the tests) when a new tenant shape shows up.
var refKeys = []string{"id", "@id", "uuid"}

// ExtractID pulls a canonical identifier out of whatever reference shape a
// tenant serves: a bare UUID string, an IRI like "/api/users/<id>", an
// object carrying an id-like field, or an object carrying a hydra "@id".
// Unresolvable input yields "". It never panics on odd input.
func ExtractID(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return idFromString(t)
	case map[string]interface{}:
		for _, k := range refKeys {
			if inner, ok := t[k]; ok {
				if id := ExtractID(inner); id != "" {
					return id
				}
			}
		}
		return ""
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return ""
	default:
		return ""
	}
}

func idFromString(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// An exact UUID wins over path-splitting even if the string also
	// contains separators in some odd encoding.
	if _, err := uuid.Parse(s); err == nil {
		return s
	}
	if strings.Contains(s, "/") {
		if i := strings.IndexAny(s, "?#"); i >= 0 {
			s = s[:i]
		}
		parts := strings.Split(s, "/")
		for i := len(parts) - 1; i >= 0; i-- {
			if p := strings.TrimSpace(parts[i]); p != "" {
				return p
			}
		}
		return ""
	}
	return s
}

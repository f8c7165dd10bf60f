package template

import "strconv"

// Lookup walks value along the given path segments. Objects are indexed by key
// and arrays by numeric position. The second result is false as soon as a
// segment is missing or the current value cannot be indexed.
func Lookup(value any, segments []string) (any, bool) {
	current := value

	for _, segment := range segments {
		switch v := current.(type) {
		case map[string]any:
			next, ok := v[segment]
			if !ok {
				return nil, false
			}

			current = next
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(v) {
				return nil, false
			}

			current = v[index]
		default:
			return nil, false
		}
	}

	return current, true
}

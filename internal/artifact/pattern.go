package artifact

import "strings"

// MatchKey matches a serialized topic:name key against a query pattern.
// `*` is the only wildcard and stands for any run of characters; matching
// is anchored at both ends of the full key, never a substring search, so
// "foo:*" does not match "foobar:x".
func MatchKey(pattern, key string) bool {
	if !strings.Contains(pattern, "*") {
		return pattern == key
	}

	parts := strings.Split(pattern, "*")

	if !strings.HasPrefix(key, parts[0]) {
		return false
	}
	rest := key[len(parts[0]):]

	last := parts[len(parts)-1]
	if !strings.HasSuffix(rest, last) {
		return false
	}
	rest = rest[:len(rest)-len(last)]

	for _, mid := range parts[1 : len(parts)-1] {
		if mid == "" {
			continue
		}
		i := strings.Index(rest, mid)
		if i == -1 {
			return false
		}
		rest = rest[i+len(mid):]
	}

	return true
}

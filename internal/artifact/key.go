package artifact

import "strings"

// NormalizeTopic derives the namespace half of an artifact key from a
// caller-supplied topic: lowercased, runs of non-alphanumeric characters
// collapsed to a single underscore, leading and trailing underscores
// trimmed. Two topics that normalize identically collide by design.
func NormalizeTopic(topic string) string {
	var b strings.Builder
	pendingSep := false

	for _, r := range strings.ToLower(topic) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if alnum {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}

	return b.String()
}

// MakeKey builds the serialized topic:name key for a normalized topic.
func MakeKey(topic, name string) string {
	return NormalizeTopic(topic) + ":" + name
}

// SplitKey splits a serialized key back into its topic and name halves.
func SplitKey(key string) (topic, name string) {
	if i := strings.IndexByte(key, ':'); i != -1 {
		return key[:i], key[i+1:]
	}
	return key, ""
}

package notify

import "strings"

// Topic names the channel new items of a source are announced on.
func Topic(category, sourceName string) string {
	return normalizeTopicPart(category) + "_" + normalizeTopicPart(sourceName)
}

// normalizeTopicPart lowercases s and replaces every character FCM topic
// names do not allow with an underscore.
func normalizeTopicPart(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == '-', c == '_', c == '.', c == '~', c == '%':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

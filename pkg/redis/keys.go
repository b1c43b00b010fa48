package redis

import "strings"

const namespace = "partyhub"

// Key joins the non-empty parts under the service namespace, e.g.
// Key("rate", "applications:user:7") = "partyhub:rate:applications:user:7".
func Key(parts ...string) string {
	var b strings.Builder
	b.WriteString(namespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

package logger

import "strings"

// redactedPlaceholder replaces the value of any sensitive field.
const redactedPlaceholder = "[REDACTED]"

// sensitiveFieldKeys names Field.Key values whose Value is always replaced
// before an entry is written, regardless of sink (spec.md §4.7). Matching is
// case-insensitive and matches on substring so keys like "db_password" or
// "connectionStringPassword" are also caught.
var sensitiveFieldKeys = []string{
	"password",
	"connectionstring",
	"dsn",
	"token",
	"secret",
}

// RedactFields returns a copy of fields with sensitive values replaced. The
// input slice is never mutated.
func RedactFields(fields []Field) []Field {
	redacted := make([]Field, len(fields))

	for i, f := range fields {
		if isSensitiveKey(f.Key) {
			redacted[i] = Field{Key: f.Key, Value: redactedPlaceholder}

			continue
		}

		redacted[i] = f
	}

	return redacted
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)

	for _, sensitive := range sensitiveFieldKeys {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}

	return false
}

package perfobs

import (
	"regexp"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// fingerprinter normalizes SQL statement text into a stable shape suitable
// for grouping in aggregated stats — whitespace collapsed, keywords
// lowercased, literal values masked — the way the dropped
// github.com/DataDog/datadog-agent/pkg/obfuscate would, but with a plain
// stdlib regexp approach (see DESIGN.md for why that dependency was not
// taken). Results are cached by raw-statement key since the observatory
// fingerprints every recorded statement and hot statements repeat often.
type fingerprinter struct {
	mu    sync.Mutex
	cache *lru.Cache[string, string]
}

var (
	numberLiteralRe = regexp.MustCompile(`\b\d+(\.\d+)?\b`)
	stringLiteralRe = regexp.MustCompile(`'(?:[^']|'')*'`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

func newFingerprinter(size int) *fingerprinter {
	cache, err := lru.New[string, string](size)
	if err != nil {
		// size <= 0 is a programmer error; fall back to a one-entry cache
		// rather than panic on a performance facade.
		cache, _ = lru.New[string, string](1)
	}

	return &fingerprinter{cache: cache}
}

// fingerprint returns a normalized, length-bounded statement signature.
func (f *fingerprinter) fingerprint(statement string) string {
	f.mu.Lock()
	if cached, ok := f.cache.Get(statement); ok {
		f.mu.Unlock()

		return cached
	}
	f.mu.Unlock()

	normalized := strings.ToLower(strings.TrimSpace(statement))
	normalized = stringLiteralRe.ReplaceAllString(normalized, "?")
	normalized = numberLiteralRe.ReplaceAllString(normalized, "?")
	normalized = whitespaceRe.ReplaceAllString(normalized, " ")

	const maxFingerprintLen = 256

	if len(normalized) > maxFingerprintLen {
		normalized = normalized[:maxFingerprintLen]
	}

	f.mu.Lock()
	f.cache.Add(statement, normalized)
	f.mu.Unlock()

	return normalized
}

// truncateStatement bounds the raw statement text stored in a record to
// maxBytes, per spec.md §4.4 ("truncated to a bounded length, e.g. 1 KiB").
func truncateStatement(statement string, maxBytes int) string {
	if len(statement) <= maxBytes {
		return statement
	}

	return statement[:maxBytes]
}

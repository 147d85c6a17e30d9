// Package advisor implements the shape-based query optimizer advisor that
// analyze_query_performance consults (spec.md §4.5): purely textual
// heuristics over a statement's shape, no SQL Server interaction.
package advisor

import (
	"regexp"
	"strings"
)

// Severity ranks an advisory finding.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Finding is a single piece of advice about a statement's shape.
type Finding struct {
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

var (
	selectStarRe    = regexp.MustCompile(`(?i)select\s+\*`)
	leadingWildRe   = regexp.MustCompile(`(?i)like\s+'%`)
	whereClauseRe   = regexp.MustCompile(`(?i)\bwhere\b`)
	functionOnColRe = regexp.MustCompile(`(?i)where\s+\w+\s*\(\s*\w+\s*\)\s*=`)
)

// Analyze inspects statement's shape and returns advisory findings: missing
// WHERE, SELECT *, leading-wildcard LIKE, and non-sargable predicates
// (a function applied to a column in a WHERE clause).
func Analyze(statement string) []Finding {
	var findings []Finding

	trimmed := strings.TrimSpace(statement)

	if isSelectLike(trimmed) && !whereClauseRe.MatchString(trimmed) {
		findings = append(findings, Finding{
			Severity:    SeverityMedium,
			Description: "query has no WHERE clause and may scan the entire table",
		})
	}

	if selectStarRe.MatchString(trimmed) {
		findings = append(findings, Finding{
			Severity:    SeverityLow,
			Description: "SELECT * retrieves all columns; consider naming only the columns needed",
		})
	}

	if leadingWildRe.MatchString(trimmed) {
		findings = append(findings, Finding{
			Severity:    SeverityHigh,
			Description: "a leading wildcard LIKE pattern prevents index seeks and forces a scan",
		})
	}

	if functionOnColRe.MatchString(trimmed) {
		findings = append(findings, Finding{
			Severity:    SeverityMedium,
			Description: "a function applied to a column in WHERE is non-sargable and defeats index usage",
		})
	}

	return findings
}

func isSelectLike(statement string) bool {
	fields := strings.Fields(statement)
	if len(fields) == 0 {
		return false
	}

	return strings.EqualFold(fields[0], "SELECT") || strings.EqualFold(fields[0], "WITH")
}

package advisor_test

import (
	"strings"
	"testing"

	"github.com/hyp3rd/mssql-tool-server/internal/tools/advisor"
	"github.com/stretchr/testify/assert"
)

func TestAnalyze_FindsShapeIssues(t *testing.T) {
	t.Parallel()

	findings := advisor.Analyze("SELECT * FROM dbo.Users WHERE UPPER(Name) = 'X' AND Email LIKE '%gmail.com'")

	var descriptions []string
	for _, f := range findings {
		descriptions = append(descriptions, f.Description)
	}

	joined := strings.Join(descriptions, " ")

	assert.Len(t, findings, 3)
	assert.Contains(t, joined, "SELECT *")
	assert.Contains(t, joined, "non-sargable")
	assert.Contains(t, joined, "wildcard")
}

func TestAnalyze_MissingWhereClauseFlagged(t *testing.T) {
	t.Parallel()

	findings := advisor.Analyze("SELECT Id FROM dbo.Users")

	found := false

	for _, f := range findings {
		if f.Severity == advisor.SeverityMedium {
			found = true
		}
	}

	assert.True(t, found, "expected a missing-WHERE finding")
}

func TestAnalyze_CleanQueryNoFindings(t *testing.T) {
	t.Parallel()

	findings := advisor.Analyze("SELECT Id, Name FROM dbo.Users WHERE Id = 1")
	assert.Empty(t, findings)
}

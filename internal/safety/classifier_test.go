package safety_test

import (
	"testing"

	"github.com/hyp3rd/mssql-tool-server/internal/safety"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		statement string
		want      safety.Classification
	}{
		{"empty", "", safety.Empty},
		{"whitespace only", "   \n\t  ", safety.Empty},
		{"select", "SELECT * FROM dbo.Users", safety.ReadOnly},
		{"lowercase select", "select 1", safety.ReadOnly},
		{"show", "SHOW TABLES", safety.ReadOnly},
		{"describe", "DESCRIBE dbo.Users", safety.ReadOnly},
		{"explain", "EXPLAIN SELECT 1", safety.ReadOnly},
		{"leading line comment", "-- pull active users\nSELECT * FROM dbo.Users", safety.ReadOnly},
		{"leading block comment", "/* note */ SELECT 1", safety.ReadOnly},
		{"cte select", "WITH cte AS (SELECT 1 AS x) SELECT * FROM cte", safety.ReadOnly},
		{"insert", "INSERT INTO dbo.Users (Name) VALUES ('a')", safety.DML},
		{"update", "UPDATE dbo.Users SET Name = 'b'", safety.DML},
		{"delete", "DELETE FROM dbo.Users", safety.DML},
		{"truncate", "TRUNCATE TABLE dbo.Users", safety.DML},
		{"merge", "MERGE INTO dbo.Users USING src ON (1=1)", safety.DML},
		{"create", "CREATE TABLE dbo.Users (Id INT)", safety.DDL},
		{"drop", "DROP TABLE dbo.Users", safety.DDL},
		{"alter", "ALTER TABLE dbo.Users ADD Col INT", safety.DDL},
		{"grant", "GRANT SELECT ON dbo.Users TO reader", safety.DDL},
		{"revoke", "REVOKE SELECT ON dbo.Users FROM reader", safety.DDL},
		{"exec", "EXEC dbo.usp_DoThing", safety.Admin},
		{"execute", "EXECUTE dbo.usp_DoThing", safety.Admin},
		{"call", "CALL dbo.usp_DoThing()", safety.Admin},
		{"unknown verb", "FROBNICATE dbo.Users", safety.Unknown},
		{"multi-statement escalates", "SELECT 1; DROP TABLE dbo.Users", safety.DDL},
		{"multi-statement all read-only stays read-only", "SELECT 1; SELECT 2", safety.ReadOnly},
		{"semicolon inside string literal is not a split point", "SELECT ';' AS x", safety.ReadOnly},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := safety.Classify(tc.statement)
			assert.Equal(t, tc.want, got)
		})
	}
}

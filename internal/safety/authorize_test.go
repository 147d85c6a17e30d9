package safety_test

import (
	"testing"

	"github.com/hyp3rd/mssql-tool-server/internal/safety"
	"github.com/stretchr/testify/assert"
)

func TestAuthorize_ReadOnlySupremacy(t *testing.T) {
	t.Parallel()

	// Read-only mode denies DML/DDL/Admin even when the other two flags are
	// fully relaxed — read-only mode always wins (spec.md §8).
	flags := safety.PolicyFlags{ReadOnlyMode: true, AllowDestructive: true, AllowSchemaChanges: true}

	for _, c := range []safety.Classification{safety.DML, safety.DDL, safety.Admin} {
		d := safety.Authorize(flags, c)
		assert.Falsef(t, d.Allowed, "classification %s should be denied under read-only mode", c)
	}

	d := safety.Authorize(flags, safety.ReadOnly)
	assert.True(t, d.Allowed)

	d = safety.Authorize(flags, safety.Empty)
	assert.True(t, d.Allowed)
}

func TestAuthorize_PolicyMonotonicity(t *testing.T) {
	t.Parallel()

	// Relaxing a flag must never cause a previously-allowed statement to
	// become denied: decisions are monotonic in the flags (spec.md §8).
	narrow := safety.PolicyFlags{ReadOnlyMode: true, AllowDestructive: false, AllowSchemaChanges: false}
	wider := safety.PolicyFlags{ReadOnlyMode: false, AllowDestructive: false, AllowSchemaChanges: false}
	widest := safety.PolicyFlags{ReadOnlyMode: false, AllowDestructive: true, AllowSchemaChanges: true}

	for _, c := range []safety.Classification{
		safety.Empty, safety.ReadOnly, safety.DML, safety.DDL, safety.Admin, safety.Unknown,
	} {
		dn := safety.Authorize(narrow, c)
		dw := safety.Authorize(wider, c)
		dwidest := safety.Authorize(widest, c)

		if dn.Allowed {
			assert.Truef(t, dw.Allowed, "classification %s allowed under narrow but denied under wider", c)
		}

		if dw.Allowed {
			assert.Truef(t, dwidest.Allowed, "classification %s allowed under wider but denied under widest", c)
		}
	}
}

func TestAuthorize_UnknownAlwaysDenied(t *testing.T) {
	t.Parallel()

	flags := safety.PolicyFlags{ReadOnlyMode: false, AllowDestructive: true, AllowSchemaChanges: true}
	d := safety.Authorize(flags, safety.Unknown)
	assert.False(t, d.Allowed)
}

func TestAuthorize_GraduatedFlags(t *testing.T) {
	t.Parallel()

	base := safety.PolicyFlags{ReadOnlyMode: false}

	dmlAllowed := safety.Authorize(safety.PolicyFlags{ReadOnlyMode: false, AllowDestructive: true}, safety.DML)
	assert.True(t, dmlAllowed.Allowed)

	dmlDenied := safety.Authorize(base, safety.DML)
	assert.False(t, dmlDenied.Allowed)

	ddlAllowed := safety.Authorize(safety.PolicyFlags{ReadOnlyMode: false, AllowSchemaChanges: true}, safety.DDL)
	assert.True(t, ddlAllowed.Allowed)

	ddlDenied := safety.Authorize(base, safety.DDL)
	assert.False(t, ddlDenied.Allowed)

	adminNeedsBoth := safety.Authorize(
		safety.PolicyFlags{ReadOnlyMode: false, AllowDestructive: true, AllowSchemaChanges: false},
		safety.Admin,
	)
	assert.False(t, adminNeedsBoth.Allowed)

	adminAllowed := safety.Authorize(
		safety.PolicyFlags{ReadOnlyMode: false, AllowDestructive: true, AllowSchemaChanges: true},
		safety.Admin,
	)
	assert.True(t, adminAllowed.Allowed)
}

func TestClassifyAndAuthorize(t *testing.T) {
	t.Parallel()

	flags := safety.PolicyFlags{ReadOnlyMode: true}
	d := safety.ClassifyAndAuthorize(flags, "DROP TABLE dbo.Users")
	assert.False(t, d.Allowed)
	assert.Equal(t, safety.DDL, d.Classification)
}

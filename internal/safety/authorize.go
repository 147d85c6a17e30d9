package safety

// PolicyFlags is the three-tier graduated policy configuration the dispatcher
// consults on every tool invocation (spec.md §3/§4.3). It is intentionally a
// plain value type — copied, not pointed to — so a Decision can never be
// invalidated by a concurrent policy change mid-request.
type PolicyFlags struct {
	ReadOnlyMode       bool
	AllowDestructive   bool
	AllowSchemaChanges bool
}

// Decision is the outcome of Authorize. Denial is a normal return value, not
// an error (spec.md §9): callers branch on Allowed, they never treat a
// negative decision as exceptional.
type Decision struct {
	Allowed        bool
	Classification Classification
	Reason         string
}

// Authorize implements spec.md §4.3's graduated authorization table:
//
//   - ReadOnlyMode true denies everything except ReadOnly and Empty,
//     regardless of the other two flags ("read-only supremacy").
//   - Otherwise DML requires AllowDestructive.
//   - DDL and Admin require AllowSchemaChanges (Admin is treated as the union
//     of DML+DDL privilege, so it also requires AllowDestructive).
//   - Unknown is always denied: an unrecognized statement shape never gets
//     the benefit of the doubt.
func Authorize(flags PolicyFlags, c Classification) Decision {
	switch c {
	case Empty:
		return Decision{Allowed: true, Classification: c, Reason: "empty statement"}

	case ReadOnly:
		return Decision{Allowed: true, Classification: c, Reason: "read-only statements are always permitted"}

	case Unknown:
		return Decision{Allowed: false, Classification: c, Reason: "unrecognized statement shape"}

	case DML:
		if flags.ReadOnlyMode {
			return Decision{Allowed: false, Classification: c, Reason: "read-only mode denies data modification"}
		}

		if !flags.AllowDestructive {
			return Decision{Allowed: false, Classification: c, Reason: "destructive operations are disabled"}
		}

		return Decision{Allowed: true, Classification: c, Reason: "destructive operations enabled"}

	case DDL:
		if flags.ReadOnlyMode {
			return Decision{Allowed: false, Classification: c, Reason: "read-only mode denies schema changes"}
		}

		if !flags.AllowSchemaChanges {
			return Decision{Allowed: false, Classification: c, Reason: "schema changes are disabled"}
		}

		return Decision{Allowed: true, Classification: c, Reason: "schema changes enabled"}

	case Admin:
		if flags.ReadOnlyMode {
			return Decision{Allowed: false, Classification: c, Reason: "read-only mode denies administrative execution"}
		}

		if !flags.AllowDestructive || !flags.AllowSchemaChanges {
			return Decision{Allowed: false, Classification: c,
				Reason: "administrative execution requires both destructive and schema-change privileges"}
		}

		return Decision{Allowed: true, Classification: c, Reason: "administrative execution enabled"}

	default:
		return Decision{Allowed: false, Classification: c, Reason: "unrecognized classification"}
	}
}

// ClassifyAndAuthorize is the single entry point the dispatcher calls: it
// classifies statement and authorizes it against flags in one step.
func ClassifyAndAuthorize(flags PolicyFlags, statement string) Decision {
	return Authorize(flags, Classify(statement))
}

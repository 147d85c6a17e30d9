package tools

import (
	"context"

	"github.com/hyp3rd/mssql-tool-server/internal/apperrors"
	"github.com/hyp3rd/mssql-tool-server/internal/safety"
	"github.com/hyp3rd/mssql-tool-server/internal/tools/advisor"
)

// AnalyzeQueryPerformanceArgs is the analyze_query_performance tool's
// argument shape (spec.md §4.5).
type AnalyzeQueryPerformanceArgs struct {
	Statement string `json:"statement"`
	Database  string `json:"database,omitempty"`
}

// AnalyzeQueryPerformanceResult is the analyze_query_performance tool's
// response payload.
type AnalyzeQueryPerformanceResult struct {
	Plan          []map[string]any  `json:"plan,omitempty"`
	EstimatedCost *float64          `json:"estimatedCost,omitempty"`
	Advice        []advisor.Finding `json:"advice"`
	SafetyInfo    SafetyInfo        `json:"safetyInfo"`
}

// AnalyzeQueryPerformance is subject to the safety policy engine (read-only
// statements are always allowed). It captures a best-effort plan and
// historical cost, then invokes the shape-based advisor (spec.md §4.5).
func AnalyzeQueryPerformance(ctx context.Context, deps *Deps, args AnalyzeQueryPerformanceArgs) (*AnalyzeQueryPerformanceResult, error) {
	decision := safety.ClassifyAndAuthorize(deps.PolicyFlags(), args.Statement)
	deps.auditDecision("analyze_query_performance", decision)

	if !decision.Allowed {
		return nil, apperrors.New(apperrors.ErrPolicyDenied, decision.Reason)
	}

	explain, err := ExplainQuery(ctx, deps, ExplainQueryArgs{Statement: args.Statement, Database: args.Database})
	if err != nil {
		// analyze_query_performance is best-effort around plan capture — the
		// advice itself never depends on a successful explain.
		explain = &ExplainQueryResult{}
	}

	return &AnalyzeQueryPerformanceResult{
		Plan:          explain.Plan,
		EstimatedCost: explain.EstimatedCost,
		Advice:        advisor.Analyze(args.Statement),
		SafetyInfo:    deps.safetyInfo(),
	}, nil
}

package tools

import (
	"github.com/hyp3rd/mssql-tool-server/internal/config"
	"github.com/hyp3rd/mssql-tool-server/internal/logger"
	"github.com/hyp3rd/mssql-tool-server/internal/mssqlconn"
	"github.com/hyp3rd/mssql-tool-server/internal/perfobs"
	"github.com/hyp3rd/mssql-tool-server/internal/safety"
)

// Deps bundles the explicit construction dependencies every tool handler
// needs (spec.md §9: "model this as explicit construction dependencies
// passed into each handler — no global singletons").
type Deps struct {
	Pool   *mssqlconn.Manager
	Obs    *perfobs.Observatory
	Cfg    *config.Config
	Logger logger.Logger
}

// PolicyFlags snapshots the current three-tier safety flags from Cfg.
func (d *Deps) PolicyFlags() safety.PolicyFlags {
	return safety.PolicyFlags{
		ReadOnlyMode:       d.Cfg.Safety.ReadOnlyMode,
		AllowDestructive:   d.Cfg.Safety.AllowDestructive,
		AllowSchemaChanges: d.Cfg.Safety.AllowSchemaChanges,
	}
}

// SafetyInfo is embedded by policy-sensitive tool responses (spec.md §3).
type SafetyInfo struct {
	ReadOnlyMode       bool `json:"readOnlyMode"`
	AllowDestructive   bool `json:"allowDestructive"`
	AllowSchemaChanges bool `json:"allowSchemaChanges"`
}

func (d *Deps) safetyInfo() SafetyInfo {
	flags := d.PolicyFlags()

	return SafetyInfo{
		ReadOnlyMode:       flags.ReadOnlyMode,
		AllowDestructive:   flags.AllowDestructive,
		AllowSchemaChanges: flags.AllowSchemaChanges,
	}
}

// auditDecision records every safety-policy decision — allowed or denied —
// to the audit sub-logger when auditing is enabled (spec.md §4.7). Each
// entry carries the statement's classification and the effective policy
// flags in force at decision time (spec.md §4.3), never the statement text
// itself, to keep audit trails free of potentially sensitive query content.
func (d *Deps) auditDecision(tool string, decision safety.Decision) {
	if d.Logger == nil || d.Cfg == nil || !d.Cfg.AuditEnabled {
		return
	}

	flags := d.PolicyFlags()

	entry := d.Logger.WithFields(
		logger.Field{Key: "component", Value: "audit"},
		logger.Field{Key: "tool", Value: tool},
		logger.Field{Key: "classification", Value: string(decision.Classification)},
		logger.Field{Key: "allowed", Value: decision.Allowed},
		logger.Field{Key: "readOnlyMode", Value: flags.ReadOnlyMode},
		logger.Field{Key: "allowDestructive", Value: flags.AllowDestructive},
		logger.Field{Key: "allowSchemaChanges", Value: flags.AllowSchemaChanges},
	)

	if decision.Allowed {
		entry.Info("policy decision: allowed")

		return
	}

	entry.WithFields(logger.Field{Key: "reason", Value: decision.Reason}).Warn("policy decision: denied")
}

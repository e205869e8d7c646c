package core

import "sowline/pkg/domain"

type (
	EntityType         = domain.EntityType
	SowStatus          = domain.SowStatus
	Severity           = domain.Severity
	Base               = domain.Base
	Sow                = domain.Sow
	Piglet             = domain.Piglet
	BreedingRecord     = domain.BreedingRecord
	FarrowingRecord    = domain.FarrowingRecord
	DeathRecord        = domain.DeathRecord
	CullRecord         = domain.CullRecord
	ParityScore        = domain.ParityScore
	SowScore           = domain.SowScore
	ScoreTables        = domain.ScoreTables
	LineageView        = domain.LineageView
	LineageNode        = domain.LineageNode
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	Rule               = domain.Rule
	RuleView           = domain.RuleView
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
)

const (
	EntitySow             = domain.EntitySow
	EntityPiglet          = domain.EntityPiglet
	EntityBreedingRecord  = domain.EntityBreedingRecord
	EntityFarrowingRecord = domain.EntityFarrowingRecord
	EntityDeathRecord     = domain.EntityDeathRecord
	EntityCullRecord      = domain.EntityCullRecord
)

const (
	StatusActive = domain.StatusActive
	StatusDead   = domain.StatusDead
	StatusCulled = domain.StatusCulled
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

const (
	ViewAll        = domain.ViewAll
	ViewActiveOnly = domain.ViewActiveOnly
)

// NewRulesEngine re-exports the domain constructor for callers wiring a
// custom rule set.
func NewRulesEngine() *RulesEngine { return domain.NewRulesEngine() }

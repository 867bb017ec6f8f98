package skills

import (
	"sort"

	"github.com/boddenberg/supervisor-bfa-go/internal/domain"
)

// DefaultTargetLevel is the target used when a skill config has no entry for
// a role. Every call site goes through a Resolver so the default is the same
// for the matrix view, operator registration and retroactive backfill.
const DefaultTargetLevel = 2

// Resolver resolves the required level of a skill for a role.
type Resolver struct {
	Default int
}

// NewResolver returns a Resolver with def clamped to the 0..4 scale.
func NewResolver(def int) Resolver {
	if def < 0 {
		def = 0
	}
	if def > domain.MaxSkillLevel {
		def = domain.MaxSkillLevel
	}
	return Resolver{Default: def}
}

// Target returns cfg.RolePrereqs[role], or the resolver default when the role
// has no entry.
func (r Resolver) Target(cfg domain.SkillConfig, role string) int {
	if lvl, ok := cfg.RolePrereqs[domain.CanonicalKey(role)]; ok {
		return lvl
	}
	return r.Default
}

// DefaultSkills builds the skills map of a newly registered operator: one
// unassessed entry per configured skill, targeted for the operator's role.
func (r Resolver) DefaultSkills(configs []domain.SkillConfig, role string) map[string]domain.SkillLevel {
	out := make(map[string]domain.SkillLevel, len(configs))
	for _, cfg := range configs {
		key := cfg.Key()
		if key == "" {
			continue
		}
		out[key] = domain.SkillLevel{Target: r.Target(cfg, role)}
	}
	return out
}

// Sync aligns op's entry for cfg with the resolved target, creating an
// unassessed entry when the operator does not have the skill yet. It reports
// whether op changed.
func (r Resolver) Sync(op *domain.Operator, cfg domain.SkillConfig) bool {
	key := cfg.Key()
	if key == "" {
		return false
	}
	if op.Skills == nil {
		op.Skills = map[string]domain.SkillLevel{}
	}
	target := r.Target(cfg, op.Role)
	cur, ok := op.Skills[key]
	if ok && cur.Target == target {
		return false
	}
	cur.Target = target
	op.Skills[key] = cur
	return true
}

// ============================================================
// Skill matrix
// ============================================================

// MatrixCell is one operator × skill intersection.
type MatrixCell struct {
	Skill  string `json:"skill"`
	Target int    `json:"target"`
	Real   *int   `json:"real"`
	Status Status `json:"status"`
}

// MatrixRow is one operator line of the matrix.
type MatrixRow struct {
	OperatorID string       `json:"operatorId"`
	Name       string       `json:"name"`
	Role       string       `json:"role"`
	Cells      []MatrixCell `json:"cells"`
	Counts     StatusCounts `json:"counts"`
}

// Matrix is the skill-matrix view model.
type Matrix struct {
	Skills []string     `json:"skills"`
	Rows   []MatrixRow  `json:"rows"`
	Totals StatusCounts `json:"totals"`
}

// Matrix builds the operators × skills view. Columns are the configured skills
// sorted by key, followed by skills that only exist on operators. Targets come
// from the configs when present, otherwise from the operator's stored target.
func (r Resolver) Matrix(operators []domain.Operator, configs []domain.SkillConfig) Matrix {
	byKey := make(map[string]domain.SkillConfig, len(configs))
	var columns []string
	for _, cfg := range configs {
		key := cfg.Key()
		if key == "" {
			continue
		}
		if _, dup := byKey[key]; !dup {
			columns = append(columns, key)
		}
		byKey[key] = cfg
	}
	sort.Strings(columns)

	var extra []string
	seen := make(map[string]bool)
	for _, op := range operators {
		for key := range op.Skills {
			if _, ok := byKey[key]; ok || seen[key] {
				continue
			}
			seen[key] = true
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	columns = append(columns, extra...)

	m := Matrix{Skills: columns, Rows: make([]MatrixRow, 0, len(operators))}
	for _, op := range operators {
		row := MatrixRow{OperatorID: op.ID, Name: op.Name, Role: op.Role}
		for _, key := range columns {
			lvl := op.Skills[key]
			target := lvl.Target
			if cfg, ok := byKey[key]; ok {
				target = r.Target(cfg, op.Role)
			}
			status := Evaluate(lvl.Real, target)
			row.Cells = append(row.Cells, MatrixCell{Skill: key, Target: target, Real: lvl.Real, Status: status})
			row.Counts.Add(status)
		}
		m.Totals.Merge(row.Counts)
		m.Rows = append(m.Rows, row)
	}
	return m
}

// NextLevel cycles a real level for the toggle action: unassessed → 0 → 1 →
// … → 4 → 0.
func NextLevel(real *int) int {
	if real == nil {
		return 0
	}
	return (*real + 1) % (domain.MaxSkillLevel + 1)
}

// Package compliance rolls operator × procedure training records up into a
// compliance percentage and a list of missing, expired and expiring trainings.
package compliance

import (
	"math"

	"github.com/boddenberg/supervisor-bfa-go/internal/domain"
)

const (
	// DaysPerMonth is the fixed month length used for procedure validity.
	// Expiry is homologation + validityMonths*30 days, not calendar months.
	DaysPerMonth = 30

	// ExpiringWindowDays flags completed trainings whose procedure expires
	// within this many days.
	ExpiringWindowDays = 30
)

// FindingKind classifies a non-compliant operator × procedure pair.
type FindingKind string

const (
	FindingMissing      FindingKind = "MISSING"
	FindingExpired      FindingKind = "EXPIRED"
	FindingExpiringSoon FindingKind = "EXPIRING_SOON"
)

// Finding is one non-compliant pair.
type Finding struct {
	Kind           FindingKind           `json:"kind"`
	OperatorID     string                `json:"operatorId"`
	OperatorName   string                `json:"operatorName"`
	Role           string                `json:"role"`
	ProcedureID    string                `json:"procedureId"`
	ProcedureCode  string                `json:"procedureCode"`
	ProcedureTitle string                `json:"procedureTitle"`
	Status         domain.TrainingStatus `json:"status"`
	Expiry         domain.Date           `json:"expiry"`
	DaysLeft       int                   `json:"daysLeft"`
}

// Report is the aggregate over every required pair.
type Report struct {
	CompliancePercent int       `json:"compliancePercent"`
	Mandatory         int       `json:"mandatory"`
	Completed         int       `json:"completed"`
	Findings          []Finding `json:"findings"`
}

// Expiry returns homologationDate + validityMonths*DaysPerMonth. A procedure
// without a homologation date never expires (ok == false).
func Expiry(p domain.Procedure) (domain.Date, bool) {
	if p.HomologationDate.IsZero() {
		return domain.Date{}, false
	}
	return p.HomologationDate.AddDays(p.ValidityMonths * DaysPerMonth), true
}

// ClassifyExpiry classifies a completed training of p as of today. The second
// return is false when the training is compliant.
func ClassifyExpiry(p domain.Procedure, today domain.Date) (FindingKind, domain.Date, bool) {
	expiry, ok := Expiry(p)
	if !ok {
		return "", domain.Date{}, false
	}
	switch {
	case expiry.Before(today):
		return FindingExpired, expiry, true
	case expiry.Before(today.AddDays(ExpiringWindowDays)):
		return FindingExpiringSoon, expiry, true
	}
	return "", expiry, false
}

// pairResult is the evaluation of one required operator × procedure pair.
type pairResult struct {
	completed bool
	finding   *Finding
}

func evaluatePair(op domain.Operator, p domain.Procedure, idx domain.TrainingIndex, today domain.Date) pairResult {
	rec, found := idx[domain.TrainingKey{UID: op.UID, OperatorID: op.ID, ProcedureID: p.ID}]
	base := Finding{
		OperatorID:     op.ID,
		OperatorName:   op.Name,
		Role:           op.Role,
		ProcedureID:    p.ID,
		ProcedureCode:  p.Code,
		ProcedureTitle: p.Title,
	}

	if !found || rec.Status != domain.TrainingCompleted {
		base.Kind = FindingMissing
		base.Status = domain.TrainingPending
		if found && rec.Status != "" {
			base.Status = rec.Status
		}
		return pairResult{finding: &base}
	}

	base.Status = rec.Status
	kind, expiry, flagged := ClassifyExpiry(p, today)
	if !flagged {
		return pairResult{completed: true}
	}
	base.Kind = kind
	base.Expiry = expiry
	base.DaysLeft = today.DaysUntil(expiry)
	return pairResult{completed: true, finding: &base}
}

// Aggregate walks every operator × procedure pair where the procedure is
// required for the operator's role. Operators without required procedures
// contribute nothing to the denominator.
func Aggregate(operators []domain.Operator, procedures []domain.Procedure, records []domain.TrainingRecord, today domain.Date) Report {
	idx := domain.IndexTrainings(records)
	var r Report
	for _, op := range operators {
		for _, p := range procedures {
			if !p.RequiredFor(op.Role) {
				continue
			}
			r.Mandatory++
			res := evaluatePair(op, p, idx, today)
			if res.completed {
				r.Completed++
			}
			if res.finding != nil {
				r.Findings = append(r.Findings, *res.finding)
			}
		}
	}
	r.CompliancePercent = Percent(r.Completed, r.Mandatory)
	return r
}

// OperatorCompliance is the per-operator row of the training view.
type OperatorCompliance struct {
	OperatorID string    `json:"operatorId"`
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	Mandatory  int       `json:"mandatory"`
	Completed  int       `json:"completed"`
	Percent    int       `json:"percent"`
	Findings   []Finding `json:"findings"`
}

// PerOperator returns one row per operator, including operators without
// required procedures (Mandatory == 0, Percent == 0).
func PerOperator(operators []domain.Operator, procedures []domain.Procedure, records []domain.TrainingRecord, today domain.Date) []OperatorCompliance {
	idx := domain.IndexTrainings(records)
	rows := make([]OperatorCompliance, 0, len(operators))
	for _, op := range operators {
		row := OperatorCompliance{OperatorID: op.ID, Name: op.Name, Role: op.Role}
		for _, p := range procedures {
			if !p.RequiredFor(op.Role) {
				continue
			}
			row.Mandatory++
			res := evaluatePair(op, p, idx, today)
			if res.completed {
				row.Completed++
			}
			if res.finding != nil {
				row.Findings = append(row.Findings, *res.finding)
			}
		}
		row.Percent = Percent(row.Completed, row.Mandatory)
		rows = append(rows, row)
	}
	return rows
}

// Percent returns round(100*completed/mandatory), 0 when mandatory is 0.
func Percent(completed, mandatory int) int {
	if mandatory <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(mandatory)))
}

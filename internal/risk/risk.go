// Package risk scans the supervisor's collections and produces flat risk
// findings for the dashboard and for the AI summary. It performs no I/O.
package risk

import (
	"fmt"
	"sort"

	"github.com/boddenberg/supervisor-bfa-go/internal/compliance"
	"github.com/boddenberg/supervisor-bfa-go/internal/domain"
)

const (
	// CriticalGapMinTarget is the lowest target for which a zero real level
	// is reported as a critical gap.
	CriticalGapMinTarget = 2

	// RecurrenceWindowDays bounds the error-recurrence scan.
	RecurrenceWindowDays = 30
)

// Kind identifies the scan pass that produced a Risk.
type Kind string

const (
	KindTraining      Kind = "training"
	KindCriticalGap   Kind = "critical_gap"
	KindRecurrence    Kind = "recurrence"
	KindOverdueAction Kind = "overdue_action"
)

// Risk is one finding. Message is the text shown to the user and sent to the
// summariser; the other fields let callers filter or rank.
type Risk struct {
	Kind    Kind   `json:"kind"`
	Subject string `json:"subject"`
	Detail  string `json:"detail,omitempty"`
	Count   int    `json:"count,omitempty"`
	Message string `json:"message"`
}

// Detect runs the four passes and concatenates them in order: training,
// critical skill gaps, error recurrence, overdue action plans. It does not
// rank findings.
func Detect(
	operators []domain.Operator,
	procedures []domain.Procedure,
	records []domain.TrainingRecord,
	investigations []domain.HumanErrorInvestigation,
	today domain.Date,
) []Risk {
	var out []Risk
	out = append(out, trainingRisks(operators, procedures, records, today)...)
	out = append(out, criticalGaps(operators)...)
	out = append(out, recurrences(investigations, today)...)
	out = append(out, overdueActions(investigations, today)...)
	return out
}

// Messages extracts the plain text list handed to the text generator.
func Messages(risks []Risk) []string {
	out := make([]string, 0, len(risks))
	for _, r := range risks {
		out = append(out, r.Message)
	}
	return out
}

// CountByKind tallies risks per pass.
func CountByKind(risks []Risk) map[Kind]int {
	out := make(map[Kind]int)
	for _, r := range risks {
		out[r.Kind]++
	}
	return out
}

func trainingRisks(operators []domain.Operator, procedures []domain.Procedure, records []domain.TrainingRecord, today domain.Date) []Risk {
	report := compliance.Aggregate(operators, procedures, records, today)
	out := make([]Risk, 0, len(report.Findings))
	for _, f := range report.Findings {
		var msg string
		switch f.Kind {
		case compliance.FindingExpired:
			msg = fmt.Sprintf("Treinamento vencido: %s - POP %s (%s) venceu em %s",
				f.OperatorName, f.ProcedureCode, f.ProcedureTitle, f.Expiry)
		case compliance.FindingExpiringSoon:
			msg = fmt.Sprintf("Treinamento a vencer: %s - POP %s (%s) vence em %s (%d dias)",
				f.OperatorName, f.ProcedureCode, f.ProcedureTitle, f.Expiry, f.DaysLeft)
		default:
			msg = fmt.Sprintf("Treinamento pendente: %s - POP %s (%s) com status %s",
				f.OperatorName, f.ProcedureCode, f.ProcedureTitle, f.Status)
		}
		out = append(out, Risk{
			Kind:    KindTraining,
			Subject: f.OperatorName,
			Detail:  string(f.Kind),
			Message: msg,
		})
	}
	return out
}

func criticalGaps(operators []domain.Operator) []Risk {
	var out []Risk
	for _, op := range operators {
		keys := make([]string, 0, len(op.Skills))
		for k := range op.Skills {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, skill := range keys {
			lvl := op.Skills[skill]
			if lvl.Real == nil || *lvl.Real != 0 || lvl.Target < CriticalGapMinTarget {
				continue
			}
			out = append(out, Risk{
				Kind:    KindCriticalGap,
				Subject: op.Name,
				Detail:  skill,
				Message: fmt.Sprintf("Gap crítico: %s está com nível 0 em %s (alvo %d)", op.Name, skill, lvl.Target),
			})
		}
	}
	return out
}

func recurrences(investigations []domain.HumanErrorInvestigation, today domain.Date) []Risk {
	since := today.AddDays(-RecurrenceWindowDays)

	type group struct {
		name  string
		count int
	}
	inWindow := func(d domain.Date) bool {
		return !d.IsZero() && !d.Before(since) && !d.After(today)
	}

	// An occurrence linked only by operator id joins the name group that
	// id was seen with.
	idKeys := make(map[string]string)
	idNames := make(map[string]string)
	for _, inv := range investigations {
		o := inv.Occurrence
		if o.OperatorID == "" || !inWindow(o.Date) {
			continue
		}
		if k := domain.CanonicalKey(o.EmployeeName); k != "" {
			if _, ok := idKeys[o.OperatorID]; !ok {
				idKeys[o.OperatorID] = k
				idNames[o.OperatorID] = o.EmployeeName
			}
		}
	}

	var order []string
	groups := make(map[string]*group)
	for _, inv := range investigations {
		o := inv.Occurrence
		if !inWindow(o.Date) {
			continue
		}
		key, name := o.SubjectKey(), o.EmployeeName
		if domain.CanonicalKey(name) == "" {
			if k, ok := idKeys[o.OperatorID]; ok {
				key, name = k, idNames[o.OperatorID]
			}
		}
		if key == "" {
			continue
		}
		g, ok := groups[key]
		if !ok {
			if domain.CanonicalKey(name) == "" {
				name = o.OperatorID
			}
			g = &group{name: name}
			groups[key] = g
			order = append(order, key)
		}
		g.count++
	}

	var out []Risk
	for _, key := range order {
		g := groups[key]
		if g.count <= 1 {
			continue
		}
		out = append(out, Risk{
			Kind:    KindRecurrence,
			Subject: g.name,
			Count:   g.count,
			Message: fmt.Sprintf("Reincidência: %s teve %d erros humanos nos últimos %d dias", g.name, g.count, RecurrenceWindowDays),
		})
	}
	return out
}

func overdueActions(investigations []domain.HumanErrorInvestigation, today domain.Date) []Risk {
	var out []Risk
	for _, inv := range investigations {
		deadline := inv.ActionPlan.Deadline
		if deadline.IsZero() || !deadline.Before(today) {
			continue
		}
		out = append(out, Risk{
			Kind:    KindOverdueAction,
			Subject: inv.Occurrence.EmployeeName,
			Detail:  inv.ID,
			Message: fmt.Sprintf("Plano de ação atrasado: %s - \"%s\" venceu em %s",
				inv.Occurrence.EmployeeName, inv.ActionPlan.Action, deadline),
		})
	}
	return out
}

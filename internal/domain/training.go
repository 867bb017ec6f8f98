package domain

import (
	"fmt"
	"strings"
)

// ============================================================
// POPs (procedimentos operacionais padrão) & treinamentos
// ============================================================

// TrainingStatus is the state of one operator × procedure training.
type TrainingStatus string

const (
	TrainingPending   TrainingStatus = "Pendente"
	TrainingCompleted TrainingStatus = "Concluído"
	TrainingLate      TrainingStatus = "Atrasado"
)

// Valid reports whether s is one of the known statuses.
func (s TrainingStatus) Valid() bool {
	switch s {
	case TrainingPending, TrainingCompleted, TrainingLate:
		return true
	}
	return false
}

// Procedure (POP) is a standard operating procedure with a validity window.
type Procedure struct {
	ID               string   `json:"id"`
	UID              string   `json:"uid"`
	Code             string   `json:"code"`
	Title            string   `json:"title"`
	HomologationDate Date     `json:"homologationDate"`
	ValidityMonths   int      `json:"validityMonths"`
	Roles            []string `json:"roles"`
}

// Normalize canonicalises the role list in place.
func (p *Procedure) Normalize() {
	p.Code = strings.TrimSpace(p.Code)
	p.Roles = CanonicalKeys(p.Roles)
}

// RequiredFor reports whether operators with the given role must be trained.
func (p Procedure) RequiredFor(role string) bool {
	role = CanonicalKey(role)
	if role == "" {
		return false
	}
	for _, r := range p.Roles {
		if CanonicalKey(r) == role {
			return true
		}
	}
	return false
}

// TrainingKey identifies a training record by stable ids, so renaming an
// operator or recoding a procedure keeps its history attached.
type TrainingKey struct {
	UID         string
	OperatorID  string
	ProcedureID string
}

func (k TrainingKey) String() string {
	return fmt.Sprintf("%s_%s_%s", k.UID, k.OperatorID, k.ProcedureID)
}

// TrainingRecord is the training state of one operator for one procedure.
type TrainingRecord struct {
	ID          string         `json:"id"`
	UID         string         `json:"uid"`
	OperatorID  string         `json:"operatorId"`
	ProcedureID string         `json:"procedureId"`
	Status      TrainingStatus `json:"status"`
	Date        Date           `json:"date"`
}

// Key returns the composite key of the record.
func (r TrainingRecord) Key() TrainingKey {
	return TrainingKey{UID: r.UID, OperatorID: r.OperatorID, ProcedureID: r.ProcedureID}
}

// TrainingIndex indexes records by their composite key.
type TrainingIndex map[TrainingKey]TrainingRecord

// IndexTrainings builds a TrainingIndex; later records win on duplicate keys.
func IndexTrainings(records []TrainingRecord) TrainingIndex {
	idx := make(TrainingIndex, len(records))
	for _, r := range records {
		idx[r.Key()] = r
	}
	return idx
}

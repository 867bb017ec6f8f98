package domain

import (
	"strings"
	"time"
)

// ============================================================
// Investigação de erro humano
// ============================================================

// AnswerKnowledgeGap is the TWTTP answer that routes an investigation to the
// advanced TWTTP step instead of HERCA.
const AnswerKnowledgeGap = "falta conhecimento"

// Occurrence describes the event being investigated.
type Occurrence struct {
	OperatorID   string `json:"operatorId"`
	EmployeeName string `json:"employeeName"`
	Date         Date   `json:"date"`
	Shift        string `json:"shift,omitempty"`
	Area         string `json:"area,omitempty"`
	Description  string `json:"description"`
}

// SubjectKey groups occurrences by person: the canonical employee name, or
// the operator id when no name was entered. Occurrences typed with and
// without an operator link share the same key.
func (o Occurrence) SubjectKey() string {
	if k := CanonicalKey(o.EmployeeName); k != "" {
		return k
	}
	if o.OperatorID != "" {
		return "id:" + o.OperatorID
	}
	return ""
}

// TWTTPAnswer is one question of the Tell-Why-Try-Tell-Practice check.
type TWTTPAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// TWTTP is the ordered questionnaire.
type TWTTP []TWTTPAnswer

// HasKnowledgeGap reports whether any answer is "falta conhecimento".
func (t TWTTP) HasKnowledgeGap() bool {
	for _, a := range t {
		if strings.EqualFold(strings.TrimSpace(a.Answer), AnswerKnowledgeGap) {
			return true
		}
	}
	return false
}

// TWTTPAdvanced captures the knowledge-gap path.
type TWTTPAdvanced struct {
	MissingKnowledge string `json:"missingKnowledge"`
	RootCause        string `json:"rootCause"`
	RetrainingPlan   string `json:"retrainingPlan"`
	ProcedureCode    string `json:"procedureCode,omitempty"`
}

// HERCA is the contributing-factor checklist used when the error is not a
// pure knowledge gap.
type HERCA struct {
	Process     bool   `json:"process"`
	Procedure   bool   `json:"procedure"`
	Tools       bool   `json:"tools"`
	Workplace   bool   `json:"workplace"`
	Attitude    bool   `json:"attitude"`
	Inattention bool   `json:"inattention"`
	Notes       string `json:"notes,omitempty"`
}

// Factors lists the checked factors in checklist order.
func (h HERCA) Factors() []string {
	var out []string
	for _, f := range []struct {
		on   bool
		name string
	}{
		{h.Process, "processo"},
		{h.Procedure, "procedimento"},
		{h.Tools, "ferramentas"},
		{h.Workplace, "local de trabalho"},
		{h.Attitude, "atitude"},
		{h.Inattention, "desatenção"},
	} {
		if f.on {
			out = append(out, f.name)
		}
	}
	return out
}

// ActionPlan is the corrective action agreed at the end of the investigation.
type ActionPlan struct {
	Action      string `json:"action"`
	Responsible string `json:"responsible"`
	Deadline    Date   `json:"deadline"`
}

// HumanErrorInvestigation is the persisted result of the wizard. Exactly one
// of TWTTPAdvanced and HERCA is non-nil; the other is serialised as null.
type HumanErrorInvestigation struct {
	ID            string         `json:"id"`
	UID           string         `json:"uid"`
	Occurrence    Occurrence     `json:"occurrence"`
	TWTTP         TWTTP          `json:"twttp"`
	TWTTPAdvanced *TWTTPAdvanced `json:"twttpAdvanced"`
	HERCA         *HERCA         `json:"herca"`
	ActionPlan    ActionPlan     `json:"actionPlan"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// InvestigationDraft is the editable, not yet persisted wizard data.
type InvestigationDraft struct {
	InvestigationID string        `json:"investigationId,omitempty"`
	Occurrence      Occurrence    `json:"occurrence"`
	TWTTP           TWTTP         `json:"twttp"`
	TWTTPAdvanced   TWTTPAdvanced `json:"twttpAdvanced"`
	HERCA           HERCA         `json:"herca"`
	ActionPlan      ActionPlan    `json:"actionPlan"`
}

// DraftPatch carries the step data sent by the client; nil fields are kept.
type DraftPatch struct {
	Occurrence    *Occurrence    `json:"occurrence,omitempty"`
	TWTTP         TWTTP          `json:"twttp,omitempty"`
	TWTTPAdvanced *TWTTPAdvanced `json:"twttpAdvanced,omitempty"`
	HERCA         *HERCA         `json:"herca,omitempty"`
	ActionPlan    *ActionPlan    `json:"actionPlan,omitempty"`
}

// Apply merges the patch into d.
func (p DraftPatch) Apply(d *InvestigationDraft) {
	if p.Occurrence != nil {
		d.Occurrence = *p.Occurrence
	}
	if p.TWTTP != nil {
		d.TWTTP = p.TWTTP
	}
	if p.TWTTPAdvanced != nil {
		d.TWTTPAdvanced = *p.TWTTPAdvanced
	}
	if p.HERCA != nil {
		d.HERCA = *p.HERCA
	}
	if p.ActionPlan != nil {
		d.ActionPlan = *p.ActionPlan
	}
}

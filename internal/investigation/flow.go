// Package investigation implements the human-error investigation wizard:
//
//	Occurrence(1) → TWTTP(2) → TWTTPAdvanced(3) | HERCA(4) → ActionPlan(5) → Summary(6)
//
// Step 2 routes to the advanced TWTTP step when any answer is
// "falta conhecimento", otherwise to HERCA. Back navigation pops an explicit
// history stack, so returning from ActionPlan lands on whichever branch was
// actually visited.
package investigation

import (
	"fmt"
	"slices"
	"time"

	"github.com/boddenberg/supervisor-bfa-go/internal/domain"
)

// Step identifies a wizard state.
type Step int

const (
	StepOccurrence Step = iota + 1
	StepTWTTP
	StepTWTTPAdvanced
	StepHERCA
	StepActionPlan
	StepSummary
)

func (s Step) String() string {
	switch s {
	case StepOccurrence:
		return "occurrence"
	case StepTWTTP:
		return "twttp"
	case StepTWTTPAdvanced:
		return "twttp_advanced"
	case StepHERCA:
		return "herca"
	case StepActionPlan:
		return "action_plan"
	case StepSummary:
		return "summary"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Valid reports whether s is one of the six steps.
func (s Step) Valid() bool {
	return s >= StepOccurrence && s <= StepSummary
}

// Branch is the analysis path chosen after the TWTTP step.
type Branch string

const (
	BranchNone     Branch = ""
	BranchAdvanced Branch = "twttp_advanced"
	BranchHERCA    Branch = "herca"
)

// Controller holds the wizard state of one draft. It is not safe for
// concurrent use; callers load, mutate and save it per request.
type Controller struct {
	step    Step
	history []Step
	draft   domain.InvestigationDraft
}

// New starts an empty wizard at the occurrence step.
func New() *Controller {
	return &Controller{step: StepOccurrence}
}

// FromInvestigation re-enters the wizard at step 1 with a saved record, so it
// can be edited and saved again under the same id.
func FromInvestigation(inv domain.HumanErrorInvestigation) *Controller {
	d := domain.InvestigationDraft{
		InvestigationID: inv.ID,
		Occurrence:      inv.Occurrence,
		TWTTP:           append(domain.TWTTP(nil), inv.TWTTP...),
		ActionPlan:      inv.ActionPlan,
	}
	if inv.TWTTPAdvanced != nil {
		d.TWTTPAdvanced = *inv.TWTTPAdvanced
	}
	if inv.HERCA != nil {
		d.HERCA = *inv.HERCA
	}
	return &Controller{step: StepOccurrence, draft: d}
}

// Step returns the current step.
func (c *Controller) Step() Step { return c.step }

// History returns a copy of the visited steps, oldest first.
func (c *Controller) History() []Step {
	return append([]Step(nil), c.history...)
}

// Draft returns the current draft data.
func (c *Controller) Draft() domain.InvestigationDraft { return c.draft }

// Update merges client-entered step data into the draft. Once the wizard
// has left the TWTTP step the answers are frozen, since they decided the
// branch; resending them unchanged is accepted.
func (c *Controller) Update(p domain.DraftPatch) error {
	if p.TWTTP != nil && c.step > StepTWTTP && !slices.Equal(p.TWTTP, c.draft.TWTTP) {
		return &domain.ErrInvalidTransition{
			Step:   int(c.step),
			Action: "update",
			Reason: "TWTTP answers can only change on the TWTTP step",
		}
	}
	p.Apply(&c.draft)
	return nil
}

// successor is the transition function of the wizard.
func successor(s Step, d domain.InvestigationDraft) (Step, bool) {
	switch s {
	case StepOccurrence:
		return StepTWTTP, true
	case StepTWTTP:
		if d.TWTTP.HasKnowledgeGap() {
			return StepTWTTPAdvanced, true
		}
		return StepHERCA, true
	case StepTWTTPAdvanced, StepHERCA:
		return StepActionPlan, true
	case StepActionPlan:
		return StepSummary, true
	}
	return 0, false
}

// Next advances to the following step and pushes the current one on the
// history stack.
func (c *Controller) Next() (Step, error) {
	next, ok := successor(c.step, c.draft)
	if !ok {
		return c.step, &domain.ErrInvalidTransition{Step: int(c.step), Action: "next", Reason: "summary is the last step"}
	}
	c.history = append(c.history, c.step)
	c.step = next
	return c.step, nil
}

// Back restores the most recently visited step.
func (c *Controller) Back() (Step, error) {
	if len(c.history) == 0 {
		return c.step, &domain.ErrInvalidTransition{Step: int(c.step), Action: "back", Reason: "no previous step"}
	}
	last := len(c.history) - 1
	c.step = c.history[last]
	c.history = c.history[:last]
	return c.step, nil
}

// Branch returns the analysis branch on the current path.
func (c *Controller) Branch() Branch {
	for _, s := range append(c.History(), c.step) {
		switch s {
		case StepTWTTPAdvanced:
			return BranchAdvanced
		case StepHERCA:
			return BranchHERCA
		}
	}
	return BranchNone
}

// Assemble builds the record to persist. It is only allowed on the summary
// step; the branch not taken is left nil.
func (c *Controller) Assemble(id, uid string, now time.Time) (*domain.HumanErrorInvestigation, error) {
	if c.step != StepSummary {
		return nil, &domain.ErrInvalidTransition{Step: int(c.step), Action: "save", Reason: "investigation can only be saved from the summary step"}
	}
	branch := c.Branch()
	if gap := c.draft.TWTTP.HasKnowledgeGap(); (branch == BranchAdvanced) != gap {
		return nil, &domain.ErrInvalidTransition{Step: int(c.step), Action: "save", Reason: "TWTTP answers no longer match the branch taken"}
	}
	if c.draft.InvestigationID != "" {
		id = c.draft.InvestigationID
	}
	inv := &domain.HumanErrorInvestigation{
		ID:         id,
		UID:        uid,
		Occurrence: c.draft.Occurrence,
		TWTTP:      append(domain.TWTTP(nil), c.draft.TWTTP...),
		ActionPlan: c.draft.ActionPlan,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	switch branch {
	case BranchAdvanced:
		adv := c.draft.TWTTPAdvanced
		inv.TWTTPAdvanced = &adv
	case BranchHERCA:
		h := c.draft.HERCA
		inv.HERCA = &h
	}
	return inv, nil
}

// ============================================================
// Snapshots (draft auto-save)
// ============================================================

// Snapshot is the serialisable wizard state.
type Snapshot struct {
	Step    Step                      `json:"step"`
	History []Step                    `json:"history"`
	Draft   domain.InvestigationDraft `json:"draft"`
}

// Snapshot captures the current state.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{Step: c.step, History: c.History(), Draft: c.draft}
}

// Restore rebuilds a controller from a snapshot. The history plus the current
// step must form a path of legal transitions starting at the occurrence step.
// The TWTTP branch is checked only for shape (3 or 4); Assemble rejects a
// branch that disagrees with the answers.
func Restore(s Snapshot) (*Controller, error) {
	path := append(append([]Step(nil), s.History...), s.Step)
	for i, st := range path {
		if !st.Valid() {
			return nil, fmt.Errorf("snapshot: invalid step %d", int(st))
		}
		if i == 0 {
			if st != StepOccurrence {
				return nil, fmt.Errorf("snapshot: path must start at %s, got %s", StepOccurrence, st)
			}
			continue
		}
		if !legalEdge(path[i-1], st) {
			return nil, fmt.Errorf("snapshot: illegal transition %s -> %s", path[i-1], st)
		}
	}
	return &Controller{step: s.Step, history: append([]Step(nil), s.History...), draft: s.Draft}, nil
}

func legalEdge(from, to Step) bool {
	switch from {
	case StepOccurrence:
		return to == StepTWTTP
	case StepTWTTP:
		return to == StepTWTTPAdvanced || to == StepHERCA
	case StepTWTTPAdvanced, StepHERCA:
		return to == StepActionPlan
	case StepActionPlan:
		return to == StepSummary
	}
	return false
}

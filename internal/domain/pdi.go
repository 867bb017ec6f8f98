package domain

// Goal is one step of a career plan.
type Goal struct {
	Text      string `json:"text"`
	Deadline  Date   `json:"deadline"`
	Completed bool   `json:"completed"`
}

// PDI (Plano de Desenvolvimento Individual) is a goal-tracked career plan.
type PDI struct {
	ID              string `json:"id"`
	UID             string `json:"uid"`
	OperatorID      string `json:"operatorId,omitempty"`
	Employee        string `json:"employee"`
	CareerObjective string `json:"careerObjective"`
	Goals           []Goal `json:"goals"`
}

// Progress returns completed/total, 0 for a plan without goals.
func (p PDI) Progress() float64 {
	if len(p.Goals) == 0 {
		return 0
	}
	done := 0
	for _, g := range p.Goals {
		if g.Completed {
			done++
		}
	}
	return float64(done) / float64(len(p.Goals))
}

// CurrentGoal returns the first incomplete goal in list order and its index,
// or (nil, -1) when every goal is done.
func (p PDI) CurrentGoal() (*Goal, int) {
	for i := range p.Goals {
		if !p.Goals[i].Completed {
			return &p.Goals[i], i
		}
	}
	return nil, -1
}

// PDIView is the API representation of a plan with its derived fields.
type PDIView struct {
	PDI
	ProgressPercent  int   `json:"progressPercent"`
	CurrentGoal      *Goal `json:"currentGoal"`
	CurrentGoalIndex int   `json:"currentGoalIndex"`
}

// NewPDIView derives progress and current goal.
func NewPDIView(p PDI) PDIView {
	g, idx := p.CurrentGoal()
	return PDIView{
		PDI:              p,
		ProgressPercent:  int(p.Progress()*100 + 0.5),
		CurrentGoal:      g,
		CurrentGoalIndex: idx,
	}
}

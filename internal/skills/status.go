// Package skills evaluates skill gaps and resolves role-based skill targets.
package skills

// Status classifies the gap between a real and a target skill level.
type Status string

const (
	StatusOK       Status = "ok"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	StatusNA       Status = "na"
)

// Evaluate classifies a (real, target) pair. A nil real level means the skill
// was never assessed and yields StatusNA.
func Evaluate(real *int, target int) Status {
	if real == nil {
		return StatusNA
	}
	r := *real
	switch {
	case r >= target:
		return StatusOK
	case r == 0 || target-r > 1:
		return StatusCritical
	case target-r == 1:
		return StatusWarning
	}
	return StatusOK
}

// StatusCounts tallies statuses over a set of cells.
type StatusCounts struct {
	OK       int `json:"ok"`
	Warning  int `json:"warning"`
	Critical int `json:"critical"`
	NA       int `json:"na"`
}

// Add counts one status.
func (c *StatusCounts) Add(s Status) {
	switch s {
	case StatusOK:
		c.OK++
	case StatusWarning:
		c.Warning++
	case StatusCritical:
		c.Critical++
	case StatusNA:
		c.NA++
	}
}

// Merge adds o into c.
func (c *StatusCounts) Merge(o StatusCounts) {
	c.OK += o.OK
	c.Warning += o.Warning
	c.Critical += o.Critical
	c.NA += o.NA
}
